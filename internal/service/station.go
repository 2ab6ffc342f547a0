package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StationService manages monitoring station records.
type StationService struct {
	dataDir  string
	bus      *EventBus
	stations map[string]Station
	mu       sync.RWMutex
}

// NewStationService creates a station service backed by dataDir. Mutations
// are announced on bus when it is non-nil.
func NewStationService(dataDir string, bus *EventBus) *StationService {
	s := &StationService{
		dataDir:  dataDir,
		bus:      bus,
		stations: make(map[string]Station),
	}
	s.loadFromDisk()
	return s
}

// List returns all stations.
func (s *StationService) List() map[string]Station {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]Station, len(s.stations))
	for k, v := range s.stations {
		result[k] = v
	}
	return result
}

// Get returns a station by ID.
func (s *StationService) Get(id string) (Station, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	station, ok := s.stations[id]
	return station, ok
}

// Create adds a new station.
func (s *StationService) Create(station Station) (Station, error) {
	s.mu.Lock()

	if station.ID == "" {
		station.ID = generateID(station.Name)
	}
	if _, exists := s.stations[station.ID]; exists {
		s.mu.Unlock()
		return Station{}, fmt.Errorf("station with ID %q already exists", station.ID)
	}

	s.stations[station.ID] = station
	if err := s.saveToDisk(); err != nil {
		delete(s.stations, station.ID)
		s.mu.Unlock()
		return Station{}, err
	}
	s.mu.Unlock()

	s.publish("created", station.ID)
	return station, nil
}

// Update replaces a station by ID.
func (s *StationService) Update(id string, station Station) (Station, error) {
	s.mu.Lock()

	if _, exists := s.stations[id]; !exists {
		s.mu.Unlock()
		return Station{}, fmt.Errorf("station %q not found", id)
	}

	station.ID = id
	s.stations[id] = station
	if err := s.saveToDisk(); err != nil {
		s.mu.Unlock()
		return Station{}, err
	}
	s.mu.Unlock()

	s.publish("updated", id)
	return station, nil
}

// Delete removes a station by ID.
func (s *StationService) Delete(id string) error {
	s.mu.Lock()

	if _, exists := s.stations[id]; !exists {
		s.mu.Unlock()
		return fmt.Errorf("station %q not found", id)
	}

	delete(s.stations, id)
	if err := s.saveToDisk(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.publish("deleted", id)
	return nil
}

func (s *StationService) publish(action, id string) {
	if s.bus != nil {
		s.bus.Publish(Event{Resource: "stations", Action: action, ID: id})
	}
}

func (s *StationService) configFile() string {
	return filepath.Join(s.dataDir, "stations.json")
}

func (s *StationService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // file doesn't exist yet, start empty
	}

	var stations map[string]Station
	if err := json.Unmarshal(data, &stations); err != nil {
		return // invalid JSON, start empty
	}

	s.stations = stations
}

func (s *StationService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.stations, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
