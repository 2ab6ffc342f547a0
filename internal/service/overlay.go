package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// OverlayService manages pollutant overlay configurations.
type OverlayService struct {
	dataDir  string
	bus      *EventBus
	overlays map[string]Overlay
	mu       sync.RWMutex
}

// NewOverlayService creates an overlay service backed by dataDir.
func NewOverlayService(dataDir string, bus *EventBus) *OverlayService {
	s := &OverlayService{
		dataDir:  dataDir,
		bus:      bus,
		overlays: make(map[string]Overlay),
	}
	s.loadFromDisk()
	return s
}

// List returns all overlay configurations.
func (s *OverlayService) List() map[string]Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]Overlay, len(s.overlays))
	for k, v := range s.overlays {
		result[k] = v
	}
	return result
}

// Get returns an overlay by ID.
func (s *OverlayService) Get(id string) (Overlay, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overlay, ok := s.overlays[id]
	return overlay, ok
}

// Create adds a new overlay configuration.
func (s *OverlayService) Create(overlay Overlay) (Overlay, error) {
	if err := validateOverlay(overlay); err != nil {
		return Overlay{}, err
	}

	s.mu.Lock()
	if overlay.ID == "" {
		overlay.ID = generateID(overlay.Name)
	}
	if _, exists := s.overlays[overlay.ID]; exists {
		s.mu.Unlock()
		return Overlay{}, fmt.Errorf("overlay with ID %q already exists", overlay.ID)
	}

	s.overlays[overlay.ID] = overlay
	if err := s.saveToDisk(); err != nil {
		delete(s.overlays, overlay.ID)
		s.mu.Unlock()
		return Overlay{}, err
	}
	s.mu.Unlock()

	s.publish("created", overlay.ID)
	return overlay, nil
}

// Update replaces an overlay configuration by ID.
func (s *OverlayService) Update(id string, overlay Overlay) (Overlay, error) {
	if err := validateOverlay(overlay); err != nil {
		return Overlay{}, err
	}

	s.mu.Lock()
	if _, exists := s.overlays[id]; !exists {
		s.mu.Unlock()
		return Overlay{}, fmt.Errorf("overlay %q not found", id)
	}

	overlay.ID = id
	s.overlays[id] = overlay
	if err := s.saveToDisk(); err != nil {
		s.mu.Unlock()
		return Overlay{}, err
	}
	s.mu.Unlock()

	s.publish("updated", id)
	return overlay, nil
}

// Delete removes an overlay by ID.
func (s *OverlayService) Delete(id string) error {
	s.mu.Lock()

	if _, exists := s.overlays[id]; !exists {
		s.mu.Unlock()
		return fmt.Errorf("overlay %q not found", id)
	}

	delete(s.overlays, id)
	if err := s.saveToDisk(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.publish("deleted", id)
	return nil
}

func validateOverlay(o Overlay) error {
	if o.Pollutant == "" {
		return fmt.Errorf("overlay pollutant is required")
	}
	switch o.GeomType {
	case "polygon", "line", "point":
	default:
		return fmt.Errorf("unsupported geometry type %q", o.GeomType)
	}
	if o.Opacity < 0 || o.Opacity > 1 {
		return fmt.Errorf("opacity %v out of range [0,1]", o.Opacity)
	}
	return nil
}

func (s *OverlayService) publish(action, id string) {
	if s.bus != nil {
		s.bus.Publish(Event{Resource: "overlays", Action: action, ID: id})
	}
}

func (s *OverlayService) configFile() string {
	return filepath.Join(s.dataDir, "overlays.json")
}

func (s *OverlayService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return
	}

	var overlays map[string]Overlay
	if err := json.Unmarshal(data, &overlays); err != nil {
		return
	}

	s.overlays = overlays
}

func (s *OverlayService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.overlays, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}
