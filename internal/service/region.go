package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// RegionService manages administrative boundary files.
type RegionService struct {
	regionsDir string
}

// NewRegionService creates a new region service.
func NewRegionService(dataDir string) *RegionService {
	return &RegionService{
		regionsDir: filepath.Join(dataDir, "regions"),
	}
}

// List returns all available boundary files.
func (s *RegionService) List() ([]RegionFile, error) {
	entries, err := os.ReadDir(s.regionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RegionFile{}, nil
		}
		return nil, err
	}

	var files []RegionFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".geojson" && ext != ".json" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, RegionFile{
			Name: entry.Name(),
			Size: formatSize(info.Size()),
		})
	}

	return files, nil
}

// Load parses a boundary file into a feature collection. The name must be
// a bare file name; path traversal is rejected.
func (s *RegionService) Load(name string) (*geojson.FeatureCollection, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid region file name %q", name)
	}

	data, err := os.ReadFile(filepath.Join(s.regionsDir, name))
	if err != nil {
		return nil, fmt.Errorf("read region file %q: %w", name, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse region file %q: %w", name, err)
	}
	return fc, nil
}

// RegionsDir returns the path to the regions directory.
func (s *RegionService) RegionsDir() string {
	return s.regionsDir
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
