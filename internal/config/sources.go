package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/townwire/townwire/internal/models"
)

// sourcesFile is the on-disk shape of the feed list.
type sourcesFile struct {
	Sources []models.SourceFeed `yaml:"sources"`
}

// LoadSources reads the YAML feed list. Feeds without an explicit id fall
// back to their name; inactive feeds are kept so callers can report on them.
func LoadSources(path string) ([]models.SourceFeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	for i := range file.Sources {
		if file.Sources[i].ID == "" {
			file.Sources[i].ID = file.Sources[i].Name
		}
		if file.Sources[i].URL == "" {
			return nil, fmt.Errorf("source %q has no url", file.Sources[i].Name)
		}
	}

	return file.Sources, nil
}
