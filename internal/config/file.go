package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the optional YAML overlay named by CONFIG_FILE
type File struct {
	Recommendations RecommendationFile `yaml:"recommendations"`
}

// RecommendationFile tunes the recommendation engine
type RecommendationFile struct {
	Limit         int            `yaml:"limit"`
	DefaultGenres []string       `yaml:"default_genres"`
	Curated       []CuratedEntry `yaml:"curated"`
}

// CuratedEntry is one book of the curated fallback list
type CuratedEntry struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Authors   []string `yaml:"authors"`
	Genres    []string `yaml:"genres"`
	PageCount int      `yaml:"page_count"`
	Published string   `yaml:"published"`
	Reason    string   `yaml:"reason"`
}

// LoadFile reads and validates a YAML overlay
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.Recommendations.Limit < 0 {
		return nil, fmt.Errorf("recommendations.limit must not be negative")
	}
	for i, entry := range file.Recommendations.Curated {
		if entry.ID == "" || entry.Title == "" {
			return nil, fmt.Errorf("recommendations.curated[%d]: id and title are required", i)
		}
	}
	return &file, nil
}
