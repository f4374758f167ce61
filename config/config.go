package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"newsroom/models"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// DefaultSourcesFile is looked up in the working directory when no path is configured
const DefaultSourcesFile = "sources.json"

var ErrNoSourcesFile = errors.New("no sources file found")

// TomlSource represents a source entry in a TOML sources file
type TomlSource struct {
	Name     string `toml:"name"`
	Url      string `toml:"url"`
	Language string `toml:"language,omitempty"`
	Category string `toml:"category,omitempty"`
	Enabled  *bool  `toml:"enabled,omitempty"`
}

// TomlConfig represents the top-level TOML sources file
type TomlConfig struct {
	Sources []TomlSource `toml:"sources"`
}

// LoadSources reads a source list from a JSON array or a TOML file with [[sources]] tables
func LoadSources(path string) ([]models.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading sources file: %w", err)
	}

	var sources []models.Source
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var cfg TomlConfig
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("error parsing sources file: %w", err)
		}
		sources = lo.Map(cfg.Sources, func(s TomlSource, _ int) models.Source {
			return models.Source{
				Name:     s.Name,
				Url:      s.Url,
				Language: s.Language,
				Category: s.Category,
				Enabled:  s.Enabled == nil || *s.Enabled,
			}
		})
	} else if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("error parsing sources file: %w", err)
	}

	if err := Validate(sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// Validate requires a name and url on every source and unique names
func Validate(sources []models.Source) error {
	for i, s := range sources {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("source %d: missing name", i)
		}
		if strings.TrimSpace(s.Url) == "" {
			return fmt.Errorf("source %q: missing url", s.Name)
		}
	}
	if dups := lo.FindDuplicatesBy(sources, func(s models.Source) string { return s.Name }); len(dups) > 0 {
		return fmt.Errorf("duplicate source name %q", dups[0].Name)
	}
	return nil
}

// ResolveSourcesPath returns the configured path if it exists, then ./sources.json
func ResolveSourcesPath(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		log.WithFields(log.Fields{
			"path": configured,
		}).Warn("Configured sources file does not exist")
	}
	if _, err := os.Stat(DefaultSourcesFile); err == nil {
		return DefaultSourcesFile, nil
	}
	return "", ErrNoSourcesFile
}

// Registry supplies the current source list. The file is re-read on every call
// so edits are picked up by the next ingestion pass.
type Registry struct {
	path string
}

func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Sources returns the configured sources, or the built-in defaults when no file
// is found or it cannot be loaded
func (r *Registry) Sources() []models.Source {
	path, err := ResolveSourcesPath(r.path)
	if err != nil {
		log.Debug("No sources file, using built-in defaults")
		return DefaultSources()
	}

	sources, err := LoadSources(path)
	if err != nil {
		log.WithFields(log.Fields{
			"path":  path,
			"error": err,
		}).Warn("Failed to load sources file, using built-in defaults")
		return DefaultSources()
	}
	return sources
}

// Enabled filters a source list down to enabled sources
func Enabled(sources []models.Source) []models.Source {
	return lo.Filter(sources, func(s models.Source, _ int) bool {
		return s.Enabled
	})
}
