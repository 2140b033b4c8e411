package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir     = ".feed-curator"
	minContentMaxTokens  = 500
	minOracleTimeout     = time.Second
	defaultPageCount     = 10
	defaultServePath     = "/feed.rss"
	defaultWatchSchedule = "@every 1h"
)

//go:embed config/settings.yaml
var defaultSettings string

// ConfigOverrides allows overriding the default settings location
type ConfigOverrides struct {
	SettingsPath *string
}

// AgentSettings configures one LLM agent
type AgentSettings struct {
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SourceSettings configures the listing source
type SourceSettings struct {
	URL     string        `yaml:"url"`
	Pages   int           `yaml:"pages"`
	Timeout time.Duration `yaml:"timeout"`
}

// ClassifierSettings configures relevance classification
type ClassifierSettings struct {
	Threshold float64       `yaml:"threshold"`
	Interval  time.Duration `yaml:"interval"`
	TagGroups []TagGroup    `yaml:"tag_groups"`
}

// SummarizerSettings configures the summarize mode
type SummarizerSettings struct {
	AgentSettings    `yaml:",inline"`
	ContentMaxTokens int           `yaml:"content_max_tokens"`
	Interval         time.Duration `yaml:"interval"`
}

// FeedSettings holds channel metadata for rendered feeds
type FeedSettings struct {
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	DataDirectory string             `yaml:"data_directory"`
	Source        SourceSettings     `yaml:"source"`
	Classifier    ClassifierSettings `yaml:"classifier"`
	Oracle        AgentSettings      `yaml:"oracle"`
	Summarizer    SummarizerSettings `yaml:"summarizer"`
	Feed          FeedSettings       `yaml:"feed"`
	Store         struct {
		Backend string `yaml:"backend"`
	} `yaml:"store"`
	Serve struct {
		Address string `yaml:"address"`
		Path    string `yaml:"path"`
	} `yaml:"serve"`
	Watch struct {
		Schedule string `yaml:"schedule"`
	} `yaml:"watch"`
}

// LoadSettings loads settings from the override path, or from the default
// location after writing the embedded defaults there on first run
func LoadSettings(overrides *ConfigOverrides) (*Settings, error) {
	if overrides != nil && overrides.SettingsPath != nil {
		return loadSettingsRequired(*overrides.SettingsPath)
	}

	if err := ensureConfigExists(); err != nil {
		return nil, fmt.Errorf("ensuring config files exist: %w", err)
	}
	return loadSettings(getConfigPath("settings.yaml"))
}

// parseSettings decodes data on top of the embedded defaults
func parseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	if err := settings.normalize(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// loadSettings falls back to the embedded defaults when path is missing
func loadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return parseSettings(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	return parseSettings(data)
}

// loadSettingsRequired fails when path is missing
func loadSettingsRequired(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	return parseSettings(data)
}

// normalize enforces minimums and rejects settings the pipeline cannot run with
func (s *Settings) normalize() error {
	if s.Source.Pages < 1 {
		slog.Warn("source.pages below 1, using default", "pages", s.Source.Pages, "default", defaultPageCount)
		s.Source.Pages = defaultPageCount
	}
	if s.Oracle.Timeout > 0 && s.Oracle.Timeout < minOracleTimeout {
		slog.Warn("oracle.timeout below minimum, using minimum", "timeout", s.Oracle.Timeout, "minimum", minOracleTimeout)
		s.Oracle.Timeout = minOracleTimeout
	}
	if s.Summarizer.ContentMaxTokens < minContentMaxTokens {
		slog.Warn("summarizer.content_max_tokens below minimum, using minimum",
			"content_max_tokens", s.Summarizer.ContentMaxTokens, "minimum", minContentMaxTokens)
		s.Summarizer.ContentMaxTokens = minContentMaxTokens
	}
	if s.Serve.Path == "" {
		s.Serve.Path = defaultServePath
	}
	if !strings.HasPrefix(s.Serve.Path, "/") {
		s.Serve.Path = "/" + s.Serve.Path
	}
	if s.Serve.Path == "/" || strings.HasSuffix(s.Serve.Path, "/") || strings.ContainsAny(s.Serve.Path, " {}") {
		return fmt.Errorf("serve.path must name a single resource such as %q, got %q", defaultServePath, s.Serve.Path)
	}
	if s.Watch.Schedule == "" {
		s.Watch.Schedule = defaultWatchSchedule
	}

	if s.DataDirectory == "" {
		return errors.New("data_directory must not be empty")
	}
	switch s.Store.Backend {
	case "", BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendJSON, BackendSQLite, s.Store.Backend)
	}
	for i, group := range s.Classifier.TagGroups {
		if group.Name == "" {
			return fmt.Errorf("classifier.tag_groups[%d] has no name", i)
		}
		if len(group.Topics) == 0 {
			return fmt.Errorf("classifier.tag_groups[%d] (%s) has no topics", i, group.Name)
		}
	}
	return nil
}

// getConfigPath returns the path to a config file in the config directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ensureConfigExists creates the config directory and writes the default
// settings.yaml if it doesn't exist
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsPath := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsPath); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(settingsPath, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing default settings: %w", err)
		}
	}
	return nil
}
