package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	View    ViewConfig    `json:"view" yaml:"view"`
	History HistoryConfig `json:"history" yaml:"history"`
	State   StateConfig   `json:"state" yaml:"state"`
	Tool    ToolConfig    `json:"tool" yaml:"tool"`
}

// ViewConfig describes the view to build from.
type ViewConfig struct {
	Tag             string   `json:"tag" yaml:"tag"`
	Path            string   `json:"path" yaml:"path"` // snapshot views only
	Live            bool     `json:"live" yaml:"live"`
	Stream          string   `json:"stream" yaml:"stream"`
	StorageLocation string   `json:"storageLocation" yaml:"storageLocation"`
	ExtraParams     string   `json:"extraParams" yaml:"extraParams"`     // extra mkview arguments
	UpdateInPlace   bool     `json:"updateInPlace" yaml:"updateInPlace"` // Default: true
	ConfigSpec      string   `json:"configSpec" yaml:"configSpec"`
	ConfigSpecFile  string   `json:"configSpecFile" yaml:"configSpecFile"`
	LoadRules       []string `json:"loadRules" yaml:"loadRules"`
	FreezeLiveViews bool     `json:"freezeLiveViews" yaml:"freezeLiveViews"` // Default: true
	Windows         bool     `json:"windows" yaml:"windows"`                 // Default: runtime.GOOS == "windows"
}

// HistoryConfig holds changelog options.
type HistoryConfig struct {
	WindowSeconds          int      `json:"windowSeconds" yaml:"windowSeconds"` // Default: 10
	Branches               []string `json:"branches" yaml:"branches"`
	Paths                  []string `json:"paths" yaml:"paths"`
	Include                []string `json:"include" yaml:"include"`
	Exclude                []string `json:"exclude" yaml:"exclude"`
	ExcludedUsers          []string `json:"excludedUsers" yaml:"excludedUsers"`
	KeepDestroySubBranch   bool     `json:"keepDestroySubBranch" yaml:"keepDestroySubBranch"`
	FilterOutsideLoadRules bool     `json:"filterOutsideLoadRules" yaml:"filterOutsideLoadRules"`
	Delimiter              string   `json:"delimiter" yaml:"delimiter"`         // Default: "|#|"
	ActivityDepth          int      `json:"activityDepth" yaml:"activityDepth"` // Default: 3
	BenignErrors           []string `json:"benignErrors" yaml:"benignErrors"`
}

// StateConfig holds the locations of the build records.
type StateConfig struct {
	Database    string `json:"database" yaml:"database"`       // Default: .ccbuild/state.db
	SpecArchive string `json:"specArchive" yaml:"specArchive"` // Default: .ccbuild/specs
}

// ToolConfig holds the external tool settings.
type ToolConfig struct {
	Executable string `json:"executable" yaml:"executable"` // Default: cleartool
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		View: ViewConfig{
			UpdateInPlace:   true,
			FreezeLiveViews: true,
			Windows:         runtime.GOOS == "windows",
			LoadRules:       []string{},
		},
		History: HistoryConfig{
			WindowSeconds: 10,
			Delimiter:     "|#|",
			ActivityDepth: 3,
			BenignErrors: []string{
				"Branch type not found",
				"Not a vob object",
				"not within a VOB",
			},
			Include: []string{},
			Exclude: []string{},
		},
		State: StateConfig{
			Database:    filepath.Join(".ccbuild", "state.db"),
			SpecArchive: filepath.Join(".ccbuild", "specs"),
		},
		Tool: ToolConfig{
			Executable: "cleartool",
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.History.WindowSeconds < 0 {
		return fmt.Errorf("history.windowSeconds must not be negative: %d", c.History.WindowSeconds)
	}
	if c.History.ActivityDepth < 1 {
		return fmt.Errorf("history.activityDepth must be at least 1: %d", c.History.ActivityDepth)
	}
	if c.History.Delimiter == "" {
		return errors.New("history.delimiter must not be empty")
	}
	if c.View.ConfigSpec != "" && c.View.ConfigSpecFile != "" {
		return errors.New("view.configSpec and view.configSpecFile are mutually exclusive")
	}
	return nil
}

// SpecText returns the configured config spec, reading ConfigSpecFile when set.
func (v ViewConfig) SpecText() (string, error) {
	if v.ConfigSpecFile == "" {
		return v.ConfigSpec, nil
	}
	data, err := os.ReadFile(v.ConfigSpecFile)
	if err != nil {
		return "", fmt.Errorf("read config spec file: %w", err)
	}
	return string(data), nil
}

var defaultFileNames = []string{".ccbuild.json", ".ccbuild.yaml", ".ccbuild.yml"}

// LoadConfig loads configuration from a file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		// Try default locations
		dirs := []string{"."}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			dirs = append(dirs, home)
		} else if envHome := os.Getenv("HOME"); envHome != "" {
			dirs = append(dirs, envHome)
		}
	search:
		for _, dir := range dirs {
			for _, name := range defaultFileNames {
				p := filepath.Join(dir, name)
				if _, err := os.Stat(p); err == nil {
					path = p
					break search
				}
			}
		}
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
