package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for fwt.
type Config struct {
	// DataDir is the Foundry user data directory stored path references
	// are relative to. Empty means auto-detect, falling back to the
	// project root.
	DataDir string `toml:"data_dir"`

	// TrashDir is the name of the per-project trash directory.
	TrashDir string `toml:"trash_dir"`

	LogDir      string `toml:"log_dir"`
	HistoryPath string `toml:"history_path"`

	// ExcludeDirs are glob patterns for directories every scan skips, in
	// addition to the built-in trash, data and packs exclusions.
	ExcludeDirs []string `toml:"exclude_dirs"`

	// Presets are named bundles of command flags, applied with --preset.
	Presets map[string]Preset `toml:"presets"`
}

// Preset is a saved set of flags for one command. Command names which
// command the preset applies to; the remaining fields mirror that command's
// flags and only the relevant ones are used.
type Preset struct {
	Command     string `toml:"command"`
	Description string `toml:"description,omitempty"`

	Ext         []string `toml:"ext,omitempty"`
	Preferred   []string `toml:"preferred,omitempty"`
	Remove      []string `toml:"remove,omitempty"`
	Replace     []string `toml:"replace,omitempty"`
	ByName      bool     `toml:"byname,omitempty"`
	ByContent   bool     `toml:"bycontent,omitempty"`
	Lower       bool     `toml:"lower,omitempty"`
	ExcludeDirs []string `toml:"exclude_dirs,omitempty"`
}

// NewConfig creates a new Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		TrashDir:    "trash",
		LogDir:      filepath.Join(baseDir, "log"),
		HistoryPath: filepath.Join(baseDir, "history.db"),
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.TrashDir == "" {
		cfg.TrashDir = "trash"
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided
// Config. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
