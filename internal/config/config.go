package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/justyntemme/stockpile/internal/debug"
	"github.com/justyntemme/stockpile/internal/fs"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Manifest ManifestConfig `json:"manifest"`
	Install  InstallConfig  `json:"install"`
	Behavior BehaviorConfig `json:"behavior"`
	Store    StoreConfig    `json:"store"`
}

// ManifestConfig says where the component list comes from
type ManifestConfig struct {
	Path string `json:"path"` // Local manifest file; empty means use the cached copy
	URL  string `json:"url"`  // Key the cached copy is stored under
}

// InstallConfig holds destination settings
type InstallConfig struct {
	Destination    string   `json:"destination"`
	PathWarnLength int      `json:"pathWarnLength"` // Destination length that triggers a warning
	Shortcuts      []string `json:"shortcuts"`      // Files removed by a full uninstall
}

// BehaviorConfig holds behavior settings
type BehaviorConfig struct {
	ConfirmWarnings          bool `json:"confirmWarnings"`          // Prompt on path warnings instead of refusing
	OpenUpdatesWhenAvailable bool `json:"openUpdatesWhenAvailable"` // Pre-select the updates view when any exist
}

// StoreConfig holds the settings database location
type StoreConfig struct {
	Path string `json:"path"`
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	configDir, _ := os.UserConfigDir()
	return &Config{
		Manifest: ManifestConfig{
			URL: "https://download.example.org/stockpile/components.xml",
		},
		Install: InstallConfig{
			Destination:    filepath.Join(home, "Stockpile"),
			PathWarnLength: fs.DefaultMaxPathLength,
			Shortcuts: []string{
				filepath.Join(home, "Desktop", "Stockpile.lnk"),
				filepath.Join(configDir, "Microsoft", "Windows", "Start Menu", "Stockpile.lnk"),
			},
		},
		Behavior: BehaviorConfig{
			ConfirmWarnings:          true,
			OpenUpdatesWhenAvailable: true,
		},
		Store: StoreConfig{
			Path: filepath.Join(configDir, "stockpile", "stockpile.db"),
		},
	}
}

// ConfigPath returns the config file path: ~/.config/stockpile/config.json
// This is consistent across all platforms (Windows, macOS, Linux)
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "stockpile", "config.json")
}

// Load reads the configuration from the default config file
func (m *Manager) Load() error {
	return m.LoadFrom(ConfigPath())
}

// LoadFrom reads the configuration from path.
// If the file doesn't exist, creates it with defaults.
// If parsing fails, stores the error and returns defaults.
func (m *Manager) LoadFrom(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.path = path
	m.parseErr = nil

	// Ensure config directory exists
	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		log.Printf("Config: failed to create directory %s: %v", configDir, err)
		return err
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		log.Printf("Config: creating default config at %s", m.path)
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			log.Printf("Config: failed to save default config: %v", saveErr)
			return saveErr
		}
		return nil
	}
	if err != nil {
		log.Printf("Config: failed to read %s: %v", m.path, err)
		return err
	}

	// Unset fields keep their defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("Config: JSON parse error: %v", err)
		m.parseErr = err
		m.config = DefaultConfig()
		return nil // Don't return error - we're using defaults
	}
	if cfg.Install.PathWarnLength <= 0 {
		cfg.Install.PathWarnLength = fs.DefaultMaxPathLength
	}

	debug.Log(debug.CONFIG, "loaded from %s: %+v", m.path, *cfg)
	m.config = cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		m.path = ConfigPath()
	}
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetDestination updates the install destination
func (m *Manager) SetDestination(dest string) {
	m.mu.Lock()
	m.config.Install.Destination = dest
	m.mu.Unlock()
	m.Save()
}

// SetManifestPath updates the local manifest path
func (m *Manager) SetManifestPath(path string) {
	m.mu.Lock()
	m.config.Manifest.Path = path
	m.mu.Unlock()
	m.Save()
}

// GenerateConfig backs up existing config and creates a fresh default config
// Returns the backup path if a backup was created, or empty string if no existing config
func GenerateConfig(configPath string) (backupPath string, err error) {
	if _, err := os.Stat(configPath); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(configPath), "config.backup."+timestamp+".json")

		data, err := os.ReadFile(configPath)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}

	return backupPath, nil
}
