package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr  = "127.0.0.1:8080"
	defaultDBPath      = "flights.sqlite"
	defaultPrefsPath   = "flightviz.prefs.json"
	defaultPointBudget = 5000
)

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Decoder  DecoderConfig  `yaml:"decoder"`
	Renderer RendererConfig `yaml:"renderer"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel  string `yaml:"logLevel"`
	PrefsPath string `yaml:"prefsPath"`
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ServerConfig represents the HTTP API settings
type ServerConfig struct {
	ListenAddr string `yaml:"listenAddr"`

	// FileDialog enables the native open-file dialog for imports that do
	// not name a path.
	FileDialog bool `yaml:"fileDialog"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DBPath       string `yaml:"dbPath"`
	PointBudget  int    `yaml:"pointBudget"`
	MaxBatchSize int    `yaml:"maxBatchSize"`
}

// DecoderConfig represents the external log decoder invoked for formats
// the importer cannot parse directly
type DecoderConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// RendererConfig represents track scene and snapshot settings
type RendererConfig struct {
	Basemap      string `yaml:"basemap"`
	Subdivisions int    `yaml:"subdivisions"`
	FontPath     string `yaml:"fontPath"`
}

// NewConfig returns a configuration with usable defaults.
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			PrefsPath: defaultPrefsPath,
		},
		Server: ServerConfig{
			ListenAddr: defaultListenAddr,
			FileDialog: true,
		},
		Storage: StorageConfig{
			DBPath:      defaultDBPath,
			PointBudget: defaultPointBudget,
		},
	}
}

// LoadConfig reads the YAML configuration at path, applied over the
// defaults. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := NewConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = defaultListenAddr
	}
	if config.Storage.DBPath == "" {
		config.Storage.DBPath = defaultDBPath
	}
	if config.Storage.PointBudget <= 0 {
		config.Storage.PointBudget = defaultPointBudget
	}
	return config, nil
}
