// Package config loads lipread settings from ~/.lipread/config.yaml with
// LIPREAD_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. LIPREAD_CLASSIFIER_THRESHOLD.
const EnvPrefix = "LIPREAD"

// Config is the complete application configuration.
type Config struct {
	Vocabulary []string         `mapstructure:"vocabulary" yaml:"vocabulary"`
	Window     int              `mapstructure:"window" yaml:"window"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Training   TrainingConfig   `mapstructure:"training" yaml:"training"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Camera     CameraConfig     `mapstructure:"camera" yaml:"camera"`
	Detector   DetectorConfig   `mapstructure:"detector" yaml:"detector"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Plugins    PluginsConfig    `mapstructure:"plugins" yaml:"plugins"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Tray       TrayConfig       `mapstructure:"tray" yaml:"tray"`
}

// ClassifierConfig tunes word matching.
type ClassifierConfig struct {
	// Threshold is the squared pattern distance a window must stay under.
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
	// Cooldown is the number of windows suppressed after a prediction.
	Cooldown int `mapstructure:"cooldown" yaml:"cooldown"`
}

// TrainingConfig sets the training goal shown to users.
type TrainingConfig struct {
	TargetSamples int `mapstructure:"target_samples" yaml:"target_samples"`
}

// Pattern store backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// StoreConfig locates persisted data.
type StoreConfig struct {
	// Backend is "json" or "sqlite".
	Backend      string `mapstructure:"backend" yaml:"backend"`
	PatternsPath string `mapstructure:"patterns_path" yaml:"patterns_path"`
	DBPath       string `mapstructure:"db_path" yaml:"db_path"`
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	DeviceID int `mapstructure:"device_id" yaml:"device_id"`
	FPS      int `mapstructure:"fps" yaml:"fps"`
}

// DetectorConfig configures the face mesh service.
type DetectorConfig struct {
	MaxFaces              int     `mapstructure:"max_faces" yaml:"max_faces"`
	MinConfidence         float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	MinTrackingConfidence float64 `mapstructure:"min_tracking_confidence" yaml:"min_tracking_confidence"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

// PluginsConfig locates action plugins.
type PluginsConfig struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	TimeoutMs int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// TrayConfig toggles the menu bar icon.
type TrayConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Vocabulary: []string{"hello", "yes", "no", "thank you", "please"},
		Window:     30,
		Classifier: ClassifierConfig{
			Threshold: 0.01,
			Cooldown:  10,
		},
		Training: TrainingConfig{
			TargetSamples: 5,
		},
		Store: StoreConfig{
			Backend:      BackendJSON,
			PatternsPath: "~/.lipread/patterns.json",
			DBPath:       "~/.lipread/lipread.db",
		},
		Camera: CameraConfig{
			DeviceID: 0,
			FPS:      15,
		},
		Detector: DetectorConfig{
			MaxFaces:              1,
			MinConfidence:         0.5,
			MinTrackingConfidence: 0.5,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Plugins: PluginsConfig{
			Dir:       "~/.lipread/plugins",
			TimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Tray: TrayConfig{
			Enabled: false,
		},
	}
}

// DefaultPath returns ~/.lipread/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".lipread", "config.yaml"), nil
}

// Load reads the configuration from DefaultPath.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from path and merges environment
// overrides. A missing file is created with default values.
func LoadFromPath(path string) (*Config, error) {
	path = ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example: LIPREAD_CLASSIFIER_THRESHOLD=0.02
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Store.PatternsPath = ExpandPath(cfg.Store.PatternsPath)
	cfg.Store.DBPath = ExpandPath(cfg.Store.DBPath)
	cfg.Plugins.Dir = ExpandPath(cfg.Plugins.Dir)
	cfg.Server.StaticDir = ExpandPath(cfg.Server.StaticDir)

	return &cfg, nil
}

// SaveToPath writes the configuration to path as YAML.
func (c *Config) SaveToPath(path string) error {
	path = ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// Validate checks the configuration for values the reader cannot run with.
func (c *Config) Validate() error {
	if len(c.Vocabulary) == 0 {
		return fmt.Errorf("vocabulary cannot be empty")
	}
	for _, w := range c.Vocabulary {
		if strings.TrimSpace(w) == "" {
			return fmt.Errorf("vocabulary cannot contain blank words")
		}
	}

	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %d", c.Window)
	}

	if c.Classifier.Threshold <= 0 {
		return fmt.Errorf("classifier.threshold must be positive, got %g", c.Classifier.Threshold)
	}
	if c.Classifier.Cooldown < 0 {
		return fmt.Errorf("classifier.cooldown cannot be negative")
	}

	if c.Training.TargetSamples <= 0 {
		return fmt.Errorf("training.target_samples must be positive")
	}

	switch c.Store.Backend {
	case BackendJSON:
		if c.Store.PatternsPath == "" {
			return fmt.Errorf("store.patterns_path is required for the json backend")
		}
	case BackendSQLite:
	default:
		return fmt.Errorf("invalid store.backend '%s', must be one of: json, sqlite", c.Store.Backend)
	}
	if c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path cannot be empty")
	}

	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera.fps must be positive")
	}

	if c.Detector.MaxFaces < 1 {
		return fmt.Errorf("detector.max_faces must be at least 1")
	}
	if !unit(c.Detector.MinConfidence) || !unit(c.Detector.MinTrackingConfidence) {
		return fmt.Errorf("detector confidences must be between 0 and 1")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	if c.Plugins.TimeoutMs <= 0 {
		return fmt.Errorf("plugins.timeout_ms must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format '%s', must be 'console' or 'json'", c.Logging.Format)
	}

	return nil
}

func unit(f float64) bool {
	return f >= 0 && f <= 1
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("vocabulary", d.Vocabulary)
	v.SetDefault("window", d.Window)
	v.SetDefault("classifier.threshold", d.Classifier.Threshold)
	v.SetDefault("classifier.cooldown", d.Classifier.Cooldown)
	v.SetDefault("training.target_samples", d.Training.TargetSamples)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.patterns_path", d.Store.PatternsPath)
	v.SetDefault("store.db_path", d.Store.DBPath)
	v.SetDefault("camera.device_id", d.Camera.DeviceID)
	v.SetDefault("camera.fps", d.Camera.FPS)
	v.SetDefault("detector.max_faces", d.Detector.MaxFaces)
	v.SetDefault("detector.min_confidence", d.Detector.MinConfidence)
	v.SetDefault("detector.min_tracking_confidence", d.Detector.MinTrackingConfidence)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("plugins.dir", d.Plugins.Dir)
	v.SetDefault("plugins.timeout_ms", d.Plugins.TimeoutMs)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("tray.enabled", d.Tray.Enabled)
}

// writeConfigFile writes cfg as YAML using its yaml struct tags.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
