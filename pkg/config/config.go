package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"footprints/pkg/geo"
)

// ErrInvalid indicates a configuration value that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the converter configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Fields   FieldsConfig   `yaml:"fields"`
	Years    YearsConfig    `yaml:"years"`
	Simplify SimplifyConfig `yaml:"simplify"`
	Log      LogConfig      `yaml:"log"`
}

// InputConfig holds dataset reader settings.
type InputConfig struct {
	Layer string `yaml:"layer"` // GeoPackage table; empty picks the first feature table
}

// FieldsConfig names the input attributes consumed by the pipeline.
type FieldsConfig struct {
	Year string `yaml:"year"`
	ID   string `yaml:"id"`
}

// YearsConfig holds year validation settings.
type YearsConfig struct {
	CurrentYear int `yaml:"current_year"` // Upper bound for construction years
}

// SimplifyConfig holds geometry simplification settings.
type SimplifyConfig struct {
	Tolerance float64 `yaml:"tolerance"` // Degrees; <= 0 disables simplification
	Algorithm string  `yaml:"algorithm"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"` // Optional log file; console only when empty
}

// Environment variables that override file values.
const (
	EnvYearField   = "FOOTPRINTS_YEAR_FIELD"
	EnvIDField     = "FOOTPRINTS_ID_FIELD"
	EnvCurrentYear = "FOOTPRINTS_CURRENT_YEAR"
	EnvLogLevel    = "FOOTPRINTS_LOG_LEVEL"
	EnvLogPath     = "FOOTPRINTS_LOG_PATH"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Fields: FieldsConfig{
			Year: "YEAR_BUILT",
			ID:   "BLDG_ID",
		},
		Years: YearsConfig{
			CurrentYear: 2026,
		},
		Simplify: SimplifyConfig{
			Tolerance: 0.00001,
			Algorithm: geo.AlgorithmTopology,
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}

// Load returns the defaults merged with the file at path and then with
// FOOTPRINTS_* environment variables. An empty path or a missing file means
// defaults only. The file is never written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvYearField); v != "" {
		c.Fields.Year = v
	}
	if v := os.Getenv(EnvIDField); v != "" {
		c.Fields.ID = v
	}
	if v := os.Getenv(EnvCurrentYear); v != "" {
		year, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, EnvCurrentYear, v)
		}
		c.Years.CurrentYear = year
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogPath); v != "" {
		c.Log.Path = v
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Fields.Year) == "" {
		return fmt.Errorf("%w: fields.year must not be empty", ErrInvalid)
	}
	if strings.TrimSpace(c.Fields.ID) == "" {
		return fmt.Errorf("%w: fields.id must not be empty", ErrInvalid)
	}
	switch c.Simplify.Algorithm {
	case geo.AlgorithmTopology, geo.AlgorithmDouglasPeucker, geo.AlgorithmVisvalingam:
	default:
		return fmt.Errorf("%w: simplify.algorithm %q (want %s, %s or %s)", ErrInvalid, c.Simplify.Algorithm,
			geo.AlgorithmTopology, geo.AlgorithmDouglasPeucker, geo.AlgorithmVisvalingam)
	}
	return nil
}

// Save writes the configuration to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Footprints Configuration
# ------------------------
# Command line flags override these values; FOOTPRINTS_* environment
# variables (also read from .env) override the file.

`)
	data = append(header, data...)

	reAlgo := regexp.MustCompile(`(?m)^(\s+)algorithm:`)
	data = reAlgo.ReplaceAll(data, []byte("${1}# Options: topology, douglas-peucker, visvalingam\n${1}algorithm:"))

	reTol := regexp.MustCompile(`(?m)^(\s+)tolerance:`)
	data = reTol.ReplaceAll(data, []byte("${1}# Degrees in EPSG:4326; 0 disables simplification\n${1}tolerance:"))

	reLevel := regexp.MustCompile(`(?m)^(\s+)level:`)
	data = reLevel.ReplaceAll(data, []byte("${1}# Options: DEBUG, INFO, WARN, ERROR\n${1}level:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
