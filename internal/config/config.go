package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Document store drivers.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
	DriverBleve  = "bleve"
)

// Config holds the kbsearch API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Counters CountersConfig `yaml:"counters"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Search   SearchConfig   `yaml:"search"`
	Views    ViewsConfig    `yaml:"views"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds document store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory, bleve (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	// BlevePath is the on-disk index directory for the bleve driver. Empty keeps it in memory.
	BlevePath string `yaml:"bleve_path"`
}

// CountersConfig holds counter store connection settings.
// Empty Addrs shares the document store connection when the driver is redis,
// and falls back to an in-process store otherwise.
type CountersConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
}

// StorageConfig holds keyspace settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// AnalysisConfig selects the analyzer shared by indexing and querying.
type AnalysisConfig struct {
	Analyzer string `yaml:"analyzer"` // standard, en, simple
}

// RankingConfig holds the ranking policy.
type RankingConfig struct {
	TitleBoost *float64 `yaml:"title_boost"` // factor or bonus; explicit 0 is kept
	BoostMode  string   `yaml:"boost_mode"`  // multiplicative, additive
	Precision  *int     `yaml:"precision"`   // decimal places for relevance ties
	Scoring    string   `yaml:"scoring"`     // dot, cosine
}

// SearchConfig holds query pipeline limits.
type SearchConfig struct {
	StoreTimeoutMs   int   `yaml:"store_timeout_ms"`
	CounterTimeoutMs int   `yaml:"counter_timeout_ms"`
	TrackSearchHits  *bool `yaml:"track_search_hits"` // count a view per returned hit
}

// ViewsConfig holds background view counting settings.
type ViewsConfig struct {
	MaxInFlight      int64 `yaml:"max_in_flight"`
	MaxAttempts      int   `yaml:"max_attempts"`
	TimeoutMs        int   `yaml:"timeout_ms"`
	InitialBackoffMs int   `yaml:"initial_backoff_ms"`
}

// StoreTimeout returns the document store budget.
func (c SearchConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMs) * time.Millisecond
}

// CounterTimeout returns the counter store budget.
func (c SearchConfig) CounterTimeout() time.Duration {
	return time.Duration(c.CounterTimeoutMs) * time.Millisecond
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML with ${VAR:-default} substitution, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "kb:"
	}
	if c.Analysis.Analyzer == "" {
		c.Analysis.Analyzer = "standard"
	}
	if c.Ranking.TitleBoost == nil {
		b := 2.0
		c.Ranking.TitleBoost = &b
	}
	if c.Ranking.BoostMode == "" {
		c.Ranking.BoostMode = "multiplicative"
	}
	if c.Ranking.Precision == nil {
		p := 4
		c.Ranking.Precision = &p
	}
	if c.Ranking.Scoring == "" {
		c.Ranking.Scoring = "dot"
	}
	if c.Search.TrackSearchHits == nil {
		track := true
		c.Search.TrackSearchHits = &track
	}
	if c.Search.StoreTimeoutMs <= 0 {
		c.Search.StoreTimeoutMs = 2000
	}
	if c.Search.CounterTimeoutMs <= 0 {
		c.Search.CounterTimeoutMs = 100
	}
	if c.Views.MaxInFlight <= 0 {
		c.Views.MaxInFlight = 256
	}
	if c.Views.MaxAttempts <= 0 {
		c.Views.MaxAttempts = 3
	}
	if c.Views.TimeoutMs <= 0 {
		c.Views.TimeoutMs = 500
	}
	if c.Views.InitialBackoffMs <= 0 {
		c.Views.InitialBackoffMs = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", DriverRedis)
		}
	case DriverMemory, DriverBleve:
	default:
		return fmt.Errorf("database.driver must be one of redis, memory, bleve, got %q", c.Database.Driver)
	}
	switch c.Ranking.BoostMode {
	case "multiplicative", "additive":
	default:
		return fmt.Errorf("ranking.boost_mode must be \"multiplicative\" or \"additive\", got %q", c.Ranking.BoostMode)
	}
	if b := c.Ranking.TitleBoost; b != nil && *b < 0 {
		return fmt.Errorf("ranking.title_boost must be non-negative, got %v", *b)
	}
	if p := c.Ranking.Precision; p != nil && (*p < 0 || *p > 12) {
		return fmt.Errorf("ranking.precision must be between 0 and 12, got %d", *p)
	}
	switch c.Ranking.Scoring {
	case "dot", "cosine":
	default:
		return fmt.Errorf("ranking.scoring must be \"dot\" or \"cosine\", got %q", c.Ranking.Scoring)
	}
	if c.Views.MaxAttempts > 10 {
		return fmt.Errorf("views.max_attempts must be at most 10, got %d", c.Views.MaxAttempts)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
