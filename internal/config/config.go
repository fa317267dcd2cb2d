// Package config loads service configuration from the environment, an
// optional .env file and an optional YAML file.
//
// Precedence, lowest first: built-in defaults, the YAML file named by
// CONFIG_FILE, environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/champ-index/pkg/pagination"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
type Config struct {
	APIKey            string
	APIBaseURL        string
	RequestsPerSecond float64

	ChampionshipIDs  []string
	MapPool          []string
	PageSize         int
	ProbeUpperBound  int
	BatchConcurrency int
	FetchStats       bool

	RedisURL           string
	SnapshotName       string
	SnapshotCompressed bool
	SnapshotTTL        time.Duration

	SearchCacheTTL     time.Duration
	CORSAllowedOrigins []string
	Port               string
	LogLevel           string
	LogPretty          bool
}

// FileConfig is the YAML file layout.
type FileConfig struct {
	APIBaseURL    string   `yaml:"api_base_url"`
	Championships []string `yaml:"championships"`
	MapPool       []string `yaml:"map_pool"`
	FetchStats    *bool    `yaml:"fetch_stats"`
	Snapshot      struct {
		Name       string `yaml:"name"`
		Compressed *bool  `yaml:"compressed"`
		TTL        string `yaml:"ttl"`
	} `yaml:"snapshot"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		APIBaseURL:         "https://open.faceit.com/data/v4",
		RequestsPerSecond:  10,
		PageSize:           pagination.MaxPageSize,
		ProbeUpperBound:    pagination.DefaultUpperBound,
		BatchConcurrency:   pagination.DefaultConcurrency,
		FetchStats:         true,
		SnapshotName:       "latest",
		SnapshotTTL:        24 * time.Hour,
		SearchCacheTTL:     5 * time.Minute,
		CORSAllowedOrigins: []string{"*"},
		Port:               "8080",
		LogLevel:           "info",
	}
}

// Load builds the configuration. A missing .env file is not an error.
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.applyFile(fc); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("api_base_url", cfg.APIBaseURL).
		Strs("championships", cfg.ChampionshipIDs).
		Int("page_size", cfg.PageSize).
		Int("batch_concurrency", cfg.BatchConcurrency).
		Bool("fetch_stats", cfg.FetchStats).
		Bool("redis", cfg.RedisURL != "").
		Str("port", cfg.Port).
		Msg("configuration loaded")

	return cfg, nil
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &fc, nil
}

func (c *Config) applyFile(fc *FileConfig) error {
	if fc.APIBaseURL != "" {
		c.APIBaseURL = fc.APIBaseURL
	}
	if len(fc.Championships) > 0 {
		c.ChampionshipIDs = fc.Championships
	}
	if len(fc.MapPool) > 0 {
		c.MapPool = fc.MapPool
	}
	if fc.FetchStats != nil {
		c.FetchStats = *fc.FetchStats
	}
	if fc.Snapshot.Name != "" {
		c.SnapshotName = fc.Snapshot.Name
	}
	if fc.Snapshot.Compressed != nil {
		c.SnapshotCompressed = *fc.Snapshot.Compressed
	}
	if fc.Snapshot.TTL != "" {
		ttl, err := time.ParseDuration(fc.Snapshot.TTL)
		if err != nil {
			return fmt.Errorf("snapshot.ttl: %w", err)
		}
		c.SnapshotTTL = ttl
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	c.APIKey = getEnv("FACEIT_API_KEY", c.APIKey)
	c.APIBaseURL = getEnv("API_BASE_URL", c.APIBaseURL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.SnapshotName = getEnv("SNAPSHOT_NAME", c.SnapshotName)
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("CHAMPIONSHIP_IDS"); v != "" {
		c.ChampionshipIDs = splitList(v)
	}
	if v := os.Getenv("MAP_POOL"); v != "" {
		c.MapPool = splitList(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}

	errs = append(errs,
		envInt("PAGE_SIZE", &c.PageSize),
		envInt("PROBE_UPPER_BOUND", &c.ProbeUpperBound),
		envInt("BATCH_CONCURRENCY", &c.BatchConcurrency),
		envFloat("REQUESTS_PER_SECOND", &c.RequestsPerSecond),
		envBool("FETCH_STATS", &c.FetchStats),
		envBool("SNAPSHOT_COMPRESSED", &c.SnapshotCompressed),
		envBool("LOG_PRETTY", &c.LogPretty),
		envDuration("SNAPSHOT_TTL", &c.SnapshotTTL),
		envDuration("SEARCH_CACHE_TTL", &c.SearchCacheTTL),
	)
	return errors.Join(errs...)
}

// Validate checks required settings and ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("FACEIT_API_KEY is required"))
	}
	if c.PageSize < 1 || c.PageSize > pagination.MaxPageSize {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be between 1 and %d, got %d", pagination.MaxPageSize, c.PageSize))
	}
	if c.ProbeUpperBound < 1 {
		errs = append(errs, fmt.Errorf("PROBE_UPPER_BOUND must be positive, got %d", c.ProbeUpperBound))
	}
	if c.BatchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", c.BatchConcurrency))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("REQUESTS_PER_SECOND must not be negative, got %g", c.RequestsPerSecond))
	}
	if len(c.ChampionshipIDs) == 0 && c.RedisURL == "" {
		errs = append(errs, errors.New("CHAMPIONSHIP_IDS is required when no REDIS_URL snapshot store is configured"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid number %q", key, v)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", key, v)
	}
	*dst = d
	return nil
}
