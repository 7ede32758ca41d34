package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultCountriesURL     = "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies"
	DefaultExchangeRatesURL = "https://open.er-api.com/v6/latest/USD"
)

// Config holds application configuration.
type Config struct {
	// CountriesURL is the upstream country-information endpoint.
	CountriesURL string `json:"countries_url"`

	// ExchangeRatesURL is the upstream USD exchange-rate endpoint.
	ExchangeRatesURL string `json:"exchange_rates_url"`

	// ConnectTimeoutSec bounds TCP connect to either upstream.
	ConnectTimeoutSec int `json:"connect_timeout_sec"`

	// RequestTimeoutSec bounds a whole upstream request, body included.
	RequestTimeoutSec int `json:"request_timeout_sec"`

	// CacheDir holds the generated summary image.
	// Empty means <baseDir>/cache.
	CacheDir string `json:"cache_dir,omitempty"`

	Bind string `json:"bind"`
	Port int    `json:"port"`

	// Debug exposes internal error messages in API responses.
	Debug bool `json:"debug,omitempty"`

	LogLevel string `json:"log_level"`

	// LogPath enables a rotated JSON log file in addition to stderr.
	LogPath string `json:"log_path,omitempty"`

	// RefreshSchedule is a cron expression (e.g. "@every 6h") for automatic
	// refreshes while serving. Empty disables the scheduler.
	RefreshSchedule string `json:"refresh_schedule,omitempty"`

	// RefreshPerMinute caps POST /countries/refresh. 0 disables the limiter.
	RefreshPerMinute int `json:"refresh_per_minute"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CountriesURL:      DefaultCountriesURL,
		ExchangeRatesURL:  DefaultExchangeRatesURL,
		ConnectTimeoutSec: 10,
		RequestTimeoutSec: 30,
		Bind:              "127.0.0.1",
		Port:              8080,
		LogLevel:          "info",
		RefreshPerMinute:  6,
	}
}

// ConnectTimeout returns the upstream connect timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

// RequestTimeout returns the overall upstream request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// ResolveCacheDir returns CacheDir, defaulting to baseDir/cache.
func (c *Config) ResolveCacheDir(baseDir string) string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(baseDir, "cache")
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// Load loads configuration from baseDir/config.json, then applies
// environment overrides. Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir().
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(cfg, fromEnv()), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// fromEnv builds an overlay config from environment variables.
// Unset variables leave zero values so Merge keeps the base.
func fromEnv() *Config {
	return &Config{
		CountriesURL:      getEnv("RESTCOUNTRIES_API", ""),
		ExchangeRatesURL:  getEnv("EXCHANGERATE_API", ""),
		ConnectTimeoutSec: getEnvInt("HTTP_CONNECT_TIMEOUT", 0),
		RequestTimeoutSec: getEnvInt("HTTP_TIMEOUT", 0),
		CacheDir:          getEnv("CACHE_DIR", ""),
		Bind:              getEnv("HTTP_BIND", ""),
		Port:              getEnvInt("PORT", 0),
		Debug:             getEnvBool("APP_DEBUG", false),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		LogPath:           getEnv("LOG_PATH", ""),
		RefreshSchedule:   getEnv("REFRESH_SCHEDULE", ""),
		RefreshPerMinute:  getEnvInt("REFRESH_PER_MINUTE", 0),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 0),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 0),
		DisabledTools:     getEnvList("DISABLED_TOOLS"),
	}
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.CountriesURL = firstString(overlay.CountriesURL, base.CountriesURL)
	result.ExchangeRatesURL = firstString(overlay.ExchangeRatesURL, base.ExchangeRatesURL)
	result.CacheDir = firstString(overlay.CacheDir, base.CacheDir)
	result.Bind = firstString(overlay.Bind, base.Bind)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.LogPath = firstString(overlay.LogPath, base.LogPath)
	result.RefreshSchedule = firstString(overlay.RefreshSchedule, base.RefreshSchedule)

	result.ConnectTimeoutSec = firstInt(overlay.ConnectTimeoutSec, base.ConnectTimeoutSec)
	result.RequestTimeoutSec = firstInt(overlay.RequestTimeoutSec, base.RequestTimeoutSec)
	result.Port = firstInt(overlay.Port, base.Port)
	result.RefreshPerMinute = firstInt(overlay.RefreshPerMinute, base.RefreshPerMinute)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.Debug = base.Debug || overlay.Debug

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	return mergeStringSlice(strings.Split(value, ","), nil)
}
