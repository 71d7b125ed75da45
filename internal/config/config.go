package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	ExtractorYtdlp  = "ytdlp"
	ExtractorNative = "native"
)

// DefaultConfigFile is picked up from the working directory when no path is given.
const DefaultConfigFile = "config.toml"

// Config holds all server settings in correct types
type Config struct {
	Port                 string   `toml:"port"`
	MaxConcurrentJobs    int      `toml:"max_concurrent_jobs"`
	QueueWaitSeconds     int      `toml:"queue_wait_seconds"`
	CleanupAfterMinutes  int      `toml:"clean_up_after_minutes"`
	TempDir              string   `toml:"temp_dir"`
	AllowedDomains       []string `toml:"allowed_domains"`
	AllowedOrigins       []string `toml:"allowed_origins"`
	GofileToken          string   `toml:"gofile_token"`
	GofileEndpoints      []string `toml:"gofile_endpoints"`
	UploadTimeoutSeconds int      `toml:"upload_timeout_seconds"`
	Extractor            string   `toml:"extractor"`
	YtdlpPath            string   `toml:"ytdlp_path"`
	HistoryDB            string   `toml:"history_db"`
	RateLimitRPS         float64  `toml:"rate_limit_rps"`
	RateLimitBurst       int      `toml:"rate_limit_burst"`
	Debug                bool     `toml:"debug"`

	// CookieContents is only ever read from the environment.
	CookieContents string `toml:"-"`
	// CookieFile is resolved at startup by PrepareCookies.
	CookieFile string `toml:"-"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:                 ":5000",
		MaxConcurrentJobs:    3,
		QueueWaitSeconds:     10,
		CleanupAfterMinutes:  15,
		TempDir:              "temp",
		AllowedDomains:       []string{"youtube.com", "youtu.be"},
		GofileEndpoints:      []string{"https://upload-ap-sgp.gofile.io/uploadfile", "https://upload.gofile.io/uploadfile"},
		UploadTimeoutSeconds: 90,
		Extractor:            ExtractorYtdlp,
		RateLimitRPS:         5,
		RateLimitBurst:       10,
	}
}

// Load: defaults < TOML file < environment.
// An empty path falls back to DefaultConfigFile when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getEnv("CONFIG_FILE", "")
	}
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.MaxConcurrentJobs = getEnvAsInt("MAX_CONCURRENT_JOBS", cfg.MaxConcurrentJobs)
	cfg.QueueWaitSeconds = getEnvAsInt("QUEUE_WAIT_SECONDS", cfg.QueueWaitSeconds)
	cfg.CleanupAfterMinutes = getEnvAsInt("CLEAN_UP_AFTER_MINUTES", cfg.CleanupAfterMinutes)
	cfg.TempDir = getEnv("TEMP_DIR", cfg.TempDir)
	cfg.AllowedDomains = getEnvAsList("ALLOWED_DOMAINS", cfg.AllowedDomains)
	cfg.AllowedOrigins = getEnvAsList("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.GofileToken = getEnv("GOFILE_TOKEN", cfg.GofileToken)
	cfg.GofileEndpoints = getEnvAsList("GOFILE_ENDPOINTS", cfg.GofileEndpoints)
	cfg.UploadTimeoutSeconds = getEnvAsInt("UPLOAD_TIMEOUT_SECONDS", cfg.UploadTimeoutSeconds)
	cfg.Extractor = getEnv("EXTRACTOR", cfg.Extractor)
	cfg.YtdlpPath = getEnv("YTDLP_PATH", cfg.YtdlpPath)
	cfg.HistoryDB = getEnv("HISTORY_DB", cfg.HistoryDB)
	cfg.RateLimitRPS = getEnvAsFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvAsInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.Debug = getEnvAsBool("DEBUG", cfg.Debug)
	cfg.CookieContents = getEnv("COOKIE_FILE_CONTENTS", "")
}

// Validate rejects settings the server cannot run with and resets
// out-of-range limits to their defaults.
func (c *Config) Validate() error {
	def := Default()

	if c.MaxConcurrentJobs < 1 {
		log.Printf("⚠️ Warning: MAX_CONCURRENT_JOBS must be at least 1. Resetting to %d.", def.MaxConcurrentJobs)
		c.MaxConcurrentJobs = def.MaxConcurrentJobs
	}
	if c.QueueWaitSeconds < 1 {
		c.QueueWaitSeconds = def.QueueWaitSeconds
	}
	if c.CleanupAfterMinutes < 1 {
		log.Printf("⚠️ Warning: CLEAN_UP_AFTER_MINUTES must be at least 1. Resetting to %d.", def.CleanupAfterMinutes)
		c.CleanupAfterMinutes = def.CleanupAfterMinutes
	}
	if c.UploadTimeoutSeconds < 1 {
		c.UploadTimeoutSeconds = def.UploadTimeoutSeconds
	}
	if c.RateLimitBurst < 1 {
		c.RateLimitBurst = def.RateLimitBurst
	}

	switch strings.ToLower(c.Extractor) {
	case ExtractorYtdlp, ExtractorNative:
		c.Extractor = strings.ToLower(c.Extractor)
	default:
		return fmt.Errorf("unsupported extractor %q (valid: %s, %s)", c.Extractor, ExtractorYtdlp, ExtractorNative)
	}

	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.TempDir == "" {
		return fmt.Errorf("temp dir cannot be empty")
	}
	if len(c.AllowedDomains) == 0 {
		return fmt.Errorf("allowed domains cannot be empty")
	}
	if len(c.GofileEndpoints) == 0 {
		return fmt.Errorf("at least one upload endpoint is required")
	}
	return nil
}

// Addr is the listen address; a bare port number gets a leading colon.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c *Config) QueueWait() time.Duration {
	return time.Duration(c.QueueWaitSeconds) * time.Second
}

func (c *Config) CleanupAfter() time.Duration {
	return time.Duration(c.CleanupAfterMinutes) * time.Minute
}

func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	str := getEnv(key, "")
	if val, err := strconv.Atoi(str); err == nil {
		return val
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	str := getEnv(key, "")
	if val, err := strconv.ParseFloat(str, 64); err == nil {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	str := getEnv(key, "")
	if val, err := strconv.ParseBool(str); err == nil {
		return val
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
