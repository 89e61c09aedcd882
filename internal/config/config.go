package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env. Built once at startup
// and passed explicitly; nothing reads it globally.
type Config struct {
	ServerPort string

	// FREDAPIKey may be empty: the service still starts and every view reports the missing key.
	FREDAPIKey     string
	FREDAPIURL     string
	FREDAPITimeout time.Duration

	RequestTimeout time.Duration
	CacheTTL       time.Duration
	CacheBackend   string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int

	PreviewRows  int
	HistoryYears int
	ChartWidth   int
	ChartHeight  int

	WarmCache    bool
	WarmSchedule string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	FREDAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"fred_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Warm struct {
			Enabled  *bool  `yaml:"enabled"`
			Schedule string `yaml:"schedule"`
		} `yaml:"warm"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	CircuitBreaker struct {
		Enabled          *bool  `yaml:"enabled"`
		FailureThreshold int    `yaml:"failure_threshold"`
		SuccessThreshold int    `yaml:"success_threshold"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`

	Dashboard struct {
		PreviewRows  int `yaml:"preview_rows"`
		HistoryYears int `yaml:"history_years"`
		ChartWidth   int `yaml:"chart_width"`
		ChartHeight  int `yaml:"chart_height"`
	} `yaml:"dashboard"`
}

type secretsFile struct {
	FREDAPIKey string `yaml:"fred_api_key"`
}

// Load reads configuration relative to the working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom reads root/config/{ENV_NAME}.yaml (default dev) and root/config/secrets.yaml.
// The API key comes from FRED_API_KEY env or the secrets file; absence is not an error.
func LoadFrom(root string) (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(root, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}
	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.FREDAPIKey, err = loadAPIKey(root)
	if err != nil {
		return nil, err
	}
	cfg.FREDAPIURL = fc.FREDAPI.URL
	if cfg.FREDAPIURL == "" {
		cfg.FREDAPIURL = "https://api.stlouisfed.org/fred/series/observations"
	}
	cfg.FREDAPITimeout = parseDurationOrZero(fc.FREDAPI.Timeout, 10*time.Second)
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, time.Hour)
	cfg.CacheBackend = envOr("CACHE_BACKEND", strings.ToLower(fc.Cache.Backend), "in_memory")
	cfg.MemcachedAddrs = envOr("MEMCACHED_ADDRS", fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = positiveOr(fc.Cache.Memcached.MaxIdleConns, 2)
	cfg.WarmCache = boolOr(fc.Cache.Warm.Enabled, true)
	cfg.WarmSchedule = strings.TrimSpace(fc.Cache.Warm.Schedule)
	if cfg.WarmSchedule == "" {
		cfg.WarmSchedule = "@every 30m"
	}

	cfg.RateLimitRPS = positiveOr(fc.Reliability.RateLimitRPS, 20)
	cfg.RateLimitBurst = positiveOr(fc.Reliability.RateLimitBurst, 40)

	cfg.CircuitBreakerEnabled = boolOr(fc.CircuitBreaker.Enabled, true)
	cfg.CircuitBreakerFailureThreshold = positiveOr(fc.CircuitBreaker.FailureThreshold, 5)
	cfg.CircuitBreakerSuccessThreshold = positiveOr(fc.CircuitBreaker.SuccessThreshold, 1)
	cfg.CircuitBreakerTimeout = parseDuration(fc.CircuitBreaker.Timeout, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = positiveOr(fc.Lifecycle.OverloadThresholdPct, 80)
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = positiveOr(fc.Lifecycle.DegradedErrorPct, 50)

	cfg.PreviewRows = positiveOr(fc.Dashboard.PreviewRows, 10)
	cfg.HistoryYears = positiveOr(fc.Dashboard.HistoryYears, 10)
	cfg.ChartWidth = positiveOr(fc.Dashboard.ChartWidth, 1024)
	cfg.ChartHeight = positiveOr(fc.Dashboard.ChartHeight, 400)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAPIKey(root string) (string, error) {
	if key := strings.TrimSpace(os.Getenv("FRED_API_KEY")); key != "" {
		return key, nil
	}
	data, err := os.ReadFile(filepath.Join(root, "config", "secrets.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.FREDAPIKey), nil
}

func envOr(name, fileVal, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return v
	}
	return def
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// parseDuration parses s, falling back to defaultVal when empty, invalid or non-positive.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses s, returning defaultVal on empty or invalid input.
// Zero or negative durations are returned as-is for validate to reject.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate checks cross-field constraints. RequestTimeout is raised above FREDAPITimeout.
func validate(cfg *Config) error {
	if cfg.FREDAPITimeout <= 0 {
		return fmt.Errorf("fred_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.FREDAPITimeout {
		cfg.RequestTimeout = cfg.FREDAPITimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.WarmCache {
		if _, err := cron.ParseStandard(cfg.WarmSchedule); err != nil {
			return fmt.Errorf("cache.warm.schedule %q: %w", cfg.WarmSchedule, err)
		}
	}
	return nil
}
