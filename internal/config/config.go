package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"coinproxy/internal/provider"
)

const (
	StageProduction  = "production"
	StageDevelopment = "development"

	BackendMemory = "memory"
	BackendRedis  = "redis"

	minRequestTimeoutSec = 8
	maxRequestTimeoutSec = 15
)

type Server struct {
	Port               string   `json:"port" yaml:"port"`
	AllowedOrigins     []string `json:"allowed_origins" yaml:"allowed_origins"`
	ShutdownTimeoutSec int      `json:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

type Upstream struct {
	BaseURL           string `json:"base_url" yaml:"base_url"`
	APIKey            string `json:"api_key" yaml:"api_key"`
	Pro               bool   `json:"pro" yaml:"pro"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
	PerPage           int    `json:"per_page" yaml:"per_page"`
	Order             string `json:"order" yaml:"order"`
}

type Cache struct {
	// TTLSeconds of 0 means the stage default.
	TTLSeconds int    `json:"ttl_sec" yaml:"ttl_sec"`
	Backend    string `json:"backend" yaml:"backend"`
}

type Redis struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

type News struct {
	APIKey   string `json:"api_key" yaml:"api_key"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

type Fallback struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	DefaultCoin    string `json:"default_coin" yaml:"default_coin"`
	DegradedStatus int    `json:"degraded_status" yaml:"degraded_status"`
}

type Log struct {
	Level string `json:"level" yaml:"level"`
}

type Config struct {
	Stage    string   `json:"stage" yaml:"stage"`
	Server   Server   `json:"server" yaml:"server"`
	Upstream Upstream `json:"upstream" yaml:"upstream"`
	Cache    Cache    `json:"cache" yaml:"cache"`
	Redis    Redis    `json:"redis" yaml:"redis"`
	News     News     `json:"news" yaml:"news"`
	Fallback Fallback `json:"fallback" yaml:"fallback"`
	Log      Log      `json:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Stage: StageDevelopment,
		Server: Server{
			Port:               "5000",
			AllowedOrigins:     []string{"*"},
			ShutdownTimeoutSec: 5,
		},
		Upstream: Upstream{
			BaseURL:           "https://api.coingecko.com/api/v3",
			RequestTimeoutSec: 10,
			PerPage:           provider.DefaultPerPage,
			Order:             "market_cap_desc",
		},
		Cache: Cache{Backend: BackendMemory},
		Redis: Redis{Addr: "localhost:6379", Prefix: "coinproxy"},
		News:  News{Endpoint: "https://newsapi.org/v2/everything"},
		Fallback: Fallback{
			Enabled:        true,
			DefaultCoin:    "bitcoin",
			DegradedStatus: 200,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the config file at path (JSON, or YAML for .yaml/.yml). If path
// is empty, config.json in the working directory is used when present. A
// missing file yields defaults. Environment variables override file values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := unmarshal(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	cfg.normalize()
	return cfg, nil
}

func unmarshal(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func (c *Config) normalize() {
	c.Stage = strings.ToLower(strings.TrimSpace(c.Stage))
	if c.Stage == "" {
		c.Stage = StageDevelopment
	}
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
		if c.IsProduction() {
			c.Cache.TTLSeconds = 120
		}
	}
	c.Upstream.RequestTimeoutSec = min(max(c.Upstream.RequestTimeoutSec, minRequestTimeoutSec), maxRequestTimeoutSec)
}

// Validate reports settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Cache.Backend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.TTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive, got %d", c.Cache.TTLSeconds))
	}
	if c.Fallback.DegradedStatus < 200 || c.Fallback.DegradedStatus > 299 {
		errs = append(errs, fmt.Errorf("degraded status must be 2xx, got %d", c.Fallback.DegradedStatus))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool { return c.Stage == StageProduction }

func (c Config) CacheTTL() time.Duration { return time.Duration(c.Cache.TTLSeconds) * time.Second }

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Upstream.RequestTimeoutSec) * time.Second
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSec) * time.Second
}

func applyEnv(cfg *Config) {
	if v := firstEnv("STAGE", "APP_ENV"); v != "" {
		cfg.Stage = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitCSV(v)
	}
	envInt("SHUTDOWN_TIMEOUT_SEC", &cfg.Server.ShutdownTimeoutSec, 1)

	if v := os.Getenv("COINGECKO_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.Upstream.APIKey = v
	}
	envBool("COINGECKO_PRO", &cfg.Upstream.Pro)
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Upstream.RequestTimeoutSec, 1)
	envInt("LISTING_PER_PAGE", &cfg.Upstream.PerPage, 1)
	if v := os.Getenv("LISTING_ORDER"); v != "" {
		cfg.Upstream.Order = v
	}

	envInt("CACHE_TTL_SEC", &cfg.Cache.TTLSeconds, 1)
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	envInt("REDIS_DB", &cfg.Redis.DB, 0)
	if v := os.Getenv("REDIS_PREFIX"); v != "" {
		cfg.Redis.Prefix = v
	}

	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		cfg.News.APIKey = v
	}
	if v := os.Getenv("NEWS_ENDPOINT"); v != "" {
		cfg.News.Endpoint = v
	}

	envBool("FALLBACK_ENABLED", &cfg.Fallback.Enabled)
	if v := os.Getenv("FALLBACK_DEFAULT_COIN"); v != "" {
		cfg.Fallback.DefaultCoin = v
	}
	envInt("DEGRADED_STATUS", &cfg.Fallback.DegradedStatus, 0)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// envInt sets dst from key when it parses as an integer >= floor.
func envInt(key string, dst *int, floor int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	x, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || x < floor {
		return
	}
	*dst = x
}

func envBool(key string, dst *bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
