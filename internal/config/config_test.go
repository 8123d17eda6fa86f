package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, StageDevelopment, cfg.Stage)
	require.Equal(t, "5000", cfg.Server.Port)
	require.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL())
	require.Equal(t, 10*time.Second, cfg.RequestTimeout())
	require.Equal(t, BackendMemory, cfg.Cache.Backend)
	require.True(t, cfg.Fallback.Enabled)
	require.Equal(t, 200, cfg.Fallback.DegradedStatus)
}

func TestLoad_ProductionTTL(t *testing.T) {
	t.Setenv("APP_ENV", "Production")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 2*time.Minute, cfg.CacheTTL())
}

func TestLoad_JSONFile(t *testing.T) {
	p := writeFile(t, "config.json", `{
		"stage": "staging",
		"server": {"port": "9000"},
		"cache": {"ttl_sec": 60, "backend": "redis"},
		"redis": {"addr": "redis:6379", "prefix": "cp"}
	}`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.Stage)
	require.Equal(t, "9000", cfg.Server.Port)
	require.Equal(t, time.Minute, cfg.CacheTTL())
	require.Equal(t, BackendRedis, cfg.Cache.Backend)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, "cp", cfg.Redis.Prefix)
	// Unset sections keep their defaults.
	require.Equal(t, "https://api.coingecko.com/api/v3", cfg.Upstream.BaseURL)
}

func TestLoad_YAMLFile(t *testing.T) {
	p := writeFile(t, "config.yaml", `
stage: production
upstream:
  api_key: demo-key
  request_timeout_sec: 12
fallback:
  degraded_status: 203
  default_coin: ethereum
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "demo-key", cfg.Upstream.APIKey)
	require.Equal(t, 12*time.Second, cfg.RequestTimeout())
	require.Equal(t, 203, cfg.Fallback.DegradedStatus)
	require.Equal(t, "ethereum", cfg.Fallback.DefaultCoin)
	require.Equal(t, 2*time.Minute, cfg.CacheTTL())
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := Load(writeFile(t, "config.json", `{"server":`))
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := writeFile(t, "config.json", `{"server": {"port": "9000"}, "cache": {"ttl_sec": 60}}`)
	t.Setenv("PORT", "7000")
	t.Setenv("CACHE_TTL_SEC", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("COINGECKO_PRO", "yes")
	t.Setenv("FALLBACK_ENABLED", "false")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NEWS_API_KEY", "news-key")

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "7000", cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.CacheTTL())
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	require.True(t, cfg.Upstream.Pro)
	require.False(t, cfg.Fallback.Enabled)
	require.Equal(t, 2, cfg.Redis.DB)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "news-key", cfg.News.APIKey)
}

func TestLoad_InvalidEnvIgnored(t *testing.T) {
	t.Setenv("CACHE_TTL_SEC", "soon")
	t.Setenv("LISTING_PER_PAGE", "-3")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Equal(t, 300, cfg.Cache.TTLSeconds)
	require.Equal(t, 20, cfg.Upstream.PerPage)
}

func TestLoad_RequestTimeoutClamped(t *testing.T) {
	tests := []struct {
		env  string
		want time.Duration
	}{
		{env: "1", want: 8 * time.Second},
		{env: "9", want: 9 * time.Second},
		{env: "60", want: 15 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("REQUEST_TIMEOUT_SEC", tt.env)
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
			require.NoError(t, err)
			require.Equal(t, tt.want, cfg.RequestTimeout())
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Cache.Backend = "memcached" }, wantErr: "unknown cache backend"},
		{name: "negative ttl", mutate: func(c *Config) { c.Cache.TTLSeconds = -1 }, wantErr: "cache ttl"},
		{name: "degraded 503", mutate: func(c *Config) { c.Fallback.DegradedStatus = 503 }, wantErr: "degraded status"},
		{name: "degraded 203", mutate: func(c *Config) { c.Fallback.DegradedStatus = 203 }},
		{name: "no port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			cfg.normalize()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
