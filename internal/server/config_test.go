package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	req := require.New(t)
	cfg := NewConfig()

	req.Equal("127.0.0.1:3030", cfg.Addr)
	req.Equal(int64(64<<20), cfg.MaxMessageSize)
	req.Equal(20, cfg.RateLimit.Burst)
	req.Equal(time.Second, cfg.RateLimit.RefillInterval)
	req.Greater(cfg.PongWait, cfg.PingInterval)
	req.Contains(cfg.AllowedOrigins, "http://localhost:3030")
	req.Equal("./uploads", cfg.UploadsDir)
	req.Equal("./static", cfg.StaticDir)
}

func TestSanitizeConfig(t *testing.T) {
	tests := []struct {
		name  string
		in    Config
		check func(*require.Assertions, Config)
	}{
		{
			name: "zero value gets defaults",
			in:   Config{},
			check: func(req *require.Assertions, cfg Config) {
				req.Equal(defaultAddr, cfg.Addr)
				req.Equal(int64(defaultMaxMessageSize), cfg.MaxMessageSize)
				req.Equal(defaultRateBurst, cfg.RateLimit.Burst)
				req.Equal(defaultRateInterval, cfg.RateLimit.RefillInterval)
				req.Zero(cfg.PingInterval)
				req.Equal(defaultUploadsDir, cfg.UploadsDir)
				req.Equal(defaultShutdownTimeout, cfg.ShutdownTimeout)
			},
		},
		{
			name: "pong wait raised above ping interval",
			in:   Config{PingInterval: 9 * time.Second, PongWait: time.Second},
			check: func(req *require.Assertions, cfg Config) {
				req.Equal(10*time.Second, cfg.PongWait)
			},
		},
		{
			name: "negative durations clamp to zero",
			in:   Config{PingInterval: -time.Second, WriteWait: -time.Second},
			check: func(req *require.Assertions, cfg Config) {
				req.Zero(cfg.PingInterval)
				req.Zero(cfg.WriteWait)
			},
		},
		{
			name: "explicit values kept",
			in: Config{
				Addr:           ":9000",
				MaxMessageSize: 512,
				RateLimit:      RateLimitConfig{Burst: 3, RefillInterval: time.Minute},
			},
			check: func(req *require.Assertions, cfg Config) {
				req.Equal(":9000", cfg.Addr)
				req.Equal(int64(512), cfg.MaxMessageSize)
				req.Equal(3, cfg.RateLimit.Burst)
				req.Equal(time.Minute, cfg.RateLimit.RefillInterval)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(require.New(t), sanitizeConfig(tt.in))
		})
	}
}

func TestSanitizeConfigCopiesOrigins(t *testing.T) {
	origins := []string{"http://a.example"}
	cfg := sanitizeConfig(Config{AllowedOrigins: origins})
	cfg.AllowedOrigins[0] = "changed"
	require.Equal(t, "http://a.example", origins[0])
}

func TestLoadConfigFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "chat.yaml")
	req.NoError(os.WriteFile(path, []byte(`
addr: ":4000"
allowed_origins:
  - "https://chat.example"
rate_limit:
  burst: 5
ping_interval: 0s
`), 0o600))

	cfg := NewConfig()
	req.NoError(LoadConfigFile(path, cfg))

	req.Equal(":4000", cfg.Addr)
	req.Equal([]string{"https://chat.example"}, cfg.AllowedOrigins)
	req.Equal(5, cfg.RateLimit.Burst)
	req.Equal(time.Second, cfg.RateLimit.RefillInterval)
	req.Zero(cfg.PingInterval)
	req.Equal("./uploads", cfg.UploadsDir)
}

func TestLoadConfigFileErrors(t *testing.T) {
	req := require.New(t)
	cfg := NewConfig()

	req.Error(LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), cfg))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	req.NoError(os.WriteFile(path, []byte("addr: [unterminated"), 0o600))
	req.Error(LoadConfigFile(path, cfg))
}

func TestParseOrigins(t *testing.T) {
	require.Equal(t,
		[]string{"http://a.example", "https://b.example"},
		ParseOrigins(" http://a.example , https://b.example"))
}
