package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAddr            = "127.0.0.1:3030"
	defaultMaxMessageSize  = 64 << 20
	defaultRateBurst       = 20
	defaultRateInterval    = time.Second
	defaultPingInterval    = 54 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultWriteWait       = 10 * time.Second
	defaultUploadsDir      = "./uploads"
	defaultStaticDir       = "./static"
	defaultShutdownTimeout = 10 * time.Second
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst"`
	RefillInterval time.Duration `yaml:"refill_interval"`
}

// Config holds the hub's runtime settings.
type Config struct {
	Addr           string          `yaml:"addr"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	MaxMessageSize int64           `yaml:"max_message_size"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`

	// PingInterval of zero disables keepalive pings and read deadlines.
	PingInterval time.Duration `yaml:"ping_interval"`
	PongWait     time.Duration `yaml:"pong_wait"`
	WriteWait    time.Duration `yaml:"write_wait"`

	UploadsDir      string        `yaml:"uploads_dir"`
	// StaticDir is served at /, with / redirecting to /login.html. Empty
	// disables both.
	StaticDir       string        `yaml:"static_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func defaultConfig() Config {
	return Config{
		Addr: defaultAddr,
		AllowedOrigins: []string{
			"http://localhost:3030",
			"http://127.0.0.1:3030",
		},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultRateBurst,
			RefillInterval: defaultRateInterval,
		},
		PingInterval:    defaultPingInterval,
		PongWait:        defaultPongWait,
		WriteWait:       defaultWriteWait,
		UploadsDir:      defaultUploadsDir,
		StaticDir:       defaultStaticDir,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfigFile overlays the YAML document at path onto cfg. Keys absent
// from the file keep their current values.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// sanitizeConfig replaces unusable values with defaults.
func sanitizeConfig(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaultRateBurst
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaultRateInterval
	}

	if cfg.PingInterval < 0 {
		cfg.PingInterval = 0
	}

	if cfg.PingInterval > 0 && cfg.PongWait <= cfg.PingInterval {
		cfg.PongWait = cfg.PingInterval * 10 / 9
	}

	if cfg.WriteWait < 0 {
		cfg.WriteWait = 0
	}

	if cfg.UploadsDir == "" {
		cfg.UploadsDir = defaultUploadsDir
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// ParseOrigins splits a comma-separated origin list.
func ParseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
