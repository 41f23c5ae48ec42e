package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/oleksShevch/websockets-chat/internal/server"
)

// Env is read from the process environment (and .env when present). Unset
// pointer fields leave the file or built-in value alone.
type Env struct {
	ConfigFile              string         `env:"CONFIG_FILE"`
	LogLevel                string         `env:"LOG_LEVEL,default=INFO"`
	UsersDBPath             string         `env:"USERS_DB_PATH,default=./data/users"`
	Addr                    *string        `env:"SERVER_ADDR"`
	UploadsDir              *string        `env:"UPLOADS_DIR"`
	StaticDir               *string        `env:"STATIC_DIR"`
	AllowedOrigins          *string        `env:"ALLOWED_ORIGINS"`
	MaxMessageSize          *int64         `env:"MAX_MESSAGE_SIZE"`
	RateLimitBurst          *int           `env:"RATE_LIMIT_BURST"`
	RateLimitRefillInterval *time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL"`
}

type flags struct {
	set        *pflag.FlagSet
	addr       string
	configFile string
	uploadsDir string
	staticDir  string
	usersDB    string
	logLevel   string
}

func newFlags(e Env) *flags {
	f := &flags{set: pflag.NewFlagSet("chat-server", pflag.ContinueOnError)}
	f.set.StringVar(&f.addr, "addr", "", "listen address (host:port)")
	f.set.StringVar(&f.configFile, "config", e.ConfigFile, "YAML config file")
	f.set.StringVar(&f.uploadsDir, "uploads-dir", "", "directory for relayed files")
	f.set.StringVar(&f.staticDir, "static-dir", "", "directory served at / (login.html, chat.html)")
	f.set.StringVar(&f.usersDB, "users-db", e.UsersDBPath, "badger directory for user accounts")
	f.set.StringVar(&f.logLevel, "log-level", e.LogLevel, "DEBUG, INFO, WARN or ERROR")
	return f
}

// resolveConfig layers, lowest first: defaults, config file, environment,
// flags.
func resolveConfig(e Env, f *flags) (server.Config, error) {
	cfg := server.NewConfig()

	if f.configFile != "" {
		if err := server.LoadConfigFile(f.configFile, cfg); err != nil {
			return server.Config{}, err
		}
	}

	if e.Addr != nil {
		cfg.Addr = *e.Addr
	}
	if e.UploadsDir != nil {
		cfg.UploadsDir = *e.UploadsDir
	}
	if e.StaticDir != nil {
		cfg.StaticDir = *e.StaticDir
	}
	if e.AllowedOrigins != nil {
		cfg.AllowedOrigins = server.ParseOrigins(*e.AllowedOrigins)
	}
	if e.MaxMessageSize != nil {
		cfg.MaxMessageSize = *e.MaxMessageSize
	}
	if e.RateLimitBurst != nil {
		cfg.RateLimit.Burst = *e.RateLimitBurst
	}
	if e.RateLimitRefillInterval != nil {
		cfg.RateLimit.RefillInterval = *e.RateLimitRefillInterval
	}

	if f.set.Changed("addr") {
		cfg.Addr = f.addr
	}
	if f.set.Changed("uploads-dir") {
		cfg.UploadsDir = f.uploadsDir
	}
	if f.set.Changed("static-dir") {
		cfg.StaticDir = f.staticDir
	}

	return *cfg, nil
}
