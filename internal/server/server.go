package server

import (
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/oleksShevch/websockets-chat/internal/auth"
	"github.com/oleksShevch/websockets-chat/internal/files"
	"github.com/oleksShevch/websockets-chat/internal/metrics"
)

// SessionGate resolves a session token to a username.
type SessionGate interface {
	Validate(token string) (string, bool)
}

// SessionIssuer mints sessions at login.
type SessionIssuer interface {
	SessionGate
	Create(username string) string
}

// UserRegistry stores and checks credentials.
type UserRegistry interface {
	Register(username, password string) error
	Verify(username, password string) (bool, error)
}

// Deps are the collaborators a Server is built from. Users may be nil, in
// which case /register and /login are not served. A nil Sessions gets an
// empty in-memory store.
type Deps struct {
	Sessions SessionIssuer
	Users    UserRegistry
	Metrics  *metrics.Collector
	Log      *slog.Logger
}

// Server owns the hub and everything reachable from the HTTP surface.
type Server struct {
	cfg      Config
	hub      *Hub
	store    *files.Store
	relay    *files.Relay
	sessions SessionIssuer
	users    UserRegistry
	metrics  *metrics.Collector
	log      *slog.Logger
	origins  *originPolicy
	upgrader websocket.Upgrader
}

// New assembles a Server from cfg and deps.
func New(cfg Config, deps Deps) *Server {
	cfg = sanitizeConfig(cfg)
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	sessions := deps.Sessions
	if sessions == nil {
		sessions = auth.NewSessionStore()
	}

	hub := NewHub(log.With("component", "hub"), deps.Metrics)
	store := files.NewStore(cfg.UploadsDir)
	origins := newOriginPolicy(cfg.AllowedOrigins, log)

	return &Server{
		cfg:      cfg,
		hub:      hub,
		store:    store,
		relay:    files.NewRelay(store, hub, log.With("component", "relay"), deps.Metrics),
		sessions: sessions,
		users:    deps.Users,
		metrics:  deps.Metrics,
		log:      log,
		origins:  origins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
	}
}

// Hub returns the connection registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Config returns the sanitized configuration in effect.
func (s *Server) Config() Config {
	return s.cfg
}
