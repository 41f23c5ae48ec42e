package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Routes builds the router for every endpoint the server exposes.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.WebSocketHandler)
	r.HandleFunc("/download/{fileID}", s.DownloadHandler).Methods(http.MethodGet, http.MethodHead)

	if s.users != nil {
		r.HandleFunc("/register", s.RegisterHandler).Methods(http.MethodPost)
		r.HandleFunc("/login", s.LoginHandler).Methods(http.MethodPost)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	if s.cfg.StaticDir != "" {
		r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "/login.html", http.StatusTemporaryRedirect)
		}).Methods(http.MethodGet)
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.StaticDir)))
	}

	return s.cors(r)
}

// cors answers preflights ahead of routing and adds CORS headers for the
// origins the websocket upgrader also accepts.
func (s *Server) cors(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOriginValidator(s.origins.corsAllows),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.OptionStatusCode(http.StatusNoContent),
		handlers.MaxAge(600),
	)(next)
}

// statusRecorder captures the response status for the access log. It keeps
// Hijack reachable so websocket upgrades pass through.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"addr", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}
