package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oleksShevch/websockets-chat/internal/auth"
	"github.com/oleksShevch/websockets-chat/internal/files"
)

// SessionCookie carries the session token issued at login.
const SessionCookie = "session_token"

const maxCredentialsBody = 1 << 20

type responseMessage struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(responseMessage{Message: message})
}

// sessionToken extracts the token from the session cookie, falling back to
// the "token" query parameter for clients that cannot set cookies.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// WebSocketHandler admits a connection. The session gate runs before the
// upgrade, so a denied request never becomes a websocket.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	token := sessionToken(r)
	username, ok := s.sessions.Validate(token)
	if !ok {
		s.metrics.AdmissionDenied()
		s.log.Warn("websocket admission denied", "addr", r.RemoteAddr, "has_token", token != "")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, s.hub, s.relay, username, r.RemoteAddr, s.cfg)
	if err := s.hub.Admit(client); err != nil {
		s.log.Warn("websocket admission after upgrade failed", "addr", r.RemoteAddr, "error", err)
	}
}

// DownloadHandler streams a stored file back by id.
func (s *Server) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["fileID"]

	stored, err := s.store.Lookup(fileID)
	switch {
	case errors.Is(err, files.ErrNoDirectory):
		http.Error(w, "Uploads directory not found", http.StatusNotFound)
		return
	case errors.Is(err, files.ErrNotFound):
		http.Error(w, "File not found", http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("failed to read stored file", "file_id", fileID, "error", err)
		http.Error(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", stored.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stored.Filename))
	if _, err := w.Write(stored.Data); err != nil {
		s.log.Warn("error writing file response", "file_id", fileID, "error", err)
	}
}

func credentialsMessage(err error) string {
	if errors.Is(err, auth.ErrUsernameTooLong) {
		return "Username is too long."
	}
	return "Username and password cannot be empty."
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (auth.Credentials, bool) {
	var creds auth.Credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialsBody)).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return auth.Credentials{}, false
	}
	if err := creds.Validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, credentialsMessage(err))
		return auth.Credentials{}, false
	}
	return creds, true
}

// RegisterHandler creates an account from a JSON {username, password} body.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	s.log.Info("received registration request", "username", creds.Username)

	err := s.users.Register(creds.Username, creds.Password)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		writeMessage(w, http.StatusBadRequest, "Username already exists.")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeMessage(w, http.StatusBadRequest, credentialsMessage(err))
	case err != nil:
		s.log.Error("user registration failed", "username", creds.Username, "error", err)
		writeMessage(w, http.StatusInternalServerError, "User registration failed.")
	default:
		s.log.Info("user registered", "username", creds.Username)
		writeMessage(w, http.StatusOK, "User registered successfully.")
	}
}

// LoginHandler checks credentials and sets the session cookie.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	valid, err := s.users.Verify(creds.Username, creds.Password)
	if err != nil {
		s.log.Error("credential check failed", "username", creds.Username, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	if !valid {
		s.log.Info("invalid login attempt", "username", creds.Username)
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password.")
		return
	}

	token := s.sessions.Create(creds.Username)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	s.log.Info("user logged in", "username", creds.Username)
	writeMessage(w, http.StatusOK, "Login successful.")
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat hub is running!")
}
