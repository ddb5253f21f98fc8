package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/pidfocus/internal/config"
	"github.com/bryanchriswhite/pidfocus/internal/focus"
	"github.com/bryanchriswhite/pidfocus/internal/logger"
	"github.com/bryanchriswhite/pidfocus/internal/process"
	"github.com/bryanchriswhite/pidfocus/internal/window"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Version is reported by /api/health
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	focusMgr  *focus.Manager
	dial      window.Dialer
	configMgr *config.Manager
	describer focus.Describer
	upgrader  websocket.Upgrader
	http      *http.Server
	log       *zerolog.Logger
}

// NewServer creates a new API server. configMgr and describer may be nil.
func NewServer(focusMgr *focus.Manager, dial window.Dialer, configMgr *config.Manager, describer focus.Describer) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		focusMgr:  focusMgr,
		dial:      dial,
		configMgr: configMgr,
		describer: describer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		log: logger.WithComponent("api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Focus
	api.HandleFunc("/focus/current", s.handleGetCurrentFocus).Methods("GET")
	api.HandleFunc("/focus/stream", s.handleFocusStream)
	api.HandleFunc("/focus/{pid}", s.handleSetFocus).Methods("POST")

	// Watcher state
	api.HandleFunc("/watcher", s.handleWatcherStatus).Methods("GET")

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.PathPrefix("/").HandlerFunc(s.handleIndex)
}

// Handler returns the router wrapped in the CORS middleware
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{Addr: addr, Handler: s.Handler()}

	s.log.Info().Str("addr", "http://localhost"+addr).Msg("Starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops a server started with Start
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// focusResponse is the body of /api/focus/current
type focusResponse struct {
	PID     int           `json:"pid"`
	Process *process.Info `json:"process,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// focusErrorStatus maps focus errors to HTTP status codes
func focusErrorStatus(err error) int {
	switch {
	case errors.Is(err, window.ErrInvalidPID):
		return http.StatusBadRequest
	case errors.Is(err, window.ErrDisplayUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTP Handlers

func (s *Server) handleGetCurrentFocus(w http.ResponseWriter, r *http.Request) {
	pid, err := window.QueryFocusedPID(s.dial)
	if err != nil {
		http.Error(w, err.Error(), focusErrorStatus(err))
		return
	}
	if pid == 0 {
		http.Error(w, "No window focused", http.StatusNotFound)
		return
	}

	resp := focusResponse{PID: pid}
	if s.describer != nil {
		if info, err := s.describer.Lookup(pid); err == nil {
			resp.Process = &info
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetFocus(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["pid"]
	pid, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("%s: %q", window.ErrInvalidPID, raw), http.StatusBadRequest)
		return
	}

	if err := s.focusMgr.SetFocus(pid); err != nil {
		http.Error(w, err.Error(), focusErrorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"pid":    pid,
	})
}

func (s *Server) handleWatcherStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"watching":    s.focusMgr.IsWatching(),
		"current_pid": s.focusMgr.CurrentPID(),
	})
}

func (s *Server) handleFocusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	// Subscribe to focus events; the first subscriber starts the watcher
	updates, err := s.focusMgr.Subscribe()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to subscribe to focus events")
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()))
		return
	}
	defer s.focusMgr.Unsubscribe(updates)

	// Detect client disconnects; clients never send anything we use
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		case <-gone:
			s.log.Debug().Msg("WebSocket client disconnected")
			return
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr == nil {
		http.Error(w, "No configuration loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>pidfocus</title>
    <style>
        body { font-family: sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        code { background: #f5f5f5; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>pidfocus</h1>
    <p>Watches which process owns the focused X11 window and raises windows by PID.</p>
    <h3>API Endpoints:</h3>
    <ul>
        <li><a href="/api/health">/api/health</a> - Server health check</li>
        <li><a href="/api/focus/current">/api/focus/current</a> - PID of the focused window</li>
        <li><a href="/api/watcher">/api/watcher</a> - Watcher state</li>
        <li><code>POST /api/focus/{pid}</code> - Focus a window of the process</li>
        <li><code>/api/focus/stream</code> - WebSocket stream of focus events</li>
    </ul>
</body>
</html>`

	// Only serve HTML for root path
	if r.URL.Path == "/" {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api") {
		http.NotFound(w, r)
		return
	}
	http.Error(w, "Unknown endpoint", http.StatusNotFound)
}
