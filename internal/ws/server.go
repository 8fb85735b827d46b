package ws

import (
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/live-server/backend/internal/assets"
	"github.com/live-server/backend/internal/session"
	"go.uber.org/zap"
)

type Server struct {
	registry *session.Registry
	reader   assets.Reader
	snippet  string
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer serves files through reader, appending snippet to every HTML
// document, and registers reload channels into registry.
func NewServer(registry *session.Registry, reader assets.Reader, snippet string, logger *zap.Logger) *Server {
	return &Server{
		registry: registry,
		reader:   reader,
		snippet:  snippet,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc(WSPath, s.handleWS)
	mux.HandleFunc("/", s.handleAsset)
}

// handleWS owns a session for its whole lifetime. Incoming frames are read
// and discarded; the first read error means the tab is gone.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	id := session.NewID()
	c := newClient(conn, s.logger)
	s.registry.Register(id, c)
	s.logger.Info("WebSocket client connected", zap.Stringer("session", id), zap.String("remote", r.RemoteAddr))

	defer func() {
		s.registry.Unregister(id)
		c.close()
		s.logger.Info("WebSocket client disconnected", zap.Stringer("session", id), zap.String("remote", r.RemoteAddr))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := assets.Resolve(r.URL.Path)
	body, err := s.reader.Read(name)
	if err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			s.logger.Error("Asset not found", zap.String("path", r.URL.Path), zap.Error(err))
		} else {
			s.logger.Error("Failed to read asset", zap.String("path", r.URL.Path), zap.Error(err))
		}
		http.NotFound(w, r)
		return
	}

	contentType := assets.Guess(name)
	if assets.IsHTML(contentType) {
		if !utf8.Valid(body) {
			s.logger.Error("HTML is not valid UTF-8", zap.String("path", r.URL.Path))
			http.Error(w, "invalid UTF-8 in HTML document", http.StatusInternalServerError)
			return
		}
		body = append(body[:len(body):len(body)], s.snippet...)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}
