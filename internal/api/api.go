package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/app/engine"
	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/app/lint"
	"github.com/LusineKarapetyan/breathflow-playlist-creator/internal/domain/playlist"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The editor UI is served from the same origin in production; local
	// development runs the Vite server on another port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server wires the engine to the editor UI.
type Server struct {
	engine *engine.Engine
	hub    *Hub
	lint   *lint.Chain
	router *mux.Router
}

// NewServer creates the API server around an engine.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{
		engine: eng,
		hub:    NewHub(),
		lint:   lint.NewChain(),
		router: mux.NewRouter(),
	}

	r := s.router.PathPrefix("/api").Subrouter()
	r.HandleFunc("/playlist", s.handlePutPlaylist).Methods(http.MethodPut)
	r.HandleFunc("/state", s.handleGetState).Methods(http.MethodGet)
	r.HandleFunc("/command", s.handlePostCommand).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run pumps engine events to WebSocket subscribers until ctx is cancelled
// or the engine's event channel closes. Each event ships with a fresh
// snapshot so clients never need a follow-up request.
func (s *Server) Run(ctx context.Context) {
	defer s.hub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.engine.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(map[string]any{
				"event":    ev.Type.String(),
				"snapshot": s.engine.Snapshot(),
			})
			if err != nil {
				zlog.Error().Msgf("api: failed to marshal event: %v", err)
				continue
			}
			s.hub.Broadcast(payload)
		}
	}
}

func (s *Server) handlePutPlaylist(w http.ResponseWriter, r *http.Request) {
	var dto playlistDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "malformed playlist"))
		return
	}
	pl, err := dto.toDomain()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	s.engine.SetPlaylist(pl)

	warnings := make([]string, 0)
	for _, warning := range s.lint.Run(pl) {
		warnings = append(warnings, warning.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tracks":   pl.TrackCount(),
		"warnings": warnings,
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

type commandDTO struct {
	Action    string  `json:"action"`
	Section   int     `json:"section"`
	Track     int     `json:"track"`
	OffsetSec float64 `json:"offset_sec"`
	Enabled   *bool   `json:"enabled"`
}

func (s *Server) handlePostCommand(w http.ResponseWriter, r *http.Request) {
	var cmd commandDTO
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "malformed command"))
		return
	}

	var err error
	switch cmd.Action {
	case "play-pause":
		err = s.engine.TogglePlayPause()
	case "next":
		err = s.engine.Next()
	case "previous":
		err = s.engine.Previous()
	case "select":
		err = s.engine.SelectTrack(playlist.Position{Section: cmd.Section, Track: cmd.Track})
	case "seek":
		err = s.engine.Seek(time.Duration(cmd.OffsetSec * float64(time.Second)))
	case "auto-advance":
		if cmd.Enabled == nil {
			writeError(w, http.StatusBadRequest, errors.New("auto-advance requires enabled"))
			return
		}
		s.engine.SetAutoAdvance(*cmd.Enabled)
	default:
		writeError(w, http.StatusBadRequest, errors.Newf("unknown action %q", cmd.Action))
		return
	}

	if err != nil {
		writeError(w, commandStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Msgf("api: websocket upgrade failed: %v", err)
		return
	}

	id, ch := s.hub.Subscribe()
	zlog.Debug().Msgf("api: websocket subscriber %s connected", id)

	// Initial snapshot so the client renders without waiting for an event
	if payload, err := json.Marshal(map[string]any{
		"event":    "snapshot",
		"snapshot": s.engine.Snapshot(),
	}); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}

	// Reader: we accept no client messages, but reading surfaces closes
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.Unsubscribe(id)
				return
			}
		}
	}()

	for payload := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}
	s.hub.Unsubscribe(id)
	_ = conn.Close()
	zlog.Debug().Msgf("api: websocket subscriber %s disconnected", id)
}

// commandStatus maps engine errors to HTTP status codes.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidPosition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNoTrack),
		errors.Is(err, engine.ErrNoNext),
		errors.Is(err, engine.ErrNoPrevious):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Msgf("api: failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
