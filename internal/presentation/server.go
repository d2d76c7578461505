package presentation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/history"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/state"
)

const (
	maxUploadBytes = 10 << 20
	writeWait      = 5 * time.Second
	commandTimeout = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Engine is the dashboard engine as the web layer sees it.
type Engine interface {
	Subscribe(fn state.Handler, kinds ...state.Kind) func()
	IssueCommand(ctx context.Context, req domain.CommandRequest) (domain.CommandOutcome, error)
	CurrentMode() domain.Mode
	Snapshot() state.Snapshot
	History() history.Report
}

type message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Server pushes engine events to websocket clients and accepts control
// commands over REST.
type Server struct {
	mux    *http.ServeMux
	engine Engine
	log    zerolog.Logger

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan message
	done      chan struct{}
	closeOnce sync.Once

	unsubscribe func()
}

func New(engine Engine, log zerolog.Logger) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		engine:    engine,
		log:       log.With().Str("component", "presentation").Logger(),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan message, 256),
		done:      make(chan struct{}),
	}

	s.routes()
	s.unsubscribe = engine.Subscribe(s.forward)
	go s.handleBroadcast()

	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("POST /api/intersections/{id}/emergency/clear", s.handleClear)
	s.mux.HandleFunc("POST /api/intersections/{id}/emergency/{direction}", s.handleEmergency)
	s.mux.HandleFunc("POST /api/intersections/{id}/optimize", s.handleOptimize)
	s.mux.HandleFunc("POST /api/intersections/{id}/detection", s.handleDetection)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close stops event forwarding and disconnects every websocket client.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		close(s.done)

		s.clientsMu.Lock()
		for conn := range s.clients {
			conn.Close()
			delete(s.clients, conn)
		}
		s.clientsMu.Unlock()
	})
}

// forward runs on the store's delivery goroutine for this server.
func (s *Server) forward(ev state.Event) {
	select {
	case s.broadcast <- message{Type: "event", Data: ev}:
	case <-s.done:
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// the snapshot is written under the lock so no broadcast can overtake it
	s.clientsMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteJSON(message{Type: "init", Data: s.engine.Snapshot()})
	if err == nil {
		s.clients[conn] = true
	}
	s.clientsMu.Unlock()
	if err != nil {
		conn.Close()
		return
	}

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) handleBroadcast() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.broadcast:
			s.clientsMu.Lock()
			for conn := range s.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					conn.Close()
					delete(s.clients, conn)
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "offline"
	mode := s.engine.CurrentMode()
	if mode == domain.ModeLive {
		status = "online"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "mode": string(mode)})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.History())
}

func (s *Server) handleEmergency(w http.ResponseWriter, r *http.Request) {
	s.issue(w, r, domain.CommandRequest{
		Kind:           domain.CommandEmergencyTrigger,
		IntersectionID: r.PathValue("id"),
		Direction:      domain.Direction(r.PathValue("direction")),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.issue(w, r, domain.CommandRequest{Kind: domain.CommandEmergencyClear, IntersectionID: r.PathValue("id")})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	s.issue(w, r, domain.CommandRequest{Kind: domain.CommandOptimize, IntersectionID: r.PathValue("id")})
}

func (s *Server) handleDetection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No image file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not read image"})
		return
	}

	s.issue(w, r, domain.CommandRequest{
		Kind:           domain.CommandDetect,
		IntersectionID: r.PathValue("id"),
		Direction:      domain.Direction(r.FormValue("direction")),
		Image: &domain.ImageUpload{
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Data:        data,
		},
	})
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, req domain.CommandRequest) {
	if req.Direction != "" {
		if dir, err := domain.ParseDirection(string(req.Direction)); err == nil {
			req.Direction = dir
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	out, err := s.engine.IssueCommand(ctx, req)
	if errors.Is(err, domain.ErrInvalidCommand) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("kind", string(req.Kind)).Msg("command dispatch failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	status := http.StatusOK
	if !out.Succeeded {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
