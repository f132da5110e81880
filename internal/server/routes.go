package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/metrics"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
)

const maxRequestBody = 4 * 1024

var validate = validator.New()

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	s.mux.HandleFunc("GET /api/rooms/{roomId}", s.handleGetRoom)
	s.mux.Handle("GET /metrics", metrics.PrometheusHandler(s.hub.Metrics()))
	s.mux.HandleFunc("GET /ws", ServeWs(s.hub, s.cfg.AllowedOrigins))
}

type healthResponse struct {
	Status  string `json:"status"`
	Rooms   int    `json:"rooms"`
	Clients int    `json:"clients"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.hub.Stats(r.Context())
	if err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Rooms:   stats.Rooms,
		Clients: stats.Clients,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}

type createRoomRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Type   string `json:"type" validate:"max=32"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var body createRoomRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.hub.CreateRoom(r.Context(), body.UserID, body.Type)
	if err != nil {
		s.log.Error("create room failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, signaling.RoomCreatedPayload{
		RoomID:    info.RoomID,
		Type:      info.Type,
		CreatedAt: info.CreatedAt.UnixMilli(),
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	info, err := s.hub.RoomInfo(r.Context(), r.PathValue("roomId"))
	switch {
	case errors.Is(err, signaling.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		WriteJSON(w, http.StatusOK, info)
	}
}

// ServeWs returns an http.HandlerFunc that upgrades websocket requests and
// hands the connection to hub.
func ServeWs(hub *signaling.Hub, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 * 1024, // 64 KB
		WriteBufferSize: 64 * 1024, // 64 KB
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(origin, allowedOrigins)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written an HTTP error.
			return
		}

		client := signaling.NewClient(hub, conn)
		if !hub.Register(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

// WriteJSON writes a JSON response body and sets the Content-Type header.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
