package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"galaswap-agent/internal/config"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	engine EngineStatusProvider
	cfg    *config.Config
	hub    *Hub
	logger *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(engine EngineStatusProvider, cfg *config.Config, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		cfg:    cfg,
		hub:    hub,
		logger: logger.With("component", "api-handlers"),
	}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleStatus implements GET /api/status: a pure read over engine state.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := BuildSnapshot(h.engine.Status())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.logger.Error("failed to encode status", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// HandleConfig implements GET /api/config: a static, secret-free echo.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(config.NewSummary(h.cfg))
}

// HandleStart implements POST /api/start, idempotent.
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Start(); err != nil {
		h.logger.Error("start failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

// HandleStop implements POST /api/stop, idempotent.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "stopped"})
}

// HandleWebSocket upgrades the connection and creates a new WebSocket
// client for the supplementary push channel (kept from the teacher's
// dashboard as a superset of spec.md's required polling endpoints).
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)

	snapshot := BuildSnapshot(h.engine.Status())
	evt := NewSnapshotEvent(snapshot)

	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal initial snapshot", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to client")
	}
}
