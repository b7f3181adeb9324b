package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"galaswap-agent/internal/config"
)

// Server runs the HTTP/WebSocket control surface (C10).
type Server struct {
	cfg      *config.Config
	engine   EngineStatusProvider
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger

	lastTradeTS time.Time
	lastArbTS   time.Time
}

// NewServer creates a new API server bound to the engine's status.
func NewServer(cfg *config.Config, engine EngineStatusProvider, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(engine, cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/status", handlers.HandleStatus)
	mux.HandleFunc("/api/config", handlers.HandleConfig)
	mux.HandleFunc("/api/start", handlers.HandleStart)
	mux.HandleFunc("/api/stop", handlers.HandleStop)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)
	mux.Handle("/", http.FileServer(http.Dir("web")))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		engine:   engine,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Start starts the WebSocket hub, the periodic push loop, and the HTTP server.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.pushLoop()

	s.logger.Info("control surface starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping control surface")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// pushLoop polls engine.Status() on a fixed interval, since the engine
// has no native event-emission channel, and turns it into two kinds of
// push: a full snapshot every tick, plus one typed trade/arbitrage event
// per history entry appended since the previous tick, so a connected
// dashboard sees individual results as they happen rather than only the
// next periodic snapshot.
func (s *Server) pushLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		status := s.engine.Status()

		for _, trade := range status.RecentTrades {
			if trade.Timestamp.After(s.lastTradeTS) {
				s.hub.BroadcastTrade(trade)
				s.lastTradeTS = trade.Timestamp
			}
		}
		for _, result := range status.RecentExecutions {
			if result.Timestamp.After(s.lastArbTS) {
				s.hub.BroadcastArbitrage(result)
				s.lastArbTS = result.Timestamp
			}
		}

		s.hub.BroadcastSnapshot(BuildSnapshot(status))
	}
}
