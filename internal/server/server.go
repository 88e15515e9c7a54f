package server

import (
	"context"
	"fmt"
	"net/http"

	"NetGuardEngine/internal/config"
	"NetGuardEngine/internal/handler"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/middleware"
	"NetGuardEngine/internal/ws"

	"github.com/gorilla/mux"
)

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	log        *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Server {
	router := mux.NewRouter()

	return &Server{
		router: router,
		cfg:    cfg,
		log:    log,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}
}

func (s *Server) RegisterHandlers(
	notificationHandler *handler.NotificationHandler,
	deviceHandler *handler.DeviceHandler,
	healthHandler *handler.HealthHandler,
	hub *ws.Hub,
) {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.Use(middleware.RequestLogger(s.log))
	api.Use(middleware.CORS(s.cfg.Server.CORSAllowedOrigins, s.cfg.Server.CORSAllowedMethods))
	api.Use(middleware.Recovery(s.log))

	if s.cfg.Server.EnableRateLimit {
		api.Use(middleware.RateLimit(s.cfg.Server.RateLimitPerMinute))
	}

	notificationHandler.RegisterRoutes(api)
	deviceHandler.RegisterRoutes(api)
	healthHandler.RegisterRoutes(s.router)

	// Presentation push channel lives outside the /api/v1 middleware chain;
	// websocket upgrades do not mix with the wrapped response writer.
	s.router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, w, r, s.log)
	})

	s.log.Info("All handlers registered")
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
