package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/blocker"
	"github.com/tomatomonkey/tomatomonkey/internal/config"
	"github.com/tomatomonkey/tomatomonkey/internal/database"
	"github.com/tomatomonkey/tomatomonkey/internal/storage"
	"github.com/tomatomonkey/tomatomonkey/internal/timer"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
}

func NewServer(cfg *config.Config, tm *timer.Timer, engine *blocker.Engine, store storage.Store, repo *database.Repository) *Server {
	handler := NewHandler(cfg, tm, engine, store, repo)
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
	}
}

func (s *Server) Start() error {
	log.Printf("Starting web server on http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
