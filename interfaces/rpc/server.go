package rpc

import (
	"context"
	"net/http"
	"time"

	"github.com/joeleaver/pimble/application/services"
	"github.com/joeleaver/pimble/interfaces/websocket"
	"go.uber.org/zap"
)

const shutdownGrace = 15 * time.Second

// Server is the HTTP boundary's lifecycle owner: it serves the router
// and, on shutdown, drains connections and flushes every open store
// before the process goes away.
type Server struct {
	http    *http.Server
	manager *services.StoreManager
	hub     *websocket.Hub
	logger  *zap.Logger
}

// NewServer builds the server on the given address.
func NewServer(
	addr string,
	router *Router,
	manager *services.StoreManager,
	hub *websocket.Hub,
	logger *zap.Logger,
) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           router.Setup(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		manager: manager,
		hub:     hub,
		logger:  logger,
	}
}

// Start serves until the listener fails or Shutdown is called. The hub
// starts alongside so notifications flow as soon as requests can arrive.
func (s *Server) Start() error {
	if s.hub != nil {
		go s.hub.Run()
	}
	s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, stops the notification hub, then
// flushes and closes every open store. Order matters: no new mutations
// can arrive once the listener is down, so the final flush is complete.
func (s *Server) Shutdown(ctx context.Context) error {
	drainCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	if err := s.http.Shutdown(drainCtx); err != nil {
		s.logger.Warn("HTTP drain did not finish cleanly", zap.Error(err))
	}
	if s.hub != nil {
		s.hub.Shutdown()
	}

	if err := s.manager.FlushAll(ctx); err != nil {
		s.logger.Error("Flush on shutdown failed", zap.Error(err))
	}
	if err := s.manager.CloseAll(ctx); err != nil {
		s.logger.Error("Close on shutdown failed", zap.Error(err))
		return err
	}
	s.logger.Info("Server stopped")
	return nil
}
