// Package server provides HTTP server initialization and lifecycle
// management for the JRVI dashboard API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/audit"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/config"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/kernel"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/memory"
	"github.com/devlinkalmus/deploy-code-server-sub002/pkg/types"
	"github.com/devlinkalmus/deploy-code-server-sub002/web/handlers"
)

// Server wires the handlers, middleware and websocket hub into one
// http.Handler and manages its lifecycle.
type Server struct {
	cfg    *config.Config
	router chi.Router
	hub    *handlers.WebSocketHub
}

// New builds a Server over the given store, trail and kernel. Audit
// lifecycle events are forwarded to the websocket hub.
func New(cfg *config.Config, store *memory.Store, trail *audit.Trail, k *kernel.Kernel) *Server {
	origins := []string{
		fmt.Sprintf("localhost:%d", cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
	}
	hub := handlers.NewWebSocketHub(origins)

	trail.Subscribe(func(entry types.AuditEntry) {
		hub.Broadcast(map[string]interface{}{
			"type":  "audit",
			"entry": entry,
		})
	})

	s := &Server{cfg: cfg, hub: hub}
	s.routes(store, trail, k)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub returns the websocket hub for callers that broadcast their own
// events.
func (s *Server) Hub() *handlers.WebSocketHub {
	return s.hub
}

func (s *Server) routes(store *memory.Store, trail *audit.Trail, k *kernel.Kernel) {
	memoryHandlers := handlers.NewMemoryHandlers(k, store)
	kernelHandlers := handlers.NewKernelHandlers(k)
	auditHandlers := handlers.NewAuditHandlers(trail)
	statsHandler := handlers.NewStatsHandler(store, trail, k)
	activityHandler := handlers.NewActivityHandler(store)
	swarmHandler := handlers.NewSwarmHandler()

	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(securityHeaders)
	r.Use(rateLimiter.Middleware)

	// Health stays outside auth so monitors can reach it.
	r.Get("/api/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.AuthMiddleware(s.cfg))

		r.Post("/memories", memoryHandlers.CreateMemory)
		r.Get("/memories", memoryHandlers.QueryMemories)
		r.Get("/memories/{id}", memoryHandlers.GetMemory)
		r.Patch("/memories/{id}", memoryHandlers.UpdateMemory)
		r.Delete("/memories/{id}", memoryHandlers.DeleteMemory)
		r.Get("/memories/{id}/associations", memoryHandlers.GetAssociations)

		r.Post("/kernel/route", kernelHandlers.RouteOperation)
		r.Get("/kernel/freeze", kernelHandlers.GetFreeze)
		r.Post("/kernel/freeze", kernelHandlers.SetFreeze)
		r.Get("/kernel/approvals", kernelHandlers.ListApprovals)

		r.Get("/audit", auditHandlers.ListAudit)
		r.Get("/audit/{id}", auditHandlers.GetAudit)

		r.Get("/stats", statsHandler.GetStats)
		r.Get("/activity", activityHandler.GetActivity)
		r.Get("/swarm", swarmHandler.GetSwarm)
	})

	// WebSocket endpoint (no auth required, origin validation handles it)
	r.Handle("/ws", s.hub)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
}

// securityHeaders adds security headers to all HTTP responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start begins serving and returns the actual listen address (useful for
// tests with port 0). The server shuts down gracefully when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) (string, error) {
	go s.hub.Run()

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		s.hub.Stop()
	}()

	return actualAddr, nil
}
