// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the chat pipeline and knowledge-base
// management over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/triage/internal/log"
)

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Enabled        bool
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// DefaultCORSConfig returns a permissive CORS configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}
}

// Config holds HTTP server configuration.
type Config struct {
	Addr        string        // Default: :8080
	ReadTimeout time.Duration // Default: 30s
	CORS        CORSConfig
}

// Server is the HTTP front end.
type Server struct {
	cfg        Config
	httpServer *http.Server
	handlers   *Handlers
}

// New creates the HTTP server around the given handlers.
func New(cfg Config, handlers *Handlers) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}

	s := &Server{cfg: cfg, handlers: handlers}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", handlers.Chat)
	mux.HandleFunc("/teach", handlers.Teach)
	mux.HandleFunc("/upload", handlers.Upload)
	mux.HandleFunc("/links", handlers.Links)
	mux.HandleFunc("/ingest/scan", handlers.Scan)
	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/ui", handlers.UI)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/ui", http.StatusFound)
	})

	var handler http.Handler = mux
	if cfg.CORS.Enabled {
		handler = corsMiddleware(cfg.CORS, handler)
	}
	handler = requestLogMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:        cfg.Addr,
		Handler:     handler,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	log.Info("starting HTTP server", zap.String("addr", s.cfg.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	log.Info("stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// requestLogMiddleware tags each request with an ID and logs it.
func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Debug("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// corsMiddleware adds CORS headers and answers preflight requests.
func corsMiddleware(cfg CORSConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed := allowedOrigin(cfg.AllowedOrigins, origin); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
		}
		if len(cfg.AllowedMethods) > 0 {
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
		}
		if len(cfg.AllowedHeaders) > 0 {
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func allowedOrigin(allowed []string, origin string) string {
	for _, a := range allowed {
		if a == "*" {
			return "*"
		}
		if a == origin {
			return origin
		}
	}
	return ""
}
