// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the account and session API over HTTP using gin.
package web

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/content"
	"github.com/codenest/codenest/internal/observability"
)

// Authenticator is the slice of auth.Service the HTTP layer needs.
type Authenticator interface {
	Register(ctx context.Context, identity, password string) (*auth.Account, error)
	Login(ctx context.Context, identity, password string) (string, *auth.Claims, error)
	Authorize(token string) auth.Decision
}

// ConceptLister supplies the protected concept catalogue.
type ConceptLister interface {
	List() []content.Concept
}

// CookieOptions shapes the session cookie.
type CookieOptions struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// Options configures a Server.
type Options struct {
	Auth     Authenticator
	Concepts ConceptLister
	Cookie   CookieOptions
	// Origins are the browser origins allowed to send credentials.
	Origins []string
	// Metrics may be nil.
	Metrics *observability.Metrics
	// Logger may be nil, in which case slog.Default is used.
	Logger *slog.Logger
}

// Server serves the public API.
type Server struct {
	auth     Authenticator
	concepts ConceptLister
	cookie   CookieOptions
	metrics  *observability.Metrics
	logger   *slog.Logger
	engine   *gin.Engine

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the router. It does not start listening.
func NewServer(opts Options) (*Server, error) {
	if opts.Auth == nil {
		return nil, oops.Code("HTTP_CONFIG_INVALID").Errorf("authenticator is required")
	}
	if opts.Concepts == nil {
		return nil, oops.Code("HTTP_CONFIG_INVALID").Errorf("concept catalogue is required")
	}
	if opts.Cookie.Name == "" {
		return nil, oops.Code("HTTP_CONFIG_INVALID").Errorf("cookie name is required")
	}
	if opts.Cookie.MaxAge <= 0 {
		return nil, oops.Code("HTTP_CONFIG_INVALID").
			With("max_age", opts.Cookie.MaxAge.String()).
			Errorf("cookie max age must be positive")
	}
	if len(opts.Origins) == 0 {
		return nil, oops.Code("HTTP_CONFIG_INVALID").Errorf("at least one CORS origin is required")
	}
	for _, origin := range opts.Origins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return nil, oops.Code("HTTP_CONFIG_INVALID").
				With("origin", origin).
				Errorf("CORS origins must start with http:// or https://")
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		auth:     opts.Auth,
		concepts: opts.Concepts,
		cookie:   opts.Cookie,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "http"),
	}

	engine := gin.New()
	engine.Use(
		requestID(),
		s.accessLog(),
		gin.CustomRecoveryWithWriter(io.Discard, s.recoverPanic),
		s.countRequests(),
		cors.New(cors.Config{
			AllowOrigins:     opts.Origins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	engine.GET("/healthz", s.handleHealth)
	engine.POST("/register", s.handleRegister)
	engine.POST("/login", s.handleLogin)
	engine.POST("/logout", s.handleLogout)

	protected := engine.Group("")
	protected.Use(s.requireSession())
	{
		protected.GET("/concepts", s.handleConcepts)
		protected.GET("/me", s.handleMe)
	}

	s.engine = engine
	return s, nil
}

// Handler returns the router for use with httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr and serves in the background. The returned channel
// receives a serve error, if any, and is closed when the server stops.
func (s *Server) Start(addr string) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("HTTP_RUNNING").Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("HTTP_LISTEN_FAILED").With("addr", addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("http server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_http_server").Wrap(err)
		}
	}

	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
