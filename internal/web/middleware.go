// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/codenest/codenest/internal/auth"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	claimsKey       = "auth.claims"
)

// requestID tags every request with a fresh ULID, echoed in X-Request-ID.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ulid.Make().String()
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLog writes one record per request. Bodies and cookies are never
// logged.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		s.logger.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordRequest(route, strconv.Itoa(c.Writer.Status()))
	}
}

func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.logger.ErrorContext(c.Request.Context(), "panic serving request",
		"panic", recovered,
		"path", c.Request.URL.Path,
		"request_id", c.GetString(requestIDKey),
	)
	abortWithError(c, http.StatusInternalServerError, codeInternal, "Internal error")
}

// requireSession lets a request through only with a valid session cookie.
// A missing cookie is 401; a forged, malformed or expired token is 403 with
// one body for all three.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(s.cookie.Name)
		if err != nil {
			token = ""
		}

		decision := s.auth.Authorize(token)
		s.metrics.RecordGateDecision(decision.State.String())

		switch decision.State {
		case auth.GateAuthorized:
			c.Set(claimsKey, decision.Claims)
			c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), decision.Claims))
			c.Next()
		case auth.GateUnauthenticated:
			abortWithError(c, http.StatusUnauthorized, codeUnauthenticated, "Not authenticated")
		default:
			s.logger.DebugContext(c.Request.Context(), "session rejected",
				"expired", errors.Is(decision.Err, auth.ErrExpiredToken),
				"request_id", c.GetString(requestIDKey),
			)
			abortWithError(c, http.StatusForbidden, codeInvalidToken, "Invalid token")
		}
	}
}
