// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/observability"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) bindCredentials(c *gin.Context) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, codeInvalidInput, "Request body must be JSON with email and password")
		return req, false
	}
	return req, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRegister(c *gin.Context) {
	req, ok := s.bindCredentials(c)
	if !ok {
		s.metrics.RecordRegistration(observability.OutcomeInvalid)
		return
	}

	account, err := s.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.RecordRegistration(s.writeServiceError(c, "register failed", err))
		return
	}

	s.metrics.RecordRegistration(observability.OutcomeSuccess)
	c.JSON(http.StatusCreated, accountResponse{ID: account.ID, Email: account.Identity})
}

func (s *Server) handleLogin(c *gin.Context) {
	req, ok := s.bindCredentials(c)
	if !ok {
		s.metrics.RecordLogin(observability.OutcomeInvalid)
		return
	}

	token, claims, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.RecordLogin(s.writeServiceError(c, "login failed", err))
		return
	}

	s.setSessionCookie(c, token, int(s.cookie.MaxAge.Seconds()))
	s.metrics.RecordLogin(observability.OutcomeSuccess)

	expires := claims.ExpiresAtTime()
	c.JSON(http.StatusOK, accountResponse{ID: claims.AccountID, Email: claims.Identity, ExpiresAt: &expires})
}

// handleLogout clears the cookie in the browser. The token itself stays
// valid until it expires.
func (s *Server) handleLogout(c *gin.Context) {
	s.setSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleConcepts(c *gin.Context) {
	c.JSON(http.StatusOK, s.concepts.List())
}

func (s *Server) handleMe(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		abortWithError(c, http.StatusUnauthorized, codeUnauthenticated, "Not authenticated")
		return
	}
	expires := claims.ExpiresAtTime()
	c.JSON(http.StatusOK, accountResponse{ID: claims.AccountID, Email: claims.Identity, ExpiresAt: &expires})
}

func (s *Server) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(s.cookie.SameSite)
	c.SetCookie(s.cookie.Name, value, maxAge, "/", s.cookie.Domain, s.cookie.Secure, true)
}
