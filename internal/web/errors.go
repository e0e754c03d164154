// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/observability"
	"github.com/codenest/codenest/pkg/errutil"
)

// Error codes returned in JSON bodies.
const (
	codeInvalidInput       = "INVALID_INPUT"
	codeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeUnauthenticated    = "UNAUTHENTICATED"
	codeInvalidToken       = "INVALID_TOKEN"
	codeStorage            = "STORAGE_ERROR"
	codeInternal           = "INTERNAL_ERROR"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Error: message})
}

// classify maps a service error onto a response and a metrics outcome.
func classify(err error) (int, errorResponse, string) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		resp := errorResponse{Code: codeInvalidInput, Error: "Email and password required"}
		if oopsErr, ok := oops.AsOops(err); ok {
			if field, ok := oopsErr.Context()["field"].(string); ok {
				resp.Field = field
				resp.Error = "Invalid " + field
			}
		}
		return http.StatusBadRequest, resp, observability.OutcomeInvalid
	case errors.Is(err, auth.ErrDuplicateIdentity):
		return http.StatusConflict,
			errorResponse{Code: codeDuplicateIdentity, Error: "User already exists"},
			observability.OutcomeDuplicate
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized,
			errorResponse{Code: codeInvalidCredentials, Error: "Invalid credentials"},
			observability.OutcomeRejected
	default:
		return http.StatusInternalServerError,
			errorResponse{Code: codeStorage, Error: "Database error"},
			observability.OutcomeError
	}
}

// writeServiceError responds for err and returns the metrics outcome.
// Server-side failures are logged; client errors are left to the access log.
func (s *Server) writeServiceError(c *gin.Context, msg string, err error) string {
	status, resp, outcome := classify(err)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(c.Request.Context(), s.logger, msg, err)
	}
	c.AbortWithStatusJSON(status, resp)
	return outcome
}
