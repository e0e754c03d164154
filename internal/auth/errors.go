// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// Sentinel errors for classification with errors.Is. Errors returned from
// this package wrap one of these with an oops code and context.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when registration input is missing or malformed.
	ErrValidation = errors.New("invalid input")

	// ErrDuplicateIdentity is returned when an identity is already registered.
	ErrDuplicateIdentity = errors.New("identity already registered")

	// ErrInvalidCredentials is returned for an unknown identity or a wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned when a session token is malformed or its
	// signature does not verify.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrExpiredToken is returned when a correctly signed session token is
	// past its expiry.
	ErrExpiredToken = errors.New("session token expired")
)
