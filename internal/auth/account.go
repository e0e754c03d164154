// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Input limits for registration and login.
const (
	MaxIdentityLength = 254
	MaxPasswordLength = 1024
)

// Account is a registered credential holder. Accounts are created once and
// never updated.
type Account struct {
	ID           int64
	Identity     string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountRepository persists accounts.
//
// Implementations must enforce identity uniqueness atomically: of two
// concurrent Create calls for the same identity exactly one succeeds and the
// other returns an error matching ErrDuplicateIdentity.
type AccountRepository interface {
	// Create inserts a new account and returns it with the store-assigned ID.
	Create(ctx context.Context, identity, passwordHash string) (*Account, error)

	// GetByIdentity returns the account for identity, or ErrNotFound.
	GetByIdentity(ctx context.Context, identity string) (*Account, error)
}

// ValidateIdentity checks that identity is usable as an account key.
// Identities are case-sensitive and compared byte-wise, so no normalisation
// is applied here.
func ValidateIdentity(identity string) error {
	if identity == "" {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "email").
			Wrapf(ErrValidation, "email is required")
	}
	if len(identity) > MaxIdentityLength {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "email").
			With("max_length", MaxIdentityLength).
			Wrapf(ErrValidation, "email is too long")
	}
	if !utf8.ValidString(identity) {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "email").
			Wrapf(ErrValidation, "email is not valid UTF-8")
	}
	for _, r := range identity {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return oops.Code("AUTH_INVALID_INPUT").
				With("field", "email").
				Wrapf(ErrValidation, "email contains whitespace or control characters")
		}
	}
	return nil
}

// ValidatePassword checks that a plaintext password is present and bounded.
func ValidatePassword(password string) error {
	if password == "" {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "password").
			Wrapf(ErrValidation, "password is required")
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "password").
			With("max_length", MaxPasswordLength).
			Wrapf(ErrValidation, "password is too long")
	}
	return nil
}
