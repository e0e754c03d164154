// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSessionTTL is how long an issued session token stays valid.
const DefaultSessionTTL = 24 * time.Hour

// MinSecretLength is the shortest signing secret accepted in release mode.
const MinSecretLength = 32

// TokenConfig holds the signing material for session tokens. It is copied
// when a TokenManager is built, so later changes by the caller have no effect.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Claims is the payload of a session token.
type Claims struct {
	AccountID int64  `json:"uid"`
	Identity  string `json:"email"`
	jwt.RegisteredClaims
}

// ExpiresAtTime returns the expiry as a time.Time, or the zero time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenVerifier checks a presented session token.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// TokenManager issues and verifies HS256 session tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewTokenManager creates a TokenManager from cfg. A zero TTL means
// DefaultSessionTTL.
func NewTokenManager(cfg TokenConfig, opts ...TokenOption) (*TokenManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, oops.Code("SESSION_CONFIG_INVALID").Errorf("signing secret is required")
	}
	if cfg.TTL < 0 {
		return nil, oops.Code("SESSION_CONFIG_INVALID").
			With("ttl", cfg.TTL.String()).
			Errorf("session ttl must not be negative")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}

	m := &TokenManager{
		secret: append([]byte(nil), cfg.Secret...),
		ttl:    ttl,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session token for account. It does not touch storage.
func (m *TokenManager) Issue(account *Account) (string, *Claims, error) {
	if account == nil || account.ID <= 0 || account.Identity == "" {
		return "", nil, oops.Code("SESSION_ISSUE_FAILED").Errorf("account is required")
	}

	// Token timestamps have second precision.
	now := m.now().Truncate(time.Second)
	claims := &Claims{
		AccountID: account.ID,
		Identity:  account.Identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, oops.Code("SESSION_ISSUE_FAILED").
			With("account_id", account.ID).
			Wrap(err)
	}
	return token, claims, nil
}

// Verify checks the token signature and then its expiry. A token that fails
// to parse or whose signature does not match returns ErrInvalidToken; a
// correctly signed token at or past its expiry returns ErrExpiredToken.
func (m *TokenManager) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return nil, invalidToken(err)
	}

	if claims.AccountID <= 0 || claims.Identity == "" || claims.ExpiresAt == nil {
		return nil, invalidToken(nil)
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return nil, invalidToken(nil)
	}

	now := m.now()
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
		return nil, invalidToken(nil)
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, oops.Code("SESSION_EXPIRED").
			With("expired_at", claims.ExpiresAt.Time).
			Wrap(ErrExpiredToken)
	}

	return claims, nil
}

func invalidToken(cause error) error {
	b := oops.Code("SESSION_INVALID")
	if cause != nil {
		b = b.With("cause", cause.Error())
	}
	return b.Wrap(ErrInvalidToken)
}
