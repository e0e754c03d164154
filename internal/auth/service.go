// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service registers accounts, checks credentials and hands out session tokens.
type Service struct {
	accounts AccountRepository
	hasher   PasswordHasher
	tokens   *TokenManager
	logger   *slog.Logger
}

// NewService creates a Service that logs through slog.Default.
func NewService(accounts AccountRepository, hasher PasswordHasher, tokens *TokenManager) (*Service, error) {
	return NewServiceWithLogger(accounts, hasher, tokens, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(accounts AccountRepository, hasher PasswordHasher, tokens *TokenManager, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("accounts repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token manager is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
	}, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates an account for identity with the given password.
func (s *Service) Register(ctx context.Context, identity, password string) (*Account, error) {
	if err := ValidateIdentity(identity); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := s.accounts.Create(ctx, identity, hash)
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			return nil, oops.Code("AUTH_DUPLICATE_IDENTITY").Wrap(err)
		}
		return nil, oops.Code("AUTH_STORAGE_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account registered", "event", "register", "account_id", account.ID)
	return account, nil
}

// Login checks credentials and issues a session token.
// Unknown identities and wrong passwords return the same ErrInvalidCredentials,
// and both run a full password verification.
func (s *Service) Login(ctx context.Context, identity, password string) (string, *Claims, error) {
	if identity == "" || password == "" {
		return "", nil, oops.Code("AUTH_INVALID_INPUT").Wrapf(ErrValidation, "email and password are required")
	}

	account, lookupErr := s.accounts.GetByIdentity(ctx, identity)

	var targetHash string
	var accountExists bool

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return "", nil, oops.Code("AUTH_STORAGE_FAILED").
				With("operation", "get account by identity").
				Wrap(lookupErr)
		}
		targetHash = dummyPasswordHash
	} else {
		targetHash = account.PasswordHash
		accountExists = true
	}

	// Always verify so unknown identities take as long as known ones.
	valid := s.hasher.Verify(password, targetHash)
	if !accountExists || !valid {
		s.logger.InfoContext(ctx, "login rejected", "event", "login_failed")
		return "", nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		s.logger.WarnContext(ctx, "account uses a legacy password hash",
			"event", "legacy_hash", "account_id", account.ID)
	}

	token, claims, err := s.tokens.Issue(account)
	if err != nil {
		return "", nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session token").
			With("account_id", account.ID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "login succeeded", "event", "login", "account_id", account.ID)
	return token, claims, nil
}

// Authenticate verifies a session token and returns its claims.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

// Authorize runs the gate decision for token using this service's verifier.
func (s *Service) Authorize(token string) Decision {
	return Authorize(s.tokens, token)
}
