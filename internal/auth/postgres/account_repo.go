// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/codenest/codenest/internal/auth"
)

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool Querier
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool Querier) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create inserts an account. The UNIQUE constraint on email makes concurrent
// registrations of one identity race safely inside the database.
func (r *AccountRepository) Create(ctx context.Context, identity, passwordHash string) (*auth.Account, error) {
	account := &auth.Account{Identity: identity, PasswordHash: passwordHash}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, identity, passwordHash).Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, oops.Code("AUTH_DUPLICATE_IDENTITY").
				With("identity", identity).
				Wrap(auth.ErrDuplicateIdentity)
		}
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			Wrap(err)
	}
	account.CreatedAt = account.CreatedAt.UTC()
	return account, nil
}

// GetByIdentity retrieves an account by its exact identity.
func (r *AccountRepository) GetByIdentity(ctx context.Context, identity string) (*auth.Account, error) {
	var (
		account   auth.Account
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`, identity).Scan(&account.ID, &account.Identity, &account.PasswordHash, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("identity", identity).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by identity").
			Wrap(err)
	}
	account.CreatedAt = createdAt.UTC()
	return &account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
