// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package sqlite implements auth repositories on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/codenest/codenest/internal/auth"
)

// AccountRepository implements auth.AccountRepository using SQLite.
type AccountRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository over an open database
// that has the accounts schema applied.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db, now: time.Now}
}

// Create inserts an account. The UNIQUE constraint on email decides races
// between concurrent registrations.
func (r *AccountRepository) Create(ctx context.Context, identity, passwordHash string) (*auth.Account, error) {
	createdAt := r.now().UTC().Truncate(time.Millisecond)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (email, password_hash, created_at) VALUES (?, ?, ?)`,
		identity, passwordHash, createdAt.UnixMilli(),
	)
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

	id, err := res.LastInsertId()
	if err != nil {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "read inserted id").
			Wrap(err)
	}

	return &auth.Account{
		ID:           id,
		Identity:     identity,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

// GetByIdentity retrieves an account by its exact identity. SQLite compares
// TEXT with the BINARY collation, so lookups are case-sensitive.
func (r *AccountRepository) GetByIdentity(ctx context.Context, identity string) (*auth.Account, error) {
	var (
		account   auth.Account
		createdMs int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE email = ?`,
		identity,
	).Scan(&account.ID, &account.Identity, &account.PasswordHash, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("identity", identity).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by identity").
			Wrap(err)
	}
	account.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &account, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
}
