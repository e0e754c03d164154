// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process auth.AccountRepository for
// development and tests. Data is lost when the process exits.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/codenest/codenest/internal/auth"
)

// AccountRepository stores accounts in a map guarded by a mutex.
type AccountRepository struct {
	mu         sync.RWMutex
	byIdentity map[string]*auth.Account
	nextID     int64
	now        func() time.Time
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byIdentity: make(map[string]*auth.Account),
		now:        time.Now,
	}
}

// Create inserts an account, failing with ErrDuplicateIdentity if the
// identity is taken. The check and insert happen under one lock.
func (r *AccountRepository) Create(ctx context.Context, identity, passwordHash string) (*auth.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byIdentity[identity]; exists {
		return nil, oops.Code("AUTH_DUPLICATE_IDENTITY").
			With("identity", identity).
			Wrap(auth.ErrDuplicateIdentity)
	}

	r.nextID++
	account := &auth.Account{
		ID:           r.nextID,
		Identity:     identity,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}
	r.byIdentity[identity] = account

	stored := *account
	return &stored, nil
}

// GetByIdentity returns a copy of the stored account.
func (r *AccountRepository) GetByIdentity(ctx context.Context, identity string) (*auth.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byIdentity[identity]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("identity", identity).
			Wrap(auth.ErrNotFound)
	}
	stored := *account
	return &stored, nil
}

// Len returns the number of stored accounts.
func (r *AccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity)
}
