// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/auth/memory"
	"github.com/codenest/codenest/pkg/errutil"
)

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAccountRepository()

	a, err := repo.Create(ctx, "ada@example.com", "$argon2id$one")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)

	b, err := repo.Create(ctx, "grace@example.com", "$argon2id$two")
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.ID)

	got, err := repo.GetByIdentity(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	got.PasswordHash = "mutated"
	again, err := repo.GetByIdentity(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$one", again.PasswordHash, "returned accounts are copies")

	_, err = repo.Create(ctx, "ada@example.com", "$argon2id$three")
	require.ErrorIs(t, err, auth.ErrDuplicateIdentity)
	errutil.AssertErrorCode(t, err, "AUTH_DUPLICATE_IDENTITY")

	_, err = repo.GetByIdentity(ctx, "Ada@example.com")
	require.ErrorIs(t, err, auth.ErrNotFound)

	assert.Equal(t, 2, repo.Len())
}

func TestAccountRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := memory.NewAccountRepository()
	_, err := repo.Create(ctx, "ada@example.com", "$argon2id$one")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, repo.Len())
}

func TestAccountRepository_ConcurrentDuplicateRegistration(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	repo := memory.NewAccountRepository()

	const workers = 64
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, "race@example.com", fmt.Sprintf("$argon2id$%d", i))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, dupes int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, auth.ErrDuplicateIdentity):
			dupes++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, dupes)
	assert.Equal(t, 1, repo.Len())
}
