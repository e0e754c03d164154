// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package auth_test

import (
	"errors"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/auth/postgres"
)

var _ = Describe("PostgreSQL AccountRepository", func() {
	var repo *postgres.AccountRepository

	BeforeEach(func() {
		env.truncate()
		repo = postgres.NewAccountRepository(env.pool)
	})

	It("creates and reads back an account", func() {
		created, err := repo.Create(env.ctx, "ada@example.com", "$argon2id$stub")
		Expect(err).NotTo(HaveOccurred())
		Expect(created.ID).To(BeNumerically(">", 0))
		Expect(created.CreatedAt).NotTo(BeZero())

		got, err := repo.GetByIdentity(env.ctx, "ada@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(created.ID))
		Expect(got.PasswordHash).To(Equal("$argon2id$stub"))
	})

	It("rejects a second account with the same identity", func() {
		_, err := repo.Create(env.ctx, "ada@example.com", "$argon2id$first")
		Expect(err).NotTo(HaveOccurred())

		_, err = repo.Create(env.ctx, "ada@example.com", "$argon2id$second")
		Expect(errors.Is(err, auth.ErrDuplicateIdentity)).To(BeTrue())

		got, err := repo.GetByIdentity(env.ctx, "ada@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordHash).To(Equal("$argon2id$first"))
	})

	It("treats identities as case-sensitive", func() {
		_, err := repo.Create(env.ctx, "ada@example.com", "$argon2id$lower")
		Expect(err).NotTo(HaveOccurred())
		_, err = repo.Create(env.ctx, strings.ToUpper("ada@example.com"), "$argon2id$upper")
		Expect(err).NotTo(HaveOccurred())
	})

	It("reports an unknown identity as not found", func() {
		_, err := repo.GetByIdentity(env.ctx, "nobody@example.com")
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
	})

	It("lets exactly one of many concurrent registrations win", func() {
		const workers = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			dupes     int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := repo.Create(env.ctx, "race@example.com", "$argon2id$race")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, auth.ErrDuplicateIdentity):
					dupes++
				}
			}()
		}
		wg.Wait()

		Expect(successes).To(Equal(1))
		Expect(dupes).To(Equal(workers - 1))
	})
})
