// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package auth_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/auth/postgres"
	"github.com/codenest/codenest/internal/content"
	"github.com/codenest/codenest/internal/web"
)

var _ = Describe("HTTP session flow against PostgreSQL", func() {
	var (
		server *httptest.Server
		client *http.Client
	)

	BeforeEach(func() {
		env.truncate()
		gin.SetMode(gin.TestMode)

		tokens, err := auth.NewTokenManager(auth.TokenConfig{
			Secret: []byte("0123456789abcdef0123456789abcdef"),
			TTL:    time.Hour,
			Issuer: "codenest",
		})
		Expect(err).NotTo(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1})
		svc, err := auth.NewServiceWithLogger(postgres.NewAccountRepository(env.pool), hasher, tokens, logger)
		Expect(err).NotTo(HaveOccurred())

		srv, err := web.NewServer(web.Options{
			Auth:     svc,
			Concepts: content.DefaultCatalog(),
			Cookie:   web.CookieOptions{Name: "token", SameSite: http.SameSiteStrictMode, MaxAge: tokens.TTL()},
			Origins:  []string{"http://localhost:3000"},
			Logger:   logger,
		})
		Expect(err).NotTo(HaveOccurred())

		server = httptest.NewServer(srv.Handler())
		DeferCleanup(server.Close)

		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		client = &http.Client{Jar: jar}
	})

	post := func(path, body string) *http.Response {
		resp, err := client.Post(server.URL+path, "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	get := func(path string) *http.Response {
		resp, err := client.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	It("registers, logs in and reaches the concepts", func() {
		creds := `{"email":"ada@example.com","password":"correct horse"}`

		Expect(post("/register", creds).StatusCode).To(Equal(http.StatusCreated))
		Expect(get("/concepts").StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(post("/login", `{"email":"ada@example.com","password":"nope"}`).StatusCode).
			To(Equal(http.StatusUnauthorized))

		Expect(post("/login", creds).StatusCode).To(Equal(http.StatusOK))

		resp := get("/concepts")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var concepts []content.Concept
		Expect(json.NewDecoder(resp.Body).Decode(&concepts)).To(Succeed())
		Expect(concepts).To(HaveLen(3))

		Expect(post("/logout", "").StatusCode).To(Equal(http.StatusNoContent))
		Expect(get("/concepts").StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("rejects a duplicate registration with 409", func() {
		Expect(post("/register", `{"email":"ada@example.com","password":"one"}`).StatusCode).
			To(Equal(http.StatusCreated))
		Expect(post("/register", `{"email":"ada@example.com","password":"two"}`).StatusCode).
			To(Equal(http.StatusConflict))
	})
})
