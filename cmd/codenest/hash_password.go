// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/codenest/codenest/internal/auth"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Long: `Read one password line from standard input and print its argon2id
PHC hash using the configured argon2 parameters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
				Time:    cfg.Argon2.Time,
				Memory:  cfg.Argon2.Memory,
				Threads: cfg.Argon2.Threads,
			})
			hash, err := hashFromReader(cmd.InOrStdin(), hasher)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err //nolint:wrapcheck // stdout write failure needs no context
		},
	}
}

// hashFromReader hashes the first line of r without its line ending.
func hashFromReader(r io.Reader, hasher auth.PasswordHasher) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", oops.Code("READ_FAILED").With("operation", "read password").Wrap(err)
	}
	password := strings.TrimRight(line, "\r\n")
	if err := auth.ValidatePassword(password); err != nil {
		return "", err //nolint:wrapcheck // validation errors carry codes
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return "", oops.With("operation", "hash password").Wrap(err)
	}
	return hash, nil
}
