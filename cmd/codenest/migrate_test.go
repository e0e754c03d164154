// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codenest/codenest/internal/config"
	"github.com/codenest/codenest/pkg/errutil"
)

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
		wantErrCode string
	}{
		{
			name:        "valid integer",
			input:       "3",
			wantVersion: 3,
		},
		{
			name:        "zero is valid",
			input:       "0",
			wantVersion: 0,
		},
		{
			name:        "non-numeric returns error",
			input:       "abc",
			wantErr:     true,
			wantErrCode: "INVALID_VERSION",
		},
		{
			name:        "trailing chars are ignored",
			input:       "2abc",
			wantVersion: 2,
		},
		{
			name:        "negative parses and is rejected later by the migrator",
			input:       "-1",
			wantVersion: -1,
		},
		{
			name:        "empty string returns error",
			input:       "",
			wantErr:     true,
			wantErrCode: "INVALID_VERSION",
		},
		{
			name:        "whitespace only returns error",
			input:       "   ",
			wantErr:     true,
			wantErrCode: "INVALID_VERSION",
		},
		{
			name:        "leading whitespace is handled",
			input:       "  42",
			wantVersion: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)

			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				assert.Equal(t, 0, version)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantVersion, version)
			}
		})
	}
}

func TestNewMigrator_DriverSelection(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.Config
		wantErrCode string
	}{
		{
			name:        "memory has no schema",
			cfg:         config.Config{DB: config.DBConfig{Driver: config.DriverMemory}},
			wantErrCode: "MIGRATION_UNSUPPORTED",
		},
		{
			name:        "postgres needs a url",
			cfg:         config.Config{DB: config.DBConfig{Driver: config.DriverPostgres}},
			wantErrCode: "CONFIG_INVALID",
		},
		{
			name:        "sqlite needs a path",
			cfg:         config.Config{DB: config.DBConfig{Driver: config.DriverSQLite}},
			wantErrCode: "MIGRATION_INIT_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := newMigrator(&tt.cfg)
			require.Error(t, err)
			assert.Nil(t, m)
			errutil.AssertErrorCode(t, err, tt.wantErrCode)
		})
	}
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "Schema version: none", formatVersion(0, false))
	assert.Equal(t, "Schema version: 2", formatVersion(2, false))
	assert.Equal(t, "Schema version: 1 (dirty)", formatVersion(1, true))
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile = ""
	envFile = ""

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateCommands_SQLite(t *testing.T) {
	t.Setenv("CODENEST_ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	dbFlags := []string{"--db.driver", "sqlite", "--db.path", filepath.Join(t.TempDir(), "codenest.db")}
	migrate := func(args ...string) string {
		t.Helper()
		out, err := runCLI(t, append(append([]string{"migrate"}, args...), dbFlags...)...)
		require.NoError(t, err, out)
		return out
	}

	assert.Contains(t, migrate("version"), "Schema version: none")

	out := migrate("status")
	assert.Contains(t, out, "pending  000001_create_accounts")
	assert.Contains(t, out, "pending  000002_accounts_created_at_index")

	assert.Contains(t, migrate("up"), "Migrations completed successfully")
	assert.Contains(t, migrate("version"), "Schema version: 2")

	out = migrate("status")
	assert.Contains(t, out, "applied  000001_create_accounts")
	assert.NotContains(t, out, "pending")

	migrate("down")
	assert.Contains(t, migrate("version"), "Schema version: 1")

	migrate("force", "2")
	assert.Contains(t, migrate("version"), "Schema version: 2")

	migrate("down", "--all")
	assert.Contains(t, migrate("version"), "Schema version: none")
}

func TestMigrateDown_RejectsZeroSteps(t *testing.T) {
	out, err := runCLI(t, "migrate", "down", "--steps", "0", "--db.driver", "memory")
	require.Error(t, err, out)
	errutil.AssertErrorCode(t, err, "INVALID_STEPS")
}
