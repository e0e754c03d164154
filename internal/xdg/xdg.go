// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg resolves XDG Base Directory locations for codenest.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "codenest"

// Default file names inside the XDG directories.
const (
	ConfigFileName   = "config.yaml"
	DatabaseFileName = "codenest.db"
)

func baseDir(envVar string, fallback ...string) (string, error) {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_HOME_UNKNOWN").With("env", envVar).Wrap(err)
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
}

// ConfigDir returns $XDG_CONFIG_HOME/codenest, or ~/.config/codenest.
func ConfigDir() (string, error) {
	return baseDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns $XDG_DATA_HOME/codenest, or ~/.local/share/codenest.
func DataDir() (string, error) {
	return baseDir("XDG_DATA_HOME", ".local", "share")
}

// DefaultDatabasePath is where the SQLite store lives when db.path is unset.
// It falls back to DatabaseFileName in the working directory when no home
// directory is known.
func DefaultDatabasePath() string {
	dir, err := DataDir()
	if err != nil {
		return DatabaseFileName
	}
	return filepath.Join(dir, DatabaseFileName)
}

// DefaultConfigFile returns ConfigDir()/config.yaml when that file exists.
func DefaultConfigFile() (string, bool) {
	dir, err := ConfigDir()
	if err != nil {
		return "", false
	}
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// EnsureParent creates the directory holding path with 0700 permissions.
func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil && !errors.Is(err, fs.ErrExist) {
		return oops.Code("XDG_MKDIR_FAILED").With("dir", dir).Wrap(err)
	}
	return nil
}
