// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	want := "/custom/config/codenest"
	if got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigDir_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/testuser")
	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	want := "/home/testuser/.config/codenest"
	if got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestDataDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	got, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir() error = %v", err)
	}
	want := "/custom/data/codenest"
	if got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}
}

func TestDataDir_Default(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/testuser")
	got, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir() error = %v", err)
	}
	want := "/home/testuser/.local/share/codenest"
	if got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}
}

func TestDefaultDatabasePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got, want := DefaultDatabasePath(), "/custom/data/codenest/codenest.db"; got != want {
		t.Errorf("DefaultDatabasePath() = %q, want %q", got, want)
	}
}

func TestDefaultConfigFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	if path, ok := DefaultConfigFile(); ok {
		t.Fatalf("DefaultConfigFile() = %q, want none", path)
	}

	dir := filepath.Join(base, "codenest")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(want, []byte("mode: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, ok := DefaultConfigFile()
	if !ok || got != want {
		t.Errorf("DefaultConfigFile() = (%q, %v), want (%q, true)", got, ok, want)
	}
}

func TestEnsureParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "codenest.db")
	if err := EnsureParent(path); err != nil {
		t.Fatalf("EnsureParent() error = %v", err)
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat parent: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("parent is not a directory")
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("parent permissions = %o, want 700", perm)
	}
	if err := EnsureParent(path); err != nil {
		t.Errorf("EnsureParent() second call error = %v", err)
	}
}
