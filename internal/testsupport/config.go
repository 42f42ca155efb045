// Package testsupport provides shared fixtures for package tests: temp-backed
// configs, session stores, and seeded sessions.
package testsupport

import (
	"path/filepath"
	"testing"

	"scriptflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.SplitDir = filepath.Join(base, "split")
	cfg.Storage.RootDir = filepath.Join(base, "objects")
	cfg.Storage.PresignSecret = "test-secret"
	cfg.LLM.APIKey = "test"
	cfg.Monitor.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}
