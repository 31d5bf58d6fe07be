// Package testutil provides shared test helpers for setting up vaults,
// tag indexes and note services.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/tagvault/internal/index"
	"github.com/starford/tagvault/internal/noteservice"
	"github.com/starford/tagvault/internal/storage"
)

// TestDB creates a temporary SQLite tag index that is closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "tagvault-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault holding files (path -> content).
func TestVault(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := store.Write(name, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	return vaultDir, store
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestService builds a note service over a seeded vault whose index has
// already been synced.
func TestService(t *testing.T, files map[string]string, opts ...noteservice.Option) (*noteservice.Service, string, storage.Provider) {
	t.Helper()
	vaultDir, store := TestVault(t, files)
	db := TestDB(t)
	logger := QuietLogger()
	if err := index.Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}
	opts = append([]noteservice.Option{noteservice.WithLogger(logger)}, opts...)
	return noteservice.NewService(store, db, opts...), vaultDir, store
}
