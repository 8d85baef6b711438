// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/storage"
	"github.com/protokoll/minutes/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "minutes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	fs, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, fs
}

// TestSeries creates a series with the given short name and categories.
func TestSeries(t *testing.T, db *store.DB, shortName string, categories ...string) *models.Series {
	t.Helper()
	ctx := context.Background()
	s := &models.Series{Name: shortName, ShortName: shortName}
	if err := db.CreateSeries(ctx, s); err != nil {
		t.Fatal(err)
	}
	for _, name := range categories {
		if err := db.AddCategory(ctx, &models.Category{SeriesID: s.ID, Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	return s
}
