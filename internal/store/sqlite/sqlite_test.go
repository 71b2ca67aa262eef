package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/warmline/warmline/server/internal/store"
	"github.com/warmline/warmline/server/internal/store/storetest"
)

func makeLiteStore(t *testing.T) store.Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "companion.db"))
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db)
}

func TestSqliteStore_Compliance(t *testing.T) {
	storetest.Run(t, makeLiteStore)
}
