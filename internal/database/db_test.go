package database

import (
	"testing"
	"testing/fstest"
)

func migrationFS() fstest.MapFS {
	return fstest.MapFS{
		"002_holdings_index.up.sql":    {Data: []byte("CREATE INDEX ...")},
		"001_watchlist_state.up.sql":   {Data: []byte("CREATE TABLE ...")},
		"001_watchlist_state.down.sql": {Data: []byte("DROP TABLE ...")},
		"notes.md":                     {Data: []byte("not a migration")},
	}
}

func TestPendingMigrationsOrdersUpFiles(t *testing.T) {
	pending, err := pendingMigrations(migrationFS(), nil)
	if err != nil {
		t.Fatalf("pendingMigrations: %v", err)
	}

	want := []string{"001_watchlist_state.up.sql", "002_holdings_index.up.sql"}
	if len(pending) != len(want) {
		t.Fatalf("pending = %v, want %v", pending, want)
	}
	for i := range want {
		if pending[i] != want[i] {
			t.Errorf("pending[%d] = %q, want %q", i, pending[i], want[i])
		}
	}
}

func TestPendingMigrationsSkipsApplied(t *testing.T) {
	applied := map[string]bool{"001_watchlist_state.up.sql": true}

	pending, err := pendingMigrations(migrationFS(), applied)
	if err != nil {
		t.Fatalf("pendingMigrations: %v", err)
	}

	if len(pending) != 1 || pending[0] != "002_holdings_index.up.sql" {
		t.Errorf("pending = %v, want only the unapplied migration", pending)
	}
}
