package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMigrateSQLiteIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "portal.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, db, SQLite); err != nil {
			t.Fatalf("migrate run %d: %v", i+1, err)
		}
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Fatalf("applied migrations = %d, want 1", n)
	}
	if _, err := db.ExecContext(ctx, "SELECT id, race_name, race_date, status FROM marathons"); err != nil {
		t.Fatalf("marathons table missing: %v", err)
	}
}

func TestMigrateRejectsUnknownDialect(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "portal.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(context.Background(), db, "postgres"); err == nil {
		t.Fatal("expected unknown dialect error")
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- header\nCREATE TABLE a (\n  id INT\n);\n\nCREATE INDEX i ON a (id);\n")
	if len(got) != 2 {
		t.Fatalf("statements = %d, want 2: %q", len(got), got)
	}
	if got[1] != "CREATE INDEX i ON a (id)" {
		t.Fatalf("second statement = %q", got[1])
	}
}
