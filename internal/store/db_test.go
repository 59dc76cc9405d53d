package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lazypower/chronoscope/internal/artifact"
)

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chronoscope.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.Close()

	// Reopening must not re-run migrations.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion = %d, want %d", v, len(migrations))
	}
}

func TestSchemaVersion(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 {
		t.Errorf("SchemaVersion = %d, want 2", v)
	}
}

func TestTablesExist(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	tables := []string{"schema_versions", "artifacts", "artifact_layers"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestArtifactKindConstraint(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO artifacts (id, kind, seed, digest, engine_version, metadata, created_at)
		VALUES ('x', 'video', 1, 'd', '1', '{}', 0)
	`)
	if err == nil {
		t.Error("expected CHECK constraint to reject kind 'video'")
	}
}

func TestLedgerPolicyOnEveryConnection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "chronoscope.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	// Hold two connections at once so the pool cannot hand back the same one.
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		conn, err := db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn %d: %v", i, err)
		}
		defer conn.Close()

		var fk, timeout int
		var journal string
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("foreign_keys: %v", err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("busy_timeout: %v", err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal); err != nil {
			t.Fatalf("journal_mode: %v", err)
		}
		if fk != 1 {
			t.Errorf("conn %d: foreign_keys = %d, want 1", i, fk)
		}
		if timeout != 5000 {
			t.Errorf("conn %d: busy_timeout = %d, want 5000", i, timeout)
		}
		if journal != "wal" {
			t.Errorf("conn %d: journal_mode = %q, want wal", i, journal)
		}
	}
}

func TestLayerRequiresArtifact(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO artifact_layers (artifact_id, position, epoch_key, weight)
		VALUES ('missing', 0, 'present', 0.9)
	`)
	if err == nil {
		t.Error("expected foreign key to reject a layer without its artifact")
	}
}

func TestConcurrentSaveArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chronoscope.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	// A second handle on the same file stands in for another process.
	other, err := Open(path)
	if err != nil {
		t.Fatalf("Open second handle: %v", err)
	}
	defer other.Close()

	const writers = 16
	created := time.UnixMilli(1_700_000_000_000).UTC()
	arts := make([]*artifact.Artifact, writers)
	for i := range arts {
		arts[i] = testArtifact(t, uint64(i+1), created, "present", "roman_forum")
	}

	var wg sync.WaitGroup
	errs := make(chan error, writers*2)
	for i, a := range arts {
		wg.Add(1)
		go func(i int, a *artifact.Artifact) {
			defer wg.Done()
			h := db
			if i%2 == 1 {
				h = other
			}
			if _, err := h.SaveArtifact(a); err != nil {
				errs <- err
			}
			// The duplicate must lose quietly, not error.
			if _, err := h.SaveArtifact(a); err != nil {
				errs <- err
			}
		}(i, a)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("SaveArtifact: %v", err)
	}

	n, err := db.CountArtifacts()
	if err != nil {
		t.Fatalf("CountArtifacts: %v", err)
	}
	if n != writers {
		t.Errorf("CountArtifacts = %d, want %d", n, writers)
	}

	var layers int
	if err := db.QueryRow("SELECT COUNT(*) FROM artifact_layers").Scan(&layers); err != nil {
		t.Fatalf("count layers: %v", err)
	}
	if layers != writers*2 {
		t.Errorf("layer rows = %d, want %d", layers, writers*2)
	}
}
