package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// ledgerConns caps the pool for on-disk ledgers. WAL lets readers run beside
// the single writer; more connections only add lock contention.
const ledgerConns = 4

// DB is the chronoscope provenance ledger: an append-mostly record of every
// emitted artifact, keyed by its deterministic ID.
type DB struct {
	*sql.DB
	Path string

	// writes serializes SaveArtifact within the process. Across processes
	// the immediate transaction lock and busy timeout do the same job.
	writes sync.Mutex
}

// DefaultDBPath returns the default database path: ~/.chronoscope/chronoscope.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".chronoscope", "chronoscope.db"), nil
}

// Open opens (or creates) the ledger at path and brings its schema up to date.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return open(path, ledgerConns)
}

// OpenMemory opens a throwaway in-memory ledger.
func OpenMemory() (*DB, error) {
	// Every pooled connection would get its own empty database.
	return open(memoryPath, 1)
}

func open(path string, conns int) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)

	db := &DB{DB: sqlDB, Path: path}
	if err := db.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connect ledger %s: %w", path, err)
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// dsn carries the ledger's connection policy in the driver's query
// parameters, so every pooled connection gets it rather than only the first.
// Transactions begin IMMEDIATE: a writer takes the write lock up front and
// waits out busy_timeout instead of failing on a deferred lock upgrade.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "synchronous(NORMAL)")
	if path != memoryPath {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}
