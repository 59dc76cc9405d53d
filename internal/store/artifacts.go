package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/chronoscope/internal/artifact"
)

// Record is a stored echo: its provenance plus the digest of the buffers
// it produced. Buffers themselves are not stored; replay rebuilds them.
type Record struct {
	Meta   artifact.Metadata
	Digest string
}

// EpochUsage counts how often an epoch has been tuned into.
type EpochUsage struct {
	Key       string
	Count     int
	AvgWeight float64
}

// SaveArtifact records a into the ledger. Saving an ID that already exists
// is a no-op and reports false.
func (db *DB) SaveArtifact(a *artifact.Artifact) (bool, error) {
	if a == nil || a.Meta.ID == "" {
		return false, fmt.Errorf("save artifact: missing id")
	}
	meta, err := json.Marshal(a.Meta)
	if err != nil {
		return false, fmt.Errorf("marshal metadata: %w", err)
	}

	db.writes.Lock()
	defer db.writes.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO artifacts (id, kind, seed, width, height, samples, unresolved, dissolve, digest, engine_version, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, a.Meta.ID, string(a.Meta.Kind), int64(a.Meta.Seed), a.Meta.Width, a.Meta.Height, a.Meta.Samples,
		boolToInt(a.Meta.Unresolved), a.Meta.Dissolve, a.Digest(), a.Meta.EngineVersion, string(meta),
		a.Meta.CreatedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("insert artifact: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return false, nil
	}

	for i, l := range a.Meta.Layers {
		if _, err := tx.Exec(`
			INSERT INTO artifact_layers (artifact_id, position, epoch_key, weight)
			VALUES (?, ?, ?, ?)
		`, a.Meta.ID, i, l.Key, l.Weight); err != nil {
			return false, fmt.Errorf("insert layer %s: %w", l.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit save: %w", err)
	}
	return true, nil
}

// GetArtifact returns the record with the given ID, or nil if there is none.
func (db *DB) GetArtifact(id string) (*Record, error) {
	row := db.QueryRow(`SELECT metadata, digest, created_at FROM artifacts WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return r, nil
}

// ListArtifacts returns the most recent records, newest first.
func (db *DB) ListArtifacts(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT metadata, digest, created_at FROM artifacts
		ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// CountArtifacts returns the number of stored echoes.
func (db *DB) CountArtifacts() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM artifacts").Scan(&n)
	return n, err
}

// EpochUsageStats tallies epochs across every stored echo, most used first.
func (db *DB) EpochUsageStats() ([]EpochUsage, error) {
	rows, err := db.Query(`
		SELECT epoch_key, COUNT(*), AVG(weight) FROM artifact_layers
		GROUP BY epoch_key ORDER BY COUNT(*) DESC, epoch_key
	`)
	if err != nil {
		return nil, fmt.Errorf("epoch usage: %w", err)
	}
	defer rows.Close()

	var out []EpochUsage
	for rows.Next() {
		var u EpochUsage
		if err := rows.Scan(&u.Key, &u.Count, &u.AvgWeight); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		raw       string
		r         Record
		createdAt int64
	)
	if err := s.Scan(&raw, &r.Digest, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &r.Meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	r.Meta.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
