package store

import (
	"context"
	"database/sql"
	"time"
)

// InsertSnapshot persists one signed, compressed world snapshot row.
// A second insert for the same tick replaces the earlier row; there is
// no separate Update counterpart.
func (s *Store) InsertSnapshot(ctx context.Context, tick uint64, createdAt time.Time, hash string, signature, blob []byte) error {
	_, err := s.DB.ExecContext(ctx, `INSERT OR REPLACE INTO snapshots (tick, created_at, hash, signature, blob)
		VALUES (?,?,?,?,?)`, tick, createdAt, hash, signature, blob)
	return err
}

type SnapshotMeta struct {
	Tick      uint64
	CreatedAt time.Time
	Hash      string
}

// ListSnapshotMeta returns every stored snapshot's metadata (not the
// blob itself), newest first. No command in cmd/ lists snapshots; the
// snapshot tests read it.
func (s *Store) ListSnapshotMeta(ctx context.Context) ([]SnapshotMeta, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT tick, created_at, hash FROM snapshots ORDER BY tick DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		if err := rows.Scan(&m.Tick, &m.CreatedAt, &m.Hash); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetSnapshot reads back one full snapshot row (metadata + signature +
// blob) for signature verification or restore tooling.
func (s *Store) GetSnapshot(ctx context.Context, tick uint64) (SnapshotMeta, []byte, []byte, error) {
	var m SnapshotMeta
	var signature, blob []byte
	err := s.DB.QueryRowContext(ctx, `SELECT tick, created_at, hash, signature, blob FROM snapshots WHERE tick=?`, tick).
		Scan(&m.Tick, &m.CreatedAt, &m.Hash, &signature, &blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return m, nil, nil, err
		}
		return m, nil, nil, err
	}
	return m, signature, blob, nil
}
