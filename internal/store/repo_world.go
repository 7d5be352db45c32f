package store

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"

	"clawcity/internal/model"
)

// GetWorld reads the singleton row. ErrNoWorld is returned before
// InitWorld has ever run.
var ErrNoWorld = errors.New("store: world not initialized")

func (s *Store) GetWorld(ctx context.Context) (model.World, error) {
	return s.getWorldTx(ctx, s.DB)
}

// GetWorldTx reads the singleton row through an already-open
// transaction. The store enforces a single-connection pool for
// single-writer semantics, so any caller that already holds the sole
// connection via a transaction must read through it rather than
// through Store.DB — going back to the pool would deadlock waiting
// for a connection the caller itself is holding.
func (s *Store) GetWorldTx(ctx context.Context, tx *sql.Tx) (model.World, error) {
	return s.getWorldTx(ctx, tx)
}

func (s *Store) getWorldTx(ctx context.Context, q DBTX) (model.World, error) {
	var w model.World
	row := q.QueryRowContext(ctx, `SELECT tick, tick_ms, status, seed, last_tick_at FROM world WHERE id=1`)
	if err := row.Scan(&w.Tick, &w.TickMs, &w.Status, &w.Seed, &w.LastTickAt); err != nil {
		if err == sql.ErrNoRows {
			return w, ErrNoWorld
		}
		return w, err
	}
	return w, nil
}

// InitWorld creates the singleton row iff it doesn't already exist,
// and returns the (possibly pre-existing) world. Idempotent across
// restarts, the same way initIdentity's first-boot check is.
func (s *Store) InitWorld(ctx context.Context, tickMs uint32, seed string) (model.World, error) {
	w, err := s.GetWorld(ctx)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrNoWorld) {
		return w, err
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO world (id, tick, tick_ms, status, seed, last_tick_at)
		VALUES (1, 0, ?, 'running', ?, CURRENT_TIMESTAMP)`, tickMs, seed)
	if err != nil {
		return w, err
	}
	return s.GetWorld(ctx)
}

// PutWorld is called only by internal/clock, the sole writer of tick.
func (s *Store) PutWorld(ctx context.Context, tx *sql.Tx, w model.World) error {
	_, err := tx.ExecContext(ctx, `UPDATE world SET tick=?, status=?, last_tick_at=? WHERE id=1`,
		w.Tick, w.Status, w.LastTickAt)
	return err
}

// NodeIdentity returns the process's persisted ed25519 keypair,
// generating one on first boot. Used only by internal/snapshot to sign
// exported backups, never for any client-facing protocol.
func (s *Store) NodeIdentity(ctx context.Context) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	var pubHex, privHex string
	errPub := s.DB.QueryRowContext(ctx, `SELECT value FROM node_identity WHERE key='public_key'`).Scan(&pubHex)
	errPriv := s.DB.QueryRowContext(ctx, `SELECT value FROM node_identity WHERE key='private_key'`).Scan(&privHex)
	if errPub == nil && errPriv == nil {
		pub, err := hex.DecodeString(pubHex)
		if err != nil {
			return nil, nil, err
		}
		priv, err := hex.DecodeString(privHex)
		if err != nil {
			return nil, nil, err
		}
		return ed25519.PublicKey(pub), ed25519.PrivateKey(priv), nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	_, err = s.DB.ExecContext(ctx, `INSERT OR REPLACE INTO node_identity (key, value) VALUES ('public_key', ?)`, hex.EncodeToString(pub))
	if err != nil {
		return nil, nil, err
	}
	_, err = s.DB.ExecContext(ctx, `INSERT OR REPLACE INTO node_identity (key, value) VALUES ('private_key', ?)`, hex.EncodeToString(priv))
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}
