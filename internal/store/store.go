// Package store owns the SQLite schema and every secondary index the
// persisted world state needs. Access is plain database/sql — no ORM
// or query builder, following db.go's style for this shape of service.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Store wraps the database handle. One Store per process.
type Store struct {
	DB *sql.DB
}

// DBTX is satisfied by both *sql.DB and *sql.Tx, so repository methods
// can run inside a caller-managed transaction or standalone.
type DBTX interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open creates the data directory if needed and opens the primary
// (cgo) sqlite3 driver with WAL journaling and a busy timeout, the
// same way initDB does.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer world; avoid sqlite lock contention
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("store: pragma: %w", err)
	}
	s := &Store{DB: db}
	if err := s.createSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenTestDB opens the pure-Go modernc.org/sqlite driver against an
// in-memory database, used only from package test suites so they run
// without cgo, mirroring the cgo/pure-Go two-driver split go.mod
// already carries.
func OpenTestDB() (*Store, error) {
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{DB: db}
	if err := s.createSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// BeginSerializable opens a transaction. SQLite's own locking already
// gives single-writer serializability; the explicit isolation level
// documents the contract the dispatcher and tick pipeline rely on.
func (s *Store) BeginSerializable(ctx context.Context) (*sql.Tx, error) {
	return s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS world (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		tick INTEGER NOT NULL DEFAULT 0,
		tick_ms INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		seed TEXT NOT NULL,
		last_tick_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS zones (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		description TEXT,
		police_presence REAL NOT NULL DEFAULT 0.2
	);

	CREATE TABLE IF NOT EXISTS zone_edges (
		from_zone TEXT NOT NULL,
		to_zone TEXT NOT NULL,
		time_cost_ticks INTEGER NOT NULL,
		cash_cost INTEGER NOT NULL,
		heat_risk REAL NOT NULL,
		PRIMARY KEY (from_zone, to_zone)
	);

	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		health_delta INTEGER NOT NULL DEFAULT 0,
		stamina_delta INTEGER NOT NULL DEFAULT 0,
		heat_delta INTEGER NOT NULL DEFAULT 0,
		price INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		zone_id TEXT NOT NULL,
		name TEXT NOT NULL,
		wage INTEGER NOT NULL,
		duration_ticks INTEGER NOT NULL,
		stamina_cost INTEGER NOT NULL,
		min_reputation INTEGER NOT NULL DEFAULT 0,
		min_skill_driving INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS businesses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		zone_id TEXT NOT NULL,
		name TEXT NOT NULL,
		owner_agent_id INTEGER NOT NULL DEFAULT 0,
		cash_on_hand INTEGER NOT NULL DEFAULT 0,
		inventory_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		location_zone_id TEXT NOT NULL,
		cash INTEGER NOT NULL DEFAULT 0,
		health INTEGER NOT NULL DEFAULT 100,
		stamina INTEGER NOT NULL DEFAULT 100,
		reputation INTEGER NOT NULL DEFAULT 0,
		heat INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'idle',
		busy_until_tick INTEGER NOT NULL DEFAULT 0,
		busy_action TEXT NOT NULL DEFAULT '',
		inventory_json TEXT NOT NULL DEFAULT '{}',
		skills_json TEXT NOT NULL DEFAULT '{}',
		stats_json TEXT NOT NULL DEFAULT '{}',
		gang_id INTEGER NOT NULL DEFAULT 0,
		home_property_id INTEGER NOT NULL DEFAULT 0,
		vehicle_id INTEGER NOT NULL DEFAULT 0,
		gang_ban_until_tick INTEGER NOT NULL DEFAULT 0,
		tax_owed INTEGER NOT NULL DEFAULT 0,
		is_npc BOOLEAN NOT NULL DEFAULT 0,
		last_action_tick INTEGER NOT NULL DEFAULT 0,
		banned_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS agents_by_agent_key_hash ON agents(agent_key_hash);
	CREATE INDEX IF NOT EXISTS agents_by_location_zone_id ON agents(location_zone_id);
	CREATE INDEX IF NOT EXISTS agents_by_gang_id ON agents(gang_id);
	CREATE INDEX IF NOT EXISTS agents_by_status ON agents(status);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		type TEXT NOT NULL,
		agent_id INTEGER NOT NULL DEFAULT 0,
		zone_id TEXT NOT NULL DEFAULT '',
		entity_id INTEGER NOT NULL DEFAULT 0,
		payload_json TEXT NOT NULL DEFAULT '{}',
		request_id TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS events_by_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS events_by_agent_id ON events(agent_id);
	CREATE INDEX IF NOT EXISTS events_by_type ON events(type);
	CREATE INDEX IF NOT EXISTS events_by_request_id ON events(request_id);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL,
		reason TEXT NOT NULL,
		balance INTEGER NOT NULL,
		ref_event_id INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS ledger_by_agent_id ON ledger_entries(agent_id);

	CREATE TABLE IF NOT EXISTS action_locks (
		agent_id INTEGER NOT NULL,
		request_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		has_result BOOLEAN NOT NULL DEFAULT 0,
		result_json BLOB,
		PRIMARY KEY (agent_id, request_id)
	);
	CREATE INDEX IF NOT EXISTS action_locks_by_agent_id_request_id ON action_locks(agent_id, request_id);

	CREATE TABLE IF NOT EXISTS friendships (
		agent1_id INTEGER NOT NULL,
		agent2_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		initiator_id INTEGER NOT NULL,
		strength INTEGER NOT NULL DEFAULT 0,
		loyalty INTEGER NOT NULL DEFAULT 0,
		last_interaction_tick INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (agent1_id, agent2_id)
	);
	CREATE INDEX IF NOT EXISTS friendships_by_agent1_id ON friendships(agent1_id);
	CREATE INDEX IF NOT EXISTS friendships_by_agent2_id ON friendships(agent2_id);

	CREATE TABLE IF NOT EXISTS gangs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		home_zone_id TEXT NOT NULL,
		treasury INTEGER NOT NULL DEFAULT 0,
		reputation INTEGER NOT NULL DEFAULT 0,
		member_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS gang_members (
		gang_id INTEGER NOT NULL,
		agent_id INTEGER NOT NULL PRIMARY KEY,
		joined_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS gang_members_by_gang_id ON gang_members(gang_id);

	CREATE TABLE IF NOT EXISTS gang_invites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		gang_id INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		invited_by_agent_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		expires_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS gang_invites_by_agent_id ON gang_invites(agent_id);

	CREATE TABLE IF NOT EXISTS territories (
		zone_id TEXT PRIMARY KEY,
		gang_id INTEGER NOT NULL,
		control_strength INTEGER NOT NULL DEFAULT 100,
		income_per_tick INTEGER NOT NULL DEFAULT 0,
		claimed_at DATETIME NOT NULL,
		last_defended_tick INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS territories_by_zone_id ON territories(zone_id);
	CREATE INDEX IF NOT EXISTS territories_by_gang_id ON territories(gang_id);

	CREATE TABLE IF NOT EXISTS properties (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		zone_id TEXT NOT NULL,
		name TEXT NOT NULL,
		owner_agent_id INTEGER NOT NULL DEFAULT 0,
		price INTEGER NOT NULL,
		rent_per_tick INTEGER NOT NULL,
		for_rent BOOLEAN NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS property_residents (
		property_id INTEGER NOT NULL PRIMARY KEY,
		agent_id INTEGER NOT NULL,
		rent_due_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bounties (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_agent_id INTEGER NOT NULL,
		placed_by_agent_id INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		claimed_by_agent_id INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		created_at_tick INTEGER NOT NULL DEFAULT 0,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS bounties_by_target_agent_id ON bounties(target_agent_id);

	CREATE TABLE IF NOT EXISTS vehicles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_agent_id INTEGER NOT NULL DEFAULT 0,
		type TEXT NOT NULL,
		zone_id TEXT NOT NULL,
		stolen_from_agent_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS disguises (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		heat_bonus INTEGER NOT NULL,
		expires_at_tick INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS disguises_by_agent_id ON disguises(agent_id);

	CREATE TABLE IF NOT EXISTS contracts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		offered_by_agent_id INTEGER NOT NULL,
		accepted_by_agent_id INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL,
		payout INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'open'
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_agent_id INTEGER NOT NULL,
		to_agent_id INTEGER NOT NULL,
		body TEXT NOT NULL,
		sent_at_tick INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS coop_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		initiator_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		zone_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'recruiting',
		participant_ids_json TEXT NOT NULL DEFAULT '[]',
		min_participants INTEGER NOT NULL,
		max_participants INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at INTEGER NOT NULL,
		execute_at INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS coop_actions_by_zone_id ON coop_actions(zone_id);
	CREATE INDEX IF NOT EXISTS coop_actions_by_status ON coop_actions(status);

	CREATE TABLE IF NOT EXISTS snapshots (
		tick INTEGER PRIMARY KEY,
		created_at DATETIME NOT NULL,
		hash TEXT NOT NULL,
		signature BLOB NOT NULL,
		blob BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS node_identity (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.DB.Exec(schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}
