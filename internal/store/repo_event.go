package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"clawcity/internal/model"
)

func (s *Store) InsertEvent(ctx context.Context, db DBTX, e model.Event) (int64, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `INSERT INTO events (tick, timestamp, type, agent_id, zone_id, entity_id, payload_json, request_id)
		VALUES (?,?,?,?,?,?,?,?)`, e.Tick, e.Timestamp, e.Type, e.AgentID, e.ZoneID, e.EntityID, string(payload), e.RequestID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanEvent(row interface{ Scan(dest ...any) error }) (model.Event, error) {
	var e model.Event
	var payload string
	err := row.Scan(&e.ID, &e.Tick, &e.Timestamp, &e.Type, &e.AgentID, &e.ZoneID, &e.EntityID, &payload, &e.RequestID)
	if err != nil {
		return e, err
	}
	_ = json.Unmarshal([]byte(payload), &e.Payload)
	return e, nil
}

// ListEventsForAgent returns events for agentID at or after sinceTick,
// newest first, bounded by limit — matching
// "/agent/events" semantics (descending (tick,timestamp)).
func (s *Store) ListEventsForAgent(ctx context.Context, db DBTX, agentID int64, sinceTick uint64, limit int) ([]model.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT id, tick, timestamp, type, agent_id, zone_id, entity_id, payload_json, request_id
		FROM events WHERE agent_id=? AND tick>=? ORDER BY tick DESC, timestamp DESC, id DESC LIMIT ?`, agentID, sinceTick, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindKillEvent reports whether killerAgentID has an AGENT_KILLED
// event against targetAgentID at or after sinceTick, used by
// CLAIM_BOUNTY to verify the claimer actually earned the bounty.
func (s *Store) FindKillEvent(ctx context.Context, db DBTX, killerAgentID, targetAgentID int64, sinceTick uint64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT count(*) FROM events
		WHERE type='AGENT_KILLED' AND agent_id=? AND entity_id=? AND tick>=?`, killerAgentID, targetAgentID, sinceTick).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) FindEventByRequestID(ctx context.Context, db DBTX, agentID int64, requestID, eventType string) (model.Event, bool, error) {
	row := db.QueryRowContext(ctx, `SELECT id, tick, timestamp, type, agent_id, zone_id, entity_id, payload_json, request_id
		FROM events WHERE agent_id=? AND request_id=? AND type=? LIMIT 1`, agentID, requestID, eventType)
	e, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return e, false, nil
		}
		return e, false, err
	}
	return e, true, nil
}
