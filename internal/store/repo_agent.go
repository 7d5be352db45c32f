package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"clawcity/internal/model"
)

func marshalMap[T any](v T) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// InsertAgent creates a new agent row and returns its assigned ID.
func (s *Store) InsertAgent(ctx context.Context, db DBTX, a *model.Agent) (int64, error) {
	inv, err := marshalMap(a.Inventory)
	if err != nil {
		return 0, err
	}
	skl, err := marshalMap(a.Skills)
	if err != nil {
		return 0, err
	}
	stt, err := marshalMap(a.Stats)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `INSERT INTO agents
		(agent_key_hash, name, created_at, location_zone_id, cash, health, stamina, reputation, heat,
		 status, busy_until_tick, busy_action, inventory_json, skills_json, stats_json,
		 gang_id, home_property_id, vehicle_id, gang_ban_until_tick, tax_owed, is_npc, last_action_tick)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.AgentKeyHash, a.Name, a.CreatedAt, a.LocationZoneID, a.Cash, a.Health, a.Stamina, a.Reputation, a.Heat,
		a.Status, a.BusyUntilTick, a.BusyAction, inv, skl, stt,
		a.GangID, a.HomePropertyID, a.VehicleID, a.GangBanUntilTick, a.TaxOwed, a.IsNPC, a.LastActionTick)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const agentColumns = `id, agent_key_hash, name, created_at, location_zone_id, cash, health, stamina, reputation, heat,
	status, busy_until_tick, busy_action, inventory_json, skills_json, stats_json,
	gang_id, home_property_id, vehicle_id, gang_ban_until_tick, tax_owed, is_npc, last_action_tick, banned_at`

func scanAgent(row interface{ Scan(dest ...any) error }) (*model.Agent, error) {
	var a model.Agent
	var inv, skl, stt string
	var bannedAt sql.NullTime
	err := row.Scan(&a.ID, &a.AgentKeyHash, &a.Name, &a.CreatedAt, &a.LocationZoneID, &a.Cash, &a.Health, &a.Stamina,
		&a.Reputation, &a.Heat, &a.Status, &a.BusyUntilTick, &a.BusyAction, &inv, &skl, &stt,
		&a.GangID, &a.HomePropertyID, &a.VehicleID, &a.GangBanUntilTick, &a.TaxOwed, &a.IsNPC, &a.LastActionTick, &bannedAt)
	if err != nil {
		return nil, err
	}
	if bannedAt.Valid {
		a.BannedAt = &bannedAt.Time
	}
	_ = json.Unmarshal([]byte(inv), &a.Inventory)
	_ = json.Unmarshal([]byte(skl), &a.Skills)
	_ = json.Unmarshal([]byte(stt), &a.Stats)
	if a.Inventory == nil {
		a.Inventory = map[string]int{}
	}
	return &a, nil
}

func (s *Store) GetAgent(ctx context.Context, db DBTX, id int64) (*model.Agent, error) {
	row := db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=?`, id)
	return scanAgent(row)
}

func (s *Store) GetAgentByKeyHash(ctx context.Context, db DBTX, keyHash string) (*model.Agent, error) {
	row := db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE agent_key_hash=?`, keyHash)
	return scanAgent(row)
}

// UpdateAgent persists the full mutable row. Handlers read-modify-write
// the whole struct inside one transaction rather than issuing partial
// column updates, keeping invariants (e.g. heat clamping) enforced in
// one place by the caller before the write.
func (s *Store) UpdateAgent(ctx context.Context, db DBTX, a *model.Agent) error {
	inv, err := marshalMap(a.Inventory)
	if err != nil {
		return err
	}
	skl, err := marshalMap(a.Skills)
	if err != nil {
		return err
	}
	stt, err := marshalMap(a.Stats)
	if err != nil {
		return err
	}
	var bannedAt any
	if a.BannedAt != nil {
		bannedAt = *a.BannedAt
	}
	_, err = db.ExecContext(ctx, `UPDATE agents SET
		name=?, location_zone_id=?, cash=?, health=?, stamina=?, reputation=?, heat=?,
		status=?, busy_until_tick=?, busy_action=?, inventory_json=?, skills_json=?, stats_json=?,
		gang_id=?, home_property_id=?, vehicle_id=?, gang_ban_until_tick=?, tax_owed=?, is_npc=?,
		last_action_tick=?, banned_at=?
		WHERE id=?`,
		a.Name, a.LocationZoneID, a.Cash, a.Health, a.Stamina, a.Reputation, a.Heat,
		a.Status, a.BusyUntilTick, a.BusyAction, inv, skl, stt,
		a.GangID, a.HomePropertyID, a.VehicleID, a.GangBanUntilTick, a.TaxOwed, a.IsNPC,
		a.LastActionTick, bannedAt, a.ID)
	return err
}

func (s *Store) ListBusyAgentsDue(ctx context.Context, db DBTX, tick uint64) ([]*model.Agent, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE status='busy' AND busy_until_tick<=? AND busy_until_tick>0`, tick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListAgentsByStatusDue(ctx context.Context, db DBTX, status string, tick uint64) ([]*model.Agent, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE status=? AND busy_until_tick<=? AND busy_until_tick>0`, status, tick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListAgentsByStatus(ctx context.Context, db DBTX, status string) ([]*model.Agent, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE status=?`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListDueNPCs(ctx context.Context, db DBTX, tick uint64, period int64) ([]*model.Agent, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE is_npc=1 AND status='idle' AND banned_at IS NULL AND (last_action_tick + ?) <= ?`, period, tick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListNonBannedAgents(ctx context.Context, db DBTX) ([]*model.Agent, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE banned_at IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListAllAgents(ctx context.Context, db DBTX) ([]*model.Agent, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
