package store

import (
	"context"
	"database/sql"
	"time"

	"clawcity/internal/model"
)

func (s *Store) InsertGang(ctx context.Context, db DBTX, g *model.Gang) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO gangs (name, home_zone_id, treasury, reputation, member_count, created_at)
		VALUES (?,?,?,?,?,?)`, g.Name, g.HomeZoneID, g.Treasury, g.Reputation, g.MemberCount, g.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetGang(ctx context.Context, db DBTX, id int64) (*model.Gang, error) {
	var g model.Gang
	err := db.QueryRowContext(ctx, `SELECT id, name, home_zone_id, treasury, reputation, member_count, created_at FROM gangs WHERE id=?`, id).
		Scan(&g.ID, &g.Name, &g.HomeZoneID, &g.Treasury, &g.Reputation, &g.MemberCount, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) UpdateGang(ctx context.Context, db DBTX, g *model.Gang) error {
	_, err := db.ExecContext(ctx, `UPDATE gangs SET name=?, treasury=?, reputation=?, member_count=? WHERE id=?`,
		g.Name, g.Treasury, g.Reputation, g.MemberCount, g.ID)
	return err
}

func (s *Store) DeleteGang(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM gangs WHERE id=?`, id)
	return err
}

func (s *Store) InsertGangMember(ctx context.Context, db DBTX, gangID, agentID int64, joinedAt time.Time) error {
	_, err := db.ExecContext(ctx, `INSERT INTO gang_members (gang_id, agent_id, joined_at) VALUES (?,?,?)`, gangID, agentID, joinedAt)
	return err
}

func (s *Store) DeleteGangMember(ctx context.Context, db DBTX, agentID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM gang_members WHERE agent_id=?`, agentID)
	return err
}

func (s *Store) DeleteGangMembersByGang(ctx context.Context, db DBTX, gangID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM gang_members WHERE gang_id=?`, gangID)
	return err
}

func (s *Store) ListGangMembers(ctx context.Context, db DBTX, gangID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT agent_id FROM gang_members WHERE gang_id=?`, gangID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) InsertGangInvite(ctx context.Context, db DBTX, inv *model.GangInvite) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO gang_invites (gang_id, agent_id, invited_by_agent_id, status, expires_at)
		VALUES (?,?,?,?,?)`, inv.GangID, inv.AgentID, inv.InvitedByAgentID, inv.Status, inv.ExpiresAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetGangInvite(ctx context.Context, db DBTX, id int64) (*model.GangInvite, error) {
	var inv model.GangInvite
	err := db.QueryRowContext(ctx, `SELECT id, gang_id, agent_id, invited_by_agent_id, status, expires_at FROM gang_invites WHERE id=?`, id).
		Scan(&inv.ID, &inv.GangID, &inv.AgentID, &inv.InvitedByAgentID, &inv.Status, &inv.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) UpdateGangInviteStatus(ctx context.Context, db DBTX, id int64, status string) error {
	_, err := db.ExecContext(ctx, `UPDATE gang_invites SET status=? WHERE id=?`, status, id)
	return err
}

func (s *Store) GetTerritory(ctx context.Context, db DBTX, zoneID string) (*model.Territory, bool, error) {
	var t model.Territory
	err := db.QueryRowContext(ctx, `SELECT zone_id, gang_id, control_strength, income_per_tick, claimed_at, last_defended_tick
		FROM territories WHERE zone_id=?`, zoneID).
		Scan(&t.ZoneID, &t.GangID, &t.ControlStrength, &t.IncomePerTick, &t.ClaimedAt, &t.LastDefendedTick)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &t, true, nil
}

func (s *Store) UpsertTerritory(ctx context.Context, db DBTX, t *model.Territory) error {
	_, err := db.ExecContext(ctx, `INSERT INTO territories (zone_id, gang_id, control_strength, income_per_tick, claimed_at, last_defended_tick)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(zone_id) DO UPDATE SET gang_id=excluded.gang_id, control_strength=excluded.control_strength,
			income_per_tick=excluded.income_per_tick, last_defended_tick=excluded.last_defended_tick`,
		t.ZoneID, t.GangID, t.ControlStrength, t.IncomePerTick, t.ClaimedAt, t.LastDefendedTick)
	return err
}

func (s *Store) DeleteTerritory(ctx context.Context, db DBTX, zoneID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM territories WHERE zone_id=?`, zoneID)
	return err
}

func (s *Store) ListAllTerritories(ctx context.Context, db DBTX) ([]*model.Territory, error) {
	rows, err := db.QueryContext(ctx, `SELECT zone_id, gang_id, control_strength, income_per_tick, claimed_at, last_defended_tick FROM territories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Territory
	for rows.Next() {
		var t model.Territory
		if err := rows.Scan(&t.ZoneID, &t.GangID, &t.ControlStrength, &t.IncomePerTick, &t.ClaimedAt, &t.LastDefendedTick); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
