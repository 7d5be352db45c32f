package store

import (
	"context"

	"clawcity/internal/model"
)

func (s *Store) InsertVehicle(ctx context.Context, db DBTX, v *model.Vehicle) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO vehicles (owner_agent_id, type, zone_id, stolen_from_agent_id) VALUES (?,?,?,?)`,
		v.OwnerAgentID, v.Type, v.ZoneID, v.StolenFromAgentID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetVehicle(ctx context.Context, db DBTX, id int64) (*model.Vehicle, error) {
	var v model.Vehicle
	err := db.QueryRowContext(ctx, `SELECT id, owner_agent_id, type, zone_id, stolen_from_agent_id FROM vehicles WHERE id=?`, id).
		Scan(&v.ID, &v.OwnerAgentID, &v.Type, &v.ZoneID, &v.StolenFromAgentID)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) ListVehiclesByZone(ctx context.Context, db DBTX, zoneID string) ([]*model.Vehicle, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, owner_agent_id, type, zone_id, stolen_from_agent_id FROM vehicles WHERE zone_id=? AND owner_agent_id=0`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Vehicle
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.OwnerAgentID, &v.Type, &v.ZoneID, &v.StolenFromAgentID); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *Store) UpdateVehicle(ctx context.Context, db DBTX, v *model.Vehicle) error {
	_, err := db.ExecContext(ctx, `UPDATE vehicles SET owner_agent_id=?, zone_id=?, stolen_from_agent_id=? WHERE id=?`,
		v.OwnerAgentID, v.ZoneID, v.StolenFromAgentID, v.ID)
	return err
}

func (s *Store) InsertDisguise(ctx context.Context, db DBTX, d *model.Disguise) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO disguises (agent_id, type, heat_bonus, expires_at_tick) VALUES (?,?,?,?)`,
		d.AgentID, d.Type, d.HeatBonus, d.ExpiresAtTick)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetActiveDisguise(ctx context.Context, db DBTX, agentID int64, tick int64) (*model.Disguise, bool, error) {
	var d model.Disguise
	err := db.QueryRowContext(ctx, `SELECT id, agent_id, type, heat_bonus, expires_at_tick FROM disguises
		WHERE agent_id=? AND expires_at_tick>? ORDER BY id DESC LIMIT 1`, agentID, tick).
		Scan(&d.ID, &d.AgentID, &d.Type, &d.HeatBonus, &d.ExpiresAtTick)
	if err != nil {
		return nil, false, nil
	}
	return &d, true, nil
}

func (s *Store) ListExpiredDisguises(ctx context.Context, db DBTX, tick int64) ([]*model.Disguise, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, agent_id, type, heat_bonus, expires_at_tick FROM disguises WHERE expires_at_tick<=?`, tick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Disguise
	for rows.Next() {
		var d model.Disguise
		if err := rows.Scan(&d.ID, &d.AgentID, &d.Type, &d.HeatBonus, &d.ExpiresAtTick); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDisguise(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM disguises WHERE id=?`, id)
	return err
}

func (s *Store) InsertContract(ctx context.Context, db DBTX, c *model.Contract) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO contracts (offered_by_agent_id, accepted_by_agent_id, description, payout, status)
		VALUES (?,?,?,?,?)`, c.OfferedByAgentID, c.AcceptedByAgentID, c.Description, c.Payout, c.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetContract(ctx context.Context, db DBTX, id int64) (*model.Contract, error) {
	var c model.Contract
	err := db.QueryRowContext(ctx, `SELECT id, offered_by_agent_id, accepted_by_agent_id, description, payout, status FROM contracts WHERE id=?`, id).
		Scan(&c.ID, &c.OfferedByAgentID, &c.AcceptedByAgentID, &c.Description, &c.Payout, &c.Status)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListOpenContracts(ctx context.Context, db DBTX) ([]*model.Contract, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, offered_by_agent_id, accepted_by_agent_id, description, payout, status FROM contracts WHERE status='open'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Contract
	for rows.Next() {
		var c model.Contract
		if err := rows.Scan(&c.ID, &c.OfferedByAgentID, &c.AcceptedByAgentID, &c.Description, &c.Payout, &c.Status); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateContractStatus(ctx context.Context, db DBTX, id int64, status string, acceptedBy int64) error {
	_, err := db.ExecContext(ctx, `UPDATE contracts SET status=?, accepted_by_agent_id=? WHERE id=?`, status, acceptedBy, id)
	return err
}
