package store

import (
	"context"
	"encoding/json"

	"clawcity/internal/model"
)

func (s *Store) InsertZone(ctx context.Context, z model.Zone) error {
	_, err := s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO zones (id, name, type, description, police_presence)
		VALUES (?,?,?,?,?)`, z.ID, z.Name, z.Type, z.Description, z.PolicePresence)
	return err
}

func (s *Store) GetZone(ctx context.Context, db DBTX, id string) (*model.Zone, error) {
	var z model.Zone
	err := db.QueryRowContext(ctx, `SELECT id, name, type, description, police_presence FROM zones WHERE id=?`, id).
		Scan(&z.ID, &z.Name, &z.Type, &z.Description, &z.PolicePresence)
	if err != nil {
		return nil, err
	}
	return &z, nil
}

func (s *Store) InsertZoneEdge(ctx context.Context, e model.ZoneEdge) error {
	_, err := s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO zone_edges (from_zone, to_zone, time_cost_ticks, cash_cost, heat_risk)
		VALUES (?,?,?,?,?)`, e.From, e.To, e.TimeCostTicks, e.CashCost, e.HeatRisk)
	return err
}

func (s *Store) GetZoneEdge(ctx context.Context, db DBTX, from, to string) (*model.ZoneEdge, error) {
	var e model.ZoneEdge
	err := db.QueryRowContext(ctx, `SELECT from_zone, to_zone, time_cost_ticks, cash_cost, heat_risk FROM zone_edges
		WHERE from_zone=? AND to_zone=?`, from, to).Scan(&e.From, &e.To, &e.TimeCostTicks, &e.CashCost, &e.HeatRisk)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) InsertItem(ctx context.Context, it model.Item) error {
	_, err := s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO items (id, name, health_delta, stamina_delta, heat_delta, price)
		VALUES (?,?,?,?,?,?)`, it.ID, it.Name, it.HealthDelta, it.StaminaDelta, it.HeatDelta, it.Price)
	return err
}

func (s *Store) GetItem(ctx context.Context, db DBTX, id string) (*model.Item, error) {
	var it model.Item
	err := db.QueryRowContext(ctx, `SELECT id, name, health_delta, stamina_delta, heat_delta, price FROM items WHERE id=?`, id).
		Scan(&it.ID, &it.Name, &it.HealthDelta, &it.StaminaDelta, &it.HeatDelta, &it.Price)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) InsertJob(ctx context.Context, j model.Job) error {
	_, err := s.DB.ExecContext(ctx, `INSERT OR IGNORE INTO jobs (id, zone_id, name, wage, duration_ticks, stamina_cost, min_reputation, min_skill_driving)
		VALUES (?,?,?,?,?,?,?,?)`, j.ID, j.ZoneID, j.Name, j.Wage, j.DurationTicks, j.StaminaCost, j.MinReputation, j.MinSkillDriving)
	return err
}

func (s *Store) GetJob(ctx context.Context, db DBTX, id string) (*model.Job, error) {
	var j model.Job
	err := db.QueryRowContext(ctx, `SELECT id, zone_id, name, wage, duration_ticks, stamina_cost, min_reputation, min_skill_driving
		FROM jobs WHERE id=?`, id).Scan(&j.ID, &j.ZoneID, &j.Name, &j.Wage, &j.DurationTicks, &j.StaminaCost, &j.MinReputation, &j.MinSkillDriving)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *Store) ListJobsByZone(ctx context.Context, db DBTX, zoneID string) ([]model.Job, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, zone_id, name, wage, duration_ticks, stamina_cost, min_reputation, min_skill_driving
		FROM jobs WHERE zone_id=?`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Job
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(&j.ID, &j.ZoneID, &j.Name, &j.Wage, &j.DurationTicks, &j.StaminaCost, &j.MinReputation, &j.MinSkillDriving); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) InsertBusiness(ctx context.Context, db DBTX, b *model.Business) (int64, error) {
	inv, err := json.Marshal(b.Inventory)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `INSERT INTO businesses (zone_id, name, owner_agent_id, cash_on_hand, inventory_json)
		VALUES (?,?,?,?,?)`, b.ZoneID, b.Name, b.OwnerAgentID, b.CashOnHand, string(inv))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanBusiness(row interface{ Scan(dest ...any) error }) (*model.Business, error) {
	var b model.Business
	var inv string
	if err := row.Scan(&b.ID, &b.ZoneID, &b.Name, &b.OwnerAgentID, &b.CashOnHand, &inv); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(inv), &b.Inventory)
	if b.Inventory == nil {
		b.Inventory = map[string]model.BusinessItem{}
	}
	return &b, nil
}

func (s *Store) GetBusiness(ctx context.Context, db DBTX, id int64) (*model.Business, error) {
	row := db.QueryRowContext(ctx, `SELECT id, zone_id, name, owner_agent_id, cash_on_hand, inventory_json FROM businesses WHERE id=?`, id)
	return scanBusiness(row)
}

func (s *Store) ListBusinessesByZone(ctx context.Context, db DBTX, zoneID string) ([]*model.Business, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, zone_id, name, owner_agent_id, cash_on_hand, inventory_json FROM businesses WHERE zone_id=?`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBusiness(ctx context.Context, db DBTX, b *model.Business) error {
	inv, err := json.Marshal(b.Inventory)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `UPDATE businesses SET name=?, owner_agent_id=?, cash_on_hand=?, inventory_json=? WHERE id=?`,
		b.Name, b.OwnerAgentID, b.CashOnHand, string(inv), b.ID)
	return err
}
