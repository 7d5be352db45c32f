package store

import (
	"context"
	"database/sql"

	"clawcity/internal/model"
)

func (s *Store) InsertProperty(ctx context.Context, p model.Property) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `INSERT INTO properties (zone_id, name, owner_agent_id, price, rent_per_tick, for_rent)
		VALUES (?,?,?,?,?,?)`, p.ZoneID, p.Name, p.OwnerAgentID, p.Price, p.RentPerTick, p.ForRent)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetProperty(ctx context.Context, db DBTX, id int64) (*model.Property, error) {
	var p model.Property
	err := db.QueryRowContext(ctx, `SELECT id, zone_id, name, owner_agent_id, price, rent_per_tick, for_rent FROM properties WHERE id=?`, id).
		Scan(&p.ID, &p.ZoneID, &p.Name, &p.OwnerAgentID, &p.Price, &p.RentPerTick, &p.ForRent)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProperty(ctx context.Context, db DBTX, p *model.Property) error {
	_, err := db.ExecContext(ctx, `UPDATE properties SET owner_agent_id=?, for_rent=? WHERE id=?`, p.OwnerAgentID, p.ForRent, p.ID)
	return err
}

func (s *Store) ListPropertiesByZone(ctx context.Context, db DBTX, zoneID string) ([]*model.Property, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, zone_id, name, owner_agent_id, price, rent_per_tick, for_rent FROM properties WHERE zone_id=?`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Property
	for rows.Next() {
		var p model.Property
		if err := rows.Scan(&p.ID, &p.ZoneID, &p.Name, &p.OwnerAgentID, &p.Price, &p.RentPerTick, &p.ForRent); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Store) UpsertResident(ctx context.Context, db DBTX, r model.PropertyResident) error {
	_, err := db.ExecContext(ctx, `INSERT INTO property_residents (property_id, agent_id, rent_due_at) VALUES (?,?,?)
		ON CONFLICT(property_id) DO UPDATE SET agent_id=excluded.agent_id, rent_due_at=excluded.rent_due_at`,
		r.PropertyID, r.AgentID, r.RentDueAt)
	return err
}

func (s *Store) GetResidentByProperty(ctx context.Context, db DBTX, propertyID int64) (*model.PropertyResident, bool, error) {
	var r model.PropertyResident
	err := db.QueryRowContext(ctx, `SELECT property_id, agent_id, rent_due_at FROM property_residents WHERE property_id=?`, propertyID).
		Scan(&r.PropertyID, &r.AgentID, &r.RentDueAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &r, true, nil
}

func (s *Store) DeleteResident(ctx context.Context, db DBTX, propertyID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM property_residents WHERE property_id=?`, propertyID)
	return err
}

func (s *Store) ListResidentsDue(ctx context.Context, db DBTX, tick int64) ([]*model.PropertyResident, error) {
	rows, err := db.QueryContext(ctx, `SELECT property_id, agent_id, rent_due_at FROM property_residents WHERE rent_due_at<=?`, tick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.PropertyResident
	for rows.Next() {
		var r model.PropertyResident
		if err := rows.Scan(&r.PropertyID, &r.AgentID, &r.RentDueAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
