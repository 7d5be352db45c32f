package store

import (
	"context"

	"clawcity/internal/model"
)

func (s *Store) InsertBounty(ctx context.Context, db DBTX, b *model.Bounty) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO bounties (target_agent_id, placed_by_agent_id, amount, status, claimed_by_agent_id, created_at, created_at_tick, expires_at)
		VALUES (?,?,?,?,?,?,?,?)`, b.TargetAgentID, b.PlacedByAgentID, b.Amount, b.Status, b.ClaimedByAgentID, b.CreatedAt, b.CreatedAtTick, b.ExpiresAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetBounty(ctx context.Context, db DBTX, id int64) (*model.Bounty, error) {
	var b model.Bounty
	err := db.QueryRowContext(ctx, `SELECT id, target_agent_id, placed_by_agent_id, amount, status, claimed_by_agent_id, created_at, created_at_tick, expires_at
		FROM bounties WHERE id=?`, id).
		Scan(&b.ID, &b.TargetAgentID, &b.PlacedByAgentID, &b.Amount, &b.Status, &b.ClaimedByAgentID, &b.CreatedAt, &b.CreatedAtTick, &b.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) UpdateBountyStatus(ctx context.Context, db DBTX, id int64, status string, claimedBy int64) error {
	_, err := db.ExecContext(ctx, `UPDATE bounties SET status=?, claimed_by_agent_id=? WHERE id=?`, status, claimedBy, id)
	return err
}

func (s *Store) ListActiveBountiesOnTarget(ctx context.Context, db DBTX, targetAgentID int64) ([]*model.Bounty, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, target_agent_id, placed_by_agent_id, amount, status, claimed_by_agent_id, created_at, created_at_tick, expires_at
		FROM bounties WHERE target_agent_id=? AND status='active'`, targetAgentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Bounty
	for rows.Next() {
		var b model.Bounty
		if err := rows.Scan(&b.ID, &b.TargetAgentID, &b.PlacedByAgentID, &b.Amount, &b.Status, &b.ClaimedByAgentID, &b.CreatedAt, &b.CreatedAtTick, &b.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (s *Store) CountActiveBounties(ctx context.Context, db DBTX) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT count(*) FROM bounties WHERE status='active'`).Scan(&count)
	return count, err
}

func (s *Store) ListExpiredActiveBounties(ctx context.Context, db DBTX, tick int64) ([]*model.Bounty, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, target_agent_id, placed_by_agent_id, amount, status, claimed_by_agent_id, created_at, created_at_tick, expires_at
		FROM bounties WHERE status='active' AND expires_at<=?`, tick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Bounty
	for rows.Next() {
		var b model.Bounty
		if err := rows.Scan(&b.ID, &b.TargetAgentID, &b.PlacedByAgentID, &b.Amount, &b.Status, &b.ClaimedByAgentID, &b.CreatedAt, &b.CreatedAtTick, &b.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}
