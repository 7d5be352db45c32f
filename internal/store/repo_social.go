package store

import (
	"context"
	"database/sql"

	"clawcity/internal/model"
)

// CanonicalPair orders two agent IDs the way the friendship table (and
// the multi-agent row-locking rule) requires: smaller first.
func CanonicalPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

func (s *Store) GetFriendship(ctx context.Context, db DBTX, a1, a2 int64) (*model.Friendship, bool, error) {
	lo, hi := CanonicalPair(a1, a2)
	var f model.Friendship
	err := db.QueryRowContext(ctx, `SELECT agent1_id, agent2_id, status, initiator_id, strength, loyalty, last_interaction_tick, created_at
		FROM friendships WHERE agent1_id=? AND agent2_id=?`, lo, hi).
		Scan(&f.Agent1ID, &f.Agent2ID, &f.Status, &f.InitiatorID, &f.Strength, &f.Loyalty, &f.LastInteractionTick, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &f, true, nil
}

func (s *Store) UpsertFriendship(ctx context.Context, db DBTX, f *model.Friendship) error {
	_, err := db.ExecContext(ctx, `INSERT INTO friendships (agent1_id, agent2_id, status, initiator_id, strength, loyalty, last_interaction_tick, created_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(agent1_id, agent2_id) DO UPDATE SET
			status=excluded.status, strength=excluded.strength, loyalty=excluded.loyalty,
			last_interaction_tick=excluded.last_interaction_tick`,
		f.Agent1ID, f.Agent2ID, f.Status, f.InitiatorID, f.Strength, f.Loyalty, f.LastInteractionTick, f.CreatedAt)
	return err
}

func (s *Store) DeleteFriendship(ctx context.Context, db DBTX, a1, a2 int64) error {
	lo, hi := CanonicalPair(a1, a2)
	_, err := db.ExecContext(ctx, `DELETE FROM friendships WHERE agent1_id=? AND agent2_id=?`, lo, hi)
	return err
}

func (s *Store) ListAllFriendships(ctx context.Context, db DBTX) ([]*model.Friendship, error) {
	rows, err := db.QueryContext(ctx, `SELECT agent1_id, agent2_id, status, initiator_id, strength, loyalty, last_interaction_tick, created_at FROM friendships`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Friendship
	for rows.Next() {
		var f model.Friendship
		if err := rows.Scan(&f.Agent1ID, &f.Agent2ID, &f.Status, &f.InitiatorID, &f.Strength, &f.Loyalty, &f.LastInteractionTick, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *Store) InsertMessage(ctx context.Context, db DBTX, m model.Message) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO messages (from_agent_id, to_agent_id, body, sent_at_tick) VALUES (?,?,?,?)`,
		m.FromAgentID, m.ToAgentID, m.Body, m.SentAtTick)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
