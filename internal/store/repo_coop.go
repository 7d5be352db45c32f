package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"clawcity/internal/model"
)

func (s *Store) InsertCoopAction(ctx context.Context, db DBTX, c *model.CoopAction) (int64, error) {
	participants, err := json.Marshal(c.ParticipantIDs)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `INSERT INTO coop_actions
		(initiator_id, type, zone_id, status, participant_ids_json, min_participants, max_participants, created_at, expires_at, execute_at, result_json)
		VALUES (?,?,?,?,?,?,?,?,?,?,'{}')`,
		c.InitiatorID, c.Type, c.ZoneID, c.Status, string(participants), c.MinParticipants, c.MaxParticipants, c.CreatedAt, c.ExpiresAt, c.ExecuteAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanCoopAction(row interface{ Scan(dest ...any) error }) (*model.CoopAction, error) {
	var c model.CoopAction
	var participants, result string
	err := row.Scan(&c.ID, &c.InitiatorID, &c.Type, &c.ZoneID, &c.Status, &participants,
		&c.MinParticipants, &c.MaxParticipants, &c.CreatedAt, &c.ExpiresAt, &c.ExecuteAt, &result)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(participants), &c.ParticipantIDs)
	_ = json.Unmarshal([]byte(result), &c.Result)
	return &c, nil
}

const coopColumns = `id, initiator_id, type, zone_id, status, participant_ids_json, min_participants, max_participants, created_at, expires_at, execute_at, result_json`

func (s *Store) GetCoopAction(ctx context.Context, db DBTX, id int64) (*model.CoopAction, error) {
	row := db.QueryRowContext(ctx, `SELECT `+coopColumns+` FROM coop_actions WHERE id=?`, id)
	return scanCoopAction(row)
}

// GetCoopActionForUpdate exists only for readability at call sites; in
// sqlite every write already serializes behind the single connection,
// so there is no SELECT ... FOR UPDATE syntax to add.
func (s *Store) GetCoopActionForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.CoopAction, error) {
	return s.GetCoopAction(ctx, tx, id)
}

func (s *Store) UpdateCoopAction(ctx context.Context, db DBTX, c *model.CoopAction) error {
	participants, err := json.Marshal(c.ParticipantIDs)
	if err != nil {
		return err
	}
	result, err := json.Marshal(c.Result)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `UPDATE coop_actions SET status=?, participant_ids_json=?, execute_at=?, result_json=? WHERE id=?`,
		c.Status, string(participants), c.ExecuteAt, string(result), c.ID)
	return err
}

func (s *Store) ListCoopActionsByStatus(ctx context.Context, db DBTX, status string) ([]*model.CoopAction, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+coopColumns+` FROM coop_actions WHERE status=?`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.CoopAction
	for rows.Next() {
		c, err := scanCoopAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
