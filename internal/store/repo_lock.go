package store

import (
	"context"
	"database/sql"
	"time"
)

// ActionLockRow mirrors model.ActionLock but keeps the raw result bytes,
// since the caller (internal/idempotency) owns decoding.
type ActionLockRow struct {
	AgentID   int64
	RequestID string
	CreatedAt time.Time
	ExpiresAt time.Time
	HasResult bool
	Result    []byte
}

// GetActionLock returns (row, found, error).
func (s *Store) GetActionLock(ctx context.Context, db DBTX, agentID int64, requestID string) (ActionLockRow, bool, error) {
	var row ActionLockRow
	var result []byte
	err := db.QueryRowContext(ctx, `SELECT agent_id, request_id, created_at, expires_at, has_result, result_json
		FROM action_locks WHERE agent_id=? AND request_id=?`, agentID, requestID).
		Scan(&row.AgentID, &row.RequestID, &row.CreatedAt, &row.ExpiresAt, &row.HasResult, &result)
	if err != nil {
		if err == sql.ErrNoRows {
			return row, false, nil
		}
		return row, false, err
	}
	row.Result = result
	return row, true, nil
}

// ReserveActionLock inserts an in-flight reservation row. Returns
// sql.ErrNoRows-free nil on success; any insert error, a
// unique-constraint violation included, is returned to the caller
// unchanged.
func (s *Store) ReserveActionLock(ctx context.Context, db DBTX, agentID int64, requestID string, ttl time.Duration, now time.Time) error {
	_, err := db.ExecContext(ctx, `INSERT INTO action_locks (agent_id, request_id, created_at, expires_at, has_result, result_json)
		VALUES (?,?,?,?,0,NULL)`, agentID, requestID, now, now.Add(ttl))
	return err
}

func (s *Store) CompleteActionLock(ctx context.Context, db DBTX, agentID int64, requestID string, result []byte) error {
	_, err := db.ExecContext(ctx, `UPDATE action_locks SET has_result=1, result_json=? WHERE agent_id=? AND request_id=?`,
		result, agentID, requestID)
	return err
}

// DeleteActionLock removes a reservation so the client may retry with
// the same requestId — used only for transient (non-deterministic)
// failures, never for a deterministic rejection.
func (s *Store) DeleteActionLock(ctx context.Context, db DBTX, agentID int64, requestID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM action_locks WHERE agent_id=? AND request_id=?`, agentID, requestID)
	return err
}

// ReapExpiredActionLocks deletes reservations past their TTL. It is
// reached through idempotency.Service.Reap, which nothing in the
// process calls on its own.
func (s *Store) ReapExpiredActionLocks(ctx context.Context, db DBTX, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM action_locks WHERE expires_at<? AND has_result=0`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
