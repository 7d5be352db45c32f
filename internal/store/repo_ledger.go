package store

import (
	"context"

	"clawcity/internal/model"
)

func (s *Store) InsertLedgerEntry(ctx context.Context, db DBTX, e model.LedgerEntry) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO ledger_entries (tick, agent_id, kind, amount, reason, balance, ref_event_id)
		VALUES (?,?,?,?,?,?,?)`, e.Tick, e.AgentID, e.Kind, e.Amount, e.Reason, e.Balance, e.RefEventID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) ListLedgerByAgent(ctx context.Context, db DBTX, agentID int64) ([]model.LedgerEntry, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, tick, agent_id, kind, amount, reason, balance, ref_event_id
		FROM ledger_entries WHERE agent_id=? ORDER BY id ASC`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.Tick, &e.AgentID, &e.Kind, &e.Amount, &e.Reason, &e.Balance, &e.RefEventID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
