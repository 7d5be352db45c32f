// Package ledger implements the append-only financial journal and
// event log, in the spirit of the transaction_log / daily_snapshots
// hash-chaining approach in ownworld.go's tickWorld, but stripped down
// to exactly the monotone-append guarantee this system needs — no
// cryptographic audit trail beyond that.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clawcity/internal/model"
	"clawcity/internal/store"
)

var ErrInsufficientFunds = errors.New("ledger: insufficient funds")

// Ledger posts cash movements and emits events against one store,
// inside a caller-supplied transaction so a handler's mutation, ledger
// entry, and event are always committed (or rolled back) together.
type Ledger struct {
	Store *store.Store
}

func New(s *store.Store) *Ledger { return &Ledger{Store: s} }

// Post implements the Post(agentId, kind, amount, reason, refEventId?)
// API: read cash, apply the delta, append a ledger row
// with the resulting balance within tx, and set agent.Cash on the
// in-memory struct. Post does not write the agent row itself: the
// caller saves the agent (new Cash included) in the same tx, so callers
// can keep working with the in-memory struct.
func (l *Ledger) Post(ctx context.Context, tx *sql.Tx, agent *model.Agent, tick uint64, kind string, amount int64, reason string, refEventID int64) error {
	if amount <= 0 {
		return fmt.Errorf("ledger: amount must be positive, got %d", amount)
	}
	var newBalance int64
	switch kind {
	case model.LedgerCredit:
		newBalance = agent.Cash + amount
	case model.LedgerDebit:
		if agent.Cash < amount {
			return ErrInsufficientFunds
		}
		newBalance = agent.Cash - amount
	default:
		return fmt.Errorf("ledger: unknown kind %q", kind)
	}
	if _, err := l.Store.InsertLedgerEntry(ctx, tx, model.LedgerEntry{
		Tick: tick, AgentID: agent.ID, Kind: kind, Amount: amount, Reason: reason, Balance: newBalance, RefEventID: refEventID,
	}); err != nil {
		return err
	}
	agent.Cash = newBalance
	return nil
}

// Emit appends an event row with the current tick. Events are never
// updated after insert.
func (l *Ledger) Emit(ctx context.Context, tx *sql.Tx, tick uint64, eventType string, agentID int64, zoneID string, entityID int64, payload map[string]any, requestID string) (int64, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	return l.Store.InsertEvent(ctx, tx, model.Event{
		Tick: tick, Timestamp: time.Now(), Type: eventType, AgentID: agentID, ZoneID: zoneID, EntityID: entityID,
		Payload: payload, RequestID: requestID,
	})
}

// Reconstruct replays an agent's ledger from the beginning and returns
// the sum of credits minus debits, used by tests to verify cash
// conservation independent of the stored agent.cash column.
func (l *Ledger) Reconstruct(ctx context.Context, agentID int64) (int64, error) {
	entries, err := l.Store.ListLedgerByAgent(ctx, l.Store.DB, agentID)
	if err != nil {
		return 0, err
	}
	var sum int64
	for _, e := range entries {
		switch e.Kind {
		case model.LedgerCredit:
			sum += e.Amount
		case model.LedgerDebit:
			sum -= e.Amount
		}
		if sum != e.Balance {
			return 0, fmt.Errorf("ledger: reconstruction mismatch for agent %d at entry %d: running=%d stored=%d", agentID, e.ID, sum, e.Balance)
		}
	}
	return sum, nil
}
