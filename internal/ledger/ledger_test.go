package ledger

import (
	"context"
	"testing"
	"time"

	"clawcity/internal/model"
	"clawcity/internal/store"
)

func newTestAgent(t *testing.T, s *store.Store) *model.Agent {
	t.Helper()
	a := &model.Agent{
		AgentKeyHash: "hash1", Name: "Alice", CreatedAt: time.Now(), LocationZoneID: "residential",
		Cash: 100, Health: 100, Stamina: 100, Status: model.StatusIdle,
		Inventory: map[string]int{}, Skills: model.Skills{}, Stats: model.Stats{},
	}
	id, err := s.InsertAgent(context.Background(), s.DB, a)
	if err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	a.ID = id
	return a
}

func TestPostCreditDebitConservation(t *testing.T) {
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	l := New(s)
	agent := newTestAgent(t, s)

	tx, err := s.BeginSerializable(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := l.Post(context.Background(), tx, agent, 1, model.LedgerCredit, 50, "job wage", 0); err != nil {
		t.Fatalf("post credit: %v", err)
	}
	if err := l.Post(context.Background(), tx, agent, 1, model.LedgerDebit, 30, "move cost", 0); err != nil {
		t.Fatalf("post debit: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if agent.Cash != 120 {
		t.Fatalf("expected cash 120, got %d", agent.Cash)
	}

	sum, err := l.Reconstruct(context.Background(), agent.ID)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if sum != 120 {
		t.Fatalf("expected reconstructed sum 120, got %d", sum)
	}
}

func TestPostDebitInsufficientFunds(t *testing.T) {
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	l := New(s)
	agent := newTestAgent(t, s)

	tx, err := s.BeginSerializable(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	if err := l.Post(context.Background(), tx, agent, 1, model.LedgerDebit, 1000, "too much", 0); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}
