package idempotency

import (
	"context"
	"testing"
	"time"

	"clawcity/internal/model"
	"clawcity/internal/store"
)

func newAgent(t *testing.T, s *store.Store, keyHash string) *model.Agent {
	t.Helper()
	a := &model.Agent{
		AgentKeyHash: keyHash, Name: "Bob", CreatedAt: time.Now(), LocationZoneID: "residential",
		Cash: 0, Health: 100, Stamina: 100, Status: model.StatusIdle,
		Inventory: map[string]int{}, Skills: model.Skills{}, Stats: model.Stats{},
	}
	id, err := s.InsertAgent(context.Background(), s.DB, a)
	if err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	a.ID = id
	return a
}

func TestResolveRoundTrip(t *testing.T) {
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	svc := New(s)
	plaintext, keyHash, err := svc.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	agent := newAgent(t, s, keyHash)

	got, err := svc.Resolve(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != agent.ID {
		t.Fatalf("expected agent %d, got %d", agent.ID, got.ID)
	}

	if _, err := svc.Resolve(context.Background(), "not-a-real-key"); err != ErrAuthInvalid {
		t.Fatalf("expected ErrAuthInvalid, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), ""); err != ErrAuthRequired {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestCheckAndReserveLifecycle(t *testing.T) {
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	svc := New(s)
	agent := newAgent(t, s, "keyhash2")

	tx, err := s.BeginSerializable(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	outcome, result, err := svc.CheckAndReserve(context.Background(), tx, agent.ID, "req-1")
	if err != nil {
		t.Fatalf("check and reserve: %v", err)
	}
	if outcome != LockReserved || result != nil {
		t.Fatalf("expected fresh reservation, got outcome=%v result=%v", outcome, result)
	}
	if err := svc.Complete(context.Background(), tx, agent.ID, "req-1", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2, err := s.BeginSerializable(context.Background())
	if err != nil {
		t.Fatalf("begin 2: %v", err)
	}
	defer tx2.Rollback()
	outcome2, result2, err := svc.CheckAndReserve(context.Background(), tx2, agent.ID, "req-1")
	if err != nil {
		t.Fatalf("check and reserve replay: %v", err)
	}
	if outcome2 != LockHasResult {
		t.Fatalf("expected LockHasResult, got %v", outcome2)
	}
	if string(result2) != `{"ok":true}` {
		t.Fatalf("expected stored result replayed verbatim, got %s", result2)
	}
}

func TestCheckAndReserveInProgress(t *testing.T) {
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	svc := New(s)
	agent := newAgent(t, s, "keyhash3")

	tx, err := s.BeginSerializable(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, _, err := svc.CheckAndReserve(context.Background(), tx, agent.ID, "req-2"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2, err := s.BeginSerializable(context.Background())
	if err != nil {
		t.Fatalf("begin 2: %v", err)
	}
	defer tx2.Rollback()
	outcome, _, err := svc.CheckAndReserve(context.Background(), tx2, agent.ID, "req-2")
	if err != nil {
		t.Fatalf("check and reserve: %v", err)
	}
	if outcome != LockInProgress {
		t.Fatalf("expected LockInProgress, got %v", outcome)
	}
}
