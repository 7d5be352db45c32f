package coop

import (
	"context"
	"testing"
	"time"

	"clawcity/internal/config"
	"clawcity/internal/ledger"
	"clawcity/internal/model"
	"clawcity/internal/store"
)

func newCoopAgent(t *testing.T, s *store.Store, cash int64) *model.Agent {
	t.Helper()
	a := &model.Agent{
		AgentKeyHash: time.Now().Format(time.RFC3339Nano), Name: "Crew", CreatedAt: time.Now(),
		LocationZoneID: "docks", Cash: cash, Health: 100, Stamina: 100, Status: model.StatusIdle,
		Inventory: map[string]int{}, Skills: model.Skills{}, Stats: model.Stats{},
	}
	id, err := s.InsertAgent(context.Background(), s.DB, a)
	if err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	a.ID = id
	return a
}

func TestJoinReachesReadyAndMarksParticipantsBusy(t *testing.T) {
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	cfg := config.Config{CoopExecuteDelay: 3}
	e := New(s, ledger.New(s), cfg)

	initiator := newCoopAgent(t, s, 0)
	joiner := newCoopAgent(t, s, 0)
	world := &model.World{Tick: 10, Status: model.WorldRunning}

	tx, err := s.BeginSerializable(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	c, err := e.Initiate(context.Background(), tx, world, initiator, TypeRobbery, "docks", 2, 4, 100)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if c.Status != model.CoopRecruiting {
		t.Fatalf("expected recruiting, got %s", c.Status)
	}

	if err := e.Join(context.Background(), tx, world, c, joiner); err != nil {
		t.Fatalf("join: %v", err)
	}
	if c.Status != model.CoopReady {
		t.Fatalf("expected ready after reaching minParticipants, got %s", c.Status)
	}
	if c.ExecuteAt != int64(world.Tick)+cfg.CoopExecuteDelay {
		t.Fatalf("expected executeAt %d, got %d", int64(world.Tick)+cfg.CoopExecuteDelay, c.ExecuteAt)
	}

	// Join stores the other participants' rows itself; the joining agent
	// is only updated in place, for the dispatcher to persist.
	initiatorAfter, err := s.GetAgent(context.Background(), tx, initiator.ID)
	if err != nil {
		t.Fatalf("get initiator: %v", err)
	}
	if initiatorAfter.Status != model.StatusBusy || initiatorAfter.BusyAction != "coop_"+TypeRobbery {
		t.Fatalf("expected initiator busy on coop_%s, got status=%s action=%q", TypeRobbery, initiatorAfter.Status, initiatorAfter.BusyAction)
	}
	if joiner.Status != model.StatusBusy || joiner.BusyAction != "coop_"+TypeRobbery {
		t.Fatalf("expected joiner busy on coop_%s, got status=%s action=%q", TypeRobbery, joiner.Status, joiner.BusyAction)
	}
}

func TestJoinRejectsDuplicateAndFull(t *testing.T) {
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	cfg := config.Config{CoopExecuteDelay: 3}
	e := New(s, ledger.New(s), cfg)

	initiator := newCoopAgent(t, s, 0)
	other := newCoopAgent(t, s, 0)
	world := &model.World{Tick: 1, Status: model.WorldRunning}

	tx, err := s.BeginSerializable(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	c, err := e.Initiate(context.Background(), tx, world, initiator, TypeHeist, "docks", 5, 1, 100)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if err := e.Join(context.Background(), tx, world, c, initiator); err != ErrAlreadyIn {
		t.Fatalf("expected ErrAlreadyIn, got %v", err)
	}

	if err := e.Join(context.Background(), tx, world, c, other); err != ErrFull {
		t.Fatalf("expected ErrFull (maxParticipants=1), got %v", err)
	}
}

func TestExecuteResolvesEveryParticipantAndReleasesThem(t *testing.T) {
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	cfg := config.Config{CoopExecuteDelay: 3}
	e := New(s, ledger.New(s), cfg)

	initiator := newCoopAgent(t, s, 0)
	joiner := newCoopAgent(t, s, 0)
	world := &model.World{Tick: 20, Status: model.WorldRunning}

	tx, err := s.BeginSerializable(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	c, err := e.Initiate(context.Background(), tx, world, initiator, TypeSmuggling, "docks", 2, 2, 100)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if err := e.Join(context.Background(), tx, world, c, joiner); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := e.Execute(context.Background(), tx, world, c, 0.2); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if c.Status != model.CoopCompleted && c.Status != model.CoopFailed {
		t.Fatalf("expected a terminal status, got %s", c.Status)
	}
	if c.Result == nil {
		t.Fatalf("expected Result to be populated")
	}

	for _, id := range []int64{initiator.ID, joiner.ID} {
		a, err := s.GetAgent(context.Background(), tx, id)
		if err != nil {
			t.Fatalf("get agent %d: %v", id, err)
		}
		if a.Status == model.StatusBusy {
			t.Fatalf("expected agent %d to be released from busy after execute, got %s", id, a.Status)
		}
	}
}
