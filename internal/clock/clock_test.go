package clock

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"clawcity/internal/action"
	"clawcity/internal/config"
	"clawcity/internal/coop"
	"clawcity/internal/idempotency"
	"clawcity/internal/ledger"
	"clawcity/internal/model"
	"clawcity/internal/npc"
	"clawcity/internal/store"
)

func newTestClock(t *testing.T, cfg config.Config) (*Clock, *store.Store) {
	t.Helper()
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.InitWorld(context.Background(), cfg.TickMs, "clock-test"); err != nil {
		t.Fatalf("init world: %v", err)
	}
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	l := ledger.New(s)
	idem := idempotency.New(s)
	coopEngine := coop.New(s, l, cfg)
	dispatcher := action.New(s, l, idem, coopEngine, cfg)
	logger := log.New(io.Discard, "", 0)
	return New(s, l, coopEngine, dispatcher, cfg, npcPolicyStub{}, nil, logger), s
}

// npcPolicyStub never acts, keeping phase 12 a no-op so tests can
// assert on phases 1-11 in isolation.
type npcPolicyStub struct{}

func (npcPolicyStub) Decide(*model.Agent, model.World) *npc.Decision { return nil }

func newClockAgent(t *testing.T, s *store.Store) *model.Agent {
	t.Helper()
	a := &model.Agent{
		AgentKeyHash: time.Now().Format(time.RFC3339Nano), Name: "Ticker", CreatedAt: time.Now(),
		LocationZoneID: "residential", Cash: 100, Health: 100, Stamina: 0, Status: model.StatusBusy,
		Inventory: map[string]int{}, Skills: model.Skills{}, Stats: model.Stats{},
	}
	id, err := s.InsertAgent(context.Background(), s.DB, a)
	if err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	a.ID = id
	return a
}

func TestFireAdvancesTickAndResolvesRest(t *testing.T) {
	cfg := config.Config{MaxHeat: 100, HeatDecayIdle: 3, HeatDecayBusy: 1, NPCPeriod: 1000}
	clk, s := newTestClock(t, cfg)
	defer s.Close()

	agent := newClockAgent(t, s)
	agent.BusyAction = "rest"
	agent.BusyUntilTick = 1
	if err := s.UpdateAgent(context.Background(), s.DB, agent); err != nil {
		t.Fatalf("update agent: %v", err)
	}

	if err := clk.fire(context.Background()); err != nil {
		t.Fatalf("fire: %v", err)
	}

	world, err := s.GetWorld(context.Background())
	if err != nil {
		t.Fatalf("get world: %v", err)
	}
	if world.Tick != 1 {
		t.Fatalf("expected tick 1, got %d", world.Tick)
	}

	got, err := s.GetAgent(context.Background(), s.DB, agent.ID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Status != model.StatusIdle || got.Stamina != 100 {
		t.Fatalf("expected rest to complete (idle, stamina 100), got status=%s stamina=%d", got.Status, got.Stamina)
	}

	events, err := s.ListEventsForAgent(context.Background(), s.DB, 0, 0, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	found := false
	for _, e := range events {
		if e.Type == "TICK_COMPLETED" && e.Tick == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a TICK_COMPLETED event for tick 1, got %+v", events)
	}
}

func TestFireDecaysHeatForIdleAgent(t *testing.T) {
	cfg := config.Config{MaxHeat: 100, HeatDecayIdle: 3, HeatDecayBusy: 1, NPCPeriod: 1000}
	clk, s := newTestClock(t, cfg)
	defer s.Close()

	a := &model.Agent{
		AgentKeyHash: "heat-agent", Name: "Cooling", CreatedAt: time.Now(), LocationZoneID: "residential",
		Cash: 0, Health: 100, Stamina: 100, Heat: 10, Status: model.StatusIdle,
		Inventory: map[string]int{}, Skills: model.Skills{}, Stats: model.Stats{},
	}
	id, err := s.InsertAgent(context.Background(), s.DB, a)
	if err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	a.ID = id

	if err := clk.fire(context.Background()); err != nil {
		t.Fatalf("fire: %v", err)
	}

	got, err := s.GetAgent(context.Background(), s.DB, a.ID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Heat != 7 {
		t.Fatalf("expected heat to decay from 10 to 7, got %d", got.Heat)
	}
}

func TestFireReleasesJailedAgentWhenSentenceDue(t *testing.T) {
	cfg := config.Config{MaxHeat: 100, NPCPeriod: 1000}
	clk, s := newTestClock(t, cfg)
	defer s.Close()

	a := &model.Agent{
		AgentKeyHash: "jail-agent", Name: "Con", CreatedAt: time.Now(), LocationZoneID: "jail",
		Cash: 0, Health: 100, Stamina: 100, Status: model.StatusJailed, BusyUntilTick: 1,
		Inventory: map[string]int{}, Skills: model.Skills{}, Stats: model.Stats{},
	}
	id, err := s.InsertAgent(context.Background(), s.DB, a)
	if err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	a.ID = id

	if err := clk.fire(context.Background()); err != nil {
		t.Fatalf("fire: %v", err)
	}

	got, err := s.GetAgent(context.Background(), s.DB, a.ID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Status != model.StatusIdle {
		t.Fatalf("expected jailed agent released to idle, got %s", got.Status)
	}
}
