package action

import (
	"context"
	"testing"
	"time"

	"clawcity/internal/config"
	"clawcity/internal/coop"
	"clawcity/internal/idempotency"
	"clawcity/internal/ledger"
	"clawcity/internal/model"
	"clawcity/internal/store"
)

func newHarness(t *testing.T) (*Dispatcher, *store.Store) {
	t.Helper()
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.InitWorld(context.Background(), 15000, "test-seed"); err != nil {
		t.Fatalf("init world: %v", err)
	}
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := config.Config{MaxHeat: 100, ArrestThreshold: 60, ActionRateLimitPerSec: 1000, ActionRateLimitBurst: 1000}
	l := ledger.New(s)
	idem := idempotency.New(s)
	coopEngine := coop.New(s, l, cfg)
	return New(s, l, idem, coopEngine, cfg), s
}

func newAgentIn(t *testing.T, s *store.Store, zone string, cash int64) *model.Agent {
	t.Helper()
	a := &model.Agent{
		AgentKeyHash: "k-" + zone + "-" + time.Now().Format(time.RFC3339Nano), Name: "Tester", CreatedAt: time.Now(), LocationZoneID: zone,
		Cash: cash, Health: 100, Stamina: 100, Status: model.StatusIdle,
		Inventory: map[string]int{}, Skills: model.Skills{}, Stats: model.Stats{},
	}
	id, err := s.InsertAgent(context.Background(), s.DB, a)
	if err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	a.ID = id
	return a
}

func TestActUnknownAction(t *testing.T) {
	d, s := newHarness(t)
	defer s.Close()
	agent := newAgentIn(t, s, "residential", 100)

	res, err := d.Act(context.Background(), agent.ID, "req-1", "FLY_TO_MOON", nil)
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if res.OK || res.Error != ErrUnknownAction {
		t.Fatalf("expected UNKNOWN_ACTION, got %+v", res)
	}
}

func TestActMissingRequestID(t *testing.T) {
	d, s := newHarness(t)
	defer s.Close()
	agent := newAgentIn(t, s, "residential", 100)

	res, err := d.Act(context.Background(), agent.ID, "", "MOVE", map[string]any{"toZone": "market"})
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if res.OK || res.Error != ErrMissingRequestID {
		t.Fatalf("expected MISSING_REQUEST_ID, got %+v", res)
	}
}

func TestActMoveStartsTravel(t *testing.T) {
	d, s := newHarness(t)
	defer s.Close()
	agent := newAgentIn(t, s, "residential", 100)

	res, err := d.Act(context.Background(), agent.ID, "req-move-1", "MOVE", map[string]any{"toZone": "market"})
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected ok, got %+v", res)
	}

	got, err := s.GetAgent(context.Background(), s.DB, agent.ID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Status != model.StatusBusy || got.BusyAction != "move:market" {
		t.Fatalf("expected busy moving to market, got status=%s action=%q", got.Status, got.BusyAction)
	}
}

func TestActIdempotentReplayReturnsSameResult(t *testing.T) {
	d, s := newHarness(t)
	defer s.Close()
	agent := newAgentIn(t, s, "residential", 100)

	first, err := d.Act(context.Background(), agent.ID, "req-dup", "MOVE", map[string]any{"toZone": "market"})
	if err != nil {
		t.Fatalf("first act: %v", err)
	}
	second, err := d.Act(context.Background(), agent.ID, "req-dup", "MOVE", map[string]any{"toZone": "market"})
	if err != nil {
		t.Fatalf("second act: %v", err)
	}
	if second.Message != first.Message || second.Tick != first.Tick {
		t.Fatalf("expected replayed result to match original, got first=%+v second=%+v", first, second)
	}

	got, err := s.GetAgent(context.Background(), s.DB, agent.ID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	// Edge has a cash cost; a replay must not charge it twice.
	if got.Cash != 95 {
		t.Fatalf("expected travel cost charged exactly once (cash 95), got %d", got.Cash)
	}
}

func TestActJailedAgentBlockedExceptJailbreak(t *testing.T) {
	d, s := newHarness(t)
	defer s.Close()
	agent := newAgentIn(t, s, "jail", 100)
	agent.Status = model.StatusJailed
	agent.BusyUntilTick = 50
	if err := s.UpdateAgent(context.Background(), s.DB, agent); err != nil {
		t.Fatalf("update agent: %v", err)
	}

	res, err := d.Act(context.Background(), agent.ID, "req-jailed-move", "MOVE", map[string]any{"toZone": "residential"})
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if res.OK || res.Error != ErrInvalidStatus {
		t.Fatalf("expected INVALID_STATUS for jailed agent, got %+v", res)
	}

	res, err = d.Act(context.Background(), agent.ID, "req-jailed-bribe", "BRIBE_COPS", map[string]any{"amount": int64(10)})
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if res.Error == ErrInvalidStatus {
		t.Fatalf("expected BRIBE_COPS to bypass the jailed status gate, got %+v", res)
	}
}

func TestActBuyPropertyInsufficientFunds(t *testing.T) {
	d, s := newHarness(t)
	defer s.Close()
	agent := newAgentIn(t, s, "residential", 10)
	propID, err := s.InsertProperty(context.Background(), model.Property{
		ZoneID: "residential", Name: "Cheap Flat", Price: 5000, RentPerTick: 20,
	})
	if err != nil {
		t.Fatalf("insert property: %v", err)
	}

	res, err := d.Act(context.Background(), agent.ID, "req-buy-prop-1", "BUY_PROPERTY", map[string]any{"propertyId": propID})
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if res.OK || res.Error != ErrInsufficientFunds {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %+v", res)
	}
}

func TestActGiftCashTransfersBalance(t *testing.T) {
	d, s := newHarness(t)
	defer s.Close()
	sender := newAgentIn(t, s, "residential", 200)
	recipient := newAgentIn(t, s, "residential", 0)

	res, err := d.Act(context.Background(), sender.ID, "req-gift-1", "GIFT_CASH", map[string]any{"toAgentId": recipient.ID, "amount": int64(50)})
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected ok, got %+v", res)
	}

	gotRecipient, err := s.GetAgent(context.Background(), s.DB, recipient.ID)
	if err != nil {
		t.Fatalf("get recipient: %v", err)
	}
	if gotRecipient.Cash != 50 {
		t.Fatalf("expected recipient cash 50, got %d", gotRecipient.Cash)
	}
}
