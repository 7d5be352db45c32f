package snapshot

import (
	"context"
	"testing"
	"time"

	"clawcity/internal/model"
	"clawcity/internal/store"
)

func TestExportThenVerify(t *testing.T) {
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	a := &model.Agent{
		AgentKeyHash: "snap-agent", Name: "Snapped", CreatedAt: time.Now(), LocationZoneID: "residential",
		Cash: 500, Health: 100, Stamina: 100, Status: model.StatusIdle,
		Inventory: map[string]int{}, Skills: model.Skills{}, Stats: model.Stats{},
	}
	if _, err := s.InsertAgent(context.Background(), s.DB, a); err != nil {
		t.Fatalf("insert agent: %v", err)
	}

	e := New(s, 10)
	if err := e.Export(context.Background(), 10); err != nil {
		t.Fatalf("export: %v", err)
	}

	ok, err := e.Verify(context.Background(), 10)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify")
	}

	metas, err := s.ListSnapshotMeta(context.Background())
	if err != nil {
		t.Fatalf("list meta: %v", err)
	}
	if len(metas) != 1 || metas[0].Tick != 10 {
		t.Fatalf("expected one snapshot at tick 10, got %+v", metas)
	}
}

func TestMaybeExportSkipsOffCadence(t *testing.T) {
	s, err := store.OpenTestDB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	e := New(s, 10)
	if err := e.MaybeExport(context.Background(), 3); err != nil {
		t.Fatalf("maybe export: %v", err)
	}
	metas, err := s.ListSnapshotMeta(context.Background())
	if err != nil {
		t.Fatalf("list meta: %v", err)
	}
	if len(metas) != 0 {
		t.Fatalf("expected no snapshot off cadence, got %+v", metas)
	}
}
