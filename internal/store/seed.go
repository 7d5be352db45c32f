package store

import (
	"context"

	"clawcity/internal/model"
)

// Seed loads the minimal reference-data catalog the engine needs to be
// playable: zones, the travel graph, items, and jobs. Authoring a full
// content catalog is out of scope here — this is just enough bootstrap
// content for the dispatcher and tick pipeline to have something to
// operate on; a real deployment replaces it wholesale.
func (s *Store) Seed(ctx context.Context) error {
	zones := []struct {
		id, name, typ, desc string
		police              float64
	}{
		{"residential", "Residential Blocks", "residential", "Quiet streets, low police presence.", 0.1},
		{"market", "Old Town Market", "market", "Shops, bars, gambling dens.", 0.3},
		{"docks", "The Docks", "industrial", "Warehouses and shipping containers.", 0.2},
		{"downtown", "Downtown", "commercial", "Banks, offices, high police presence.", 0.6},
		{"hospital", "St. Agnes Hospital", "hospital", "The only hospital in town.", 0.4},
		{"jail", "County Jail", "jail", "Where the unlucky end up.", 0.9},
		{"slums", "The Slums", "slum", "Gang turf, cheap rent, high crime.", 0.15},
	}
	for _, z := range zones {
		if err := s.InsertZone(ctx, model.Zone{ID: z.id, Name: z.name, Type: z.typ, Description: z.desc, PolicePresence: z.police}); err != nil {
			return err
		}
	}

	edges := []struct {
		from, to     string
		time, cost   int64
		risk         float64
	}{
		{"residential", "market", 1, 5, 0.05},
		{"market", "residential", 1, 5, 0.05},
		{"market", "downtown", 1, 10, 0.1},
		{"downtown", "market", 1, 10, 0.1},
		{"market", "docks", 1, 5, 0.15},
		{"docks", "market", 1, 5, 0.15},
		{"residential", "slums", 1, 0, 0.2},
		{"slums", "residential", 1, 0, 0.2},
		{"residential", "hospital", 1, 0, 0.02},
		{"hospital", "residential", 1, 0, 0.02},
		{"downtown", "docks", 1, 15, 0.1},
		{"docks", "downtown", 1, 15, 0.1},
		{"slums", "docks", 1, 5, 0.1},
		{"docks", "slums", 1, 5, 0.1},
	}
	for _, e := range edges {
		if err := s.InsertZoneEdge(ctx, model.ZoneEdge{From: e.from, To: e.to, TimeCostTicks: e.time, CashCost: e.cost, HeatRisk: e.risk}); err != nil {
			return err
		}
	}

	items := []struct {
		id, name               string
		health, stamina, heat  int
		price                  int64
	}{
		{"bandage", "Bandage", 25, 0, 0, 15},
		{"energy_drink", "Energy Drink", 0, 30, 0, 10},
		{"burner_phone", "Burner Phone", 0, 0, -5, 50},
		{"lucky_charm", "Lucky Charm", 0, 0, -2, 100},
	}
	for _, it := range items {
		if err := s.InsertItem(ctx, model.Item{ID: it.id, Name: it.name, HealthDelta: it.health, StaminaDelta: it.stamina, HeatDelta: it.heat, Price: it.price}); err != nil {
			return err
		}
	}

	jobs := []struct {
		id, zone, name           string
		wage, duration           int64
		stamina, minRep, minDrv  int
	}{
		{"shop_assistant", "market", "Shop Assistant", 40, 3, 10, 0, 0},
		{"dock_worker", "docks", "Dock Worker", 60, 4, 20, 0, 0},
		{"courier", "downtown", "Courier", 80, 5, 15, 10, 20},
		{"bartender", "market", "Bartender", 50, 3, 10, 0, 0},
	}
	for _, j := range jobs {
		if err := s.InsertJob(ctx, model.Job{ID: j.id, ZoneID: j.zone, Name: j.name, Wage: j.wage, DurationTicks: j.duration,
			StaminaCost: j.stamina, MinReputation: j.minRep, MinSkillDriving: j.minDrv}); err != nil {
			return err
		}
	}

	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT count(*) FROM businesses`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		seedBusinesses := []struct {
			zone, name string
			cash       int64
		}{
			{"market", "Corner Pawn Shop", 5000},
			{"downtown", "City Bank Exchange", 20000},
			{"docks", "Longshoreman's Supply", 8000},
		}
		for _, b := range seedBusinesses {
			biz := &model.Business{ZoneID: b.zone, Name: b.name, CashOnHand: b.cash, Inventory: map[string]model.BusinessItem{}}
			if _, err := s.InsertBusiness(ctx, s.DB, biz); err != nil {
				return err
			}
		}
	}

	return nil
}
