// Package clock drives the world forward: a ticker fires once per
// configured period and runs the fourteen-phase pipeline in strict
// order, following the runGameLoop/tickWorld split (a single ticker
// goroutine calling one big per-tick function; no lock is taken, since
// only that goroutine fires ticks). Phases
// 1-11 commit as one transaction; phase 12 (NPC step)
// necessarily runs its own transactions through the action dispatcher,
// since the store's single connection cannot be held open across a
// nested Act() call; phase 14 then commits a short closing
// transaction, after which phase 13 (snapshot export) runs. A tick that takes longer than tickMs simply causes the
// next ticker fire to be observed and processed next — there is no
// concurrent second goroutine that could let two ticks overlap.
package clock

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"clawcity/internal/action"
	"clawcity/internal/config"
	"clawcity/internal/coop"
	"clawcity/internal/ledger"
	"clawcity/internal/model"
	"clawcity/internal/npc"
	"clawcity/internal/security"
	"clawcity/internal/snapshot"
	"clawcity/internal/store"
)

type Clock struct {
	Store    *store.Store
	Ledger   *ledger.Ledger
	Coop     *coop.Engine
	Action   *action.Dispatcher
	Config   config.Config
	Policy   npc.Policy
	Snapshot *snapshot.Exporter
	Logger   *log.Logger
}

func New(s *store.Store, l *ledger.Ledger, c *coop.Engine, d *action.Dispatcher, cfg config.Config, policy npc.Policy, snap *snapshot.Exporter, logger *log.Logger) *Clock {
	if policy == nil {
		policy = npc.DefaultPolicy{}
	}
	return &Clock{Store: s, Ledger: l, Coop: c, Action: d, Config: cfg, Policy: policy, Snapshot: snap, Logger: logger}
}

// Run blocks, firing the tick pipeline every Config.TickMs until ctx is
// cancelled. Intended to be launched in its own goroutine by cmd/clawcityd.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(c.Config.TickMs) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.fire(ctx); err != nil {
				c.Logger.Printf("tick failed: %v", err)
			}
		}
	}
}

type tickCounters struct {
	Resolved        int
	Arrests         int
	TerritoryIncome int
	RentPayments    int
	CoopExecuted    int
}

// fire runs one whole tick: phases 1-11 in a single transaction, then
// phase 12 (NPC step, its own transactions via Act), then a closing
// transaction for phase 14 followed by phase 13 (see closeTick).
func (c *Clock) fire(ctx context.Context) error {
	world, counters, err := c.runCorePhases(ctx)
	if err != nil {
		return err
	}
	if world.Status != model.WorldRunning {
		return nil
	}

	npcFailures := c.runNPCStep(ctx, world)

	return c.closeTick(ctx, world, counters, npcFailures)
}

// runCorePhases executes phases 1 through 11 as one transaction and
// returns the post-phase world state plus the tick's counters.
func (c *Clock) runCorePhases(ctx context.Context) (model.World, tickCounters, error) {
	var counters tickCounters
	tx, err := c.Store.BeginSerializable(ctx)
	if err != nil {
		return model.World{}, counters, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	world, err := c.Store.GetWorldTx(ctx, tx)
	if err != nil {
		return model.World{}, counters, err
	}
	if world.Status != model.WorldRunning {
		if err := tx.Commit(); err != nil {
			return model.World{}, counters, err
		}
		committed = true
		return world, counters, nil
	}

	// 1. Advance tick.
	world.Tick++
	world.LastTickAt = time.Now()

	if err := c.resolveBusyAgents(ctx, tx, &world, &counters); err != nil {
		return model.World{}, counters, err
	}
	if err := c.decayHeat(ctx, tx, &world); err != nil {
		return model.World{}, counters, err
	}
	if err := c.checkArrests(ctx, tx, &world, &counters); err != nil {
		return model.World{}, counters, err
	}
	if err := c.releaseJailedAndHospitalized(ctx, tx, &world); err != nil {
		return model.World{}, counters, err
	}
	if err := c.payTerritoryIncome(ctx, tx, &world, &counters); err != nil {
		return model.World{}, counters, err
	}
	if err := c.collectRent(ctx, tx, &world, &counters); err != nil {
		return model.World{}, counters, err
	}
	if err := c.processCoopActions(ctx, tx, &world, &counters); err != nil {
		return model.World{}, counters, err
	}
	if err := c.expireBounties(ctx, tx, &world); err != nil {
		return model.World{}, counters, err
	}
	if err := c.expireDisguises(ctx, tx, &world); err != nil {
		return model.World{}, counters, err
	}
	if err := c.decayFriendships(ctx, tx, &world); err != nil {
		return model.World{}, counters, err
	}

	if err := c.Store.PutWorld(ctx, tx, world); err != nil {
		return model.World{}, counters, err
	}
	if err := tx.Commit(); err != nil {
		return model.World{}, counters, err
	}
	committed = true
	return world, counters, nil
}

// 2. Resolve busy agents: each completion effect is the same mutation
// the originating handler deferred into busyAction/busyUntilTick.
func (c *Clock) resolveBusyAgents(ctx context.Context, tx *sql.Tx, world *model.World, counters *tickCounters) error {
	due, err := c.Store.ListBusyAgentsDue(ctx, tx, world.Tick)
	if err != nil {
		return err
	}
	for _, a := range due {
		if err := c.resolveOneBusyAgent(ctx, tx, world, a); err != nil {
			return err
		}
		counters.Resolved++
	}
	return nil
}

func (c *Clock) resolveOneBusyAgent(ctx context.Context, tx *sql.Tx, world *model.World, a *model.Agent) error {
	action := a.BusyAction
	a.BusyAction = ""
	a.BusyUntilTick = 0
	a.Status = model.StatusIdle

	switch {
	case action == "rest":
		a.Stamina = 100
		if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "REST_COMPLETED", a.ID, a.LocationZoneID, 0, nil, ""); err != nil {
			return err
		}
	case action == "heal":
		a.Health = 100
		if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "HEAL_COMPLETED", a.ID, a.LocationZoneID, 0, nil, ""); err != nil {
			return err
		}
	case len(action) > 5 && action[:5] == "move:":
		toZone := action[5:]
		a.LocationZoneID = toZone
		if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "MOVE_COMPLETED", a.ID, toZone, 0, nil, ""); err != nil {
			return err
		}
	case len(action) > 4 && action[:4] == "job:":
		jobID := action[4:]
		job, err := c.Store.GetJob(ctx, tx, jobID)
		if err == nil {
			if err := c.Ledger.Post(ctx, tx, a, world.Tick, model.LedgerCredit, job.Wage, "job payout", 0); err != nil {
				return err
			}
			a.Stats.JobsCompleted++
		}
		if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "JOB_COMPLETED", a.ID, a.LocationZoneID, 0, map[string]any{"jobId": jobID}, ""); err != nil {
			return err
		}
	case len(action) > 5 && action[:5] == "coop_":
		// Rendezvous itself is settled atomically by phase 8
		// (processCoopActions). This phase runs first, so every
		// participant whose executeAt has arrived is released here;
		// phase 8 then applies the outcome to the participants.
		if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "COOP_WAIT_RELEASED", a.ID, a.LocationZoneID, 0, nil, ""); err != nil {
			return err
		}
	}
	if a.Health <= 0 {
		a.Status = model.StatusHospitalized
		a.BusyUntilTick = int64(world.Tick) + c.Config.HospitalTicks
	}
	return c.Store.UpdateAgent(ctx, tx, a)
}

// 3. Heat decay, with safehouse/territory/disguise multipliers.
func (c *Clock) decayHeat(ctx context.Context, tx *sql.Tx, world *model.World) error {
	agents, err := c.Store.ListNonBannedAgents(ctx, tx)
	if err != nil {
		return err
	}
	for _, a := range agents {
		if a.Heat == 0 {
			continue
		}
		base := c.Config.HeatDecayBusy
		if a.Status == model.StatusIdle {
			base = c.Config.HeatDecayIdle
		}
		decay := float64(base)
		if a.HomePropertyID != 0 {
			if prop, err := c.Store.GetProperty(ctx, tx, a.HomePropertyID); err == nil && prop.OwnerAgentID == a.ID && prop.ZoneID == a.LocationZoneID {
				decay *= 1.5
			}
		}
		if a.GangID != 0 {
			if terr, found, err := c.Store.GetTerritory(ctx, tx, a.LocationZoneID); err == nil && found && terr.GangID == a.GangID {
				decay *= 1.2
			}
		}
		if dis, found, err := c.Store.GetActiveDisguise(ctx, tx, a.ID, int64(world.Tick)); err == nil && found {
			decay += float64(dis.HeatBonus)
		}
		a.Heat = clamp(a.Heat-int(decay), 0, c.Config.MaxHeat)
		if err := c.Store.UpdateAgent(ctx, tx, a); err != nil {
			return err
		}
	}
	return nil
}

// 4. Arrest checks.
func (c *Clock) checkArrests(ctx context.Context, tx *sql.Tx, world *model.World, counters *tickCounters) error {
	for _, status := range []string{model.StatusIdle, model.StatusBusy} {
		agents, err := c.Store.ListAgentsByStatus(ctx, tx, status)
		if err != nil {
			return err
		}
		for _, a := range agents {
			if a.Heat < c.Config.ArrestThreshold {
				continue
			}
			police := 0.2
			if z, err := c.Store.GetZone(ctx, tx, a.LocationZoneID); err == nil {
				police = z.PolicePresence
			}
			p := 0.2 + float64(a.Heat-c.Config.ArrestThreshold)/100 + police*0.3
			if p > 0.9 {
				p = 0.9
			}
			roll := security.Chance("arrest", world.Tick, a.ID)
			if roll >= p {
				continue
			}
			a.Status = model.StatusJailed
			a.BusyUntilTick = int64(world.Tick) + c.Config.SentenceTicks
			a.BusyAction = ""
			fine := int64(a.Heat) * 10
			if fine > a.Cash {
				a.TaxOwed += fine - a.Cash
				fine = a.Cash
			}
			if fine > 0 {
				if err := c.Ledger.Post(ctx, tx, a, world.Tick, model.LedgerDebit, fine, "arrest fine", 0); err != nil {
					return err
				}
			}
			if err := c.Store.UpdateAgent(ctx, tx, a); err != nil {
				return err
			}
			if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "AGENT_ARRESTED", a.ID, a.LocationZoneID, 0, map[string]any{"fine": fine}, ""); err != nil {
				return err
			}
			counters.Arrests++
		}
	}
	return nil
}

// 5. Jail release and hospital discharge.
func (c *Clock) releaseJailedAndHospitalized(ctx context.Context, tx *sql.Tx, world *model.World) error {
	for _, pair := range []struct {
		status    string
		eventType string
	}{
		{model.StatusJailed, "JAIL_RELEASE"},
		{model.StatusHospitalized, "HOSPITAL_DISCHARGE"},
	} {
		due, err := c.Store.ListAgentsByStatusDue(ctx, tx, pair.status, world.Tick)
		if err != nil {
			return err
		}
		for _, a := range due {
			a.Status = model.StatusIdle
			a.BusyUntilTick = 0
			if pair.status == model.StatusHospitalized {
				a.Health = 100
			}
			if err := c.Store.UpdateAgent(ctx, tx, a); err != nil {
				return err
			}
			if _, err := c.Ledger.Emit(ctx, tx, world.Tick, pair.eventType, a.ID, a.LocationZoneID, 0, nil, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

// 6. Territory income, with control-strength decay absent a defending visit.
func (c *Clock) payTerritoryIncome(ctx context.Context, tx *sql.Tx, world *model.World, counters *tickCounters) error {
	territories, err := c.Store.ListAllTerritories(ctx, tx)
	if err != nil {
		return err
	}
	for _, t := range territories {
		g, err := c.Store.GetGang(ctx, tx, t.GangID)
		if err != nil {
			if err == sql.ErrNoRows {
				if err := c.Store.DeleteTerritory(ctx, tx, t.ZoneID); err != nil {
					return err
				}
				continue
			}
			return err
		}
		g.Treasury += t.IncomePerTick
		if err := c.Store.UpdateGang(ctx, tx, g); err != nil {
			return err
		}
		if t.IncomePerTick > 0 {
			if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "TERRITORY_INCOME", 0, t.ZoneID, g.ID, map[string]any{"amount": t.IncomePerTick}, ""); err != nil {
				return err
			}
			counters.TerritoryIncome++
		}

		defended, err := c.zoneHasVisitingMember(ctx, tx, t.ZoneID, t.GangID)
		if err != nil {
			return err
		}
		if defended {
			t.LastDefendedTick = int64(world.Tick)
		} else if int64(world.Tick)-t.LastDefendedTick > 50 {
			t.ControlStrength--
		}
		if t.ControlStrength <= 0 {
			if err := c.Store.DeleteTerritory(ctx, tx, t.ZoneID); err != nil {
				return err
			}
			continue
		}
		if err := c.Store.UpsertTerritory(ctx, tx, t); err != nil {
			return err
		}
	}
	return nil
}

func (c *Clock) zoneHasVisitingMember(ctx context.Context, tx *sql.Tx, zoneID string, gangID int64) (bool, error) {
	memberIDs, err := c.Store.ListGangMembers(ctx, tx, gangID)
	if err != nil {
		return false, err
	}
	for _, id := range memberIDs {
		m, err := c.Store.GetAgent(ctx, tx, id)
		if err != nil {
			continue
		}
		if m.LocationZoneID == zoneID {
			return true, nil
		}
	}
	return false, nil
}

// 7. Rent payments.
func (c *Clock) collectRent(ctx context.Context, tx *sql.Tx, world *model.World, counters *tickCounters) error {
	due, err := c.Store.ListResidentsDue(ctx, tx, int64(world.Tick))
	if err != nil {
		return err
	}
	for _, r := range due {
		prop, err := c.Store.GetProperty(ctx, tx, r.PropertyID)
		if err != nil {
			continue
		}
		tenant, err := c.Store.GetAgent(ctx, tx, r.AgentID)
		if err != nil {
			continue
		}
		if tenant.Cash < prop.RentPerTick {
			if err := c.Store.DeleteResident(ctx, tx, prop.ID); err != nil {
				return err
			}
			if tenant.HomePropertyID == prop.ID {
				tenant.HomePropertyID = 0
				if err := c.Store.UpdateAgent(ctx, tx, tenant); err != nil {
					return err
				}
			}
			if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "TENANT_EVICTED", tenant.ID, prop.ZoneID, prop.ID, nil, ""); err != nil {
				return err
			}
			continue
		}
		if err := c.Ledger.Post(ctx, tx, tenant, world.Tick, model.LedgerDebit, prop.RentPerTick, "rent", 0); err != nil {
			return err
		}
		if prop.OwnerAgentID != 0 {
			owner, err := c.Store.GetAgent(ctx, tx, prop.OwnerAgentID)
			if err == nil {
				if err := c.Ledger.Post(ctx, tx, owner, world.Tick, model.LedgerCredit, prop.RentPerTick, "rent received", 0); err != nil {
					return err
				}
				if err := c.Store.UpdateAgent(ctx, tx, owner); err != nil {
					return err
				}
			}
		}
		r.RentDueAt = int64(world.Tick) + rentIntervalTicks
		if err := c.Store.UpsertResident(ctx, tx, *r); err != nil {
			return err
		}
		counters.RentPayments++
	}
	return nil
}

const rentIntervalTicks = 50

// 8. Cooperative action processing.
func (c *Clock) processCoopActions(ctx context.Context, tx *sql.Tx, world *model.World, counters *tickCounters) error {
	recruiting, err := c.Store.ListCoopActionsByStatus(ctx, tx, model.CoopRecruiting)
	if err != nil {
		return err
	}
	for _, co := range recruiting {
		if co.ExpiresAt <= int64(world.Tick) {
			if err := c.Coop.ExpireRecruiting(ctx, tx, co); err != nil {
				return err
			}
			if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "COOP_CRIME_CANCELLED", co.InitiatorID, co.ZoneID, co.ID, nil, ""); err != nil {
				return err
			}
		}
	}

	ready, err := c.Store.ListCoopActionsByStatus(ctx, tx, model.CoopReady)
	if err != nil {
		return err
	}
	for _, co := range ready {
		if co.ExecuteAt > int64(world.Tick) {
			continue
		}
		police := 0.2
		if z, err := c.Store.GetZone(ctx, tx, co.ZoneID); err == nil {
			police = z.PolicePresence
		}
		if err := c.Coop.Execute(ctx, tx, world, co, police); err != nil {
			return err
		}
		counters.CoopExecuted++
	}
	return nil
}

// 9. Bounty expiry.
func (c *Clock) expireBounties(ctx context.Context, tx *sql.Tx, world *model.World) error {
	expired, err := c.Store.ListExpiredActiveBounties(ctx, tx, int64(world.Tick))
	if err != nil {
		return err
	}
	for _, b := range expired {
		if err := c.Store.UpdateBountyStatus(ctx, tx, b.ID, model.BountyExpired, 0); err != nil {
			return err
		}
		refund := b.Amount / 2
		if refund > 0 {
			placer, err := c.Store.GetAgent(ctx, tx, b.PlacedByAgentID)
			if err == nil {
				if err := c.Ledger.Post(ctx, tx, placer, world.Tick, model.LedgerCredit, refund, "bounty expiry refund", 0); err != nil {
					return err
				}
				if err := c.Store.UpdateAgent(ctx, tx, placer); err != nil {
					return err
				}
			}
		}
		if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "BOUNTY_EXPIRED", b.PlacedByAgentID, "", b.ID, map[string]any{"refund": refund}, ""); err != nil {
			return err
		}
	}
	return nil
}

// 10. Disguise expiry.
func (c *Clock) expireDisguises(ctx context.Context, tx *sql.Tx, world *model.World) error {
	expired, err := c.Store.ListExpiredDisguises(ctx, tx, int64(world.Tick))
	if err != nil {
		return err
	}
	for _, d := range expired {
		if err := c.Store.DeleteDisguise(ctx, tx, d.ID); err != nil {
			return err
		}
	}
	return nil
}

// 11. Friendship decay.
func (c *Clock) decayFriendships(ctx context.Context, tx *sql.Tx, world *model.World) error {
	friendships, err := c.Store.ListAllFriendships(ctx, tx)
	if err != nil {
		return err
	}
	for _, f := range friendships {
		if int64(world.Tick)-f.LastInteractionTick < c.Config.FriendshipDecay {
			continue
		}
		if f.Strength > 0 {
			f.Strength--
		}
		if f.Loyalty > 0 {
			f.Loyalty--
		}
		f.LastInteractionTick = int64(world.Tick)
		if f.Strength <= 0 && f.Loyalty <= 0 {
			if err := c.Store.DeleteFriendship(ctx, tx, f.Agent1ID, f.Agent2ID); err != nil {
				return err
			}
			continue
		}
		if err := c.Store.UpsertFriendship(ctx, tx, f); err != nil {
			return err
		}
	}
	return nil
}

// runNPCStep is phase 12. It runs outside the phases-1-11 transaction
// since each NPC action goes through the regular dispatcher, which
// opens its own transaction; best-effort, every failure is swallowed
// (only logged) so a single misbehaving NPC never blocks the tick.
func (c *Clock) runNPCStep(ctx context.Context, world model.World) int {
	due, err := c.Store.ListDueNPCs(ctx, c.Store.DB, world.Tick, c.Config.NPCPeriod)
	if err != nil {
		c.Logger.Printf("npc step: list due: %v", err)
		return 0
	}
	failures := 0
	for _, a := range due {
		decision := c.Policy.Decide(a, world)
		if decision == nil {
			continue
		}
		requestID := fmt.Sprintf("npc-%d-%d", a.ID, world.Tick)
		_, err := c.Action.Act(ctx, a.ID, requestID, decision.Action, decision.Args)
		if err != nil {
			failures++
			c.Logger.Printf("npc step: agent %d action %s: %v", a.ID, decision.Action, err)
			continue
		}
	}
	return failures
}

// closeTick runs phase 14 (TICK_COMPLETED) in a short transaction,
// then, once that transaction has released the store's sole
// connection, runs phase 13 (the periodic signed snapshot export) —
// Snapshot.MaybeExport queries through Store.DB directly rather than a
// caller-supplied tx, so it must run after closeTick's own transaction
// commits, not inside it.
func (c *Clock) closeTick(ctx context.Context, world model.World, counters tickCounters, npcFailures int) error {
	tx, err := c.Store.BeginSerializable(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := c.Ledger.Emit(ctx, tx, world.Tick, "TICK_COMPLETED", 0, "", 0, map[string]any{
		"resolved":        counters.Resolved,
		"arrests":         counters.Arrests,
		"territoryIncome": counters.TerritoryIncome,
		"rentPayments":    counters.RentPayments,
		"coopExecuted":    counters.CoopExecuted,
		"npcFailures":     npcFailures,
	}, ""); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	if c.Snapshot != nil {
		if err := c.Snapshot.MaybeExport(ctx, world.Tick); err != nil {
			c.Logger.Printf("snapshot export at tick %d: %v", world.Tick, err)
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
