package action

import (
	"context"
	"database/sql"

	"clawcity/internal/model"
)

const hospitalZone = "hospital"

func handleHeal(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	if agent.LocationZoneID != hospitalZone {
		return "", nil, Fail(ErrPreconditionFail, "must be at the hospital to heal")
	}
	damage := 100 - agent.Health
	if damage <= 0 {
		return "", nil, Fail(ErrPreconditionFail, "already at full health")
	}
	cost := int64(damage) * 2
	if cost > 0 {
		if agent.Cash < cost {
			return "", nil, Fail(ErrInsufficientFunds, "not enough cash to cover treatment")
		}
		if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, cost, "hospital treatment", 0); err != nil {
			return "", nil, err
		}
	}
	duration := int64(2 + damage/25)
	if duration > 5 {
		duration = 5
	}
	agent.Status = model.StatusBusy
	agent.BusyAction = "heal"
	agent.BusyUntilTick = int64(world.Tick) + duration
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "HEAL_STARTED", agent.ID, agent.LocationZoneID, 0, map[string]any{"cost": cost}, requestID); err != nil {
		return "", nil, err
	}
	return "treatment started", map[string]any{"busyUntilTick": agent.BusyUntilTick, "cost": cost}, nil
}

func handleRest(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	if agent.Stamina >= 100 {
		return "", nil, Fail(ErrPreconditionFail, "already at full stamina")
	}
	agent.Status = model.StatusBusy
	agent.BusyAction = "rest"
	agent.BusyUntilTick = int64(world.Tick) + 3
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "REST_STARTED", agent.ID, agent.LocationZoneID, 0, nil, requestID); err != nil {
		return "", nil, err
	}
	return "resting", map[string]any{"busyUntilTick": agent.BusyUntilTick}, nil
}

func handleUseItem(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	itemID, err := argStr(args, "itemId")
	if err != nil {
		return "", nil, err
	}
	if agent.Inventory[itemID] <= 0 {
		return "", nil, Fail(ErrInsufficientInv, "no "+itemID+" in inventory")
	}
	item, err := d.Store.GetItem(ctx, tx, itemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown item "+itemID)
		}
		return "", nil, err
	}
	agent.Health = clampInt(agent.Health+item.HealthDelta, 0, 100)
	agent.Stamina = clampInt(agent.Stamina+item.StaminaDelta, 0, 100)
	agent.Heat = clampInt(agent.Heat+item.HeatDelta, 0, d.Config.MaxHeat)
	agent.Inventory[itemID]--
	if agent.Inventory[itemID] <= 0 {
		delete(agent.Inventory, itemID)
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "ITEM_USED", agent.ID, agent.LocationZoneID, 0, map[string]any{"itemId": itemID}, requestID); err != nil {
		return "", nil, err
	}
	return "item used", map[string]any{"health": agent.Health, "stamina": agent.Stamina, "heat": agent.Heat}, nil
}
