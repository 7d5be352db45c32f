package action

import (
	"context"
	"database/sql"

	"clawcity/internal/model"
	"clawcity/internal/security"
)

func handleMove(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	toZone, err := argStr(args, "toZone")
	if err != nil {
		return "", nil, err
	}
	edge, err := d.Store.GetZoneEdge(ctx, tx, agent.LocationZoneID, toZone)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrPreconditionFail, "no route from current zone to "+toZone)
		}
		return "", nil, err
	}
	if edge.CashCost > 0 {
		if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, edge.CashCost, "travel cost", 0); err != nil {
			return "", nil, err
		}
	}
	if security.Chance("move-risk", agent.ID, requestID) < edge.HeatRisk {
		agent.Heat = clampInt(agent.Heat+5, 0, d.Config.MaxHeat)
	}
	agent.Status = model.StatusBusy
	agent.BusyAction = "move:" + toZone
	agent.BusyUntilTick = int64(world.Tick) + edge.TimeCostTicks
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "MOVE_STARTED", agent.ID, agent.LocationZoneID, 0, map[string]any{"toZone": toZone}, requestID); err != nil {
		return "", nil, err
	}
	return "travel started", map[string]any{"busyUntilTick": agent.BusyUntilTick}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
