package action

import (
	"context"
	"database/sql"

	"clawcity/internal/model"
)

func handleTakeJob(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	jobID, err := argStr(args, "jobId")
	if err != nil {
		return "", nil, err
	}
	job, err := d.Store.GetJob(ctx, tx, jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown job "+jobID)
		}
		return "", nil, err
	}
	if job.ZoneID != agent.LocationZoneID {
		return "", nil, Fail(ErrPreconditionFail, "job is not available in this zone")
	}
	if agent.Reputation < job.MinReputation {
		return "", nil, Fail(ErrPreconditionFail, "reputation too low for this job")
	}
	if agent.Skills.Driving < job.MinSkillDriving {
		return "", nil, Fail(ErrPreconditionFail, "driving skill too low for this job")
	}
	if agent.Stamina < job.StaminaCost {
		return "", nil, Fail(ErrPreconditionFail, "not enough stamina for this job")
	}
	agent.Stamina -= job.StaminaCost
	agent.Status = model.StatusBusy
	agent.BusyAction = "job:" + jobID
	agent.BusyUntilTick = int64(world.Tick) + job.DurationTicks
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "JOB_STARTED", agent.ID, agent.LocationZoneID, 0, map[string]any{"jobId": jobID}, requestID); err != nil {
		return "", nil, err
	}
	return "job started", map[string]any{"busyUntilTick": agent.BusyUntilTick}, nil
}

func handleBuy(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	return tradeBusiness(ctx, d, tx, world, agent, requestID, args, true)
}

func handleSell(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	return tradeBusiness(ctx, d, tx, world, agent, requestID, args, false)
}

func tradeBusiness(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any, buying bool) (string, map[string]any, error) {
	businessID, err := argInt64(args, "businessId")
	if err != nil {
		return "", nil, err
	}
	itemID, err := argStr(args, "itemId")
	if err != nil {
		return "", nil, err
	}
	qty, err := argInt(args, "qty")
	if err != nil {
		return "", nil, err
	}
	if qty <= 0 {
		return "", nil, Fail(ErrBadArgs, "qty must be positive")
	}
	biz, err := d.Store.GetBusiness(ctx, tx, businessID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown business")
		}
		return "", nil, err
	}
	if biz.ZoneID != agent.LocationZoneID {
		return "", nil, Fail(ErrPreconditionFail, "business is not in this zone")
	}
	line, ok := biz.Inventory[itemID]
	if !ok {
		return "", nil, Fail(ErrBadArgs, "business does not carry "+itemID)
	}
	total := line.Price * int64(qty)

	eventType := "BUY"
	if buying {
		if line.Qty < qty {
			return "", nil, Fail(ErrInsufficientInv, "business does not have enough stock")
		}
		if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, total, "purchase from business", 0); err != nil {
			return "", nil, err
		}
		biz.CashOnHand += total
		line.Qty -= qty
		if agent.Inventory == nil {
			agent.Inventory = map[string]int{}
		}
		agent.Inventory[itemID] += qty
	} else {
		eventType = "SELL"
		if agent.Inventory[itemID] < qty {
			return "", nil, Fail(ErrInsufficientInv, "not enough "+itemID+" to sell")
		}
		if biz.CashOnHand < total {
			return "", nil, Fail(ErrPreconditionFail, "business cannot afford this purchase")
		}
		biz.CashOnHand -= total
		line.Qty += qty
		agent.Inventory[itemID] -= qty
		if agent.Inventory[itemID] <= 0 {
			delete(agent.Inventory, itemID)
		}
		if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerCredit, total, "sale to business", 0); err != nil {
			return "", nil, err
		}
	}
	biz.Inventory[itemID] = line
	if err := d.Store.UpdateBusiness(ctx, tx, biz); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, eventType, agent.ID, agent.LocationZoneID, biz.ID, map[string]any{"itemId": itemID, "qty": qty, "total": total}, requestID); err != nil {
		return "", nil, err
	}
	return eventType + " completed", map[string]any{"total": total}, nil
}
