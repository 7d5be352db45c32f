package action

import (
	"context"
	"database/sql"

	"clawcity/internal/model"
)

const rentIntervalTicks int64 = 50

func handleBuyProperty(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	propertyID, err := argInt64(args, "propertyId")
	if err != nil {
		return "", nil, err
	}
	p, err := d.Store.GetProperty(ctx, tx, propertyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown property")
		}
		return "", nil, err
	}
	if p.OwnerAgentID != 0 {
		return "", nil, Fail(ErrPreconditionFail, "property is already owned")
	}
	if agent.Cash < p.Price {
		return "", nil, Fail(ErrInsufficientFunds, "not enough cash to buy this property")
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, p.Price, "property purchase", 0); err != nil {
		return "", nil, err
	}
	p.OwnerAgentID = agent.ID
	p.ForRent = false
	if err := d.Store.UpdateProperty(ctx, tx, p); err != nil {
		return "", nil, err
	}
	if _, found, err := d.Store.GetResidentByProperty(ctx, tx, p.ID); err == nil && found {
		if err := d.Store.DeleteResident(ctx, tx, p.ID); err != nil {
			return "", nil, err
		}
	}
	agent.HomePropertyID = p.ID
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "PROPERTY_BOUGHT", agent.ID, p.ZoneID, p.ID, map[string]any{"price": p.Price}, requestID); err != nil {
		return "", nil, err
	}
	return "property purchased", map[string]any{"propertyId": p.ID}, nil
}

func handleRentProperty(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	propertyID, err := argInt64(args, "propertyId")
	if err != nil {
		return "", nil, err
	}
	p, err := d.Store.GetProperty(ctx, tx, propertyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown property")
		}
		return "", nil, err
	}
	if !p.ForRent || p.OwnerAgentID == agent.ID {
		return "", nil, Fail(ErrPreconditionFail, "property is not available for rent")
	}
	if _, found, err := d.Store.GetResidentByProperty(ctx, tx, p.ID); err != nil {
		return "", nil, err
	} else if found {
		return "", nil, Fail(ErrPreconditionFail, "property already has a resident")
	}
	if agent.Cash < p.RentPerTick {
		return "", nil, Fail(ErrInsufficientFunds, "not enough cash to cover first rent")
	}
	r := model.PropertyResident{PropertyID: p.ID, AgentID: agent.ID, RentDueAt: int64(world.Tick) + rentIntervalTicks}
	if err := d.Store.UpsertResident(ctx, tx, r); err != nil {
		return "", nil, err
	}
	agent.HomePropertyID = p.ID
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "PROPERTY_RENTED", agent.ID, p.ZoneID, p.ID, map[string]any{"rentPerTick": p.RentPerTick}, requestID); err != nil {
		return "", nil, err
	}
	return "property rented", map[string]any{"propertyId": p.ID, "rentDueAt": r.RentDueAt}, nil
}

func handleSellProperty(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	propertyID, err := argInt64(args, "propertyId")
	if err != nil {
		return "", nil, err
	}
	p, err := d.Store.GetProperty(ctx, tx, propertyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown property")
		}
		return "", nil, err
	}
	if p.OwnerAgentID != agent.ID {
		return "", nil, Fail(ErrPreconditionFail, "you do not own this property")
	}
	if resident, found, err := d.Store.GetResidentByProperty(ctx, tx, p.ID); err != nil {
		return "", nil, err
	} else if found && resident.AgentID != agent.ID {
		return "", nil, Fail(ErrPreconditionFail, "property is occupied by a renter")
	} else if found {
		if err := d.Store.DeleteResident(ctx, tx, p.ID); err != nil {
			return "", nil, err
		}
	}
	salePrice := p.Price / 2
	p.OwnerAgentID = 0
	p.ForRent = false
	if err := d.Store.UpdateProperty(ctx, tx, p); err != nil {
		return "", nil, err
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerCredit, salePrice, "property sold back", 0); err != nil {
		return "", nil, err
	}
	if agent.HomePropertyID == p.ID {
		agent.HomePropertyID = 0
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "PROPERTY_SOLD", agent.ID, p.ZoneID, p.ID, map[string]any{"price": salePrice}, requestID); err != nil {
		return "", nil, err
	}
	return "property sold", map[string]any{"propertyId": p.ID, "price": salePrice}, nil
}
