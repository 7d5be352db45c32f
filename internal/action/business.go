package action

import (
	"context"
	"database/sql"

	"clawcity/internal/model"
)

const businessStartupCost int64 = 3000

func handleStartBusiness(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	name, err := argStr(args, "name")
	if err != nil {
		return "", nil, err
	}
	if agent.Cash < businessStartupCost {
		return "", nil, Fail(ErrInsufficientFunds, "starting a business costs 3000 cash")
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, businessStartupCost, "business startup", 0); err != nil {
		return "", nil, err
	}
	b := &model.Business{
		ZoneID: agent.LocationZoneID, Name: name, OwnerAgentID: agent.ID,
		CashOnHand: 0, Inventory: map[string]model.BusinessItem{},
	}
	id, err := d.Store.InsertBusiness(ctx, tx, b)
	if err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "BUSINESS_STARTED", agent.ID, agent.LocationZoneID, id, map[string]any{"name": name}, requestID); err != nil {
		return "", nil, err
	}
	return "business opened", map[string]any{"businessId": id}, nil
}

func handleSetPrices(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	businessID, err := argInt64(args, "businessId")
	if err != nil {
		return "", nil, err
	}
	itemID, err := argStr(args, "itemId")
	if err != nil {
		return "", nil, err
	}
	price, err := argInt64(args, "price")
	if err != nil {
		return "", nil, err
	}
	if price < 0 {
		return "", nil, Fail(ErrBadArgs, "price cannot be negative")
	}
	biz, err := d.Store.GetBusiness(ctx, tx, businessID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown business")
		}
		return "", nil, err
	}
	if biz.OwnerAgentID != agent.ID {
		return "", nil, Fail(ErrPreconditionFail, "you do not own this business")
	}
	line := biz.Inventory[itemID]
	line.Price = price
	biz.Inventory[itemID] = line
	if err := d.Store.UpdateBusiness(ctx, tx, biz); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "PRICES_SET", agent.ID, agent.LocationZoneID, biz.ID, map[string]any{"itemId": itemID, "price": price}, requestID); err != nil {
		return "", nil, err
	}
	return "price updated", map[string]any{"itemId": itemID, "price": price}, nil
}

func handleStockBusiness(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
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
	item, err := d.Store.GetItem(ctx, tx, itemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown item "+itemID)
		}
		return "", nil, err
	}
	biz, err := d.Store.GetBusiness(ctx, tx, businessID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown business")
		}
		return "", nil, err
	}
	if biz.OwnerAgentID != agent.ID {
		return "", nil, Fail(ErrPreconditionFail, "you do not own this business")
	}
	cost := item.Price * int64(qty)
	if agent.Cash < cost {
		return "", nil, Fail(ErrInsufficientFunds, "not enough cash to stock this item")
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, cost, "business restock", 0); err != nil {
		return "", nil, err
	}
	line := biz.Inventory[itemID]
	line.Qty += qty
	if line.Price == 0 {
		line.Price = item.Price * 2
	}
	biz.Inventory[itemID] = line
	if err := d.Store.UpdateBusiness(ctx, tx, biz); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "BUSINESS_STOCKED", agent.ID, agent.LocationZoneID, biz.ID, map[string]any{"itemId": itemID, "qty": qty}, requestID); err != nil {
		return "", nil, err
	}
	return "business stocked", map[string]any{"itemId": itemID, "qty": line.Qty}, nil
}
