package action

import (
	"context"
	"database/sql"

	"clawcity/internal/model"
)

var disguisePrices = map[string]int64{
	"hat_and_glasses": 50,
	"work_uniform":    150,
	"full_disguise":   500,
}

var disguiseHeatBonus = map[string]int{
	"hat_and_glasses": 2,
	"work_uniform":    4,
	"full_disguise":   8,
}

func handleBuyDisguise(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	disguiseType, err := argStr(args, "type")
	if err != nil {
		return "", nil, err
	}
	price, ok := disguisePrices[disguiseType]
	if !ok {
		return "", nil, Fail(ErrBadArgs, "unknown disguise type "+disguiseType)
	}
	if agent.Cash < price {
		return "", nil, Fail(ErrInsufficientFunds, "not enough cash for this disguise")
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, price, "disguise purchase", 0); err != nil {
		return "", nil, err
	}
	d2 := &model.Disguise{
		AgentID: agent.ID, Type: disguiseType, HeatBonus: disguiseHeatBonus[disguiseType],
		ExpiresAtTick: int64(world.Tick) + d.Config.DisguiseTicks,
	}
	id, err := d.Store.InsertDisguise(ctx, tx, d2)
	if err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "DISGUISE_PURCHASED", agent.ID, agent.LocationZoneID, id, map[string]any{"type": disguiseType}, requestID); err != nil {
		return "", nil, err
	}
	return "disguise acquired", map[string]any{"disguiseId": id, "expiresAtTick": d2.ExpiresAtTick}, nil
}

func handleStealVehicle(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	vehicleID, err := argInt64(args, "vehicleId")
	if err != nil {
		return "", nil, err
	}
	v, err := d.Store.GetVehicle(ctx, tx, vehicleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown vehicle")
		}
		return "", nil, err
	}
	if v.ZoneID != agent.LocationZoneID {
		return "", nil, Fail(ErrPreconditionFail, "vehicle is not in this zone")
	}
	if v.OwnerAgentID != 0 {
		return "", nil, Fail(ErrPreconditionFail, "vehicle is already owned")
	}
	v.StolenFromAgentID = v.OwnerAgentID
	v.OwnerAgentID = agent.ID
	if err := d.Store.UpdateVehicle(ctx, tx, v); err != nil {
		return "", nil, err
	}
	agent.VehicleID = v.ID
	agent.Heat = clampInt(agent.Heat+10, 0, d.Config.MaxHeat)
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "VEHICLE_STOLEN", agent.ID, agent.LocationZoneID, v.ID, nil, requestID); err != nil {
		return "", nil, err
	}
	return "vehicle stolen", map[string]any{"vehicleId": v.ID}, nil
}

func handleAcceptContract(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	contractID, err := argInt64(args, "contractId")
	if err != nil {
		return "", nil, err
	}
	c, err := d.Store.GetContract(ctx, tx, contractID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown contract")
		}
		return "", nil, err
	}
	if c.Status != model.ContractOpen {
		return "", nil, Fail(ErrPreconditionFail, "contract is not open")
	}
	if c.OfferedByAgentID == agent.ID {
		return "", nil, Fail(ErrPreconditionFail, "cannot accept your own contract")
	}
	if err := d.Store.UpdateContractStatus(ctx, tx, c.ID, model.ContractAccepted, agent.ID); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "CONTRACT_ACCEPTED", agent.ID, agent.LocationZoneID, c.ID, map[string]any{"payout": c.Payout}, requestID); err != nil {
		return "", nil, err
	}
	return "contract accepted", map[string]any{"contractId": c.ID, "payout": c.Payout}, nil
}
