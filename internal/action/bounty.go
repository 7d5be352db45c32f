package action

import (
	"context"
	"database/sql"
	"time"

	"clawcity/internal/model"
)

func handlePlaceBounty(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	targetID, err := argInt64(args, "targetAgentId")
	if err != nil {
		return "", nil, err
	}
	amount, err := argInt64(args, "amount")
	if err != nil {
		return "", nil, err
	}
	if amount < d.Config.BountyMin || amount > d.Config.BountyMax {
		return "", nil, Fail(ErrBadArgs, "amount out of allowed bounty range")
	}
	if targetID == agent.ID {
		return "", nil, Fail(ErrBadArgs, "cannot place a bounty on yourself")
	}
	target, err := d.Store.GetAgent(ctx, tx, targetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrPreconditionFail, "target not found")
		}
		return "", nil, err
	}
	if target.Banned() {
		return "", nil, Fail(ErrPreconditionFail, "target is banned")
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, amount, "bounty escrow", 0); err != nil {
		return "", nil, err
	}
	b := &model.Bounty{
		TargetAgentID: targetID, PlacedByAgentID: agent.ID, Amount: amount, Status: model.BountyActive,
		CreatedAt: time.Now(), CreatedAtTick: world.Tick, ExpiresAt: int64(world.Tick) + 200,
	}
	id, err := d.Store.InsertBounty(ctx, tx, b)
	if err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "BOUNTY_PLACED", agent.ID, agent.LocationZoneID, id, map[string]any{"targetAgentId": targetID, "amount": amount}, requestID); err != nil {
		return "", nil, err
	}
	return "bounty placed", map[string]any{"bountyId": id}, nil
}

func handleClaimBounty(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	bountyID, err := argInt64(args, "bountyId")
	if err != nil {
		return "", nil, err
	}
	b, err := d.Store.GetBounty(ctx, tx, bountyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown bounty")
		}
		return "", nil, err
	}
	if b.Status != model.BountyActive {
		return "", nil, Fail(ErrPreconditionFail, "bounty is not active")
	}
	killed, err := d.Store.FindKillEvent(ctx, tx, agent.ID, b.TargetAgentID, b.CreatedAtTick)
	if err != nil {
		return "", nil, err
	}
	if !killed {
		return "", nil, Fail(ErrPreconditionFail, "no qualifying kill on record for this claimer")
	}
	if err := d.Store.UpdateBountyStatus(ctx, tx, b.ID, model.BountyClaimed, agent.ID); err != nil {
		return "", nil, err
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerCredit, b.Amount, "bounty claimed", 0); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "BOUNTY_CLAIMED", agent.ID, agent.LocationZoneID, b.ID, map[string]any{"amount": b.Amount}, requestID); err != nil {
		return "", nil, err
	}
	return "bounty claimed", map[string]any{"amount": b.Amount}, nil
}
