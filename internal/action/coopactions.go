package action

import (
	"context"
	"database/sql"

	"clawcity/internal/coop"
	"clawcity/internal/model"
)

func handleInitiateCoopCrime(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	crimeType, err := argStr(args, "crimeType")
	if err != nil {
		return "", nil, err
	}
	if !coop.ValidType(crimeType) {
		return "", nil, Fail(ErrBadArgs, "unknown coop crime type "+crimeType)
	}
	minP, err := argInt(args, "minParticipants")
	if err != nil {
		return "", nil, err
	}
	maxP, err := argInt(args, "maxParticipants")
	if err != nil {
		return "", nil, err
	}
	if minP < 2 || maxP < minP {
		return "", nil, Fail(ErrBadArgs, "minParticipants must be >=2 and <= maxParticipants")
	}
	expireIn, err := argInt64(args, "expiresInTicks")
	if err != nil {
		return "", nil, err
	}
	if expireIn <= 0 {
		return "", nil, Fail(ErrBadArgs, "expiresInTicks must be positive")
	}

	c, err := d.Coop.Initiate(ctx, tx, world, agent, crimeType, agent.LocationZoneID, minP, maxP, expireIn)
	if err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "COOP_CRIME_INITIATED", agent.ID, agent.LocationZoneID, c.ID, map[string]any{"type": crimeType, "minParticipants": minP, "maxParticipants": maxP}, requestID); err != nil {
		return "", nil, err
	}
	return "coop action recruiting", map[string]any{"coopActionId": c.ID, "expiresAt": c.ExpiresAt}, nil
}

func handleJoinCoopAction(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	coopID, err := argInt64(args, "coopActionId")
	if err != nil {
		return "", nil, err
	}
	c, err := d.Store.GetCoopActionForUpdate(ctx, tx, coopID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown coop action")
		}
		return "", nil, err
	}
	if c.ZoneID != agent.LocationZoneID {
		return "", nil, Fail(ErrPreconditionFail, "must be in the same zone to join")
	}
	if err := d.Coop.Join(ctx, tx, world, c, agent); err != nil {
		switch err {
		case coop.ErrFull:
			return "", nil, Fail(ErrPreconditionFail, "coop action is full")
		case coop.ErrNotOpen:
			return "", nil, Fail(ErrPreconditionFail, "coop action is no longer recruiting")
		case coop.ErrAlreadyIn:
			return "", nil, Fail(ErrPreconditionFail, "already a participant")
		default:
			return "", nil, err
		}
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "COOP_CRIME_JOINED", agent.ID, agent.LocationZoneID, c.ID, map[string]any{"status": c.Status}, requestID); err != nil {
		return "", nil, err
	}
	return "joined coop action", map[string]any{"coopActionId": c.ID, "status": c.Status}, nil
}
