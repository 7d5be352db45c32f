package action

import (
	"context"
	"database/sql"
	"time"

	"clawcity/internal/model"
)

const gangCreationCost int64 = 5000
const territoryClaimCost int64 = 2000
const gangBanTicks int64 = 1000

func handleCreateGang(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	if agent.GangID != 0 {
		return "", nil, Fail(ErrPreconditionFail, "already in a gang")
	}
	if agent.GangBanUntilTick > int64(world.Tick) {
		return "", nil, Fail(ErrPreconditionFail, "banned from forming or joining a gang")
	}
	name, err := argStr(args, "name")
	if err != nil {
		return "", nil, err
	}
	if agent.Cash < gangCreationCost {
		return "", nil, Fail(ErrInsufficientFunds, "gang charters cost 5000 cash")
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, gangCreationCost, "gang charter", 0); err != nil {
		return "", nil, err
	}
	g := &model.Gang{Name: name, HomeZoneID: agent.LocationZoneID, Treasury: 0, Reputation: 0, MemberCount: 1, CreatedAt: time.Now()}
	gangID, err := d.Store.InsertGang(ctx, tx, g)
	if err != nil {
		return "", nil, err
	}
	if err := d.Store.InsertGangMember(ctx, tx, gangID, agent.ID, time.Now()); err != nil {
		return "", nil, err
	}
	agent.GangID = gangID
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "GANG_CREATED", agent.ID, agent.LocationZoneID, gangID, map[string]any{"name": name}, requestID); err != nil {
		return "", nil, err
	}
	return "gang founded", map[string]any{"gangId": gangID}, nil
}

func handleInviteToGang(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	if agent.GangID == 0 {
		return "", nil, Fail(ErrPreconditionFail, "not in a gang")
	}
	targetID, err := argInt64(args, "targetAgentId")
	if err != nil {
		return "", nil, err
	}
	target, err := d.Store.GetAgent(ctx, tx, targetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrPreconditionFail, "target not found")
		}
		return "", nil, err
	}
	if target.GangID != 0 {
		return "", nil, Fail(ErrPreconditionFail, "target already belongs to a gang")
	}
	if target.GangBanUntilTick > int64(world.Tick) {
		return "", nil, Fail(ErrPreconditionFail, "target is banned from joining a gang")
	}
	inv := &model.GangInvite{
		GangID: agent.GangID, AgentID: targetID, InvitedByAgentID: agent.ID,
		Status: model.InviteStatusPending, ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	id, err := d.Store.InsertGangInvite(ctx, tx, inv)
	if err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "GANG_INVITE_SENT", agent.ID, agent.LocationZoneID, targetID, map[string]any{"inviteId": id}, requestID); err != nil {
		return "", nil, err
	}
	return "invite sent", map[string]any{"inviteId": id}, nil
}

func handleRespondGangInvite(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	inviteID, err := argInt64(args, "inviteId")
	if err != nil {
		return "", nil, err
	}
	accept, err := argBool(args, "accept")
	if err != nil {
		return "", nil, err
	}
	inv, err := d.Store.GetGangInvite(ctx, tx, inviteID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown invite")
		}
		return "", nil, err
	}
	if inv.AgentID != agent.ID || inv.Status != model.InviteStatusPending {
		return "", nil, Fail(ErrPreconditionFail, "no pending invite for this agent")
	}
	if !accept {
		if err := d.Store.UpdateGangInviteStatus(ctx, tx, inv.ID, model.InviteStatusDeclined); err != nil {
			return "", nil, err
		}
		return "invite declined", nil, nil
	}
	if agent.GangID != 0 {
		return "", nil, Fail(ErrPreconditionFail, "already in a gang")
	}
	g, err := d.Store.GetGang(ctx, tx, inv.GangID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrPreconditionFail, "gang no longer exists")
		}
		return "", nil, err
	}
	if err := d.Store.InsertGangMember(ctx, tx, g.ID, agent.ID, time.Now()); err != nil {
		return "", nil, err
	}
	g.MemberCount++
	if err := d.Store.UpdateGang(ctx, tx, g); err != nil {
		return "", nil, err
	}
	if err := d.Store.UpdateGangInviteStatus(ctx, tx, inv.ID, model.InviteStatusAccepted); err != nil {
		return "", nil, err
	}
	agent.GangID = g.ID
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "GANG_JOINED", agent.ID, agent.LocationZoneID, g.ID, nil, requestID); err != nil {
		return "", nil, err
	}
	return "joined gang", map[string]any{"gangId": g.ID}, nil
}

func handleLeaveGang(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	if agent.GangID == 0 {
		return "", nil, Fail(ErrPreconditionFail, "not in a gang")
	}
	g, err := d.Store.GetGang(ctx, tx, agent.GangID)
	if err != nil {
		if err == sql.ErrNoRows {
			agent.GangID = 0
			return "left gang", nil, nil
		}
		return "", nil, err
	}
	if err := d.Store.DeleteGangMember(ctx, tx, agent.ID); err != nil {
		return "", nil, err
	}
	g.MemberCount--
	if g.MemberCount <= 0 {
		if err := d.Store.DeleteGang(ctx, tx, g.ID); err != nil {
			return "", nil, err
		}
	} else if err := d.Store.UpdateGang(ctx, tx, g); err != nil {
		return "", nil, err
	}
	gangID := agent.GangID
	agent.GangID = 0
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "GANG_LEFT", agent.ID, agent.LocationZoneID, gangID, nil, requestID); err != nil {
		return "", nil, err
	}
	return "left gang", nil, nil
}

func handleContributeToGang(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	if agent.GangID == 0 {
		return "", nil, Fail(ErrPreconditionFail, "not in a gang")
	}
	amount, err := argInt64(args, "amount")
	if err != nil {
		return "", nil, err
	}
	if amount <= 0 {
		return "", nil, Fail(ErrBadArgs, "amount must be positive")
	}
	if agent.Cash < amount {
		return "", nil, Fail(ErrInsufficientFunds, "not enough cash to contribute")
	}
	g, err := d.Store.GetGang(ctx, tx, agent.GangID)
	if err != nil {
		return "", nil, err
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, amount, "gang contribution", 0); err != nil {
		return "", nil, err
	}
	g.Treasury += amount
	if err := d.Store.UpdateGang(ctx, tx, g); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "GANG_CONTRIBUTION", agent.ID, agent.LocationZoneID, g.ID, map[string]any{"amount": amount}, requestID); err != nil {
		return "", nil, err
	}
	return "contributed to treasury", map[string]any{"treasury": g.Treasury}, nil
}

func handleClaimTerritory(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	if agent.GangID == 0 {
		return "", nil, Fail(ErrPreconditionFail, "not in a gang")
	}
	zoneID, err := argStr(args, "zoneId")
	if err != nil {
		return "", nil, err
	}
	if _, err := d.Store.GetZone(ctx, tx, zoneID); err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrBadArgs, "unknown zone")
		}
		return "", nil, err
	}
	g, err := d.Store.GetGang(ctx, tx, agent.GangID)
	if err != nil {
		return "", nil, err
	}
	if g.Treasury < territoryClaimCost {
		return "", nil, Fail(ErrInsufficientFunds, "gang treasury cannot afford this claim")
	}
	existing, found, err := d.Store.GetTerritory(ctx, tx, zoneID)
	if err != nil {
		return "", nil, err
	}
	if found && existing.GangID == g.ID {
		return "", nil, Fail(ErrPreconditionFail, "your gang already controls this zone")
	}
	if found && existing.ControlStrength >= 50 {
		return "", nil, Fail(ErrPreconditionFail, "territory is too strongly defended to contest")
	}
	g.Treasury -= territoryClaimCost
	if err := d.Store.UpdateGang(ctx, tx, g); err != nil {
		return "", nil, err
	}
	t := &model.Territory{ZoneID: zoneID, GangID: g.ID, ControlStrength: 20, IncomePerTick: 10, ClaimedAt: time.Now(), LastDefendedTick: int64(world.Tick)}
	if err := d.Store.UpsertTerritory(ctx, tx, t); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "TERRITORY_CLAIMED", agent.ID, zoneID, g.ID, nil, requestID); err != nil {
		return "", nil, err
	}
	return "territory claimed", map[string]any{"zoneId": zoneID}, nil
}

func handleBetrayGang(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	if agent.GangID == 0 {
		return "", nil, Fail(ErrPreconditionFail, "not in a gang")
	}
	g, err := d.Store.GetGang(ctx, tx, agent.GangID)
	if err != nil {
		if err == sql.ErrNoRows {
			agent.GangID = 0
			return "betrayed an already-defunct gang", nil, nil
		}
		return "", nil, err
	}
	payout := g.Treasury
	if payout > 0 {
		if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerCredit, payout, "gang treasury seized", 0); err != nil {
			return "", nil, err
		}
	}
	if err := d.Store.DeleteGangMembersByGang(ctx, tx, g.ID); err != nil {
		return "", nil, err
	}
	if err := d.Store.DeleteGang(ctx, tx, g.ID); err != nil {
		return "", nil, err
	}
	gangID := g.ID
	agent.GangID = 0
	agent.GangBanUntilTick = int64(world.Tick) + gangBanTicks
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "GANG_BETRAYED", agent.ID, agent.LocationZoneID, gangID, map[string]any{"seized": payout}, requestID); err != nil {
		return "", nil, err
	}
	return "gang betrayed", map[string]any{"seized": payout}, nil
}
