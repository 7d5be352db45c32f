package action

import (
	"context"
	"database/sql"
	"time"

	"clawcity/internal/model"
	"clawcity/internal/store"
)

func handleSendMessage(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	toAgentID, err := argInt64(args, "toAgentId")
	if err != nil {
		return "", nil, err
	}
	body, err := argStr(args, "body")
	if err != nil {
		return "", nil, err
	}
	to, err := d.Store.GetAgent(ctx, tx, toAgentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrPreconditionFail, "recipient not found")
		}
		return "", nil, err
	}
	if to.Banned() {
		return "", nil, Fail(ErrPreconditionFail, "recipient is banned")
	}
	id, err := d.Store.InsertMessage(ctx, tx, model.Message{FromAgentID: agent.ID, ToAgentID: toAgentID, Body: body, SentAtTick: int64(world.Tick)})
	if err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "MESSAGE_SENT", agent.ID, agent.LocationZoneID, toAgentID, map[string]any{"messageId": id}, requestID); err != nil {
		return "", nil, err
	}
	return "message sent", map[string]any{"messageId": id}, nil
}

func handleSendFriendRequest(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	targetID, err := argInt64(args, "targetAgentId")
	if err != nil {
		return "", nil, err
	}
	if targetID == agent.ID {
		return "", nil, Fail(ErrBadArgs, "cannot friend yourself")
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
	a1, a2 := store.CanonicalPair(agent.ID, targetID)
	existing, found, err := d.Store.GetFriendship(ctx, tx, a1, a2)
	if err != nil {
		return "", nil, err
	}
	if found && existing.Status != model.FriendshipBlocked {
		return "", nil, Fail(ErrPreconditionFail, "friendship request already exists")
	}
	if found && existing.Status == model.FriendshipBlocked {
		return "", nil, Fail(ErrPreconditionFail, "cannot friend a blocked agent")
	}
	f := &model.Friendship{
		Agent1ID: a1, Agent2ID: a2, Status: model.FriendshipPending, InitiatorID: agent.ID,
		Strength: 0, Loyalty: 0, LastInteractionTick: int64(world.Tick), CreatedAt: time.Now(),
	}
	if err := d.Store.UpsertFriendship(ctx, tx, f); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "FRIEND_REQUEST_SENT", agent.ID, agent.LocationZoneID, targetID, nil, requestID); err != nil {
		return "", nil, err
	}
	return "friend request sent", nil, nil
}

func handleRespondFriendRequest(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	fromAgentID, err := argInt64(args, "fromAgentId")
	if err != nil {
		return "", nil, err
	}
	accept, err := argBool(args, "accept")
	if err != nil {
		return "", nil, err
	}
	a1, a2 := store.CanonicalPair(agent.ID, fromAgentID)
	f, found, err := d.Store.GetFriendship(ctx, tx, a1, a2)
	if err != nil {
		return "", nil, err
	}
	if !found || f.Status != model.FriendshipPending || f.InitiatorID == agent.ID {
		return "", nil, Fail(ErrPreconditionFail, "no pending friend request from this agent")
	}
	if accept {
		f.Status = model.FriendshipAccepted
		f.Strength = 10
		f.Loyalty = 10
	} else {
		f.Status = model.FriendshipBlocked
	}
	f.LastInteractionTick = int64(world.Tick)
	if err := d.Store.UpsertFriendship(ctx, tx, f); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "FRIEND_REQUEST_RESPONDED", agent.ID, agent.LocationZoneID, fromAgentID, map[string]any{"accepted": accept}, requestID); err != nil {
		return "", nil, err
	}
	return "responded", map[string]any{"accepted": accept}, nil
}

func handleGiftCash(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	toAgentID, err := argInt64(args, "toAgentId")
	if err != nil {
		return "", nil, err
	}
	amount, err := argInt64(args, "amount")
	if err != nil {
		return "", nil, err
	}
	if amount <= 0 {
		return "", nil, Fail(ErrBadArgs, "amount must be positive")
	}
	to, err := d.Store.GetAgent(ctx, tx, toAgentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrPreconditionFail, "recipient not found")
		}
		return "", nil, err
	}
	if to.Banned() {
		return "", nil, Fail(ErrPreconditionFail, "recipient is banned")
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, amount, "gift sent", 0); err != nil {
		return "", nil, err
	}
	if err := d.Ledger.Post(ctx, tx, to, world.Tick, model.LedgerCredit, amount, "gift received", 0); err != nil {
		return "", nil, err
	}
	if err := d.Store.UpdateAgent(ctx, tx, to); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "GIFT_CASH", agent.ID, agent.LocationZoneID, toAgentID, map[string]any{"amount": amount}, requestID); err != nil {
		return "", nil, err
	}
	return "cash gifted", map[string]any{"amount": amount}, nil
}

func handleGiftItem(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	toAgentID, err := argInt64(args, "toAgentId")
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
	if agent.Inventory[itemID] < qty {
		return "", nil, Fail(ErrInsufficientInv, "not enough "+itemID+" to gift")
	}
	to, err := d.Store.GetAgent(ctx, tx, toAgentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, Fail(ErrPreconditionFail, "recipient not found")
		}
		return "", nil, err
	}
	if to.Banned() {
		return "", nil, Fail(ErrPreconditionFail, "recipient is banned")
	}
	agent.Inventory[itemID] -= qty
	if agent.Inventory[itemID] <= 0 {
		delete(agent.Inventory, itemID)
	}
	if to.Inventory == nil {
		to.Inventory = map[string]int{}
	}
	to.Inventory[itemID] += qty
	if err := d.Store.UpdateAgent(ctx, tx, to); err != nil {
		return "", nil, err
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "GIFT_ITEM", agent.ID, agent.LocationZoneID, toAgentID, map[string]any{"itemId": itemID, "qty": qty}, requestID); err != nil {
		return "", nil, err
	}
	return "item gifted", map[string]any{"itemId": itemID, "qty": qty}, nil
}
