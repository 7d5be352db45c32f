// Package action implements the dispatcher: the single entry point
// through which every client mutation flows, plus the verb handlers
// for the full action catalog.
package action

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"golang.org/x/time/rate"

	"clawcity/internal/config"
	"clawcity/internal/coop"
	"clawcity/internal/idempotency"
	"clawcity/internal/ledger"
	"clawcity/internal/model"
	"clawcity/internal/store"
)

// Result mirrors the wire-level ActionResult exactly.
type Result struct {
	OK      bool           `json:"ok"`
	Tick    uint64         `json:"tick"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type handlerFunc func(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error)

// Dispatcher owns the transaction boundary and the handler registry.
// One Dispatcher per process, threaded explicitly like Config.
type Dispatcher struct {
	Store  *store.Store
	Ledger *ledger.Ledger
	Idem   *idempotency.Service
	Coop   *coop.Engine
	Config config.Config

	handlers map[string]handlerFunc

	limiterMu sync.Mutex
	limiters  map[int64]*rate.Limiter
}

func New(s *store.Store, l *ledger.Ledger, idem *idempotency.Service, coopEngine *coop.Engine, cfg config.Config) *Dispatcher {
	d := &Dispatcher{Store: s, Ledger: l, Idem: idem, Coop: coopEngine, Config: cfg, limiters: map[int64]*rate.Limiter{}}
	d.handlers = map[string]handlerFunc{
		"MOVE":                  handleMove,
		"TAKE_JOB":              handleTakeJob,
		"BUY":                   handleBuy,
		"SELL":                  handleSell,
		"HEAL":                  handleHeal,
		"REST":                  handleRest,
		"USE_ITEM":              handleUseItem,
		"COMMIT_CRIME":          handleCommitCrime,
		"ROB_AGENT":             handleRobAgent,
		"ATTACK_AGENT":          handleAttackAgent,
		"INITIATE_COOP_CRIME":   handleInitiateCoopCrime,
		"JOIN_COOP_ACTION":      handleJoinCoopAction,
		"PLACE_BOUNTY":          handlePlaceBounty,
		"CLAIM_BOUNTY":          handleClaimBounty,
		"GAMBLE":                handleGamble,
		"BUY_DISGUISE":          handleBuyDisguise,
		"STEAL_VEHICLE":         handleStealVehicle,
		"ACCEPT_CONTRACT":       handleAcceptContract,
		"ATTEMPT_JAILBREAK":     handleAttemptJailbreak,
		"BRIBE_COPS":            handleBribeCops,
		"SEND_MESSAGE":          handleSendMessage,
		"SEND_FRIEND_REQUEST":   handleSendFriendRequest,
		"RESPOND_FRIEND_REQUEST": handleRespondFriendRequest,
		"GIFT_CASH":             handleGiftCash,
		"GIFT_ITEM":             handleGiftItem,
		"CREATE_GANG":           handleCreateGang,
		"INVITE_TO_GANG":        handleInviteToGang,
		"RESPOND_GANG_INVITE":   handleRespondGangInvite,
		"LEAVE_GANG":            handleLeaveGang,
		"CONTRIBUTE_TO_GANG":    handleContributeToGang,
		"CLAIM_TERRITORY":       handleClaimTerritory,
		"BETRAY_GANG":           handleBetrayGang,
		"BUY_PROPERTY":          handleBuyProperty,
		"RENT_PROPERTY":         handleRentProperty,
		"SELL_PROPERTY":         handleSellProperty,
		"START_BUSINESS":        handleStartBusiness,
		"SET_PRICES":            handleSetPrices,
		"STOCK_BUSINESS":        handleStockBusiness,
	}
	return d
}

// KnownAction reports whether actionName routes to a registered
// handler, used by the HTTP layer to return 400 UNKNOWN_ACTION before
// any transaction or idempotency reservation is spent on it.
func (d *Dispatcher) KnownAction(actionName string) bool {
	_, ok := d.handlers[actionName]
	return ok
}

var jailbreakExempt = map[string]bool{"ATTEMPT_JAILBREAK": true, "BRIBE_COPS": true}

// Act is the single public entry point for agent mutations. agentID
// has already been authenticated by the caller
// (internal/httpapi's auth middleware, by key-hash lookup); Act owns
// everything from the idempotency check onward.
func (d *Dispatcher) Act(ctx context.Context, agentID int64, requestID, actionName string, args map[string]any) (*Result, error) {
	handler, known := d.handlers[actionName]
	if !known {
		return &Result{OK: false, Error: ErrUnknownAction, Message: "no such action: " + actionName}, nil
	}
	if requestID == "" {
		return &Result{OK: false, Error: ErrMissingRequestID}, nil
	}
	if !d.limiterFor(agentID).Allow() {
		return &Result{OK: false, Error: ErrRateLimited, Message: "too many actions, slow down"}, nil
	}

	tx, err := d.Store.BeginSerializable(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	outcome, stored, err := d.Idem.CheckAndReserve(ctx, tx, agentID, requestID)
	if err != nil {
		return nil, err
	}
	switch outcome {
	case idempotency.LockHasResult:
		var r Result
		if err := json.Unmarshal(stored, &r); err != nil {
			return nil, err
		}
		tx.Rollback()
		committed = true // nothing to commit; rollback already issued
		return &r, nil
	case idempotency.LockInProgress:
		tx.Rollback()
		committed = true
		return &Result{OK: false, Error: ErrDuplicateInFlight}, nil
	}

	world, err := d.Store.GetWorldTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	agent, err := d.Store.GetAgent(ctx, tx, agentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return d.finishDeterministic(ctx, tx, agentID, requestID, world.Tick, Fail(ErrAgentNotFound, "agent not found"))
		}
		return nil, err
	}
	if agent.Banned() {
		return d.finishDeterministic(ctx, tx, agentID, requestID, world.Tick, Fail(ErrAgentBanned, "agent is banned"))
	}
	if agent.Status == model.StatusJailed && !jailbreakExempt[actionName] {
		return d.finishDeterministic(ctx, tx, agentID, requestID, world.Tick, Fail(ErrInvalidStatus, "agent is jailed"))
	}
	if agent.Status == model.StatusHospitalized {
		return d.finishDeterministic(ctx, tx, agentID, requestID, world.Tick, Fail(ErrInvalidStatus, "agent is hospitalized"))
	}
	if agent.Status == model.StatusBusy {
		return d.finishDeterministic(ctx, tx, agentID, requestID, world.Tick, Fail(ErrAgentBusy, "agent is busy"))
	}

	message, data, herr := handler(ctx, d, tx, &world, agent, requestID, args)
	if herr != nil {
		if detErr, ok := IsDeterministic(herr); ok {
			return d.finishDeterministic(ctx, tx, agentID, requestID, world.Tick, detErr)
		}
		// transient/unexpected: roll back everything, including the
		// reservation, so the client may retry with the same requestId.
		return &Result{OK: false, Tick: world.Tick, Error: ErrInternal, Message: herr.Error()}, nil
	}

	if err := d.Store.UpdateAgent(ctx, tx, agent); err != nil {
		return nil, err
	}

	result := &Result{OK: true, Tick: world.Tick, Message: message, Data: data}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := d.Idem.Complete(ctx, tx, agentID, requestID, payload); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return result, nil
}

// limiterFor returns agentID's per-agent throttle, lazily creating one
// on first use. Mirrors the httpapi layer's per-IP ipLimiters map, but
// scoped to agentId instead of remote address, so a single agent cannot
// flood the dispatcher with serialized-but-expensive requests even
// though every request it sends is individually well-formed.
func (d *Dispatcher) limiterFor(agentID int64) *rate.Limiter {
	d.limiterMu.Lock()
	defer d.limiterMu.Unlock()
	l, ok := d.limiters[agentID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(d.Config.ActionRateLimitPerSec), d.Config.ActionRateLimitBurst)
		d.limiters[agentID] = l
	}
	return l
}

func (d *Dispatcher) finishDeterministic(ctx context.Context, tx *sql.Tx, agentID int64, requestID string, tick uint64, detErr *Error) (*Result, error) {
	result := &Result{OK: false, Tick: tick, Error: detErr.Code, Message: detErr.Message}
	payload, err := json.Marshal(result)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := d.Idem.Complete(ctx, tx, agentID, requestID, payload); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}
