package action

import (
	"context"
	"database/sql"

	"clawcity/internal/model"
	"clawcity/internal/security"
)

const marketZone = "market"

type gambleTable struct {
	Probability float64
	Multiplier  float64
}

var gambleTables = map[string]gambleTable{
	"low":     {0.60, 1.5},
	"med":     {0.40, 2.5},
	"high":    {0.20, 5},
	"jackpot": {0.02, 50},
}

func handleGamble(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	if agent.LocationZoneID != marketZone {
		return "", nil, Fail(ErrPreconditionFail, "gambling only happens in the market")
	}
	bet, err := argInt64(args, "bet")
	if err != nil {
		return "", nil, err
	}
	if bet <= 0 {
		return "", nil, Fail(ErrBadArgs, "bet must be positive")
	}
	risk, err := argStr(args, "risk")
	if err != nil {
		return "", nil, err
	}
	table, ok := gambleTables[risk]
	if !ok {
		return "", nil, Fail(ErrBadArgs, "unknown risk tier "+risk)
	}
	if agent.Cash < bet {
		return "", nil, Fail(ErrInsufficientFunds, "not enough cash to bet")
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, bet, "gamble bet", 0); err != nil {
		return "", nil, err
	}
	roll := security.Chance("gamble", agent.ID, requestID, world.Tick)
	if roll < table.Probability {
		payout := int64(float64(bet) * table.Multiplier)
		if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerCredit, payout, "gamble payout", 0); err != nil {
			return "", nil, err
		}
		if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "GAMBLE_WON", agent.ID, agent.LocationZoneID, 0, map[string]any{"bet": bet, "risk": risk, "payout": payout}, requestID); err != nil {
			return "", nil, err
		}
		return "you won", map[string]any{"payout": payout}, nil
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "GAMBLE_LOST", agent.ID, agent.LocationZoneID, 0, map[string]any{"bet": bet, "risk": risk}, requestID); err != nil {
		return "", nil, err
	}
	return "you lost", map[string]any{"lost": bet}, nil
}
