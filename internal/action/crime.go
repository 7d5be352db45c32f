package action

import (
	"context"
	"database/sql"

	"clawcity/internal/model"
	"clawcity/internal/security"
)

func zonePolice(ctx context.Context, d *Dispatcher, tx *sql.Tx, zoneID string) (float64, error) {
	z, err := d.Store.GetZone(ctx, tx, zoneID)
	if err != nil {
		return 0, err
	}
	return z.PolicePresence, nil
}

func handleCommitCrime(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	crimeType, err := argStr(args, "crimeType")
	if err != nil {
		return "", nil, err
	}
	police, err := zonePolice(ctx, d, tx, agent.LocationZoneID)
	if err != nil {
		return "", nil, err
	}

	territoryBonus := 0.0
	if terr, found, err := d.Store.GetTerritory(ctx, tx, agent.LocationZoneID); err == nil && found && terr.GangID == agent.GangID && agent.GangID != 0 {
		territoryBonus = d.Config.CrimeTerritoryBonus
	}

	p := d.Config.CrimeBaseSuccess + float64(agent.Skills.Stealth)*d.Config.CrimeStealthBonus/100 + territoryBonus - police*d.Config.CrimePolicePenalty
	if p < 0.05 {
		p = 0.05
	}
	if p > 0.95 {
		p = 0.95
	}

	roll := security.Chance("crime", agent.ID, requestID, world.Tick)
	if roll < p {
		lootFrac := security.Chance("crime-loot", agent.ID, requestID)
		loot := int64(50 + lootFrac*450)
		if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerCredit, loot, "crime: "+crimeType, 0); err != nil {
			return "", nil, err
		}
		heatGain := 10 + int(security.Chance("crime-heat", agent.ID, requestID)*10)
		agent.Heat = clampInt(agent.Heat+heatGain, 0, d.Config.MaxHeat)
		agent.Stats.CrimesCommitted++
		if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "CRIME_SUCCESS", agent.ID, agent.LocationZoneID, 0, map[string]any{"crimeType": crimeType, "loot": loot, "heat": heatGain}, requestID); err != nil {
			return "", nil, err
		}
		return "crime succeeded", map[string]any{"loot": loot, "heat": heatGain}, nil
	}

	dmg := 5 + int(security.Chance("crime-fail-dmg", agent.ID, requestID)*20)
	agent.Health = clampInt(agent.Health-dmg, 0, 100)
	heatGain := 15
	agent.Heat = clampInt(agent.Heat+heatGain, 0, d.Config.MaxHeat)
	agent.Stats.CrimesFailed++
	if agent.Health == 0 {
		agent.Status = model.StatusHospitalized
		agent.BusyUntilTick = int64(world.Tick) + d.Config.HospitalTicks
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "CRIME_FAILED", agent.ID, agent.LocationZoneID, 0, map[string]any{"crimeType": crimeType, "damage": dmg, "heat": heatGain}, requestID); err != nil {
		return "", nil, err
	}
	return "crime failed", map[string]any{"damage": dmg, "heat": heatGain}, nil
}

func loadCoLocatedTarget(ctx context.Context, d *Dispatcher, tx *sql.Tx, agent *model.Agent, args map[string]any) (*model.Agent, error) {
	targetID, err := argInt64(args, "targetAgentId")
	if err != nil {
		return nil, err
	}
	if targetID == agent.ID {
		return nil, Fail(ErrBadArgs, "cannot target yourself")
	}
	target, err := d.Store.GetAgent(ctx, tx, targetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, Fail(ErrPreconditionFail, "target not found")
		}
		return nil, err
	}
	if target.Banned() {
		return nil, Fail(ErrPreconditionFail, "target is banned")
	}
	if target.LocationZoneID != agent.LocationZoneID {
		return nil, Fail(ErrPreconditionFail, "target is not here")
	}
	return target, nil
}

func handleRobAgent(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	target, err := loadCoLocatedTarget(ctx, d, tx, agent, args)
	if err != nil {
		return "", nil, err
	}
	if target.Status != model.StatusIdle {
		return "", nil, Fail(ErrPreconditionFail, "target is not idle")
	}

	p := 0.5 + float64(agent.Skills.Combat-target.Skills.Combat)/200
	if p < 0.1 {
		p = 0.1
	}
	if p > 0.9 {
		p = 0.9
	}
	roll := security.Chance("rob", agent.ID, target.ID, requestID)

	if roll < p {
		frac := 0.10 + security.Chance("rob-frac", agent.ID, requestID)*0.15
		amount := int64(float64(target.Cash) * frac)
		if amount > 0 {
			if err := d.Ledger.Post(ctx, tx, target, world.Tick, model.LedgerDebit, amount, "robbed by agent", 0); err != nil {
				return "", nil, err
			}
			if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerCredit, amount, "robbed agent", 0); err != nil {
				return "", nil, err
			}
		}
		agent.Heat = clampInt(agent.Heat+25, 0, d.Config.MaxHeat)
		if err := d.Store.UpdateAgent(ctx, tx, target); err != nil {
			return "", nil, err
		}
		if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "AGENT_ROBBED", agent.ID, agent.LocationZoneID, target.ID, map[string]any{"amount": amount}, requestID); err != nil {
			return "", nil, err
		}
		return "robbery succeeded", map[string]any{"amount": amount}, nil
	}

	dmg := 5 + int(security.Chance("rob-fail-dmg", agent.ID, requestID)*10)
	agent.Health = clampInt(agent.Health-dmg, 0, 100)
	agent.Heat = clampInt(agent.Heat+15, 0, d.Config.MaxHeat)
	if agent.Health == 0 {
		agent.Status = model.StatusHospitalized
		agent.BusyUntilTick = int64(world.Tick) + d.Config.HospitalTicks
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "ROB_ATTEMPT_FAILED", agent.ID, agent.LocationZoneID, target.ID, map[string]any{"damage": dmg}, requestID); err != nil {
		return "", nil, err
	}
	return "robbery failed", map[string]any{"damage": dmg}, nil
}

func handleAttackAgent(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	target, err := loadCoLocatedTarget(ctx, d, tx, agent, args)
	if err != nil {
		return "", nil, err
	}

	p := 0.5 + float64(agent.Skills.Combat-target.Skills.Combat)/200
	if p < 0.1 {
		p = 0.1
	}
	if p > 0.9 {
		p = 0.9
	}
	roll := security.Chance("attack", agent.ID, target.ID, requestID)

	if roll < p {
		dmg := 20 + int(security.Chance("attack-dmg", agent.ID, requestID)*30)
		target.Health = clampInt(target.Health-dmg, 0, 100)
		killed := target.Health == 0
		if killed {
			amount := int64(float64(target.Cash) * 0.25)
			if amount > 0 {
				if err := d.Ledger.Post(ctx, tx, target, world.Tick, model.LedgerDebit, amount, "killed by agent", 0); err != nil {
					return "", nil, err
				}
				if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerCredit, amount, "killed agent", 0); err != nil {
					return "", nil, err
				}
			}
			target.Status = model.StatusHospitalized
			target.BusyUntilTick = int64(world.Tick) + d.Config.HospitalTicks
			agent.Stats.Kills++
			if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "AGENT_KILLED", agent.ID, agent.LocationZoneID, target.ID, map[string]any{"amount": amount}, requestID); err != nil {
				return "", nil, err
			}
		}
		agent.Heat = clampInt(agent.Heat+20, 0, d.Config.MaxHeat)
		if err := d.Store.UpdateAgent(ctx, tx, target); err != nil {
			return "", nil, err
		}
		if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "ATTACK_LANDED", agent.ID, agent.LocationZoneID, target.ID, map[string]any{"damage": dmg, "killed": killed}, requestID); err != nil {
			return "", nil, err
		}
		return "attack landed", map[string]any{"damage": dmg, "killed": killed}, nil
	}

	dmg := 10 + int(security.Chance("attack-fail-dmg", agent.ID, requestID)*20)
	agent.Health = clampInt(agent.Health-dmg, 0, 100)
	agent.Heat = clampInt(agent.Heat+10, 0, d.Config.MaxHeat)
	if agent.Health == 0 {
		agent.Status = model.StatusHospitalized
		agent.BusyUntilTick = int64(world.Tick) + d.Config.HospitalTicks
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "ATTACK_FAILED", agent.ID, agent.LocationZoneID, target.ID, map[string]any{"damage": dmg}, requestID); err != nil {
		return "", nil, err
	}
	return "attack failed", map[string]any{"damage": dmg}, nil
}

func handleAttemptJailbreak(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	if agent.Status != model.StatusJailed {
		return "", nil, Fail(ErrInvalidStatus, "not jailed")
	}
	p := 0.20 + float64(agent.Skills.Stealth)*0.15/100
	if p > 0.5 {
		p = 0.5
	}
	roll := security.Chance("jailbreak", agent.ID, requestID, world.Tick)
	if roll < p {
		agent.Status = model.StatusIdle
		agent.BusyUntilTick = 0
		if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "JAILBREAK_SUCCESS", agent.ID, agent.LocationZoneID, 0, nil, requestID); err != nil {
			return "", nil, err
		}
		return "jailbreak succeeded", nil, nil
	}
	agent.BusyUntilTick += d.Config.SentenceTicks / 2
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "JAILBREAK_FAILED", agent.ID, agent.LocationZoneID, 0, map[string]any{"extendedTicks": d.Config.SentenceTicks / 2}, requestID); err != nil {
		return "", nil, err
	}
	return "jailbreak failed, sentence extended", nil, nil
}

func handleBribeCops(ctx context.Context, d *Dispatcher, tx *sql.Tx, world *model.World, agent *model.Agent, requestID string, args map[string]any) (string, map[string]any, error) {
	amount, err := argInt64(args, "amount")
	if err != nil {
		return "", nil, err
	}
	if amount <= 0 {
		return "", nil, Fail(ErrBadArgs, "amount must be positive")
	}
	if agent.Cash < amount {
		return "", nil, Fail(ErrInsufficientFunds, "not enough cash to bribe")
	}
	p := 0.3 + float64(amount)/5000
	if p > 0.9 {
		p = 0.9
	}
	if err := d.Ledger.Post(ctx, tx, agent, world.Tick, model.LedgerDebit, amount, "bribe", 0); err != nil {
		return "", nil, err
	}
	roll := security.Chance("bribe", agent.ID, requestID, world.Tick)
	if roll < p {
		if agent.Status == model.StatusJailed {
			agent.Status = model.StatusIdle
			agent.BusyUntilTick = 0
		}
		agent.Heat = clampInt(agent.Heat-20, 0, d.Config.MaxHeat)
		if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "BRIBE_SUCCESS", agent.ID, agent.LocationZoneID, 0, map[string]any{"amount": amount}, requestID); err != nil {
			return "", nil, err
		}
		return "bribe accepted", nil, nil
	}
	if _, err := d.Ledger.Emit(ctx, tx, world.Tick, "BRIBE_FAILED", agent.ID, agent.LocationZoneID, 0, map[string]any{"amount": amount}, requestID); err != nil {
		return "", nil, err
	}
	return "bribe refused", nil, nil
}
