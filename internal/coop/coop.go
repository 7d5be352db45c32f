// Package coop implements the cooperative-action state machine:
// recruiting → ready → executing → completed/failed/cancelled.
// It is invoked both from the action dispatcher (INITIATE_COOP_CRIME,
// JOIN_COOP_ACTION) and from the tick pipeline's phase 8, so every
// mutation here takes a caller-supplied transaction rather than
// opening its own.
package coop

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clawcity/internal/config"
	"clawcity/internal/ledger"
	"clawcity/internal/model"
	"clawcity/internal/security"
	"clawcity/internal/store"
)

const (
	TypeRobbery   = "robbery"
	TypeHeist     = "heist"
	TypeSmuggling = "smuggling"
)

type lootRange struct{ Min, Max int64 }

var baseLoot = map[string]lootRange{
	TypeRobbery:   {200, 600},
	TypeHeist:     {1000, 3000},
	TypeSmuggling: {500, 1500},
}

var baseHeat = map[string]int{
	TypeRobbery:   20,
	TypeHeist:     35,
	TypeSmuggling: 25,
}

var baseSuccess = map[string]float64{
	TypeRobbery:   0.5,
	TypeHeist:     0.35,
	TypeSmuggling: 0.45,
}

var damageRange = struct{ Min, Max int }{10, 30}

func ValidType(t string) bool {
	_, ok := baseLoot[t]
	return ok
}

type Engine struct {
	Store  *store.Store
	Ledger *ledger.Ledger
	Config config.Config
}

func New(s *store.Store, l *ledger.Ledger, cfg config.Config) *Engine {
	return &Engine{Store: s, Ledger: l, Config: cfg}
}

// Initiate seeds a new coop action in `recruiting`, counting the
// initiator as the first participant.
func (e *Engine) Initiate(ctx context.Context, tx *sql.Tx, world *model.World, agent *model.Agent, crimeType, zoneID string, minParticipants, maxParticipants int, expireInTicks int64) (*model.CoopAction, error) {
	c := &model.CoopAction{
		InitiatorID:     agent.ID,
		Type:            crimeType,
		ZoneID:          zoneID,
		Status:          model.CoopRecruiting,
		ParticipantIDs:  []int64{agent.ID},
		MinParticipants: minParticipants,
		MaxParticipants: maxParticipants,
		CreatedAt:       time.Now(),
		ExpiresAt:       int64(world.Tick) + expireInTicks,
	}
	id, err := e.Store.InsertCoopAction(ctx, tx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

var (
	ErrFull        = fmt.Errorf("coop: already full")
	ErrNotOpen     = fmt.Errorf("coop: not accepting joins")
	ErrAlreadyIn   = fmt.Errorf("coop: agent already a participant")
)

// Join adds agent to an in-progress recruitment. If this join fills
// the action to minParticipants, it transitions to `ready` and marks
// every participant busy — all within the caller's transaction, so a
// concurrent join against the same row serializes behind it.
func (e *Engine) Join(ctx context.Context, tx *sql.Tx, world *model.World, c *model.CoopAction, agent *model.Agent) error {
	if c.Status != model.CoopRecruiting {
		return ErrNotOpen
	}
	for _, id := range c.ParticipantIDs {
		if id == agent.ID {
			return ErrAlreadyIn
		}
	}
	if len(c.ParticipantIDs) >= c.MaxParticipants {
		return ErrFull
	}
	c.ParticipantIDs = append(c.ParticipantIDs, agent.ID)

	if len(c.ParticipantIDs) >= c.MinParticipants {
		c.Status = model.CoopReady
		c.ExecuteAt = int64(world.Tick) + e.Config.CoopExecuteDelay
		for _, pid := range c.ParticipantIDs {
			// The joining agent's own row is mutated in place on the
			// caller's pointer rather than a freshly loaded copy, so the
			// dispatcher's post-handler UpdateAgent persists these same
			// fields instead of clobbering them with a stale read.
			p := agent
			if pid != agent.ID {
				var err error
				p, err = e.Store.GetAgent(ctx, tx, pid)
				if err != nil {
					return err
				}
			}
			p.Status = model.StatusBusy
			p.BusyAction = "coop_" + c.Type
			p.BusyUntilTick = c.ExecuteAt
			if pid != agent.ID {
				if err := e.Store.UpdateAgent(ctx, tx, p); err != nil {
					return err
				}
			}
		}
	}
	return e.Store.UpdateCoopAction(ctx, tx, c)
}

// ExpireRecruiting cancels a coop action whose recruiting deadline has
// passed without reaching minParticipants. Participants never left
// idle, so nothing needs releasing besides the record itself.
func (e *Engine) ExpireRecruiting(ctx context.Context, tx *sql.Tx, c *model.CoopAction) error {
	c.Status = model.CoopCancelled
	return e.Store.UpdateCoopAction(ctx, tx, c)
}

// Execute resolves a `ready` coop action whose executeAt has arrived:
// computes the outcome, settles loot/heat/damage across every
// participant atomically, and releases them back to idle (or
// hospitalized, on a damage-induced health=0). Called from tick phase
// 8; never from the dispatcher directly.
func (e *Engine) Execute(ctx context.Context, tx *sql.Tx, world *model.World, c *model.CoopAction, zonePolice float64) error {
	c.Status = model.CoopExecuting
	if err := e.Store.UpdateCoopAction(ctx, tx, c); err != nil {
		return err
	}

	participants := make([]*model.Agent, 0, len(c.ParticipantIDs))
	for _, pid := range c.ParticipantIDs {
		p, err := e.Store.GetAgent(ctx, tx, pid)
		if err != nil {
			return err
		}
		participants = append(participants, p)
	}

	p := baseSuccess[c.Type]
	extra := len(c.ParticipantIDs) - c.MinParticipants
	bonus := float64(extra) * 0.10
	if bonus > 0.30 {
		bonus = 0.30
	}
	p += bonus

	sameGang := true
	firstGang := participants[0].GangID
	for _, a := range participants {
		if a.GangID == 0 || a.GangID != firstGang {
			sameGang = false
			break
		}
	}
	if sameGang {
		p += 0.15
	}

	strongPairs := 0
	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			a1, a2 := store.CanonicalPair(participants[i].ID, participants[j].ID)
			fr, found, err := e.Store.GetFriendship(ctx, tx, a1, a2)
			if err == nil && found && fr.Status == model.FriendshipAccepted && fr.Strength >= 75 {
				strongPairs++
			}
		}
	}
	p += float64(strongPairs) * 0.02
	p -= zonePolice * 0.10
	if p < 0.05 {
		p = 0.05
	}
	if p > 0.95 {
		p = 0.95
	}

	roll := security.Chance("coop", c.ID, world.Tick, c.Type)
	success := roll < p

	result := map[string]any{
		"coopActionId": c.ID,
		"type":         c.Type,
		"participants": c.ParticipantIDs,
		"successChance": p,
	}

	if success {
		lr := baseLoot[c.Type]
		total := float64(lr.Min) + (float64(lr.Max)-float64(lr.Min))*security.Chance("coop-loot", c.ID, world.Tick)
		totalLoot := int64(total * 1.5)
		share := totalLoot / int64(len(participants))
		heatShare := int(float64(baseHeat[c.Type]) * 1.2 * 0.8 / float64(len(participants)))

		for _, a := range participants {
			if share > 0 {
				if _, err := e.Ledger.Emit(ctx, tx, world.Tick, "COOP_CRIME_SHARE", a.ID, c.ZoneID, c.ID, map[string]any{"amount": share}, ""); err != nil {
					return err
				}
				if err := e.Ledger.Post(ctx, tx, a, world.Tick, model.LedgerCredit, share, "coop crime payout", 0); err != nil {
					return err
				}
			}
			a.Heat = clamp(a.Heat+heatShare, 0, 100)
			a.Stats.CoopCrimesCompleted++
			a.Status = model.StatusIdle
			a.BusyUntilTick = 0
			a.BusyAction = ""
			if err := e.Store.UpdateAgent(ctx, tx, a); err != nil {
				return err
			}
		}
		result["totalLoot"] = totalLoot
		result["sharePerAgent"] = share
		c.Status = model.CoopCompleted
		if _, err := e.Ledger.Emit(ctx, tx, world.Tick, "COOP_CRIME_SUCCESS", 0, c.ZoneID, c.ID, result, ""); err != nil {
			return err
		}
	} else {
		for _, a := range participants {
			dmg := damageRange.Min + int(security.Chance("coop-dmg", c.ID, world.Tick, a.ID)*float64(damageRange.Max-damageRange.Min))
			a.Health -= dmg
			a.Heat = clamp(a.Heat+baseHeat[c.Type], 0, 100)
			a.BusyUntilTick = 0
			a.BusyAction = ""
			if a.Health <= 0 {
				a.Health = 0
				a.Status = model.StatusHospitalized
				a.BusyUntilTick = int64(world.Tick) + 100
			} else {
				a.Status = model.StatusIdle
			}
			if err := e.Store.UpdateAgent(ctx, tx, a); err != nil {
				return err
			}
		}
		c.Status = model.CoopFailed
		if _, err := e.Ledger.Emit(ctx, tx, world.Tick, "COOP_CRIME_FAILED", 0, c.ZoneID, c.ID, result, ""); err != nil {
			return err
		}
	}
	c.Result = result
	return e.Store.UpdateCoopAction(ctx, tx, c)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
