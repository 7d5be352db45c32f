// Package npc supplies the pluggable decision hook the tick pipeline's
// phase 12 invokes for every agent flagged isNpc: a Policy turns one
// agent's current state into a single action to submit through the
// action dispatcher. The core only depends on the Policy interface;
// aggressiveness/greed heuristics live entirely in DefaultPolicy and
// are free to be swapped out by an embedder.
package npc

import (
	"clawcity/internal/model"
)

// Decision is what a Policy hands back for phase 12 to dispatch. A nil
// Decision means the NPC passes this tick.
type Decision struct {
	Action string
	Args   map[string]any
}

type Policy interface {
	Decide(agent *model.Agent, world model.World) *Decision
}

// DefaultPolicy is a conservative heuristic: heal when hurt, rest when
// tired, otherwise work JobID when one is set, falling back to petty
// crime; reputation is not checked here. It never initiates coop actions, gang moves, or travel
// on its own — those require a richer world view than a single agent
// row gives phase 12, and are left to an embedder's own Policy.
type DefaultPolicy struct {
	// JobID is attempted first when the NPC is idle and able; left
	// empty, the policy skips straight to crime.
	JobID string
}

func (p DefaultPolicy) Decide(agent *model.Agent, world model.World) *Decision {
	if agent.Status != model.StatusIdle {
		return nil
	}
	if agent.Health < 40 {
		return &Decision{Action: "HEAL"}
	}
	if agent.Stamina < 20 {
		return &Decision{Action: "REST"}
	}
	if p.JobID != "" && agent.Stamina >= 20 {
		return &Decision{Action: "TAKE_JOB", Args: map[string]any{"jobId": p.JobID}}
	}
	return &Decision{Action: "COMMIT_CRIME", Args: map[string]any{"crimeType": "petty_theft"}}
}
