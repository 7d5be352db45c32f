package npc

import (
	"testing"
	"time"

	"clawcity/internal/model"
)

func baseAgent() *model.Agent {
	return &model.Agent{
		ID: 1, Name: "NPC", CreatedAt: time.Now(), LocationZoneID: "residential",
		Cash: 50, Health: 100, Stamina: 100, Status: model.StatusIdle,
		Inventory: map[string]int{}, Skills: model.Skills{}, Stats: model.Stats{},
	}
}

func TestDefaultPolicySkipsWhenNotIdle(t *testing.T) {
	agent := baseAgent()
	agent.Status = model.StatusBusy
	if d := (DefaultPolicy{}).Decide(agent, model.World{}); d != nil {
		t.Fatalf("expected nil decision for busy agent, got %+v", d)
	}
}

func TestDefaultPolicyHealsWhenHurt(t *testing.T) {
	agent := baseAgent()
	agent.Health = 30
	d := (DefaultPolicy{}).Decide(agent, model.World{})
	if d == nil || d.Action != "HEAL" {
		t.Fatalf("expected HEAL, got %+v", d)
	}
}

func TestDefaultPolicyRestsWhenTired(t *testing.T) {
	agent := baseAgent()
	agent.Stamina = 10
	d := (DefaultPolicy{}).Decide(agent, model.World{})
	if d == nil || d.Action != "REST" {
		t.Fatalf("expected REST, got %+v", d)
	}
}

func TestDefaultPolicyPrefersHealOverRestWhenBothLow(t *testing.T) {
	agent := baseAgent()
	agent.Health = 30
	agent.Stamina = 10
	d := (DefaultPolicy{}).Decide(agent, model.World{})
	if d == nil || d.Action != "HEAL" {
		t.Fatalf("expected HEAL to take priority, got %+v", d)
	}
}

func TestDefaultPolicyTakesJobWhenConfigured(t *testing.T) {
	agent := baseAgent()
	d := (DefaultPolicy{JobID: "job-1"}).Decide(agent, model.World{})
	if d == nil || d.Action != "TAKE_JOB" || d.Args["jobId"] != "job-1" {
		t.Fatalf("expected TAKE_JOB job-1, got %+v", d)
	}
}

func TestDefaultPolicyFallsBackToCrimeWithoutJob(t *testing.T) {
	agent := baseAgent()
	d := (DefaultPolicy{}).Decide(agent, model.World{})
	if d == nil || d.Action != "COMMIT_CRIME" {
		t.Fatalf("expected COMMIT_CRIME fallback, got %+v", d)
	}
}
