// Command clawcity-admin is the operator console: list agents, inspect
// an agent's ledger/events, ban an agent. Grounded on user-console.go's
// menu-loop-plus-CLI-argument-mode shape and its "type CONFIRM to
// proceed" destructive-action guard.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"clawcity/internal/config"
	"clawcity/internal/ledger"
	"clawcity/internal/store"
)

func main() {
	cfg := config.Load()
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Printf("open store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	if len(os.Args) > 1 {
		handleCLI(s, os.Args[1:])
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("\n========================================")
		fmt.Println("    CLAWCITY ADMINISTRATION CONSOLE")
		fmt.Println("========================================")
		fmt.Println("1. List Agents")
		fmt.Println("2. Inspect Agent (ledger + events)")
		fmt.Println("3. Ban Agent")
		fmt.Println("4. Exit")
		fmt.Println("========================================")
		fmt.Print("Select option: ")

		if !scanner.Scan() {
			break
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			listAgents(s)
		case "2":
			fmt.Print("Agent ID: ")
			scanner.Scan()
			id, err := strconv.ParseInt(strings.TrimSpace(scanner.Text()), 10, 64)
			if err != nil {
				fmt.Println("Invalid ID.")
				continue
			}
			inspectAgent(s, id)
		case "3":
			fmt.Print("Agent ID to ban: ")
			scanner.Scan()
			id, err := strconv.ParseInt(strings.TrimSpace(scanner.Text()), 10, 64)
			if err != nil {
				fmt.Println("Invalid ID.")
				continue
			}
			fmt.Printf("WARNING: this freezes agent %d from taking any further action.\n", id)
			fmt.Print("Type 'CONFIRM' to proceed: ")
			scanner.Scan()
			if strings.TrimSpace(scanner.Text()) != "CONFIRM" {
				fmt.Println("Ban cancelled.")
				continue
			}
			banAgent(s, id)
		case "4":
			fmt.Println("Exiting.")
			return
		default:
			fmt.Println("Invalid option.")
		}
	}
}

func handleCLI(s *store.Store, args []string) {
	switch args[0] {
	case "list":
		listAgents(s)
	case "inspect":
		if len(args) < 2 {
			fmt.Println("Usage: inspect <agentId>")
			return
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Println("Error: invalid agent ID")
			return
		}
		inspectAgent(s, id)
	case "ban":
		if len(args) < 3 {
			fmt.Println("Usage: ban <agentId> CONFIRM")
			return
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Println("Error: invalid agent ID")
			return
		}
		if args[2] != "CONFIRM" {
			fmt.Printf("Error: to ban agent %d you must provide 'CONFIRM' after the ID.\n", id)
			fmt.Printf("Example: %s ban %d CONFIRM\n", os.Args[0], id)
			return
		}
		banAgent(s, id)
	default:
		fmt.Println("Unknown command. Available commands: list, inspect, ban")
	}
}

func listAgents(s *store.Store) {
	agents, err := s.ListAllAgents(context.Background(), s.DB)
	if err != nil {
		fmt.Printf("Error listing agents: %v\n", err)
		return
	}
	fmt.Println("\nID  | Name                 | Zone         | Cash       | Status   | Banned")
	fmt.Println("----|----------------------|--------------|------------|----------|-------")
	for _, a := range agents {
		banned := ""
		if a.Banned() {
			banned = "yes"
		}
		fmt.Printf("%-3d | %-20s | %-12s | %-10s | %-8s | %s\n",
			a.ID, a.Name, a.LocationZoneID, humanize.Comma(a.Cash), a.Status, banned)
	}
}

func inspectAgent(s *store.Store, id int64) {
	ctx := context.Background()
	agent, err := s.GetAgent(ctx, s.DB, id)
	if err != nil {
		fmt.Printf("Agent %d not found: %v\n", id, err)
		return
	}
	fmt.Printf("\nAgent %d: %s | zone=%s | cash=%s | health=%d | status=%s | banned=%v\n",
		agent.ID, agent.Name, agent.LocationZoneID, humanize.Comma(agent.Cash), agent.Health, agent.Status, agent.Banned())

	entries, err := s.ListLedgerByAgent(ctx, s.DB, id)
	if err != nil {
		fmt.Printf("Error loading ledger: %v\n", err)
		return
	}
	fmt.Println("\nLedger:")
	for _, e := range entries {
		fmt.Printf("  tick=%-6d %-6s %-10s reason=%s balance=%s\n",
			e.Tick, e.Kind, humanize.Comma(e.Amount), e.Reason, humanize.Comma(e.Balance))
	}

	l := ledger.New(s)
	reconstructed, err := l.Reconstruct(ctx, id)
	if err != nil {
		fmt.Printf("Ledger reconstruction failed: %v\n", err)
	} else {
		fmt.Printf("Reconstructed balance: %s (live: %s)\n", humanize.Comma(reconstructed), humanize.Comma(agent.Cash))
	}

	events, err := s.ListEventsForAgent(ctx, s.DB, id, 0, 20)
	if err != nil {
		fmt.Printf("Error loading events: %v\n", err)
		return
	}
	fmt.Println("\nRecent events:")
	for _, e := range events {
		fmt.Printf("  tick=%-6d %-24s %s\n", e.Tick, e.Type, e.Timestamp.Format(time.RFC3339))
	}
}

func banAgent(s *store.Store, id int64) {
	ctx := context.Background()
	agent, err := s.GetAgent(ctx, s.DB, id)
	if err != nil {
		fmt.Printf("Agent %d not found: %v\n", id, err)
		return
	}
	if agent.Banned() {
		fmt.Printf("Agent %d is already banned.\n", id)
		return
	}
	now := time.Now()
	agent.BannedAt = &now
	if err := s.UpdateAgent(ctx, s.DB, agent); err != nil {
		fmt.Printf("Error banning agent: %v\n", err)
		return
	}
	fmt.Printf("Agent %d banned.\n", id)
}
