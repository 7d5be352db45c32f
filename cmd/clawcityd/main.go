// Command clawcityd is the ClawCity world server: it owns the single
// writable store, runs the tick scheduler, and serves the HTTP API.
// Follows main.go's boot sequence (setupLogging, background
// goroutines, then a blocking ListenAndServe).
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"clawcity/internal/action"
	"clawcity/internal/clock"
	"clawcity/internal/config"
	"clawcity/internal/coop"
	"clawcity/internal/httpapi"
	"clawcity/internal/idempotency"
	"clawcity/internal/ledger"
	"clawcity/internal/npc"
	"clawcity/internal/snapshot"
	"clawcity/internal/store"
)

var (
	infoLog  *log.Logger
	errorLog *log.Logger
)

// setupLogging opens ./logs/server.log and ./logs/error.log, matching
// utils.go's setupLogging exactly (two named loggers over append-only
// file handles, no rotation library).
func setupLogging() {
	const logDir = "./logs"
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		os.Mkdir(logDir, 0755)
	}
	fInfo, err := os.OpenFile(filepath.Join(logDir, "server.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("open server.log: %v", err)
	}
	fErr, err := os.OpenFile(filepath.Join(logDir, "error.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("open error.log: %v", err)
	}
	infoLog = log.New(fInfo, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	errorLog = log.New(fErr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	setupLogging()
	cfg := config.Load()

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		errorLog.Fatalf("open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	world, err := s.InitWorld(ctx, cfg.TickMs, "clawcity-genesis")
	if err != nil {
		errorLog.Fatalf("init world: %v", err)
	}
	if err := s.Seed(ctx); err != nil {
		errorLog.Fatalf("seed: %v", err)
	}
	infoLog.Printf("World opened at tick %d, db=%s", world.Tick, cfg.DBPath)

	l := ledger.New(s)
	idem := idempotency.New(s)
	coopEngine := coop.New(s, l, cfg)
	dispatcher := action.New(s, l, idem, coopEngine, cfg)
	snap := snapshot.New(s, 100)
	policy := npc.DefaultPolicy{}

	clk := clock.New(s, l, coopEngine, dispatcher, cfg, policy, snap, infoLog)
	go clk.Run(ctx)

	api := httpapi.New(s, dispatcher, cfg, infoLog)
	server := api.NewHTTPServer()

	infoLog.Printf("Listening on %s", cfg.Addr)
	if err := server.ListenAndServe(); err != nil {
		errorLog.Fatal(err)
	}
}
