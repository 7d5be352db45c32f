// Package idempotency implements bearer-token auth and per-agent
// request-ID locking, following initIdentity's key-generation/hashing
// pattern and globals.go's SeenCurrent/SeenPrevious rotating
// replay-protection sets — the closest analogy to an expiring
// idempotency cache.
package idempotency

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"clawcity/internal/model"
	"clawcity/internal/security"
	"clawcity/internal/store"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrAuthRequired = errors.New("idempotency: missing bearer token")
	ErrAuthInvalid  = errors.New("idempotency: invalid bearer token")
)

type Service struct {
	Store *store.Store
	TTL   time.Duration
}

func New(s *store.Store) *Service {
	return &Service{Store: s, TTL: DefaultTTL}
}

// GenerateKey returns a fresh plaintext API key and its SHA-256 hash.
// The plaintext is returned to the client exactly once, at
// registration.
func (svc *Service) GenerateKey() (plaintext, keyHash string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plaintext = hex.EncodeToString(raw)
	keyHash = security.KeyHash(plaintext)
	return plaintext, keyHash, nil
}

// Resolve authenticates a bearer token and returns the owning agent.
func (svc *Service) Resolve(ctx context.Context, bearerToken string) (*model.Agent, error) {
	if bearerToken == "" {
		return nil, ErrAuthRequired
	}
	agent, err := svc.Store.GetAgentByKeyHash(ctx, svc.Store.DB, security.KeyHash(bearerToken))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAuthInvalid
		}
		return nil, err
	}
	return agent, nil
}

// LockOutcome tells the dispatcher what to do next.
type LockOutcome int

const (
	LockReserved  LockOutcome = iota // fresh reservation inserted; proceed to handler
	LockHasResult                     // prior call completed; replay result verbatim
	LockInProgress                    // a concurrent call is still executing
)

// CheckAndReserve implements the idempotency-check step of the
// pre-dispatch pipeline: look up (agentId, requestId); if a result
// exists, return it for verbatim replay; if a
// reservation exists with no result, report in-progress; otherwise
// insert a fresh reservation and report LockReserved.
func (svc *Service) CheckAndReserve(ctx context.Context, tx *sql.Tx, agentID int64, requestID string) (LockOutcome, []byte, error) {
	row, found, err := svc.Store.GetActionLock(ctx, tx, agentID, requestID)
	if err != nil {
		return 0, nil, err
	}
	if found {
		if row.HasResult {
			return LockHasResult, row.Result, nil
		}
		return LockInProgress, nil, nil
	}
	if err := svc.Store.ReserveActionLock(ctx, tx, agentID, requestID, svc.TTL, time.Now()); err != nil {
		return 0, nil, err
	}
	return LockReserved, nil, nil
}

// Complete stores the final result so replay returns it verbatim.
func (svc *Service) Complete(ctx context.Context, tx *sql.Tx, agentID int64, requestID string, result []byte) error {
	return svc.Store.CompleteActionLock(ctx, tx, agentID, requestID, result)
}

// Release removes a reservation after a transient failure, allowing
// the client to retry with the same requestId.
func (svc *Service) Release(ctx context.Context, tx *sql.Tx, agentID int64, requestID string) error {
	return svc.Store.DeleteActionLock(ctx, tx, agentID, requestID)
}

// Reap garbage-collects expired, still-unresolved reservations.
func (svc *Service) Reap(ctx context.Context) (int64, error) {
	return svc.Store.ReapExpiredActionLocks(ctx, svc.Store.DB, time.Now())
}
