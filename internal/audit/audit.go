// Package audit persists every verification run, including the claims that
// never reach a verdict.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ads97/Veritas/internal/model"
)

// Run is one verification run as written to the audit trail
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Subject        model.Subject
	Claims         []model.Claim // All claims, Unknown included
	Reconciliation model.Reconciliation
	Market         *model.MarketEstimate
	Verdict        *model.Verdict // Nil when the run failed
	Err            string
}

// Recorder stores finished runs
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.NewString()
}

// Nop discards runs
type Nop struct{}

func (Nop) Record(context.Context, Run) error { return nil }
