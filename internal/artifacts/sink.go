package artifacts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oddslab/edgegate/internal/domain/risk"
	"github.com/oddslab/edgegate/internal/pipeline"
)

// Record is the full audit payload persisted for an approved position.
type Record struct {
	PositionID string    `json:"positionId"`
	CreatedAt  time.Time `json:"createdAt"`

	Market       string   `json:"market"`
	Side         string   `json:"side"`
	Thesis       string   `json:"thesis"`
	Evidence     []string `json:"evidence"`
	Invalidators []string `json:"invalidators"`

	EdgePct      float64  `json:"edgePct"`
	OddsAtSignal float64  `json:"oddsAtSignal"`
	CurrentOdds  float64  `json:"currentOdds"`
	SlippagePct  *float64 `json:"slippagePct"`

	SignalScore int           `json:"signalScore"`
	Risk        risk.Decision `json:"risk"`
}

// Sink persists the audit trail for one approved verdict and reports where it
// was written. Implementations own all storage and format detail; the
// decision core never sees them.
type Sink interface {
	Save(ctx context.Context, rec Record) (dir string, err error)
}

// NewPositionID mints an opaque position identifier.
func NewPositionID() string {
	return "pos-" + uuid.New().String()
}

// NewRecord assembles the audit payload for an approved verdict.
func NewRecord(c pipeline.Candidate, v pipeline.Verdict) Record {
	return Record{
		PositionID:   NewPositionID(),
		CreatedAt:    time.Now().UTC(),
		Market:       c.Market,
		Side:         sideOrDefault(c.Side),
		Thesis:       thesisOrDefault(c.Thesis),
		Evidence:     c.Evidence,
		Invalidators: c.Invalidators,
		EdgePct:      c.EdgePct,
		OddsAtSignal: c.OddsAtSignal,
		CurrentOdds:  c.CurrentOdds,
		SlippagePct:  v.SlippagePct,
		SignalScore:  v.SignalScore,
		Risk:         v.Risk,
	}
}

func sideOrDefault(side string) string {
	if side == "" {
		return "YES"
	}
	return side
}

func thesisOrDefault(thesis string) string {
	if thesis == "" {
		return "No thesis provided"
	}
	return thesis
}
