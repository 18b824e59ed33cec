package persistence

import (
	"context"
	"time"
)

// PositionRecord is the relational form of an approved position verdict.
type PositionRecord struct {
	PositionID  string    `json:"positionId" db:"position_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	Market      string    `json:"market" db:"market"`
	Side        string    `json:"side" db:"side"`
	Thesis      string    `json:"thesis" db:"thesis"`
	EdgePct     float64   `json:"edgePct" db:"edge_pct"`
	SignalScore int       `json:"signalScore" db:"signal_score"`

	RiskPct float64 `json:"riskPct" db:"risk_pct"`
	RiskUsd float64 `json:"riskUsd" db:"risk_usd"`
	RRMin   float64 `json:"rrMin" db:"rr_min"`

	OddsAtSignal *float64 `json:"oddsAtSignal,omitempty" db:"odds_at_signal"`
	CurrentOdds  *float64 `json:"currentOdds,omitempty" db:"current_odds"`
	SlippagePct  *float64 `json:"slippagePct,omitempty" db:"slippage_pct"`

	ArtifactDir string `json:"artifactDir" db:"artifact_dir"`
}

// PositionRepo persists approved positions. The decision core never touches
// this; it is wired in by the request-handling layer after approval.
type PositionRepo interface {
	// Insert stores a new approved position; re-inserting the same position
	// ID refreshes the row.
	Insert(ctx context.Context, rec PositionRecord) error

	// GetByID retrieves one position by its opaque identifier.
	GetByID(ctx context.Context, positionID string) (*PositionRecord, error)

	// List returns the most recent positions, newest first.
	List(ctx context.Context, limit int) ([]PositionRecord, error)
}
