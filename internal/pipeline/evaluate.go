package pipeline

import (
	"time"

	"github.com/oddslab/edgegate/internal/domain/risk"
	"github.com/oddslab/edgegate/internal/domain/scoring"
	"github.com/oddslab/edgegate/internal/domain/slippage"
)

// RejectionReason is the machine-readable code attached to a rejected verdict.
type RejectionReason string

const (
	ReasonSignalOrRiskGate RejectionReason = "signal_or_risk_gate"
	ReasonSlippageExceeded RejectionReason = "slippage_exceeded"
)

// Candidate is one opportunity under evaluation, as recorded by the caller.
// Numeric coercion and defaulting happen at the transport boundary; by the
// time a Candidate reaches the pipeline its fields are plain numbers.
type Candidate struct {
	Market       string   `json:"market"`
	Side         string   `json:"side"`
	Thesis       string   `json:"thesis"`
	Evidence     []string `json:"evidence,omitempty"`
	Invalidators []string `json:"invalidators,omitempty"`

	EdgePct         float64 `json:"edgePct"`
	Liquidity       float64 `json:"liquidity"`
	EvidenceQuality float64 `json:"evidenceQuality"`
	VolatilityRisk  float64 `json:"volatilityRisk"`

	OddsAtSignal float64 `json:"oddsAtSignal"`
	CurrentOdds  float64 `json:"currentOdds"`
}

// RiskContext carries the account settings one evaluation runs under.
type RiskContext struct {
	BankrollUsd        float64 `json:"bankrollUsd"`
	MaxRiskPerTradePct float64 `json:"maxRiskPerTradePct"`
}

// Verdict is the orchestrator's final output for one candidate: either an
// approval carrying the full computation, or a rejection carrying the reason
// and the partial computation that caused it.
type Verdict struct {
	Approved    bool            `json:"approved"`
	Reason      RejectionReason `json:"reason,omitempty"`
	Message     string          `json:"message,omitempty"`
	SignalScore int             `json:"signalScore"`

	Breakdown scoring.Breakdown `json:"breakdown"`
	Risk      risk.Decision     `json:"risk"`

	// SlippagePct is nil when no slippage stage ran (risk-gate rejection) or
	// when the candidate carried no usable quotes.
	SlippagePct          *float64 `json:"slippagePct"`
	SlippageTolerancePct float64  `json:"slippageTolerancePct"`

	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// Evaluate runs score -> risk gate -> slippage guard in order, short-circuiting
// on the first rejection. Pure over its inputs apart from the timestamp.
func Evaluate(c Candidate, rc RiskContext, slippageTolerancePct float64) Verdict {
	v := Verdict{
		SlippageTolerancePct: slippageTolerancePct,
		EvaluatedAt:          time.Now().UTC(),
	}

	v.Breakdown = scoring.ScoreWithBreakdown(scoring.Input{
		EdgePct:         c.EdgePct,
		Liquidity:       c.Liquidity,
		EvidenceQuality: c.EvidenceQuality,
		VolatilityRisk:  c.VolatilityRisk,
	})
	v.SignalScore = v.Breakdown.Total

	v.Risk = risk.Decide(rc.BankrollUsd, v.SignalScore, rc.MaxRiskPerTradePct)
	if !v.Risk.Approved {
		v.Reason = ReasonSignalOrRiskGate
		v.Message = "signal or risk gate rejected"
		return v
	}

	v.SlippagePct = slippage.Drift(c.OddsAtSignal, c.CurrentOdds)
	if slippage.Exceeds(v.SlippagePct, slippageTolerancePct) {
		v.Reason = ReasonSlippageExceeded
		v.Message = "slippage tolerance exceeded"
		return v
	}

	v.Approved = true
	return v
}
