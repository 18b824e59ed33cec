package scoring

import (
	"math"
)

// Input holds the raw opportunity signals an analyst records for a market.
// Zero values are meaningful: a missing field is coerced to its default at
// the request boundary, never here.
type Input struct {
	EdgePct         float64 // expected statistical edge in %
	Liquidity       float64 // USD available at the quoted price
	EvidenceQuality float64 // 0..100 ordinal confidence in the thesis
	VolatilityRisk  float64 // 0..100 ordinal, higher = riskier
}

// DefaultVolatilityRisk is applied when a candidate omits the field.
const DefaultVolatilityRisk = 50.0

// Breakdown carries the per-component attribution for a score so that
// handlers and artifacts can explain how a number was reached.
type Breakdown struct {
	EdgeScore      float64 `json:"edge_score"`      // capped at 40
	LiquidityScore float64 `json:"liquidity_score"` // capped at 20
	EvidenceScore  float64 `json:"evidence_score"`  // capped at 30
	VolPenalty     float64 `json:"vol_penalty"`     // capped at 15
	Total          int     `json:"total"`
}

// Score maps an opportunity to a bounded 0-100 signal score. Pure and total:
// any float input yields a valid score, identical input yields an identical
// score.
func Score(in Input) int {
	return ScoreWithBreakdown(in).Total
}

// ScoreWithBreakdown computes the signal score along with each component's
// contribution. Each component is capped independently before combination so
// no single input can dominate the aggregate.
func ScoreWithBreakdown(in Input) Breakdown {
	b := Breakdown{
		EdgeScore:      clamp(in.EdgePct*2.2, 0, 40),
		LiquidityScore: clamp(math.Log10(math.Max(in.Liquidity, 1))*8, 0, 20),
		EvidenceScore:  clamp(in.EvidenceQuality*0.3, 0, 30),
		VolPenalty:     clamp((in.VolatilityRisk-40)*0.25, 0, 15),
	}

	// Component caps sum to 90 and the penalty only subtracts, so the final
	// clamp should never fire. Kept as an invariant against weight changes.
	raw := clamp(b.EdgeScore+b.LiquidityScore+b.EvidenceScore-b.VolPenalty, 0, 100)
	b.Total = int(math.Round(raw))
	return b
}

func clamp(n, min, max float64) float64 {
	return math.Max(min, math.Min(max, n))
}
