package risk

import (
	"math"
)

// Hard thresholds for the sizing gate. The approval floor is independent of
// the continuous risk ramp: a score can earn a positive risk fraction on the
// ramp and still fail the floor.
const (
	// MinApprovalScore is the hard signal-score floor for approval.
	MinApprovalScore = 65

	// rampFloor / rampSpan define the linear risk ramp: zero risk at score 55,
	// full per-trade cap 50 points above it.
	rampFloor = 55.0
	rampSpan  = 50.0

	// rrMin tiers. Top-tier signals must clear the stricter reward:risk bar.
	RRMinStandard = 1.4
	RRMinTopTier  = 1.8
	topTierScore  = 80
)

// DefaultMaxRiskPerTradePct is used when the account has no explicit cap.
const DefaultMaxRiskPerTradePct = 1.0

// Decision is an immutable sizing verdict for one signal score against one
// bankroll. Created fresh per evaluation, never mutated.
type Decision struct {
	Approved bool    `json:"approved"`
	RiskPct  float64 `json:"riskPct"` // 0 <= RiskPct <= cap, rounded to 3dp
	RiskUsd  float64 `json:"riskUsd"` // rounded to cents
	RRMin    float64 `json:"rrMin"`   // minimum acceptable reward:risk
}

// Decide converts a signal score plus account risk settings into a sizing
// decision. Pure and total: out-of-range inputs are clamped, never rejected
// with an error. A negative bankroll sizes to zero, a negative or >100 cap is
// clamped to [0,100]; either way an empty size means no approval.
func Decide(bankrollUsd float64, signalScore int, maxRiskPerTradePct float64) Decision {
	cap := clamp(maxRiskPerTradePct, 0, 100)
	bankroll := math.Max(bankrollUsd, 0)

	baseRiskPct := clamp((float64(signalScore)-rampFloor)/rampSpan, 0, 1) * cap
	riskUsd := round2(bankroll * baseRiskPct / 100)

	rrMin := RRMinStandard
	if signalScore >= topTierScore {
		rrMin = RRMinTopTier
	}

	return Decision{
		Approved: signalScore >= MinApprovalScore && riskUsd > 0,
		RiskPct:  round3(baseRiskPct),
		RiskUsd:  riskUsd,
		RRMin:    rrMin,
	}
}

func clamp(n, min, max float64) float64 {
	return math.Max(min, math.Min(max, n))
}

func round2(n float64) float64 {
	return math.Round(n*100) / 100
}

func round3(n float64) float64 {
	return math.Round(n*1000) / 1000
}
