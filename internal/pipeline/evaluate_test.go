package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strongCandidate() Candidate {
	return Candidate{
		Market:          "Will X win the election?",
		Side:            "YES",
		EdgePct:         10,
		Liquidity:       50000,
		EvidenceQuality: 80,
		VolatilityRisk:  30,
		OddsAtSignal:    2.0,
		CurrentOdds:     2.01,
	}
}

func defaultContext() RiskContext {
	return RiskContext{BankrollUsd: 10000, MaxRiskPerTradePct: 1}
}

func TestEvaluate_Approval(t *testing.T) {
	v := Evaluate(strongCandidate(), defaultContext(), 1.5)

	require.True(t, v.Approved)
	assert.Empty(t, v.Reason)
	assert.Equal(t, 66, v.SignalScore)
	assert.True(t, v.Risk.Approved)
	assert.InDelta(t, 22.00, v.Risk.RiskUsd, 1e-9)
	require.NotNil(t, v.SlippagePct)
	assert.InDelta(t, 0.5, *v.SlippagePct, 1e-9)
	assert.Equal(t, 1.5, v.SlippageTolerancePct)
}

func TestEvaluate_RiskGateRejection(t *testing.T) {
	c := strongCandidate()
	c.EdgePct = 0
	c.EvidenceQuality = 20 // scores well below the approval floor
	// A hostile quote drift must be irrelevant: slippage never runs.
	c.CurrentOdds = 100

	v := Evaluate(c, defaultContext(), 1.5)

	assert.False(t, v.Approved)
	assert.Equal(t, ReasonSignalOrRiskGate, v.Reason)
	assert.False(t, v.Risk.Approved)
	assert.Nil(t, v.SlippagePct, "slippage stage must be short-circuited")
	assert.Less(t, v.SignalScore, 65)
}

func TestEvaluate_SlippageRejection(t *testing.T) {
	c := strongCandidate()
	c.OddsAtSignal = 2.0
	c.CurrentOdds = 2.3 // 15% drift

	v := Evaluate(c, defaultContext(), 10)

	assert.False(t, v.Approved)
	assert.Equal(t, ReasonSlippageExceeded, v.Reason)
	assert.True(t, v.Risk.Approved, "rejection carries the full risk decision")
	require.NotNil(t, v.SlippagePct)
	assert.InDelta(t, 15.0, *v.SlippagePct, 1e-9)
	assert.Equal(t, 10.0, v.SlippageTolerancePct)
}

func TestEvaluate_MissingQuotesDoNotBlock(t *testing.T) {
	c := strongCandidate()
	c.OddsAtSignal = 0
	c.CurrentOdds = 0

	v := Evaluate(c, defaultContext(), 0.0001)

	assert.True(t, v.Approved, "nil slippage means no information, not a breach")
	assert.Nil(t, v.SlippagePct)
}

func TestEvaluate_ZeroBankrollRejects(t *testing.T) {
	v := Evaluate(strongCandidate(), RiskContext{BankrollUsd: 0, MaxRiskPerTradePct: 1}, 1.5)
	assert.False(t, v.Approved)
	assert.Equal(t, ReasonSignalOrRiskGate, v.Reason)
}

func TestEvaluate_Deterministic(t *testing.T) {
	a := Evaluate(strongCandidate(), defaultContext(), 1.5)
	b := Evaluate(strongCandidate(), defaultContext(), 1.5)
	a.EvaluatedAt = b.EvaluatedAt
	assert.Equal(t, a, b)
}
