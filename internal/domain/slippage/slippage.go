package slippage

import (
	"math"
)

// Drift returns the absolute percentage move between the odds quoted when the
// signal was recorded and the current quote, rounded to 4 decimal places.
// When either quote is missing, zero, or negative there is no meaningful
// comparison and the result is nil — the absence of slippage information, not
// a zero-drift reading.
func Drift(oddsAtSignal, currentOdds float64) *float64 {
	if !(oddsAtSignal > 0) || !(currentOdds > 0) {
		return nil
	}
	pct := math.Round(math.Abs((currentOdds-oddsAtSignal)/oddsAtSignal)*100*1e4) / 1e4
	return &pct
}

// Exceeds reports whether a drift reading blocks entry under the given
// tolerance. A nil reading never blocks.
func Exceeds(driftPct *float64, tolerancePct float64) bool {
	return driftPct != nil && *driftPct > tolerancePct
}
