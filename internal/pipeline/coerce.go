package pipeline

import (
	"encoding/json"
	"strconv"

	"github.com/oddslab/edgegate/internal/domain/scoring"
)

// Number is a float64 that tolerates sloppy JSON: it accepts numbers or
// numeric strings, and records whether a usable value was present at all.
// Anything unparseable is treated as absent rather than an error, so a
// malformed candidate field can never fail a request.
type Number struct {
	Value float64
	Valid bool
}

// Or returns the parsed value, or fallback when the field was absent or
// unparseable.
func (n Number) Or(fallback float64) float64 {
	if n.Valid {
		return n.Value
	}
	return fallback
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Number{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = Number{Value: f, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*n = Number{Value: f, Valid: true}
			return nil
		}
	}
	*n = Number{}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON decodes a candidate with coercion semantics: numeric fields
// parse as numbers and default on failure (zero, except volatilityRisk which
// defaults to 50 when absent).
func (c *Candidate) UnmarshalJSON(b []byte) error {
	var raw struct {
		Market       string   `json:"market"`
		Side         string   `json:"side"`
		Thesis       string   `json:"thesis"`
		Evidence     []string `json:"evidence"`
		Invalidators []string `json:"invalidators"`

		EdgePct         Number `json:"edgePct"`
		Liquidity       Number `json:"liquidity"`
		EvidenceQuality Number `json:"evidenceQuality"`
		VolatilityRisk  Number `json:"volatilityRisk"`

		OddsAtSignal Number `json:"oddsAtSignal"`
		CurrentOdds  Number `json:"currentOdds"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*c = Candidate{
		Market:          raw.Market,
		Side:            raw.Side,
		Thesis:          raw.Thesis,
		Evidence:        raw.Evidence,
		Invalidators:    raw.Invalidators,
		EdgePct:         raw.EdgePct.Or(0),
		Liquidity:       raw.Liquidity.Or(0),
		EvidenceQuality: raw.EvidenceQuality.Or(0),
		VolatilityRisk:  raw.VolatilityRisk.Or(scoring.DefaultVolatilityRisk),
		OddsAtSignal:    raw.OddsAtSignal.Or(0),
		CurrentOdds:     raw.CurrentOdds.Or(0),
	}
	return nil
}
