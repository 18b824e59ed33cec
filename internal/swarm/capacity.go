package swarm

import (
	"os"
	"strconv"
)

// Per-tier agent caps. Unknown tiers fall back to the private cap.
var tierCaps = map[string]int{
	"private":    4,
	"starter":    3,
	"pro":        8,
	"enterprise": 20,
}

// DefaultMachineCap bounds agent count on this machine when MAX_SWARM_AGENTS
// is unset.
const DefaultMachineCap = 4

// Limits describes the capacity bounds that apply to an account on this
// machine. Effective is a pure min-reduction over the three bounds with a
// floor of one; there is no scheduling behavior here.
type Limits struct {
	TierCap    int `json:"tierCap"`
	MachineCap int `json:"machineCap"`
	Effective  int `json:"effective"`
}

// TierCaps returns a copy of the per-tier cap table.
func TierCaps() map[string]int {
	out := make(map[string]int, len(tierCaps))
	for k, v := range tierCaps {
		out[k] = v
	}
	return out
}

// TierCap returns the agent cap for an account tier.
func TierCap(accountType string) int {
	if cap, ok := tierCaps[accountType]; ok {
		return cap
	}
	return tierCaps["private"]
}

// MachineCap reads the machine-wide agent cap from the environment.
func MachineCap() int {
	if v := os.Getenv("MAX_SWARM_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMachineCap
}

// Clamp resolves the effective agent count for a request.
func Clamp(requested int, accountType string, machineCap int) Limits {
	tierCap := TierCap(accountType)
	effective := requested
	if tierCap < effective {
		effective = tierCap
	}
	if machineCap < effective {
		effective = machineCap
	}
	if effective < 1 {
		effective = 1
	}
	return Limits{TierCap: tierCap, MachineCap: machineCap, Effective: effective}
}
