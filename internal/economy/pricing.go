package economy

import "math"

// Token valuation is purely supply driven: the more tokens in circulation,
// the less each one is worth, decaying exponentially between two hard
// bounds.
const (
	MaxTokenValue = float64(500_000)
	MinTokenValue = float64(0.01)
	DecayK        = 0.0001
)

// TokenValue maps circulating supply to the unit token value. It is
// deterministic and monotonically non-increasing in supply; TokenValue(0)
// is MaxTokenValue and the result never drops below MinTokenValue.
// Negative supply is a caller bug and is clamped to zero rather than
// producing a value above the ceiling.
func TokenValue(supply int64) float64 {
	if supply < 0 {
		supply = 0
	}
	v := MaxTokenValue * math.Exp(-DecayK*float64(supply))
	if v > MaxTokenValue {
		return MaxTokenValue
	}
	if v < MinTokenValue {
		return MinTokenValue
	}
	return v
}
