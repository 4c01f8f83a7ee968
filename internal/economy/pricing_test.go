package economy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenValueAtZeroSupply(t *testing.T) {
	require.Equal(t, MaxTokenValue, TokenValue(0))
}

func TestTokenValueNegativeSupplyClamps(t *testing.T) {
	require.Equal(t, MaxTokenValue, TokenValue(-500))
}

func TestTokenValueDecay(t *testing.T) {
	// 500_000 * e^(-0.0001 * 1000)
	require.InDelta(t, 452_418.709, TokenValue(1_000), 0.01)
}

func TestTokenValueMonotonicallyDecreasing(t *testing.T) {
	// Strictly decreasing while the curve is above the floor.
	prev := TokenValue(0)
	for _, supply := range []int64{1, 100, 10_000, 100_000} {
		v := TokenValue(supply)
		require.Less(t, v, prev, "supply %d", supply)
		prev = v
	}

	// Past the floor crossing the curve flattens at MinTokenValue, so the
	// guarantee weakens to non-increasing.
	require.Equal(t, MinTokenValue, TokenValue(1_000_000))
	require.LessOrEqual(t, TokenValue(50_000_000), TokenValue(1_000_000))
}

func TestTokenValueFloor(t *testing.T) {
	// Deep in the decay tail the raw exponential is below the floor.
	v := TokenValue(1_000_000_000)
	require.Equal(t, MinTokenValue, v)
}
