package economy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPickByWeightBoundaries(t *testing.T) {
	weights := []int64{55, 25, 15, 5}

	tests := []struct {
		roll int64
		want int
	}{
		{roll: 0, want: 0},
		{roll: 54, want: 0},
		{roll: 55, want: 1},
		{roll: 79, want: 1},
		{roll: 80, want: 2},
		{roll: 94, want: 2},
		{roll: 95, want: 3},
		{roll: 99, want: 3},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, pickByWeight(weights, tc.roll), "roll=%d", tc.roll)
	}
}

func TestPickByWeightSkipsZeroWeights(t *testing.T) {
	weights := []int64{0, 10, 0, 10}
	require.Equal(t, 1, pickByWeight(weights, 0))
	require.Equal(t, 1, pickByWeight(weights, 9))
	require.Equal(t, 3, pickByWeight(weights, 10))
	require.Equal(t, 3, pickByWeight(weights, 19))
}

func TestPickByWeightOutOfRangeFavorsLast(t *testing.T) {
	require.Equal(t, 2, pickByWeight([]int64{1, 1, 1}, 500))
}

func TestPotWeightedDraw(t *testing.T) {
	// Entry stakes double as draw weights: a roll below the first stake
	// selects the first entrant, and so on through the cumulative sums.
	stakes := []int64{300, 100, 600}
	require.Equal(t, 0, pickByWeight(stakes, 299))
	require.Equal(t, 1, pickByWeight(stakes, 300))
	require.Equal(t, 2, pickByWeight(stakes, 999))
}

func TestPrizeTablesSumTo100(t *testing.T) {
	sum := func(table []prize) int64 {
		var total int64
		for _, p := range table {
			total += p.Weight
		}
		return total
	}
	require.Equal(t, int64(100), sum(scratchPrizes))
	require.Equal(t, int64(100), sum(lootboxPrizes))
}

func TestScratchJackpotBeatsTicketPrice(t *testing.T) {
	var best int64
	for _, p := range scratchPrizes {
		if p.Tokens > best {
			best = p.Tokens
		}
	}
	require.Greater(t, best, ScratchTicketCost)
}
