package economy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsStale(t *testing.T) {
	live := int64(10_000)

	require.False(t, isStale(10_000, live))
	require.False(t, isStale(14_999, live))
	require.False(t, isStale(5_001, live))

	require.True(t, isStale(15_001, live))
	require.True(t, isStale(4_999, live))

	// Zero live supply tolerates only zero stored supply.
	require.False(t, isStale(0, 0))
	require.True(t, isStale(1, 0))
}

func TestCorrectHistoryReplacesOutliers(t *testing.T) {
	live := int64(10_000)
	bucket := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	points := []MarketPoint{
		{Bucket: bucket, TokensInCirculation: 9_800, TokenValue: TokenValue(9_800)},
		{Bucket: bucket.Add(time.Hour), TokensInCirculation: 90_000, TokenValue: TokenValue(90_000)},
	}

	// roll=0.5 resynthesizes exactly at the live supply.
	got := correctHistory(points, live, func() float64 { return 0.5 })

	require.Len(t, got, 2)
	require.False(t, got[0].Synthetic)
	require.Equal(t, int64(9_800), got[0].TokensInCirculation)

	require.True(t, got[1].Synthetic)
	require.Equal(t, live, got[1].TokensInCirculation)
	require.Equal(t, TokenValue(live), got[1].TokenValue)
	require.Equal(t, TokenValue(live)*float64(live), got[1].TotalTransactionValue)

	// Stored data is never mutated in place.
	require.Equal(t, int64(90_000), points[1].TokensInCirculation)
	require.False(t, points[1].Synthetic)
}

func TestCorrectHistoryJitterBounds(t *testing.T) {
	live := int64(10_000)
	points := []MarketPoint{{TokensInCirculation: 1}}

	low := correctHistory(points, live, func() float64 { return 0 })
	require.Equal(t, int64(9_000), low[0].TokensInCirculation)

	high := correctHistory(points, live, func() float64 { return 0.999999 })
	require.InDelta(t, 11_000, float64(high[0].TokensInCirculation), 1)
}
