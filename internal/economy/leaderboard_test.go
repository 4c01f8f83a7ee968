package economy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRankRowsOrderingAndRanks(t *testing.T) {
	rows := rankRows([]AccountSnapshot{
		{UserID: "a", Username: "alpha", CashBalance: 9_000, HoldingsValue: 0},
		{UserID: "b", Username: "beta", CashBalance: 4_000, HoldingsValue: 11_000},
		{UserID: "c", Username: "gamma", CashBalance: 10_000, HoldingsValue: 2_500},
	})

	require.Len(t, rows, 3)
	require.Equal(t, "b", rows[0].UserID)
	require.Equal(t, "c", rows[1].UserID)
	require.Equal(t, "a", rows[2].UserID)

	for i, r := range rows {
		require.Equal(t, int64(i+1), r.Rank)
	}
	for i := 1; i < len(rows); i++ {
		require.GreaterOrEqual(t, rows[i-1].TotalValue, rows[i].TotalValue)
	}
}

func TestRankRowsProfitMath(t *testing.T) {
	rows := rankRows([]AccountSnapshot{
		{UserID: "up", CashBalance: 9_000, HoldingsValue: 3_500},
		{UserID: "down", CashBalance: 7_500, HoldingsValue: 0},
	})

	require.Equal(t, int64(12_500), rows[0].TotalValue)
	require.Equal(t, int64(2_500), rows[0].Profit)
	require.InDelta(t, 25.0, rows[0].PercentChange, 1e-9)

	require.Equal(t, int64(-2_500), rows[1].Profit)
	require.InDelta(t, -25.0, rows[1].PercentChange, 1e-9)
}

func TestRankRowsStableTies(t *testing.T) {
	rows := rankRows([]AccountSnapshot{
		{UserID: "first", CashBalance: 10_000},
		{UserID: "second", CashBalance: 10_000},
		{UserID: "third", CashBalance: 10_000},
	})

	require.Equal(t, "first", rows[0].UserID)
	require.Equal(t, "second", rows[1].UserID)
	require.Equal(t, "third", rows[2].UserID)
	require.Equal(t, int64(1), rows[0].Rank)
	require.Equal(t, int64(2), rows[1].Rank)
	require.Equal(t, int64(3), rows[2].Rank)
}

func TestRankRowsEmpty(t *testing.T) {
	require.Empty(t, rankRows(nil))
}
