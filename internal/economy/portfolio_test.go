package economy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildDailySeriesNoTrades(t *testing.T) {
	now := time.Date(2025, 7, 20, 15, 30, 0, 0, time.UTC)
	series := BuildDailySeries(nil, 10_000, 0, now)

	require.Len(t, series, 31)
	require.Equal(t, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), series[0].Date)
	require.Equal(t, time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC), series[len(series)-1].Date)

	for _, p := range series {
		require.Equal(t, float64(10_000), p.NetWorth)
	}
}

func TestBuildDailySeriesGapFree(t *testing.T) {
	now := time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{Side: "BUY", TotalCost: 2_000, CreatedAt: time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)},
		{Side: "SELL", TotalCost: 500, CreatedAt: time.Date(2025, 7, 15, 17, 0, 0, 0, time.UTC)},
	}
	series := BuildDailySeries(txs, 8_700, 1_400, now)

	// First trade day minus the 5-day lead-in through today, one point a day.
	require.Equal(t, time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), series[0].Date)
	require.Equal(t, time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC), series[len(series)-1].Date)
	require.Len(t, series, 16)
	for i := 1; i < len(series); i++ {
		require.Equal(t, series[i-1].Date.AddDate(0, 0, 1), series[i].Date, "gap before %s", series[i].Date)
	}

	// Net worth is cash+holdings at every point, interpolated or not.
	for _, p := range series {
		require.InDelta(t, p.Cash+p.Holdings, p.NetWorth, 1e-9)
	}

	// The series opens on the starting allocation.
	require.Equal(t, float64(StartingTokens), series[0].NetWorth)

	// The trade day anchor reflects the cost-basis walk.
	buyDay := series[5]
	require.Equal(t, time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC), buyDay.Date)
	require.Equal(t, float64(8_000), buyDay.Cash)
	require.Equal(t, float64(2_000), buyDay.Holdings)
}

func TestBuildDailySeriesFinalPointIsGroundTruth(t *testing.T) {
	now := time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{Side: "BUY", TotalCost: 3_000, CreatedAt: time.Date(2025, 7, 18, 9, 0, 0, 0, time.UTC)},
	}
	// Live snapshot disagrees with the replay because the market moved.
	series := BuildDailySeries(txs, 7_000, 4_250, now)

	last := series[len(series)-1]
	require.Equal(t, float64(7_000), last.Cash)
	require.Equal(t, float64(4_250), last.Holdings)
	require.Equal(t, float64(11_250), last.NetWorth)
}

func TestBuildDailySeriesSameDayTradeLastWins(t *testing.T) {
	now := time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)
	day := time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{Side: "BUY", TotalCost: 1_000, CreatedAt: day.Add(9 * time.Hour)},
		{Side: "BUY", TotalCost: 500, CreatedAt: day.Add(15 * time.Hour)},
	}
	series := BuildDailySeries(txs, 8_500, 1_500, now)

	var anchor PortfolioPoint
	for _, p := range series {
		if p.Date.Equal(day) {
			anchor = p
		}
	}
	require.Equal(t, float64(8_500), anchor.Cash)
	require.Equal(t, float64(1_500), anchor.Holdings)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 0, daysBetween(a, a))
	require.Equal(t, 9, daysBetween(a, a.AddDate(0, 0, 9)))
}
