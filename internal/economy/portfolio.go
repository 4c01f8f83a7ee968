package economy

import (
	"context"
	"sort"
	"time"
)

// PortfolioHistory rebuilds the caller's daily net-worth series from the
// immutable trade log, pinned to the live cash/holdings snapshot.
func (s *Service) PortfolioHistory(ctx context.Context, userID string) ([]PortfolioPoint, error) {
	txs, err := s.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	cash, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.HoldingsValue(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BuildDailySeries(txs, float64(cash), float64(holdings), s.now()), nil
}

// BuildDailySeries replays an ordered trade log into a gap-free daily
// series from a synthetic start date through today.
//
// The replay tracks cost basis only: a BUY moves total_cost from cash into
// holdings and a SELL moves it back. Market drift is not replayed, which
// is why the final point is pinned to the live ground truth instead of the
// accumulated running values. Days without activity are linearly
// interpolated; net worth is cash+holdings at every point.
func BuildDailySeries(txs []Transaction, currentCash, currentHoldings float64, now time.Time) []PortfolioPoint {
	today := DayOf(now)
	start := today.AddDate(0, 0, -30)
	if len(txs) > 0 {
		start = DayOf(txs[0].CreatedAt).AddDate(0, 0, -5)
	}
	if start.After(today) {
		start = today
	}

	type anchor struct {
		cash, holdings float64
	}
	anchors := map[time.Time]anchor{
		start: {cash: float64(StartingTokens), holdings: 0},
	}

	runningCash := float64(StartingTokens)
	runningHoldings := float64(0)
	for _, t := range txs {
		cost := float64(t.TotalCost)
		if t.Side == "BUY" {
			runningCash -= cost
			runningHoldings += cost
		} else {
			runningCash += cost
			runningHoldings -= cost
		}
		day := DayOf(t.CreatedAt)
		if day.Before(start) {
			day = start
		}
		if day.After(today) {
			day = today
		}
		anchors[day] = anchor{cash: runningCash, holdings: runningHoldings}
	}

	// Ground truth always wins over the cost-basis walk.
	anchors[today] = anchor{cash: currentCash, holdings: currentHoldings}

	dates := make([]time.Time, 0, len(anchors))
	for d := range anchors {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var out []PortfolioPoint
	for i, d := range dates {
		a := anchors[d]
		out = append(out, PortfolioPoint{
			Date:     d,
			Cash:     a.cash,
			Holdings: a.holdings,
			NetWorth: a.cash + a.holdings,
		})
		if i == len(dates)-1 {
			break
		}
		next := dates[i+1]
		b := anchors[next]
		span := daysBetween(d, next)
		for step := 1; step < span; step++ {
			frac := float64(step) / float64(span)
			cash := a.cash + (b.cash-a.cash)*frac
			holdings := a.holdings + (b.holdings-a.holdings)*frac
			out = append(out, PortfolioPoint{
				Date:     d.AddDate(0, 0, step),
				Cash:     cash,
				Holdings: holdings,
				NetWorth: cash + holdings,
			})
		}
	}
	return out
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
