package economy

import (
	"context"
)

const (
	// Stored points drifting beyond these ratios of the live supply are
	// treated as outliers on the read path.
	staleHighRatio = 1.5
	staleLowRatio  = 0.5
	// Resynthesized points land within ±10% of the live supply.
	synthJitter = 0.10
)

// RecordSnapshot samples the live circulating supply and upserts the
// current hour bucket. Repeated calls inside one hour converge on the
// latest reading instead of stacking rows, so the schedule is free to
// over-fire.
func (s *Service) RecordSnapshot(ctx context.Context) (MarketPoint, error) {
	supply, err := s.CirculatingSupply(ctx)
	if err != nil {
		return MarketPoint{}, err
	}
	point := MarketPoint{
		Bucket:                HourBucket(s.now()),
		TokenValue:            TokenValue(supply),
		TokensInCirculation:   supply,
		TotalTransactionValue: TokenValue(supply) * float64(supply),
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO econ.market_history (bucket, token_value, tokens_in_circulation, total_transaction_value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bucket) DO UPDATE
		SET token_value = EXCLUDED.token_value,
		    tokens_in_circulation = EXCLUDED.tokens_in_circulation,
		    total_transaction_value = EXCLUDED.total_transaction_value
		RETURNING id
	`, point.Bucket, point.TokenValue, point.TokensInCirculation, point.TotalTransactionValue).Scan(&point.ID)
	if err != nil {
		return MarketPoint{}, err
	}
	return point, nil
}

// History returns up to limit points, oldest first. The read path degrades
// rather than fails: a broken store yields one synthetic point from the
// live aggregate, an empty store seeds and persists a first point, and
// badly stale points are corrected on the returned copy only.
func (s *Service) History(ctx context.Context, limit int) ([]MarketPoint, error) {
	if limit <= 0 {
		limit = 24
	}
	supply, err := s.CirculatingSupply(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, bucket, token_value, tokens_in_circulation, total_transaction_value
		FROM econ.market_history
		ORDER BY bucket DESC
		LIMIT $1
	`, limit)
	if err != nil {
		s.log.Warn("market history read failed, serving synthetic point", "err", err)
		return []MarketPoint{s.syntheticPoint(supply)}, nil
	}
	defer rows.Close()

	var desc []MarketPoint
	for rows.Next() {
		var p MarketPoint
		if err := rows.Scan(&p.ID, &p.Bucket, &p.TokenValue, &p.TokensInCirculation, &p.TotalTransactionValue); err != nil {
			s.log.Warn("market history scan failed, serving synthetic point", "err", err)
			return []MarketPoint{s.syntheticPoint(supply)}, nil
		}
		desc = append(desc, p)
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("market history rows failed, serving synthetic point", "err", err)
		return []MarketPoint{s.syntheticPoint(supply)}, nil
	}

	if len(desc) == 0 {
		point, err := s.RecordSnapshot(ctx)
		if err != nil {
			return []MarketPoint{s.syntheticPoint(supply)}, nil
		}
		return []MarketPoint{point}, nil
	}

	asc := make([]MarketPoint, len(desc))
	for i, p := range desc {
		asc[len(desc)-1-i] = p
	}
	return correctHistory(asc, supply, s.nextFloat), nil
}

func (s *Service) syntheticPoint(supply int64) MarketPoint {
	return MarketPoint{
		Bucket:                HourBucket(s.now()),
		TokenValue:            TokenValue(supply),
		TokensInCirculation:   supply,
		TotalTransactionValue: TokenValue(supply) * float64(supply),
		Synthetic:             true,
	}
}

// correctHistory replaces outlier points, for display only, with values
// resynthesized around the live supply. The stored rows stay untouched;
// the substitution is deliberately visible via the Synthetic flag.
func correctHistory(points []MarketPoint, liveSupply int64, roll func() float64) []MarketPoint {
	out := make([]MarketPoint, len(points))
	copy(out, points)
	for i := range out {
		if !isStale(out[i].TokensInCirculation, liveSupply) {
			continue
		}
		synth := int64(float64(liveSupply) * (1 - synthJitter + 2*synthJitter*roll()))
		if synth < 0 {
			synth = 0
		}
		out[i].TokensInCirculation = synth
		out[i].TokenValue = TokenValue(synth)
		out[i].TotalTransactionValue = out[i].TokenValue * float64(synth)
		out[i].Synthetic = true
	}
	return out
}

func isStale(stored, live int64) bool {
	if live <= 0 {
		return stored != 0
	}
	ratio := float64(stored) / float64(live)
	return ratio > staleHighRatio || ratio < staleLowRatio
}
