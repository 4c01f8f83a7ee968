package economy

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

var symbolRE = regexp.MustCompile(`^[A-Z]{1,8}$`)

func ValidateSymbol(symbol string) error {
	if !symbolRE.MatchString(strings.TrimSpace(symbol)) {
		return ErrInvalidSymbol
	}
	return nil
}

// PlaceTrade executes a paper trade at the quoted price: the cash leg goes
// through the ledger, the position is updated and one immutable row lands
// in the transaction log, all in a single atomic unit. Quotes come from
// the external market feed; this engine only trusts the caller's price to
// be positive and finite.
func (s *Service) PlaceTrade(ctx context.Context, in TradeInput) (TradeResult, error) {
	var out TradeResult
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	in.Side = strings.ToUpper(strings.TrimSpace(in.Side))
	if err := ValidateSymbol(in.Symbol); err != nil {
		return out, err
	}
	if in.Side != "BUY" && in.Side != "SELL" {
		return out, ErrInvalidAmount
	}
	if in.Quantity <= 0 {
		return out, ErrInvalidAmount
	}
	if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) || in.Price <= 0 {
		return out, ErrInvalidAmount
	}
	totalCost := roundTokens(float64(in.Quantity) * in.Price)
	if totalCost <= 0 {
		return out, ErrInvalidAmount
	}

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "trade"); err != nil {
			return err
		}

		var err error
		switch in.Side {
		case "BUY":
			out.NewBalance, err = applyDeltaTx(ctx, tx, in.UserID, -totalCost, "trade_buy", in.IdempotencyKey)
			if err != nil {
				return err
			}
			if err := upsertBuyPositionTx(ctx, tx, in.UserID, in.Symbol, in.Quantity, in.Price); err != nil {
				return err
			}
		case "SELL":
			if err := reduceSellPositionTx(ctx, tx, in.UserID, in.Symbol, in.Quantity, in.Price); err != nil {
				return err
			}
			out.NewBalance, err = applyDeltaTx(ctx, tx, in.UserID, totalCost, "trade_sell", in.IdempotencyKey)
			if err != nil {
				return err
			}
		}

		return tx.QueryRow(ctx, `
			INSERT INTO econ.transactions (user_id, symbol, side, quantity, price, total_cost)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, in.UserID, in.Symbol, in.Side, in.Quantity, in.Price, totalCost).Scan(&out.TransactionID)
	})
	if err != nil {
		return TradeResult{}, err
	}

	out.Symbol = in.Symbol
	out.Side = in.Side
	out.Quantity = in.Quantity
	out.Price = in.Price
	out.TotalCost = totalCost
	delta := totalCost
	if in.Side == "BUY" {
		delta = -totalCost
	}
	s.publishChange(in.UserID, delta, out.NewBalance, "trade")
	return out, nil
}

// Transactions returns the user's trade log in replay order.
func (s *Service) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, symbol, side, quantity, price, total_cost, created_at
		FROM econ.transactions
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.TotalCost, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// HoldingsValue marks positions to their last traded price.
func (s *Service) HoldingsValue(ctx context.Context, userID string) (int64, error) {
	var value int64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(ROUND(quantity * last_price)), 0)::bigint
		FROM econ.positions
		WHERE user_id = $1
	`, userID).Scan(&value)
	return value, err
}

func upsertBuyPositionTx(ctx context.Context, tx pgx.Tx, userID, symbol string, quantity int64, price float64) error {
	var oldQty int64
	var oldAvg float64
	err := tx.QueryRow(ctx, `
		SELECT quantity, avg_price FROM econ.positions
		WHERE user_id = $1 AND symbol = $2
		FOR UPDATE
	`, userID, symbol).Scan(&oldQty, &oldAvg)
	if err == pgx.ErrNoRows {
		_, err = tx.Exec(ctx, `
			INSERT INTO econ.positions (user_id, symbol, quantity, avg_price, last_price)
			VALUES ($1, $2, $3, $4, $4)
		`, userID, symbol, quantity, price)
		return err
	}
	if err != nil {
		return err
	}

	newQty := oldQty + quantity
	newAvg := (oldAvg*float64(oldQty) + price*float64(quantity)) / float64(newQty)
	_, err = tx.Exec(ctx, `
		UPDATE econ.positions
		SET quantity = $1, avg_price = $2, last_price = $3, updated_at = now()
		WHERE user_id = $4 AND symbol = $5
	`, newQty, newAvg, price, userID, symbol)
	return err
}

func reduceSellPositionTx(ctx context.Context, tx pgx.Tx, userID, symbol string, quantity int64, price float64) error {
	var oldQty int64
	err := tx.QueryRow(ctx, `
		SELECT quantity FROM econ.positions
		WHERE user_id = $1 AND symbol = $2
		FOR UPDATE
	`, userID, symbol).Scan(&oldQty)
	if err == pgx.ErrNoRows {
		return ErrInsufficientShares
	}
	if err != nil {
		return err
	}
	if oldQty < quantity {
		return ErrInsufficientShares
	}
	next := oldQty - quantity
	if next == 0 {
		_, err := tx.Exec(ctx, `
			DELETE FROM econ.positions WHERE user_id = $1 AND symbol = $2
		`, userID, symbol)
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE econ.positions
		SET quantity = $1, last_price = $2, updated_at = now()
		WHERE user_id = $3 AND symbol = $4
	`, next, price, userID, symbol)
	return err
}
