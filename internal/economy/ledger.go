package economy

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"tokenomy/internal/events"
)

// Credit adds tokens to a user's balance as one atomic unit and returns
// the new balance. opID is the client-generated operation id used for
// idempotent reconciliation.
func (s *Service) Credit(ctx context.Context, userID string, tokens int64, reason, opID string) (int64, error) {
	if err := ValidateAmount(tokens); err != nil {
		return 0, err
	}
	return s.applyDelta(ctx, userID, tokens, reason, opID)
}

// Debit removes tokens, failing with ErrInsufficientFunds when the balance
// cannot cover the amount. On any failure the balance is untouched. The
// amount is validated before negation so a negative argument can never
// invert into a credit.
func (s *Service) Debit(ctx context.Context, userID string, tokens int64, reason, opID string) (int64, error) {
	if err := ValidateAmount(tokens); err != nil {
		return 0, err
	}
	return s.applyDelta(ctx, userID, -tokens, reason, opID)
}

func (s *Service) applyDelta(ctx context.Context, userID string, delta int64, reason, opID string) (int64, error) {
	var newBalance int64
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, userID, opID, "ledger"); err != nil {
			return err
		}
		var err error
		newBalance, err = applyDeltaTx(ctx, tx, userID, delta, reason, opID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.publishChange(userID, delta, newBalance, reason)
	return newBalance, nil
}

// applyDeltaTx is the single place a balance row changes: lock, validate,
// write, append the ledger entry. Callers composing larger atomic units
// (trades, pot, rewards) reuse it inside their own transactions.
func applyDeltaTx(ctx context.Context, tx pgx.Tx, userID string, delta int64, reason, opID string) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		SELECT tokens FROM econ.balances
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	next := balance + delta
	if next < 0 {
		return 0, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `
		UPDATE econ.balances
		SET tokens = $1, updated_at = now()
		WHERE user_id = $2
	`, next, userID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO econ.token_ledger (op_id, user_id, delta, reason)
		VALUES ($1, $2, $3, $4)
	`, opID, userID, delta, reason); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	var tokens int64
	err := s.db.QueryRow(ctx, `
		SELECT tokens FROM econ.balances WHERE user_id = $1
	`, userID).Scan(&tokens)
	if err == pgx.ErrNoRows {
		return 0, ErrNotFound
	}
	return tokens, err
}

// CirculatingSupply is the aggregate read backing the pricing model: the
// sum of every balance at query time. It is an explicit query, never a
// cached global.
func (s *Service) CirculatingSupply(ctx context.Context) (int64, error) {
	var supply int64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(tokens), 0)::bigint FROM econ.balances
	`).Scan(&supply)
	return supply, err
}

func (s *Service) publishChange(userID string, delta, newBalance int64, reason string) {
	s.bus.Publish(events.BalanceChange{
		UserID:     userID,
		Delta:      delta,
		NewBalance: newBalance,
		Reason:     reason,
		At:         time.Now(),
	})
}
