package economy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Pot returns the open epoch: the running total and every entry.
func (s *Service) Pot(ctx context.Context) (PotView, error) {
	var out PotView
	err := s.db.QueryRow(ctx, `
		SELECT total_tokens FROM econ.pot WHERE id = 1
	`).Scan(&out.TotalTokens)
	if err == pgx.ErrNoRows {
		out.TotalTokens = 0
	} else if err != nil {
		return out, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT user_id, tokens FROM econ.pot_entries ORDER BY user_id
	`)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var e PotEntry
		if err := rows.Scan(&e.UserID, &e.Tokens); err != nil {
			return out, err
		}
		out.Entries = append(out.Entries, e)
	}
	return out, rows.Err()
}

// EnterPot moves tokens from the caller into the shared pot. Debit, entry
// upsert and total bump share one transaction; a failed debit records
// nothing. The pot row lock serializes entries against a running draw, so
// a late entry simply lands in the next epoch.
func (s *Service) EnterPot(ctx context.Context, userID string, tokens int64, opID string) (PotEnterResult, error) {
	var out PotEnterResult
	if err := ValidateAmount(tokens); err != nil {
		return out, err
	}
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, userID, opID, "pot_enter"); err != nil {
			return err
		}
		if err := lockPotTx(ctx, tx); err != nil {
			return err
		}
		newBalance, err := applyDeltaTx(ctx, tx, userID, -tokens, "pot_enter", opID)
		if err != nil {
			return err
		}
		out.NewBalance = newBalance

		if err := tx.QueryRow(ctx, `
			INSERT INTO econ.pot_entries (user_id, tokens)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET tokens = econ.pot_entries.tokens + EXCLUDED.tokens
			RETURNING tokens
		`, userID, tokens).Scan(&out.UserTokens); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			UPDATE econ.pot SET total_tokens = total_tokens + $1 WHERE id = 1
			RETURNING total_tokens
		`, tokens).Scan(&out.TotalPot)
	})
	if err != nil {
		return PotEnterResult{}, err
	}
	s.publishChange(userID, -tokens, out.NewBalance, "pot_enter")
	return out, nil
}

// ResolveDraw picks one weighted-random winner, credits them the entire
// pot and clears the epoch, all under the pot row lock so no entry can
// slip in mid-resolution. Tokens are conserved: the amount credited is
// exactly the amount the entrants put in.
func (s *Service) ResolveDraw(ctx context.Context) (DrawResult, error) {
	var out DrawResult
	var winnerBalance int64
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		out = DrawResult{}
		if err := lockPotTx(ctx, tx); err != nil {
			return err
		}
		var total int64
		if err := tx.QueryRow(ctx, `
			SELECT total_tokens FROM econ.pot WHERE id = 1 FOR UPDATE
		`).Scan(&total); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			SELECT user_id, tokens FROM econ.pot_entries ORDER BY user_id
		`)
		if err != nil {
			return err
		}
		var entries []PotEntry
		for rows.Next() {
			var e PotEntry
			if err := rows.Scan(&e.UserID, &e.Tokens); err != nil {
				rows.Close()
				return err
			}
			entries = append(entries, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if len(entries) == 0 || total <= 0 {
			return ErrPotEmpty
		}
		var sum int64
		weights := make([]int64, len(entries))
		for i, e := range entries {
			sum += e.Tokens
			weights[i] = e.Tokens
		}
		if sum != total {
			return fmt.Errorf("pot invariant violated: entries sum %d != total %d", sum, total)
		}

		winner := entries[pickByWeight(weights, s.rollBelow(total))]
		opID := uuid.NewString()
		winnerBalance, err = applyDeltaTx(ctx, tx, winner.UserID, total, "pot_win", opID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM econ.pot_entries`); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE econ.pot SET total_tokens = 0 WHERE id = 1`); err != nil {
			return err
		}

		out = DrawResult{WinnerUserID: winner.UserID, Tokens: total, Entrants: len(entries)}
		s.log.Info("pot draw resolved",
			"winner", winner.UserID, "tokens", total, "entrants", len(entries))
		return nil
	})
	if err != nil {
		return DrawResult{}, err
	}
	s.publishChange(out.WinnerUserID, out.Tokens, winnerBalance, "pot_win")
	return out, nil
}

// lockPotTx takes the pot-wide exclusive section, creating the singleton
// row on first use.
func lockPotTx(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO econ.pot (id, total_tokens) VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		return err
	}
	var id int
	return tx.QueryRow(ctx, `SELECT id FROM econ.pot WHERE id = 1 FOR UPDATE`).Scan(&id)
}
