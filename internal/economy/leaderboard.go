package economy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// rankRows turns account snapshots into a dense-ranked leaderboard. The
// sort is stable so ties keep arrival order, and ranks are a 1..N
// permutation of whatever set was evaluated.
func rankRows(snapshots []AccountSnapshot) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(snapshots))
	for _, s := range snapshots {
		total := s.CashBalance + s.HoldingsValue
		profit := total - StartingTokens
		out = append(out, LeaderboardEntry{
			UserID:        s.UserID,
			Username:      s.Username,
			Image:         s.Image,
			TotalValue:    total,
			Profit:        profit,
			PercentChange: float64(profit) / float64(StartingTokens) * 100,
			CashBalance:   s.CashBalance,
			HoldingsValue: s.HoldingsValue,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalValue > out[j].TotalValue })
	for i := range out {
		out[i].Rank = int64(i + 1)
	}
	return out
}

func (s *Service) GlobalLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		WITH holdings AS (
			SELECT user_id, COALESCE(SUM(ROUND(quantity * last_price)), 0)::bigint AS value
			FROM econ.positions
			GROUP BY user_id
		)
		SELECT b.user_id, pr.username, COALESCE(pr.image, ''), b.tokens, COALESCE(h.value, 0)
		FROM econ.balances b
		JOIN users.profiles pr ON pr.user_id = b.user_id
		LEFT JOIN holdings h ON h.user_id = b.user_id
		ORDER BY b.tokens + COALESCE(h.value, 0) DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAndRank(rows)
}

// FriendsLeaderboard ranks {followees} ∪ {self} from 1, independent of
// any global rank.
func (s *Service) FriendsLeaderboard(ctx context.Context, userID string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		WITH social AS (
			SELECT $1::text AS user_id
			UNION
			SELECT followee_user_id FROM econ.friend_follows WHERE follower_user_id = $1
		),
		holdings AS (
			SELECT user_id, COALESCE(SUM(ROUND(quantity * last_price)), 0)::bigint AS value
			FROM econ.positions
			GROUP BY user_id
		)
		SELECT b.user_id, pr.username, COALESCE(pr.image, ''), b.tokens, COALESCE(h.value, 0)
		FROM social so
		JOIN econ.balances b ON b.user_id = so.user_id
		JOIN users.profiles pr ON pr.user_id = b.user_id
		LEFT JOIN holdings h ON h.user_id = b.user_id
		ORDER BY b.tokens + COALESCE(h.value, 0) DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAndRank(rows)
}

func scanAndRank(rows pgx.Rows) ([]LeaderboardEntry, error) {
	var snapshots []AccountSnapshot
	for rows.Next() {
		var snap AccountSnapshot
		if err := rows.Scan(&snap.UserID, &snap.Username, &snap.Image, &snap.CashBalance, &snap.HoldingsValue); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankRows(snapshots), nil
}

func (s *Service) AddFriend(ctx context.Context, userID, inviteCode string) error {
	inviteCode = strings.ToUpper(strings.TrimSpace(inviteCode))
	var followee string
	err := s.db.QueryRow(ctx, `
		SELECT user_id FROM users.profiles WHERE invite_code = $1
	`, inviteCode).Scan(&followee)
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if followee == userID {
		return fmt.Errorf("cannot follow yourself")
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO econ.friend_follows (follower_user_id, followee_user_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_user_id, followee_user_id) DO NOTHING
	`, userID, followee)
	return err
}

func (s *Service) RemoveFriend(ctx context.Context, userID, inviteCode string) error {
	inviteCode = strings.ToUpper(strings.TrimSpace(inviteCode))
	var followee string
	err := s.db.QueryRow(ctx, `
		SELECT user_id FROM users.profiles WHERE invite_code = $1
	`, inviteCode).Scan(&followee)
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		DELETE FROM econ.friend_follows
		WHERE follower_user_id = $1 AND followee_user_id = $2
	`, userID, followee)
	return err
}
