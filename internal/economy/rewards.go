package economy

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// pickByWeight is the shared draw primitive behind the pot lottery,
// scratch tickets and lootboxes. roll must be in [0, sum(weights));
// entry i wins with probability weights[i]/sum. Zero-weight entries never
// win.
func pickByWeight(weights []int64, roll int64) int {
	var acc int64
	for i, w := range weights {
		acc += w
		if roll < acc {
			return i
		}
	}
	// Only reachable on a caller bug (roll >= sum); favor the last entry
	// over a panic.
	return len(weights) - 1
}

type prize struct {
	Name   string
	Tokens int64
	Weight int64
}

// Reward tables are intentionally small; the catalog lives with the
// content team, the selection policy lives here.
var scratchPrizes = []prize{
	{Name: "dud", Tokens: 0, Weight: 55},
	{Name: "small", Tokens: 15, Weight: 25},
	{Name: "medium", Tokens: 45, Weight: 15},
	{Name: "jackpot", Tokens: 300, Weight: 5},
}

var lootboxPrizes = []prize{
	{Name: "common", Tokens: 25, Weight: 60},
	{Name: "rare", Tokens: 120, Weight: 30},
	{Name: "epic", Tokens: 400, Weight: 9},
	{Name: "legendary", Tokens: 2_000, Weight: 1},
}

// ClaimDailyBonus credits the login bonus at most once per cooldown
// window.
func (s *Service) ClaimDailyBonus(ctx context.Context, userID, opID string) (RewardResult, error) {
	out := RewardResult{Kind: "daily", Won: DailyBonusTokens}
	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, userID, opID, "daily_bonus"); err != nil {
			return err
		}
		var sinceLast *float64
		if err := tx.QueryRow(ctx, `
			SELECT EXTRACT(EPOCH FROM now() - MAX(claimed_at))::float8
			FROM econ.reward_claims
			WHERE user_id = $1 AND kind = 'daily'
		`, userID).Scan(&sinceLast); err != nil {
			return err
		}
		if sinceLast != nil && *sinceLast < DailyBonusCooldown.Seconds() {
			return ErrRewardCooldown
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO econ.reward_claims (user_id, kind, prize, tokens)
			VALUES ($1, 'daily', 'login_bonus', $2)
		`, userID, DailyBonusTokens); err != nil {
			return err
		}
		newBalance, err := applyDeltaTx(ctx, tx, userID, DailyBonusTokens, "daily_bonus", opID)
		out.NewBalance = newBalance
		return err
	})
	if err != nil {
		return RewardResult{}, err
	}
	s.publishChange(userID, DailyBonusTokens, out.NewBalance, "daily_bonus")
	return out, nil
}

// OpenScratchTicket debits the ticket price and credits whatever the draw
// lands on, in one atomic unit. An insufficient balance records nothing,
// not even the ticket.
func (s *Service) OpenScratchTicket(ctx context.Context, userID, opID string) (RewardResult, error) {
	return s.openDraw(ctx, userID, opID, "scratch", ScratchTicketCost, scratchPrizes)
}

func (s *Service) OpenLootbox(ctx context.Context, userID, opID string) (RewardResult, error) {
	return s.openDraw(ctx, userID, opID, "lootbox", LootboxCost, lootboxPrizes)
}

func (s *Service) openDraw(ctx context.Context, userID, opID, kind string, cost int64, table []prize) (RewardResult, error) {
	out := RewardResult{Kind: kind, Cost: cost}

	var totalWeight int64
	weights := make([]int64, len(table))
	for i, p := range table {
		totalWeight += p.Weight
		weights[i] = p.Weight
	}
	won := table[pickByWeight(weights, s.rollBelow(totalWeight))]
	out.Prize = won.Name
	out.Won = won.Tokens

	err := s.runSerializable(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, userID, opID, kind); err != nil {
			return err
		}
		var err error
		out.NewBalance, err = applyDeltaTx(ctx, tx, userID, -cost, kind+"_buy", opID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO econ.reward_claims (user_id, kind, prize, tokens)
			VALUES ($1, $2, $3, $4)
		`, userID, kind, won.Name, won.Tokens); err != nil {
			return err
		}
		if won.Tokens > 0 {
			out.NewBalance, err = applyDeltaTx(ctx, tx, userID, won.Tokens, kind+"_win", opID)
		}
		return err
	})
	if err != nil {
		return RewardResult{}, err
	}
	s.publishChange(userID, won.Tokens-cost, out.NewBalance, kind)
	return out, nil
}
