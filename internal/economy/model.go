package economy

import (
	"errors"
	"math"
	"time"
)

const (
	// StartingTokens is the fixed initial allocation every account opens
	// with. Profit and percent change on the leaderboard are measured
	// against it.
	StartingTokens = int64(10_000)

	DailyBonusTokens   = int64(50)
	DailyBonusCooldown = 20 * time.Hour

	ScratchTicketCost = int64(30)
	LootboxCost       = int64(100)
)

var (
	ErrInvalidAmount        = errors.New("amount must be a positive whole number of tokens")
	ErrInvalidSymbol        = errors.New("symbol must be 1-8 uppercase letters")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientShares   = errors.New("insufficient shares")
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrTxConflict           = errors.New("transaction aborted after repeated conflicts")
	ErrPotEmpty             = errors.New("pot has no entries")
	ErrRewardCooldown       = errors.New("reward already claimed in the current window")
)

// ValidateAmount guards every ledger mutation. Amounts arrive from JSON as
// float64 in places, so NaN and fractional inputs are rejected here rather
// than truncated.
func ValidateAmount(tokens int64) error {
	if tokens <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func ValidateAmountFloat(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v != math.Trunc(v) {
		return 0, ErrInvalidAmount
	}
	if v > math.MaxInt64 {
		return 0, ErrInvalidAmount
	}
	return int64(v), nil
}

func roundTokens(v float64) int64 {
	return int64(math.Round(v))
}

// HourBucket truncates t to the market-history bucket key.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// DayOf truncates t to midnight UTC, the granularity of portfolio series.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
