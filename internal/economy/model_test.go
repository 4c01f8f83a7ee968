package economy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateAmountFloat(t *testing.T) {
	got, err := ValidateAmountFloat(250)
	require.NoError(t, err)
	require.Equal(t, int64(250), got)

	for _, v := range []float64{0, -1, 12.5, math.NaN(), math.Inf(1), math.Inf(-1), math.MaxFloat64} {
		_, err := ValidateAmountFloat(v)
		require.ErrorIs(t, err, ErrInvalidAmount, "value %v", v)
	}
}

func TestValidateSymbol(t *testing.T) {
	for _, s := range []string{"A", "TSLA", "NIMBUS", "ABCDEFGH"} {
		require.NoError(t, ValidateSymbol(s))
	}
	for _, s := range []string{"", "abc", "ABC123", "TOOLONGXX", "A_B"} {
		require.ErrorIs(t, ValidateSymbol(s), ErrInvalidSymbol, "symbol %q", s)
	}
}

func TestHourBucket(t *testing.T) {
	loc := time.FixedZone("plus3", 3*60*60)
	in := time.Date(2025, 6, 14, 17, 42, 31, 900, loc)
	got := HourBucket(in)
	require.Equal(t, time.Date(2025, 6, 14, 14, 0, 0, 0, time.UTC), got)

	// Same hour always maps to the same bucket key.
	require.Equal(t, got, HourBucket(in.Add(17*time.Minute)))
}

func TestDayOf(t *testing.T) {
	in := time.Date(2025, 6, 14, 23, 59, 59, 0, time.UTC)
	require.Equal(t, time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), DayOf(in))
}

func TestUsernameFromEmail(t *testing.T) {
	require.Equal(t, "trader_jane", usernameFromEmail("Trader_Jane@example.com"))
	require.Equal(t, "trader_ab", usernameFromEmail("ab@example.com"))

	long := usernameFromEmail("averyveryverylongaddressindeed@example.com")
	require.LessOrEqual(t, len(long), 24)
}

func TestGenerateInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		code, err := generateInviteCode()
		require.NoError(t, err)
		require.Len(t, code, 8)
		for _, r := range code {
			require.NotContains(t, "01IO", string(r))
		}
		seen[code] = true
	}
	require.Greater(t, len(seen), 1)
}
