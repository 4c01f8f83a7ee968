package economy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// Amount validation must run on the raw argument before the sign is
// applied: a negative amount handed to Debit would otherwise flip into a
// credit (and vice versa). Rejection happens before any database access,
// so a nil pool proves the guard fires first.
func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(nil, nil, nil)

	for _, tokens := range []int64{0, -1, -5_000} {
		_, err := svc.Credit(context.Background(), "u1", tokens, "grant", "op1")
		require.ErrorIs(t, err, ErrInvalidAmount, "tokens=%d", tokens)
	}
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(nil, nil, nil)

	for _, tokens := range []int64{0, -1, -5_000} {
		_, err := svc.Debit(context.Background(), "u1", tokens, "spend", "op1")
		require.ErrorIs(t, err, ErrInvalidAmount, "tokens=%d", tokens)
	}
}

func TestEnterPotRejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(nil, nil, nil)

	_, err := svc.EnterPot(context.Background(), "u1", -30, "op1")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.EnterPot(context.Background(), "u1", 0, "op2")
	require.ErrorIs(t, err, ErrInvalidAmount)
}
