package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUntilNextDraw(t *testing.T) {
	now := time.Date(2025, 7, 20, 14, 30, 0, 0, time.UTC)

	require.Equal(t, 5*time.Hour+30*time.Minute, untilNextDraw(now, 20))

	// Already past today's hour rolls to tomorrow.
	require.Equal(t, 15*time.Hour+30*time.Minute, untilNextDraw(now, 6))

	// Exactly at the draw instant waits a full day, never zero.
	atDraw := time.Date(2025, 7, 20, 20, 0, 0, 0, time.UTC)
	require.Equal(t, 24*time.Hour, untilNextDraw(atDraw, 20))
}
