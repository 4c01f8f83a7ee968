package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	id, ch := bus.Subscribe(4)
	defer bus.Unsubscribe(id)

	bus.Publish(BalanceChange{UserID: "u1", Delta: 50, NewBalance: 10_050, Reason: "daily_bonus"})

	ev := <-ch
	require.Equal(t, "u1", ev.UserID)
	require.Equal(t, int64(50), ev.Delta)
	require.Equal(t, "daily_bonus", ev.Reason)
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	bus.Publish(BalanceChange{Delta: 1})
	bus.Publish(BalanceChange{Delta: 2})
	bus.Publish(BalanceChange{Delta: 3})

	// The oldest buffered item is dropped; the newest survives.
	ev := <-ch
	require.Equal(t, int64(3), ev.Delta)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	id, ch := bus.Subscribe(1)
	bus.Unsubscribe(id)

	_, open := <-ch
	require.False(t, open)

	// Publishing after unsubscribe is a no-op for the removed channel.
	bus.Publish(BalanceChange{Delta: 9})
}

func TestSubscribersAreIndependent(t *testing.T) {
	bus := NewBus()
	id1, ch1 := bus.Subscribe(2)
	id2, ch2 := bus.Subscribe(2)
	defer bus.Unsubscribe(id1)
	defer bus.Unsubscribe(id2)

	bus.Publish(BalanceChange{Delta: 7})

	require.Equal(t, int64(7), (<-ch1).Delta)
	require.Equal(t, int64(7), (<-ch2).Delta)
}
