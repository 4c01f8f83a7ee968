// Package events carries balance-change notifications from the ledger to
// in-process subscribers. It replaces the browser-storage signalling the
// original frontend used for cross-component refresh.
package events

import (
	"sync"
	"time"
)

type BalanceChange struct {
	UserID     string
	Delta      int64
	NewBalance int64
	Reason     string
	At         time.Time
}

type Bus struct {
	mu   sync.Mutex
	subs map[int]chan BalanceChange
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan BalanceChange)}
}

// Subscribe returns a receive channel and an id for Unsubscribe. The buffer
// must be at least 1 so Publish never blocks a ledger commit.
func (b *Bus) Subscribe(buffer int) (int, <-chan BalanceChange) {
	if buffer < 1 {
		buffer = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan BalanceChange, buffer)
	b.subs[id] = ch
	return id, ch
}

func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish fans the change out to every subscriber. A full subscriber loses
// its oldest buffered item; the ledger path must never stall on a slow
// consumer.
func (b *Bus) Publish(ev BalanceChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
