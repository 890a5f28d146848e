package availability

import (
	"sync"
	"time"

	"villabook/internal/domain/units"
)

type ChangeKind string

const (
	ChangeReservations ChangeKind = "reservations"
	ChangeBlocks       ChangeKind = "blocks"
	ChangeWritten      ChangeKind = "reservation_written"
)

// Change tells subscribers that availability may differ from what they last
// rendered. An empty UnitID means every unit.
type Change struct {
	Kind   ChangeKind   `json:"kind"`
	UnitID units.UnitID `json:"unitId,omitempty"`
	At     time.Time    `json:"at"`
}

// Broadcaster fans changes out to subscribers. Slow subscribers miss
// intermediate changes but always keep the latest pending one.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Change
	nextID int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Change)}
}

// Subscribe returns a channel of changes and a cancel func that closes it.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Change, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(change Change) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- change:
			continue
		default:
		}
		// full: drop the oldest pending change and retry once
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- change:
		default:
		}
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
