// Package events is the in-process bus for bet and session lifecycle events.
package events

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names an event.
type Type string

const (
	BetCreated       Type = "bet.created"
	BetUpdated       Type = "bet.updated"
	BetDeleted       Type = "bet.deleted"
	SessionSignedIn  Type = "session.signed_in"
	SessionSignedOut Type = "session.signed_out"
	ProfileUpdated   Type = "profile.updated"
)

// Event is a single occurrence published on the bus.
type Event struct {
	ID         uuid.UUID  `json:"id"`
	Type       Type       `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	BetID      *uuid.UUID `json:"bet_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
	Payload    any        `json:"payload,omitempty"`
}

// New builds an event with a fresh id.
func New(t Type, userID uuid.UUID, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// ForBet builds a bet event.
func ForBet(t Type, userID, betID uuid.UUID, payload any) Event {
	e := New(t, userID, payload)
	e.BetID = &betID
	return e
}

// Handler receives published events. It runs on the publisher's goroutine.
type Handler func(ctx context.Context, e Event)

// Publisher is what services depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus fans events out to subscribers synchronously.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]subscription
}

type subscription struct {
	types   map[Type]struct{}
	handler Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]subscription)}
}

// Subscribe registers h for the given types, or for every type when none
// are given. The returned func removes the subscription and is safe to call
// more than once.
func (b *Bus) Subscribe(h Handler, types ...Type) (unsubscribe func()) {
	sub := subscription{handler: h}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every matching subscriber in subscription order.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	handlers := make(map[uint64]Handler, len(ids))
	for _, id := range ids {
		sub := b.subs[id]
		if sub.types != nil {
			if _, ok := sub.types[e.Type]; !ok {
				continue
			}
		}
		handlers[id] = sub.handler
	}
	b.mu.RUnlock()

	slices.Sort(ids)
	for _, id := range ids {
		if h, ok := handlers[id]; ok {
			h(ctx, e)
		}
	}
}

// Len reports the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
