package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBus_SubscribeAndUnsubscribe(t *testing.T) {
	bus := NewBus()
	var got []Type
	unsubscribe := bus.Subscribe(func(_ context.Context, e Event) {
		got = append(got, e.Type)
	})
	require.Equal(t, 1, bus.Len())

	bus.Publish(context.Background(), New(SessionSignedIn, uuid.New(), nil))
	unsubscribe()
	unsubscribe()
	bus.Publish(context.Background(), New(SessionSignedOut, uuid.New(), nil))

	assert.Equal(t, []Type{SessionSignedIn}, got)
	assert.Zero(t, bus.Len())
}

func TestBus_TypeFilter(t *testing.T) {
	bus := NewBus()
	count := 0
	bus.Subscribe(func(context.Context, Event) { count++ }, BetCreated, BetDeleted)

	userID := uuid.New()
	bus.Publish(context.Background(), ForBet(BetCreated, userID, uuid.New(), nil))
	bus.Publish(context.Background(), ForBet(BetUpdated, userID, uuid.New(), nil))
	bus.Publish(context.Background(), ForBet(BetDeleted, userID, uuid.New(), nil))

	assert.Equal(t, 2, count)
}

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []int
	for i := 0; i < 5; i++ {
		bus.Subscribe(func(context.Context, Event) { order = append(order, i) })
	}

	bus.Publish(context.Background(), New(ProfileUpdated, uuid.New(), nil))

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	count := 0
	bus.Subscribe(func(context.Context, Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), New(BetCreated, uuid.New(), nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}

func TestForBet(t *testing.T) {
	userID, betID := uuid.New(), uuid.New()
	e := ForBet(BetUpdated, userID, betID, map[string]string{"status": "won"})

	require.NotNil(t, e.BetID)
	assert.Equal(t, betID, *e.BetID)
	assert.Equal(t, userID, e.UserID)
	assert.NotEqual(t, uuid.Nil, e.ID)
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	keys   []string
	values [][]byte
	err    error
	delay  time.Duration
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.keys = append(f.keys, string(key))
	f.values = append(f.values, value)
	return f.err
}

func TestForward(t *testing.T) {
	bus := NewBus()
	pub := &fakePublisher{}
	stop := Forward(bus, pub, zap.NewNop())

	userID := uuid.New()
	bus.Publish(context.Background(), ForBet(BetCreated, userID, uuid.New(), nil))
	stop()

	require.Len(t, pub.topics, 1)
	assert.Equal(t, "bettingtips.bet.created", pub.topics[0])
	assert.Equal(t, userID.String(), pub.keys[0])
	assert.Zero(t, bus.Len())

	var decoded Event
	require.NoError(t, json.Unmarshal(pub.values[0], &decoded))
	assert.Equal(t, BetCreated, decoded.Type)
}

func TestForward_ErrorIsSwallowed(t *testing.T) {
	bus := NewBus()
	pub := &fakePublisher{err: errors.New("broker down")}
	stop := Forward(bus, pub, zap.NewNop())

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), New(SessionSignedOut, uuid.New(), nil))
	})
	stop()
	assert.Len(t, pub.topics, 1)
}

func TestForward_SlowBrokerDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	pub := &fakePublisher{delay: 300 * time.Millisecond}
	stop := Forward(bus, pub, zap.NewNop())

	start := time.Now()
	for i := 0; i < 3; i++ {
		bus.Publish(context.Background(), ForBet(BetCreated, uuid.New(), uuid.New(), nil))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	stop()
	assert.Len(t, pub.topics, 3, "stop drains queued events")
}

func TestForward_AfterStopEventsAreIgnored(t *testing.T) {
	bus := NewBus()
	pub := &fakePublisher{}
	stop := Forward(bus, pub, zap.NewNop())
	stop()
	stop()

	bus.Publish(context.Background(), New(BetDeleted, uuid.New(), nil))
	assert.Empty(t, pub.topics)
}
