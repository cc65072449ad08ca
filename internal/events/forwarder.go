package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TopicPrefix is prepended to the event type to build the Kafka topic.
const TopicPrefix = "bettingtips."

const (
	// ForwardBuffer is how many events may wait for the broker before new
	// ones are dropped.
	ForwardBuffer = 256

	// forwardTimeout bounds a single delivery, retries included.
	forwardTimeout = 10 * time.Second
)

// MessagePublisher writes a keyed message to a topic. infra.KafkaProducer
// satisfies it.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Topic returns the Kafka topic for an event type.
func Topic(t Type) string {
	return TopicPrefix + string(t)
}

// Forward subscribes to every event on bus and republishes it as JSON keyed
// by user id. Delivery happens on a background goroutine so a slow or
// unreachable broker never holds up Bus.Publish; failures are logged and a
// full buffer drops the event. stop unsubscribes, then waits for the events
// already queued to be delivered.
func Forward(bus *Bus, pub MessagePublisher, logger *zap.Logger) (stop func()) {
	queue := make(chan Event, ForwardBuffer)
	var (
		mu     sync.RWMutex
		closed bool
		done   = make(chan struct{})
	)

	go func() {
		defer close(done)
		for e := range queue {
			deliver(pub, e, logger)
		}
	}()

	unsubscribe := bus.Subscribe(func(_ context.Context, e Event) {
		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		select {
		case queue <- e:
		default:
			logger.Warn("kafka forward buffer full, dropping event",
				zap.String("type", string(e.Type)),
				zap.String("event_id", e.ID.String()),
			)
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			close(queue)
			mu.Unlock()
			<-done
		})
	}
}

func deliver(pub MessagePublisher, e Event, logger *zap.Logger) {
	value, err := json.Marshal(e)
	if err != nil {
		logger.Error("marshal event", zap.String("type", string(e.Type)), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
	defer cancel()
	if err := pub.Publish(ctx, Topic(e.Type), []byte(e.UserID.String()), value); err != nil {
		logger.Warn("forward event to kafka failed",
			zap.String("type", string(e.Type)),
			zap.String("event_id", e.ID.String()),
			zap.Error(err),
		)
	}
}
