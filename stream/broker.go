// Package stream fans bus events out to live subscribers via
// topic-based pub/sub. The api websocket handler and the client SDK sit
// on top of it.
package stream

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/xraph/reps/event"
)

// DefaultBufferSize is the default per-subscriber frame buffer.
const DefaultBufferSize = 256

// Broker subscribes once to the Bus and fans every event out to
// subscribers by topic. Topics are derived from the event payload's
// references; every event also lands on the firehose.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger

	subscribers sync.Map // subscriberID → *Subscriber

	totalPublished atomic.Int64
	totalDropped   atomic.Int64

	bufferSize int
	busSub     event.Subscription
	bus        *event.Bus
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber frame buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithLogger sets the broker's logger.
func WithLogger(logger *slog.Logger) BrokerOption {
	return func(b *Broker) { b.logger = logger }
}

// NewBroker creates a broker wired to the bus.
func NewBroker(bus *event.Bus, opts ...BrokerOption) *Broker {
	b := &Broker{
		topics:     NewTopicRegistry(),
		logger:     slog.Default(),
		bufferSize: DefaultBufferSize,
		bus:        bus,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(slog.String("component", "stream"))
	b.busSub = bus.OnAny(func(_ context.Context, evt event.Event) error {
		b.publish(evt)
		return nil
	})
	return b
}

// Topics returns the topic registry for external use.
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a subscriber with a fresh uuid identity on the
// given topics. No topics means the firehose.
func (b *Broker) Subscribe(topics ...string) *Subscriber {
	if len(topics) == 0 {
		topics = []string{TopicFirehose}
	}
	sub := NewSubscriber(uuid.NewString(), b.bufferSize)
	b.subscribers.Store(sub.ID(), sub)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	b.logger.Debug("subscriber attached",
		slog.String("subscriber_id", sub.ID()),
		slog.Any("topics", topics),
	)
	return sub
}

// SubscribeTo adds an existing subscriber to additional topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return
	}
	sub := val.(*Subscriber)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber detaches a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close()
	}
}

// Close detaches the broker from the bus and closes every subscriber.
func (b *Broker) Close() {
	b.bus.Off(b.busSub)
	b.subscribers.Range(func(key, _ any) bool {
		b.RemoveSubscriber(key.(string))
		return true
	})
}

// Stats returns broker counters.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
		TotalDropped:    b.totalDropped.Load(),
	}
}

// BrokerStats contains broker counters.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDropped    int64 `json:"total_dropped"`
}

// publish resolves an event's topics and broadcasts it.
func (b *Broker) publish(evt event.Event) {
	frame := Frame{Name: evt.Name, At: evt.At, Data: evt.Data}
	delivered, dropped := b.topics.Broadcast(resolveTopics(evt), frame)
	b.totalPublished.Add(int64(delivered))
	b.totalDropped.Add(int64(dropped))
}

// resolveTopics derives the topic fan-out for one event from its
// payload references. Every event reaches the firehose.
func resolveTopics(evt event.Event) []string {
	topics := []string{TopicFirehose}
	ref, ok := evt.Data.(event.Referencer)
	if !ok {
		return topics
	}

	r := ref.EventRef()
	if r.WorkoutID != "" {
		topics = append(topics, WorkoutTopic(r.WorkoutID))
	}
	if r.TimerID != "" {
		topics = append(topics, TimerTopic(r.TimerID))
	}
	if r.RoutineID != "" {
		topics = append(topics, RoutineTopic(r.RoutineID))
	}
	return topics
}
