package stream

import "sync"

// Topic names follow a pattern:
//
//	workout:<id>  — events for a specific workout session
//	timer:<id>    — events for a specific timer
//	routine:<id>  — events for a specific routine
//	events        — everything (firehose)

// TopicFirehose receives every event.
const TopicFirehose = "events"

// WorkoutTopic returns the topic name for a specific workout session.
func WorkoutTopic(workoutID string) string { return "workout:" + workoutID }

// TimerTopic returns the topic name for a specific timer.
func TimerTopic(timerID string) string { return "timer:" + timerID }

// RoutineTopic returns the topic name for a specific routine.
func RoutineTopic(routineID string) string { return "routine:" + routineID }

// TopicRegistry manages subscriber sets per topic.
// It is safe for concurrent use.
type TopicRegistry struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscriber // topic → subscriberID → subscriber
}

// NewTopicRegistry creates an empty topic registry.
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{topics: make(map[string]map[string]*Subscriber)}
}

// Subscribe adds a subscriber to a topic, creating the topic if needed.
func (tr *TopicRegistry) Subscribe(topic string, sub *Subscriber) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	subs, ok := tr.topics[topic]
	if !ok {
		subs = make(map[string]*Subscriber)
		tr.topics[topic] = subs
	}
	subs[sub.ID()] = sub
	sub.addTopic(topic)
}

// Unsubscribe removes a subscriber from a topic. Empty topics are
// pruned.
func (tr *TopicRegistry) Unsubscribe(topic, subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if subs, ok := tr.topics[topic]; ok {
		if sub, present := subs[subscriberID]; present {
			sub.removeTopic(topic)
			delete(subs, subscriberID)
		}
		if len(subs) == 0 {
			delete(tr.topics, topic)
		}
	}
}

// UnsubscribeAll removes a subscriber from every topic.
func (tr *TopicRegistry) UnsubscribeAll(subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for topic, subs := range tr.topics {
		if sub, present := subs[subscriberID]; present {
			sub.removeTopic(topic)
			delete(subs, subscriberID)
		}
		if len(subs) == 0 {
			delete(tr.topics, topic)
		}
	}
}

// Broadcast delivers a frame to every subscriber of the given topics,
// at most once per subscriber. Returns delivered and dropped counts.
func (tr *TopicRegistry) Broadcast(topics []string, frame Frame) (delivered, dropped int) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, topic := range topics {
		for subscriberID, sub := range tr.topics[topic] {
			if _, dup := seen[subscriberID]; dup {
				continue
			}
			seen[subscriberID] = struct{}{}

			f := frame
			f.Topic = topic
			if sub.send(f) {
				delivered++
			} else {
				dropped++
			}
		}
	}
	return delivered, dropped
}

// TopicCount returns the number of live topics.
func (tr *TopicRegistry) TopicCount() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.topics)
}
