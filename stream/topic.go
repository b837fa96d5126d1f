package stream

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
)

// Topic names follow a pattern:
//
//	job:<jobID>          events for a specific job
//	account:<address>    events for every job an address is party to
//	jobs                 all job lifecycle events
//	escrow               all custody movements
//	firehose             everything

const (
	TopicJobs     = "jobs"
	TopicEscrow   = "escrow"
	TopicFirehose = "firehose"
)

// JobTopic returns the topic name for a specific job.
func JobTopic(jobID id.JobID) string { return "job:" + jobID.String() }

// AccountTopic returns the topic name for one participant's jobs.
func AccountTopic(addr identity.Address) string {
	return "account:" + strings.ToLower(addr.String())
}

// TopicRegistry manages subscriber sets per topic.
// It is safe for concurrent use.
type TopicRegistry struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscriber // topic → subscriberID → subscriber
}

// NewTopicRegistry creates an empty topic registry.
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{
		topics: make(map[string]map[string]*Subscriber),
	}
}

// Subscribe adds a subscriber to a topic. Creates the topic if it
// doesn't exist.
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

// Unsubscribe removes a subscriber from a topic. Cleans up empty topics.
func (tr *TopicRegistry) Unsubscribe(topic, subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	subs, ok := tr.topics[topic]
	if !ok {
		return
	}
	if sub, exists := subs[subscriberID]; exists {
		sub.removeTopic(topic)
		delete(subs, subscriberID)
	}
	if len(subs) == 0 {
		delete(tr.topics, topic)
	}
}

// UnsubscribeAll removes a subscriber from all topics.
func (tr *TopicRegistry) UnsubscribeAll(subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for topic, subs := range tr.topics {
		if sub, ok := subs[subscriberID]; ok {
			sub.removeTopic(topic)
			delete(subs, subscriberID)
		}
		if len(subs) == 0 {
			delete(tr.topics, topic)
		}
	}
}

// Broadcast sends an event to all subscribers on the listed topics.
// A subscriber on more than one of them receives the event once.
// Returns how many subscribers received it and how many missed it for
// lack of credits or buffer space.
func (tr *TopicRegistry) Broadcast(topics []string, evt *Event) (delivered, missed int) {
	tr.mu.RLock()
	seen := make(map[string]*Subscriber)
	for _, topic := range topics {
		for sid, sub := range tr.topics[topic] {
			seen[sid] = sub
		}
	}
	tr.mu.RUnlock()

	for _, sub := range seen {
		if !sub.wants(evt) {
			continue
		}
		if sub.send(evt) {
			delivered++
		} else {
			missed++
		}
	}
	return delivered, missed
}

// TopicCount returns the number of active topics.
func (tr *TopicRegistry) TopicCount() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.topics)
}

// SubscriberCount returns the number of subscribers on a topic.
func (tr *TopicRegistry) SubscriberCount(topic string) int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.topics[topic])
}

// resolveTopics returns all topics an event should be published to
// based on its type and parties.
func resolveTopics(evt *Event) []string {
	topics := []string{TopicFirehose}

	if strings.HasPrefix(string(evt.Type), "escrow.") {
		topics = append(topics, TopicEscrow)
	} else {
		topics = append(topics, TopicJobs)
	}
	if evt.Topic != "" {
		topics = append(topics, evt.Topic)
	}
	for _, p := range evt.parties {
		topics = append(topics, "account:"+p)
	}
	return topics
}

// ParseTopicEntity extracts the entity type and ID from a topic string.
// For example, "job:42" returns ("job", "42").
// Returns ("", "") for global topics like "jobs" or "firehose".
func ParseTopicEntity(topic string) (entityType, entityID string) {
	idx := strings.IndexByte(topic, ':')
	if idx < 0 {
		return "", ""
	}
	return topic[:idx], topic[idx+1:]
}

// ValidateTopic checks whether a topic string is valid.
func ValidateTopic(topic string) error {
	switch topic {
	case TopicJobs, TopicEscrow, TopicFirehose:
		return nil
	}

	entityType, entityID := ParseTopicEntity(topic)
	if entityType == "" || entityID == "" {
		return fmt.Errorf("stream: invalid topic %q", topic)
	}

	switch entityType {
	case "job":
		if _, err := id.ParseJobID(entityID); err != nil {
			return fmt.Errorf("stream: invalid job topic %q", topic)
		}
		return nil
	case "account":
		if _, err := identity.Parse(entityID); err != nil {
			return fmt.Errorf("stream: invalid account topic %q", topic)
		}
		return nil
	default:
		return fmt.Errorf("stream: unknown topic entity type %q", entityType)
	}
}
