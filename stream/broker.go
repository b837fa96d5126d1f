package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/ext"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension          = (*Broker)(nil)
	_ ext.JobCreated         = (*Broker)(nil)
	_ ext.JobTransitioned    = (*Broker)(nil)
	_ ext.TransitionRejected = (*Broker)(nil)
	_ ext.FundsMoved         = (*Broker)(nil)
	_ ext.Shutdown           = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// DefaultCredits is the default initial credits for new subscribers.
const DefaultCredits int64 = 1000

var transitionTypes = map[job.Action]EventType{
	job.ActionAccept:  EventJobAccepted,
	job.ActionDeliver: EventJobDelivered,
	job.ActionConfirm: EventJobCompleted,
	job.ActionCancel:  EventJobCancelled,
	job.ActionDispute: EventJobDisputed,
	job.ActionResolve: EventJobResolved,
}

// Broker is the real-time stream broker. It implements the ext.Extension
// interface to receive ledger events and fans them out to subscribers
// via topic-based pub/sub. Delivery never blocks the ledger: a subscriber
// without credits or buffer space misses the event.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger
	now    func() time.Time

	// Subscriber management.
	subscribers sync.Map // subscriberID → *Subscriber

	// Metrics.
	totalPublished atomic.Int64
	totalDropped   atomic.Int64

	// Config.
	bufferSize     int
	defaultCredits int64
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithDefaultCredits sets the initial credits for new subscribers.
func WithDefaultCredits(credits int64) BrokerOption {
	return func(b *Broker) { b.defaultCredits = credits }
}

// WithClock sets the time source used to stamp events.
func WithClock(now func() time.Time) BrokerOption {
	return func(b *Broker) { b.now = now }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		topics:         NewTopicRegistry(),
		logger:         logger,
		now:            time.Now,
		bufferSize:     DefaultBufferSize,
		defaultCredits: DefaultCredits,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Topics returns the topic registry for external use.
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a new subscriber on the given topics.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	sub := NewSubscriber(subscriberID, b.bufferSize, b.defaultCredits)
	b.subscribers.Store(subscriberID, sub)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// SubscribeTo adds an existing subscriber to additional topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) {
	sub, ok := b.GetSubscriber(subscriberID)
	if !ok {
		return
	}
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

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// GetSubscriber returns a subscriber by ID.
func (b *Broker) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return val.(*Subscriber), true //nolint:errcheck // sync.Map always stores *Subscriber
}

// Stats returns broker statistics.
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

// BrokerStats contains broker metrics.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDropped    int64 `json:"total_dropped"`
}

// publish broadcasts evt to all matching topics.
func (b *Broker) publish(evt *Event) {
	delivered, missed := b.topics.Broadcast(resolveTopics(evt), evt)
	b.totalPublished.Add(int64(delivered))
	if missed > 0 {
		b.totalDropped.Add(int64(missed))
		b.logger.Debug("stream: events dropped",
			slog.String("type", string(evt.Type)),
			slog.Int("dropped", missed),
		)
	}
}

func (b *Broker) newEvent(typ EventType, jobID id.JobID, data any, parties ...identity.Address) *Event {
	evt := &Event{
		Type:      typ,
		Timestamp: b.now().UTC(),
		Data:      data,
	}
	if jobID.Valid() {
		evt.Topic = JobTopic(jobID)
	}
	for _, p := range parties {
		if !p.IsZero() {
			evt.parties = append(evt.parties, strings.ToLower(p.String()))
		}
	}
	return evt
}

func jobData(j *job.Job) JobEventData {
	return JobEventData{
		JobID:      j.ID.String(),
		Client:     j.Client.String(),
		Freelancer: j.Freelancer.String(),
		Status:     string(j.Status),
	}
}

// ── Job lifecycle hooks ─────────────────────────────

func (b *Broker) OnJobCreated(_ context.Context, j *job.Job) error {
	data := jobData(j)
	data.Amount = j.Amount.String()
	b.publish(b.newEvent(EventJobCreated, j.ID, data, j.Client, j.Freelancer))
	return nil
}

func (b *Broker) OnJobTransitioned(_ context.Context, j *job.Job, action job.Action, from job.Status) error {
	typ, ok := transitionTypes[action]
	if !ok {
		return nil
	}
	data := jobData(j)
	data.From = string(from)
	data.DeliverableRef = j.DeliverableRef
	data.Outcome = string(j.Resolution)
	b.publish(b.newEvent(typ, j.ID, data, j.Client, j.Freelancer))
	return nil
}

func (b *Broker) OnTransitionRejected(_ context.Context, jobID id.JobID, action job.Action, caller identity.Address, err error) error {
	b.publish(b.newEvent(EventTransitionRejected, jobID, RejectionEventData{
		JobID:  jobID.String(),
		Action: string(action),
		Caller: caller.String(),
		Error:  err.Error(),
	}, caller))
	return nil
}

// ── Escrow hooks ────────────────────────────────────

func (b *Broker) OnFundsMoved(_ context.Context, t *escrow.Transfer) error {
	var typ EventType
	switch t.Kind {
	case escrow.KindHold:
		typ = EventFundsHeld
	case escrow.KindRelease:
		typ = EventFundsReleased
	case escrow.KindRefund:
		typ = EventFundsRefunded
	default:
		return nil
	}
	b.publish(b.newEvent(typ, t.JobID, TransferEventData{
		TransferID: t.ID.String(),
		JobID:      t.JobID.String(),
		From:       t.From.String(),
		To:         t.To.String(),
		Amount:     t.Amount.String(),
	}, t.From, t.To))
	return nil
}

// ── Shutdown ────────────────────────────────────────

func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, value any) bool {
		sub := value.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
		b.topics.UnsubscribeAll(sub.ID())
		sub.Close()
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("stream broker shut down")
	return nil
}
