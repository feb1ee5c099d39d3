package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/pkg/metrics"
)

const (
	// StreamName is the name of the scheduling events stream.
	StreamName = "SCHEDULING"

	// SubjectPrefix is the prefix for all scheduling subjects.
	SubjectPrefix = "sched"
)

// EventPublisher writes scheduling events to JetStream and reads them back.
type EventPublisher struct {
	client *Client
	maxAge time.Duration
}

// NewEventPublisher creates a publisher. Events older than maxAge are
// dropped by the stream; zero means 24 hours.
func NewEventPublisher(client *Client, maxAge time.Duration) *EventPublisher {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &EventPublisher{client: client, maxAge: maxAge}
}

// EnsureStream creates the events stream if it does not exist. Events are
// kept in memory only.
func (p *EventPublisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.maxAge,
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
		Description: "Scheduling assistant session events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.client.logger.Info("stream created", zap.String("stream", StreamName))
	return nil
}

// EventSubject returns the subject for an event.
func EventSubject(sessionID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, sessionID, eventType)
}

// SessionFilter returns the filter subject for all events of a session.
func SessionFilter(sessionID string) string {
	return fmt.Sprintf("%s.%s.event.>", SubjectPrefix, sessionID)
}

// PublishEvent publishes an event to JetStream.
func (p *EventPublisher) PublishEvent(ctx context.Context, event *model.SchedulingEvent) error {
	subject := EventSubject(event.SessionID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.client.JetStream().Publish(ctx, subject, data, jetstream.WithMsgID(event.ID)); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "success").Inc()
	return nil
}

// Events reads up to limit events of a session published after a stream
// sequence.
func (p *EventPublisher) Events(ctx context.Context, sessionID string, afterSequence uint64, limit int) (*model.ListEventsResponse, error) {
	consumerConfig := jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{SessionFilter(sessionID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := p.client.JetStream().OrderedConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.FetchNoWait(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	resp := &model.ListEventsResponse{Events: []model.SchedulingEvent{}, LastSequence: afterSequence}
	for msg := range batch.Messages() {
		var event model.SchedulingEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			p.client.logger.Warn("skipping undecodable event", zap.String("subject", msg.Subject()), zap.Error(err))
			continue
		}
		if meta, err := msg.Metadata(); err == nil {
			event.Sequence = meta.Sequence.Stream
			resp.LastSequence = meta.Sequence.Stream
		}
		resp.Events = append(resp.Events, event)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("batch error: %w", err)
	}

	resp.HasMore = len(resp.Events) == limit
	return resp, nil
}
