package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher defines the interface for publishing answer sheet change events
type EventPublisher interface {
	PublishAnswersheetEvent(ctx context.Context, event *AnswersheetEvent) error
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Watermill with Kafka
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return NewWatermillEventPublisher(publisher, config.TopicName, config.Logger), nil
}

// NewWatermillEventPublisher wraps any watermill publisher, e.g. gochannel in tests
func NewWatermillEventPublisher(publisher message.Publisher, topic string, logger *slog.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    logger,
		topicName: topic,
	}
}

// PublishAnswersheetEvent publishes an event keyed by its question
func (p *KafkaEventPublisher) PublishAnswersheetEvent(ctx context.Context, event *AnswersheetEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal answersheet event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.SetContext(ctx)

	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("question_id", fmt.Sprintf("%d", event.QuestionID))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format("2006-01-02T15:04:05Z07:00"))

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish answersheet event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish answersheet event: %w", err)
	}

	p.logger.Debug("Published answersheet event",
		"event_id", event.ID,
		"event_type", event.Type,
		"question_id", event.QuestionID,
		"topic", p.topicName)

	return nil
}

// Close closes the publisher and releases resources
func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// MockEventPublisher keeps published events in memory
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []AnswersheetEvent
	Logger *slog.Logger
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockEventPublisher{
		Events: make([]AnswersheetEvent, 0),
		Logger: logger,
	}
}

func (m *MockEventPublisher) PublishAnswersheetEvent(ctx context.Context, event *AnswersheetEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, *event)
	m.mu.Unlock()
	m.Logger.Debug("Mock: Published answersheet event",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

// Close is a no-op for the mock publisher
func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of all published events
func (m *MockEventPublisher) GetPublishedEvents() []AnswersheetEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AnswersheetEvent(nil), m.Events...)
}

// Types returns the types of the published events in order
func (m *MockEventPublisher) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Type
	}
	return out
}

// ClearEvents clears all published events
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = make([]AnswersheetEvent, 0)
}
