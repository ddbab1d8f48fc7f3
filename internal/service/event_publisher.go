package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diegoferreirapinto/document-management-system/internal/domain"
	"github.com/diegoferreirapinto/document-management-system/pkg/kafka"
	"github.com/diegoferreirapinto/document-management-system/pkg/retry"
)

// EventPublisher defines the interface for publishing document lifecycle events
type EventPublisher interface {
	// PublishDocumentCreated publishes a document created event
	PublishDocumentCreated(ctx context.Context, doc *domain.Document, actorID string) error

	// PublishDocumentSubmitted publishes a document submitted event
	PublishDocumentSubmitted(ctx context.Context, doc *domain.Document, actorID string) error

	// PublishDocumentApproved publishes a document approved event
	PublishDocumentApproved(ctx context.Context, doc *domain.Document, actorID string) error

	// PublishDocumentRejected publishes a document rejected event
	PublishDocumentRejected(ctx context.Context, doc *domain.Document, actorID string) error

	// Close closes the event publisher
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
	retryConfig *retry.Config
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "document-events"
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "document-service"
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "document-service-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
		retryConfig: &retry.Config{
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     time.Second,
		},
	}, nil
}

// PublishDocumentCreated publishes a document created event
func (p *KafkaEventPublisher) PublishDocumentCreated(ctx context.Context, doc *domain.Document, actorID string) error {
	return p.publishEvent(ctx, domain.DocumentEventCreated, doc, actorID)
}

// PublishDocumentSubmitted publishes a document submitted event
func (p *KafkaEventPublisher) PublishDocumentSubmitted(ctx context.Context, doc *domain.Document, actorID string) error {
	return p.publishEvent(ctx, domain.DocumentEventSubmitted, doc, actorID)
}

// PublishDocumentApproved publishes a document approved event
func (p *KafkaEventPublisher) PublishDocumentApproved(ctx context.Context, doc *domain.Document, actorID string) error {
	return p.publishEvent(ctx, domain.DocumentEventApproved, doc, actorID)
}

// PublishDocumentRejected publishes a document rejected event
func (p *KafkaEventPublisher) PublishDocumentRejected(ctx context.Context, doc *domain.Document, actorID string) error {
	return p.publishEvent(ctx, domain.DocumentEventRejected, doc, actorID)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// publishEvent publishes a document event to Kafka
func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType domain.DocumentEventType, doc *domain.Document, actorID string) error {
	event := &domain.DocumentEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		DocumentID: doc.ID,
		Status:     doc.Status,
		Version:    doc.Version,
		ActorID:    actorID,
		OccurredAt: time.Now(),
	}

	headers := map[string]string{
		"event_type":   string(eventType),
		"event_id":     event.EventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	err := retry.Do(ctx, p.retryConfig, func(ctx context.Context) error {
		return p.producer.ProduceJSON(ctx, p.topic, event.Key(), event, headers)
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for testing
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishDocumentCreated is a no-op
func (p *NoOpEventPublisher) PublishDocumentCreated(ctx context.Context, doc *domain.Document, actorID string) error {
	return nil
}

// PublishDocumentSubmitted is a no-op
func (p *NoOpEventPublisher) PublishDocumentSubmitted(ctx context.Context, doc *domain.Document, actorID string) error {
	return nil
}

// PublishDocumentApproved is a no-op
func (p *NoOpEventPublisher) PublishDocumentApproved(ctx context.Context, doc *domain.Document, actorID string) error {
	return nil
}

// PublishDocumentRejected is a no-op
func (p *NoOpEventPublisher) PublishDocumentRejected(ctx context.Context, doc *domain.Document, actorID string) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
