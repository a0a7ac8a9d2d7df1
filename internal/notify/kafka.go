package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/PratikDhanave/event-scheduling-service/internal/models"
)

const (
	defaultTopic    = "schedule-events"
	defaultClientID = "event-scheduling-service"
)

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
	// Source is written to the "source" header.
	Source string
}

// producer is the subset of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher writes ChangeMessages to a topic keyed by event id, so all
// changes of one event land on the same partition in order.
type KafkaPublisher struct {
	client producer
	topic  string
	source string
	now    func() time.Time
}

// NewKafkaPublisher connects to the brokers and fails fast if none answers.
func NewKafkaPublisher(ctx context.Context, cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}

	return newKafkaPublisher(client, topic, cfg.Source), nil
}

func newKafkaPublisher(client producer, topic, source string) *KafkaPublisher {
	if source == "" {
		source = defaultClientID
	}
	return &KafkaPublisher{
		client: client,
		topic:  topic,
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (p *KafkaPublisher) PublishEventCreated(ctx context.Context, event models.Event) error {
	return p.publish(ctx, ChangeEventCreated, event, nil)
}

func (p *KafkaPublisher) PublishEventUpdated(ctx context.Context, event models.Event, entry models.LogEntry) error {
	return p.publish(ctx, ChangeEventUpdated, event, &entry)
}

// Close releases the client. ProduceSync has already waited for every record.
func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}

func (p *KafkaPublisher) publish(ctx context.Context, changeType string, event models.Event, entry *models.LogEntry) error {
	msg := ChangeMessage{
		MessageID:  uuid.New().String(),
		ChangeType: changeType,
		EventID:    event.ID,
		Event:      event,
		Log:        entry,
		Timestamp:  p.now(),
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", changeType, err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.ID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "change_type", Value: []byte(changeType)},
			{Key: "message_id", Value: []byte(msg.MessageID)},
			{Key: "source", Value: []byte(p.source)},
			{Key: "content_type", Value: []byte("application/json")},
		},
		Timestamp: msg.Timestamp,
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish %s for event %s: %w", changeType, event.ID, err)
	}
	return nil
}
