package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopicPrefix namespaces topics per event family: "askdata.query",
// "askdata.feedback", "askdata.quota", "askdata.credential".
const DefaultTopicPrefix = "askdata."

// Families lists the event families that get a topic.
func Families() []string {
	return []string{"query", "feedback", "quota", "credential"}
}

// KafkaPublisher produces events to one topic per family, keyed by
// Event.Key so every event about a query hash or identity lands on the
// same partition.
type KafkaPublisher struct {
	client *kgo.Client
	prefix string
	logger *slog.Logger
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

func WithTopicPrefix(prefix string) KafkaOption {
	return func(p *KafkaPublisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) {
		p.logger = logger
	}
}

// NewKafkaPublisher connects to brokers. The client is owned by the
// publisher and released by Close.
func NewKafkaPublisher(brokers []string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p := &KafkaPublisher{client: client, prefix: DefaultTopicPrefix, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Topic returns the topic an event type is produced to.
func (p *KafkaPublisher) Topic(t Type) string {
	return p.prefix + t.Family()
}

// Publish produces event synchronously within ctx. Request paths reach it
// through an AsyncPublisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.Topic(event.Type),
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", event.Type, err)
	}
	return nil
}

// EnsureTopics creates the family topics when missing. Existing topics are
// left untouched.
func (p *KafkaPublisher) EnsureTopics(ctx context.Context, partitions int32, replication int16) error {
	topics := make([]string, 0, len(Families()))
	for _, f := range Families() {
		topics = append(topics, p.prefix+f)
	}

	admin := kadm.NewClient(p.client)
	resp, err := admin.CreateTopics(ctx, partitions, replication, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, r := range resp.Sorted() {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
		if r.Err == nil {
			p.logger.InfoContext(ctx, "event topic created", "topic", r.Topic)
		}
	}
	return nil
}

// Ping checks broker connectivity.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes buffered records and closes the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
