//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"askdata/internal/events"
	"askdata/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	broker    string
	publisher *events.KafkaPublisher
}

func TestKafkaPublisherSuite(t *testing.T) {
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
	p, err := events.NewKafkaPublisher([]string{s.broker}, events.WithTopicPrefix("it."))
	s.Require().NoError(err)
	s.publisher = p

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(p.EnsureTopics(ctx, 1, 1))
	s.Require().NoError(p.EnsureTopics(ctx, 1, 1), "second run finds existing topics")
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}

func (s *KafkaPublisherSuite) TestPublishRoutesByFamily() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sent := events.Event{
		Type:       events.TypeQueryResolved,
		Key:        "hash-1",
		Identity:   "account:42",
		Attributes: map[string]string{"tier": "direct"},
		Timestamp:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.publisher.Publish(ctx, sent))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics("it.query"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var got events.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal("hash-1", string(records[0].Key))
	s.Equal(sent.Type, got.Type)
	s.Equal("direct", got.Attributes["tier"])
}
