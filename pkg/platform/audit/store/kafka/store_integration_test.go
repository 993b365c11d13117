//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/audit/store/kafka"
	"github.com/DaniilOrchikov/blps-l1/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	broker string
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
}

func (s *KafkaStoreSuite) TestAppendProducesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "audit-" + uuid.NewString()
	store, err := kafka.New([]string{s.broker}, topic)
	s.Require().NoError(err)
	defer store.Close()
	s.Require().NoError(store.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(store.EnsureTopic(ctx, 1, 1), "second call tolerates an existing topic")

	subject := uuid.NewString()
	s.Require().NoError(store.Append(ctx, audit.Event{
		ID:         uuid.New(),
		Timestamp:  time.Now(),
		Action:     string(audit.EventVacancyPublished),
		Subject:    subject,
		Actor:      "employer",
		Attributes: map[string]string{"tier": "PREMIUM"},
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal(subject, string(records[0].Key))

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(records[0].Value, &payload))
	s.Equal(string(audit.EventVacancyPublished), payload["action"])
	s.Equal("employer", payload["actor"])
}
