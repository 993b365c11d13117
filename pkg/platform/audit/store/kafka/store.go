// Package kafka ships audit events to a Kafka topic as JSON, keyed by subject
// so every event for one vacancy lands on the same partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
)

type Store struct {
	client *kgo.Client
	topic  string
}

type record struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Action     string            `json:"action"`
	Subject    string            `json:"subject"`
	Actor      string            `json:"actor,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New connects a producer for topic. The caller owns Close.
func New(brokers []string, topic string) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

// EnsureTopic creates the audit topic if it does not exist yet.
func (s *Store) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(s.client)
	resp, err := admin.CreateTopics(ctx, partitions, replicationFactor, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

// Marshal encodes event as the JSON record value written to the topic.
func Marshal(event audit.Event) ([]byte, error) {
	return json.Marshal(record{
		ID:         event.ID.String(),
		Timestamp:  event.Timestamp.UTC(),
		Action:     event.Action,
		Subject:    event.Subject,
		Actor:      event.Actor,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
		Attributes: event.Attributes,
	})
}

// Unmarshal decodes a record value written by Marshal.
func Unmarshal(value []byte) (audit.Event, error) {
	var r record
	if err := json.Unmarshal(value, &r); err != nil {
		return audit.Event{}, fmt.Errorf("unmarshal audit record: %w", err)
	}
	eventID, err := uuid.Parse(r.ID)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse audit event id %q: %w", r.ID, err)
	}
	if r.Action == "" || r.Subject == "" {
		return audit.Event{}, errors.New("audit record missing action or subject")
	}
	return audit.Event{
		ID:         eventID,
		Timestamp:  r.Timestamp,
		Action:     r.Action,
		Subject:    r.Subject,
		Actor:      r.Actor,
		Reason:     r.Reason,
		RequestID:  r.RequestID,
		Attributes: r.Attributes,
	}, nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	rec := &kgo.Record{
		Key:   []byte(event.Subject),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.client.Close()
}
