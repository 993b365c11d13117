// Package consumer projects audit events from the Kafka topic into a
// queryable audit store (postgres in production).
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
	auditkafka "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit/store/kafka"
)

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 200 * time.Millisecond
)

// Handler writes one Kafka record into the store. Malformed records are
// logged and skipped so one bad message never blocks the partition.
type Handler struct {
	store       audit.Store
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithRetry sets how often a failed store write is attempted before the
// consumer gives up.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(h *Handler) {
		if attempts > 0 {
			h.maxAttempts = attempts
		}
		h.backoff = backoff
	}
}

func NewHandler(store audit.Store, opts ...Option) *Handler {
	h := &Handler{store: store, maxAttempts: defaultMaxAttempts, backoff: defaultBackoff}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Handle returns an error only when the store kept failing; the caller must
// then stop without committing so the record is redelivered.
func (h *Handler) Handle(ctx context.Context, rec *kgo.Record) error {
	event, err := auditkafka.Unmarshal(rec.Value)
	if err != nil {
		h.logger.WarnContext(ctx, "skipping malformed audit record",
			"topic", rec.Topic,
			"partition", rec.Partition,
			"offset", rec.Offset,
			"error", err,
		)
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		if lastErr = h.store.Append(ctx, event); lastErr == nil {
			return nil
		}
		h.logger.WarnContext(ctx, "audit projection write failed",
			"event_id", event.ID,
			"attempt", attempt,
			"error", lastErr,
		)
		if attempt == h.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("project audit event %s: %w", event.ID, lastErr)
}

// Consumer polls the audit topic as part of a consumer group and commits
// offsets only after every record of a poll was handled.
type Consumer struct {
	client  *kgo.Client
	handler *Handler
	logger  *slog.Logger
}

func New(brokers []string, topic, group string, handler *Handler) (*Consumer, error) {
	if len(brokers) == 0 || topic == "" || group == "" {
		return nil, errors.New("brokers, topic and group are required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: handler.logger}, nil
}

// Run consumes until ctx is cancelled. It returns an error when a record
// could not be projected; offsets of that poll stay uncommitted.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.WarnContext(ctx, "audit fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var handleErr error
		fetches.EachRecord(func(rec *kgo.Record) {
			if handleErr != nil {
				return
			}
			handleErr = c.handler.Handle(ctx, rec)
		})
		if handleErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return handleErr
		}
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.WarnContext(ctx, "audit offset commit failed", "error", err)
		}
	}
}
