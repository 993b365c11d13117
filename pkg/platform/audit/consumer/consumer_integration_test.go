//go:build integration

package consumer_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/audit/consumer"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/audit/store/kafka"
	auditpostgres "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit/store/postgres"
	"github.com/DaniilOrchikov/blps-l1/pkg/testutil/containers"
)

type ProjectionSuite struct {
	suite.Suite
	broker   string
	postgres *containers.PostgresContainer
}

func TestProjectionSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProjectionSuite))
}

func (s *ProjectionSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.broker = mgr.GetRedpanda(s.T()).Broker
	s.postgres = mgr.GetPostgres(s.T())
}

func (s *ProjectionSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *ProjectionSuite) TestProjectsProducedEventsIntoPostgres() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	topic := "audit-" + uuid.NewString()
	producer, err := kafka.New([]string{s.broker}, topic)
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(producer.EnsureTopic(ctx, 1, 1))

	subject := uuid.NewString()
	for _, action := range []audit.AuditEvent{audit.EventVacancyPaid, audit.EventVacancyPublished} {
		s.Require().NoError(producer.Append(ctx, audit.Event{
			ID:        uuid.New(),
			Timestamp: time.Now().UTC(),
			Action:    string(action),
			Subject:   subject,
			Actor:     "acme",
		}))
	}

	store := auditpostgres.New(s.postgres.DB)
	handler := consumer.NewHandler(store, consumer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	c, err := consumer.New([]string{s.broker}, topic, "projection-"+uuid.NewString(), handler)
	s.Require().NoError(err)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	s.Eventually(func() bool {
		events, err := store.ListBySubject(ctx, subject)
		return err == nil && len(events) == 2
	}, 30*time.Second, 200*time.Millisecond)

	stop()
	s.NoError(<-done)

	events, err := store.ListBySubject(ctx, subject)
	s.Require().NoError(err)
	s.Equal(string(audit.EventVacancyPaid), events[0].Action)
	s.Equal(string(audit.EventVacancyPublished), events[1].Action)
}
