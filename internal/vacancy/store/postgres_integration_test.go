//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/models"
	"github.com/DaniilOrchikov/blps-l1/internal/vacancy/store"
	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	"github.com/DaniilOrchikov/blps-l1/pkg/platform/sentinel"
	txcontext "github.com/DaniilOrchikov/blps-l1/pkg/platform/tx"
	"github.com/DaniilOrchikov/blps-l1/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "vacancies"))
}

func (s *PostgresStoreSuite) newPublished(owner string, tier models.PublicationType) *models.Vacancy {
	from := 100000
	v, err := models.NewVacancy(id.NewVacancyID(), owner, models.Draft{
		Title:      "Go developer",
		Skills:     []string{"go", "sql"},
		SalaryFrom: &from,
	}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(v.StartPayment(models.PublishParams{
		PublicationType:        tier,
		PublishOnExternalBoard: true,
		Cities:                 []string{"Moscow", "Kazan"},
	}))
	s.Require().NoError(v.MarkPaid())
	s.Require().NoError(v.Publish(s.now, 200))
	return v
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	v := s.newPublished("alice", models.PublicationPremium)
	s.Require().NoError(s.store.Save(ctx, v))

	found, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(v.Cities, found.Cities)
	s.Equal(v.Skills, found.Skills)
	s.Equal(models.StatusPublished, found.Status)
	s.Require().NotNil(found.ExpiresAt)
	s.True(v.ExpiresAt.Equal(*found.ExpiresAt))
	s.Require().NotNil(found.SalaryFrom)
	s.Equal(100000, *found.SalaryFrom)
	s.Nil(found.SalaryTo)

	_, err = s.store.FindByID(ctx, id.NewVacancyID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpsertAndQueries() {
	ctx := context.Background()
	premium := s.newPublished("alice", models.PublicationPremium)
	standard := s.newPublished("bob", models.PublicationStandard)
	standard.PromotionScore = 50
	s.Require().NoError(s.store.Save(ctx, premium))
	s.Require().NoError(s.store.Save(ctx, standard))

	s.Require().NoError(premium.Expire())
	s.Require().NoError(s.store.Save(ctx, premium))

	published, err := s.store.FindByStatus(ctx, models.StatusPublished)
	s.Require().NoError(err)
	s.Require().Len(published, 1)
	s.Equal(standard.ID, published[0].ID)

	tiered, err := s.store.FindByTierAndStatus(ctx, models.PublicationPremium, models.StatusExpired)
	s.Require().NoError(err)
	s.Len(tiered, 1)

	ranked, err := s.store.ListOrderedByScore(ctx)
	s.Require().NoError(err)
	s.Require().Len(ranked, 2)
	s.Equal(premium.ID, ranked[0].ID)

	owned, err := s.store.ListByOwner(ctx, "bob")
	s.Require().NoError(err)
	s.Len(owned, 1)
}

// TestRollbackDiscardsWrites verifies stores join the transaction carried by ctx.
func (s *PostgresStoreSuite) TestRollbackDiscardsWrites() {
	ctx := context.Background()
	v := s.newPublished("carol", models.PublicationStandard)

	tx, err := s.postgres.DB.BeginTx(ctx, &sql.TxOptions{})
	s.Require().NoError(err)
	s.Require().NoError(s.store.Save(txcontext.WithTx(ctx, tx), v))
	s.Require().NoError(tx.Rollback())

	_, err = s.store.FindByID(ctx, v.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
