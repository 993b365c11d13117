//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/DaniilOrchikov/blps-l1/internal/account"
	"github.com/DaniilOrchikov/blps-l1/internal/account/store"
	"github.com/DaniilOrchikov/blps-l1/pkg/testutil/containers"
)

type balanceStore interface {
	Balance(ctx context.Context, username string) (decimal.Decimal, error)
	Deposit(ctx context.Context, username string, amount decimal.Decimal) error
	Withdraw(ctx context.Context, username string, amount decimal.Decimal) error
}

type BalanceIntegrationSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redis    *containers.RedisContainer
	stores   map[string]balanceStore
}

func TestBalanceIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(BalanceIntegrationSuite))
}

func (s *BalanceIntegrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redis = mgr.GetRedis(s.T())
	s.stores = map[string]balanceStore{
		"postgres": store.NewPostgres(s.postgres.DB),
		"redis":    store.NewRedis(s.redis.Client),
	}
}

func (s *BalanceIntegrationSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "personal_accounts"))
	s.Require().NoError(s.redis.FlushAll(ctx))
}

func (s *BalanceIntegrationSuite) TestOverdraftRejected() {
	ctx := context.Background()
	for name, st := range s.stores {
		s.Run(name, func() {
			s.Require().NoError(st.Deposit(ctx, "alice", decimal.NewFromInt(100)))
			s.ErrorIs(st.Withdraw(ctx, "alice", decimal.NewFromInt(150)), account.ErrInsufficientFunds)

			b, err := st.Balance(ctx, "alice")
			s.Require().NoError(err)
			s.True(decimal.NewFromInt(100).Equal(b), "got %s", b)
		})
	}
}

// TestConcurrentWithdrawals checks that exactly balance/amount withdrawals win.
func (s *BalanceIntegrationSuite) TestConcurrentWithdrawals() {
	ctx := context.Background()
	for name, st := range s.stores {
		s.Run(name, func() {
			user := "concurrent-" + name
			s.Require().NoError(st.Deposit(ctx, user, decimal.NewFromInt(500)))

			var (
				wg        sync.WaitGroup
				successes atomic.Int32
			)
			for range 10 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := st.Withdraw(ctx, user, decimal.NewFromInt(100)); err == nil {
						successes.Add(1)
					}
				}()
			}
			wg.Wait()

			s.Equal(int32(5), successes.Load())
			b, err := st.Balance(ctx, user)
			s.Require().NoError(err)
			s.True(b.IsZero(), "got %s", b)
		})
	}
}
