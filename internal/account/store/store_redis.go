package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/DaniilOrchikov/blps-l1/internal/account"
)

const (
	balanceKeyPrefix = "account:balance:"
	maxTxRetries     = 50
)

// RedisStore keeps balances as decimal strings. Mutations run as WATCH/MULTI
// optimistic transactions and retry when another writer touched the key.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func balanceKey(username string) string {
	return balanceKeyPrefix + username
}

func (s *RedisStore) Balance(ctx context.Context, username string) (decimal.Decimal, error) {
	return readBalance(ctx, s.client, balanceKey(username))
}

func (s *RedisStore) Deposit(ctx context.Context, username string, amount decimal.Decimal) error {
	if err := account.ValidateAmount(amount); err != nil {
		return err
	}
	return s.update(ctx, username, func(current decimal.Decimal) (decimal.Decimal, error) {
		return current.Add(amount), nil
	})
}

func (s *RedisStore) Withdraw(ctx context.Context, username string, amount decimal.Decimal) error {
	if err := account.ValidateAmount(amount); err != nil {
		return err
	}
	return s.update(ctx, username, func(current decimal.Decimal) (decimal.Decimal, error) {
		if current.LessThan(amount) {
			return decimal.Zero, account.ErrInsufficientFunds
		}
		return current.Sub(amount), nil
	})
}

func (s *RedisStore) update(ctx context.Context, username string, apply func(decimal.Decimal) (decimal.Decimal, error)) error {
	key := balanceKey(username)
	txf := func(tx *redis.Tx) error {
		current, err := readBalance(ctx, tx, key)
		if err != nil {
			return err
		}
		next, err := apply(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next.String(), 0)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, account.ErrInsufficientFunds) {
			return fmt.Errorf("update balance: %w", err)
		}
		return err
	}
	return fmt.Errorf("update balance: too much contention on %s", key)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readBalance(ctx context.Context, c getter, key string) (decimal.Decimal, error) {
	raw, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return amount, nil
}
