package service

import (
	"context"
	"sync"
	"time"

	id "github.com/DaniilOrchikov/blps-l1/pkg/domain"
	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
)

// VacancyTx provides the atomic boundary for one workflow step. Stores used
// inside fn must see (and only see) the effects committed by that step.
// The postgres implementation carries its *sql.Tx in the ctx passed to fn.
type VacancyTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// numVacancyShards spreads vacancy locks so unrelated vacancies rarely contend.
const numVacancyShards = 128

// DefaultTxTimeout bounds a workflow step when the caller set no deadline.
const DefaultTxTimeout = 5 * time.Second

// ShardedTx serializes steps per vacancy with sharded mutexes. It offers
// isolation but no rollback; the workflow compensates explicitly.
type ShardedTx struct {
	shards  [numVacancyShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx() *ShardedTx {
	return &ShardedTx{timeout: DefaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// selectShard picks a shard from the vacancy key in ctx, or shard 0.
func (t *ShardedTx) selectShard(ctx context.Context) int {
	if key, ok := ctx.Value(txVacancyKeyCtx).(string); ok && key != "" {
		return int(hashString(key) % numVacancyShards)
	}
	return 0
}

// hashString is FNV-1a.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

type txVacancyKey struct{}

var txVacancyKeyCtx = txVacancyKey{}

// WithVacancyKey scopes the next RunInTx to the given vacancy's shard.
func WithVacancyKey(ctx context.Context, vacancyID id.VacancyID) context.Context {
	return context.WithValue(ctx, txVacancyKeyCtx, vacancyID.String())
}
