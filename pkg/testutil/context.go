package testutil

import (
	"context"
	"time"

	"github.com/DaniilOrchikov/blps-l1/pkg/requestcontext"
)

// CallerContext returns a context carrying a fixed request time and, when
// username is non-empty, the acting account. Batch jobs run without a caller.
func CallerContext(now time.Time, username string) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	if username != "" {
		ctx = requestcontext.WithUsername(ctx, username)
	}
	return ctx
}
