package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DaniilOrchikov/blps-l1/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	fixed := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	var gotTime time.Time
	var gotID string
	h := MiddlewareWithClock(func() time.Time { return fixed })(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotTime = requestcontext.Now(r.Context())
		gotID = requestcontext.RequestID(r.Context())
	}))

	t.Run("generates request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, fixed, gotTime)
		assert.NotEmpty(t, gotID)
		assert.Equal(t, gotID, w.Header().Get(RequestIDHeader))
	})

	t.Run("keeps caller request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "req-42", gotID)
	})
}
