package kafka

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "github.com/DaniilOrchikov/blps-l1/pkg/platform/audit"
)

func TestUnmarshal(t *testing.T) {
	t.Run("decodes what the producer writes", func(t *testing.T) {
		event := audit.Event{
			ID:         uuid.New(),
			Timestamp:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			Action:     string(audit.EventVacancyPublished),
			Subject:    uuid.NewString(),
			Actor:      "acme",
			RequestID:  "req-1",
			Attributes: map[string]string{"publication_type": "PREMIUM"},
		}
		raw, err := Marshal(event)
		require.NoError(t, err)

		got, err := Unmarshal(raw)
		require.NoError(t, err)
		assert.Equal(t, event, got)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := Unmarshal([]byte("{not json"))
		assert.Error(t, err)
	})

	t.Run("rejects bad id", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"id":"nope","action":"vacancy_paid","subject":"v"}`))
		assert.Error(t, err)
	})

	t.Run("rejects missing action", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"id":"` + uuid.NewString() + `","subject":"v"}`))
		assert.Error(t, err)
	})
}
