package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/DaniilOrchikov/blps-l1/pkg/domain-errors"
)

func TestParseVacancyID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseVacancyID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseVacancyID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseVacancyID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseVacancyID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, VacancyID(raw), id)
		assert.Equal(t, raw.String(), id.String())
	})
}

func TestIDTypes_ConsistentBehavior(t *testing.T) {
	valid := uuid.New().String()
	_, errVacancy := ParseVacancyID(valid)
	_, errPayment := ParsePaymentID(valid)
	require.NoError(t, errVacancy)
	require.NoError(t, errPayment)

	for _, input := range []string{"", "invalid", uuid.Nil.String(), "'; DROP TABLE vacancies;--"} {
		t.Run("reject "+input, func(t *testing.T) {
			_, errVacancy := ParseVacancyID(input)
			_, errPayment := ParsePaymentID(input)
			require.Error(t, errVacancy)
			require.Error(t, errPayment)
		})
	}

	assert.True(t, VacancyID{}.IsNil())
	assert.False(t, NewPaymentID().IsNil())
}
