package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	cause := errors.New("boom")

	t.Run("direct code", func(t *testing.T) {
		err := New(CodeInvalidState, "vacancy must be DRAFT")
		assert.True(t, HasCode(err, CodeInvalidState))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("nested through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("publish: %w", Wrap(cause, CodePaymentFailed, "charge declined"))
		assert.True(t, HasCode(err, CodePaymentFailed))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("inner code of a coded chain", func(t *testing.T) {
		err := Wrap(New(CodeNotFound, "payment not found"), CodeRefundFailed, "refund failed")
		assert.True(t, HasCode(err, CodeRefundFailed))
		assert.True(t, HasCode(err, CodeNotFound))
	})

	t.Run("joined errors are searched per branch", func(t *testing.T) {
		err := errors.Join(
			Wrap(cause, CodeExternalPublishFailed, "board rejected vacancy"),
			New(CodeRefundFailed, "refund failed"),
		)
		assert.True(t, HasCode(err, CodeExternalPublishFailed))
		assert.True(t, HasCode(err, CodeRefundFailed))
		assert.False(t, HasCode(err, CodeTimeout))
	})

	t.Run("nil", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "title is required")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, "charge declined: boom", Wrap(errors.New("boom"), CodePaymentFailed, "charge declined").Error())
}
