package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStringIncludesCodeAndBlockers(t *testing.T) {
	err := Precondition(CodeGateNotSatisfied, []string{"first_piece QC not passed", "batch still producing"})
	assert.Contains(t, err.Error(), CodeGateNotSatisfied)
	assert.Contains(t, err.Error(), "first_piece QC not passed")
	assert.Contains(t, err.Error(), "batch still producing")
}

func TestKindAndCodeSurviveWrapping(t *testing.T) {
	inner := Validation(CodeNegativeQuantity, "qty must be positive, got %d", -3)
	wrapped := fmt.Errorf("issuing material: %w", inner)

	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, CodeNegativeQuantity, CodeOf(wrapped))
}

func TestBlockersOf(t *testing.T) {
	err := Precondition(CodeInsufficientStock, []string{"lot has 200 kg available"})
	assert.Equal(t, []string{"lot has 200 kg available"}, BlockersOf(err))

	assert.Nil(t, BlockersOf(errors.New("plain")))
}

func TestOnlyContentionIsRetryable(t *testing.T) {
	assert.True(t, Contention("sequence contended").Retryable())
	assert.False(t, Validation("", "bad input").Retryable())
	assert.False(t, Precondition(CodeBatchClosed, []string{"closed"}).Retryable())
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("not ours")))
	assert.Equal(t, "", CodeOf(nil))
}
