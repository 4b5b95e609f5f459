package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := Invalid("deposit", "amount must be positive")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrState))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "deposit: ValidationError: amount must be positive", err.Error())
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("api: %w", NotFound("recordTrade", "agent 7"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindUnknown, KindOf(errors.New("disk full")))
}

func TestCodes(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{Unauthorized("setPerformanceFee", "admin required"), "unauthorized"},
		{Invalid("registerAgent", "allocation exceeds 100%"), "invalid_argument"},
		{State("withdraw", "emergency stop active"), "failed_precondition"},
		{NotFound("setAgentStatus", "agent 3"), "not_found"},
	}
	for _, tt := range tests {
		var fe *Error
		if assert.True(t, errors.As(tt.err, &fe)) {
			assert.Equal(t, tt.code, fe.Code())
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("wallet empty")
	err := Wrap(KindState, "deposit", "asset transfer failed", cause)

	assert.ErrorIs(t, err, ErrState)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindState, KindOf(err))
}
