package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("withdraw: %w", NewError(KindValidation, CodeInsufficientShares, "have 1 want 2"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrTransfer))
	assert.True(t, errors.Is(err, &Error{Kind: KindValidation, Code: CodeInsufficientShares}))
	assert.False(t, errors.Is(err, &Error{Kind: KindValidation, Code: CodeInvalidAmount}))
	assert.Equal(t, CodeInsufficientShares, CodeOf(err))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Contains(t, err.Error(), "[IS]")
}

func TestTWAPStateInFlight(t *testing.T) {
	tests := []struct {
		name  string
		state TWAPState
		want  bool
	}{
		{"zero", TWAPState{}, false},
		{"started", TWAPState{Total: dec(100), Sold: dec(0)}, true},
		{"partial", TWAPState{Total: dec(100), Sold: dec(40)}, true},
		{"complete", TWAPState{Total: dec(100), Sold: dec(100)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.InFlight())
		})
	}
}
