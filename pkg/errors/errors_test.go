package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusinessError_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("record payment: %w", WrapAlreadySettled(3))

	assert.True(t, errors.Is(err, ErrAlreadySettled))
	assert.Equal(t, ErrCodeAlreadySettled, CodeOf(err))
	assert.Contains(t, err.Error(), "ALREADY_SETTLED")
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ""},
		{"loan not found", WrapLoanNotFound("abc"), ErrCodeLoanNotFound},
		{"lock", WrapLockNotAcquired("abc", errors.New("busy")), ErrCodeLockNotAcquired},
		{"database", WrapDatabaseError(errors.New("down")), ErrCodeDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}
