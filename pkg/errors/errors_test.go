package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	apperrors "github.com/koopa0/system-design/14-chess-relay/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestAppError_Is(t *testing.T) {
	wrapped := fmt.Errorf("join room r1: %w", apperrors.ErrRoomFull)

	assert.True(t, stderrors.Is(wrapped, apperrors.ErrRoomFull))
	assert.False(t, stderrors.Is(wrapped, apperrors.ErrAlreadyBound))
	assert.True(t, apperrors.IsRoomFull(wrapped))

	// 同錯誤碼的不同實例也視為相同
	other := apperrors.New(apperrors.ErrCodeRoomFull, "another message")
	assert.True(t, stderrors.Is(other, apperrors.ErrRoomFull))
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *apperrors.AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      apperrors.ErrNotInRoom,
			expected: "[NOT_IN_ROOM] session is not in this room",
		},
		{
			name:     "with cause",
			err:      apperrors.Wrap(stderrors.New("unexpected EOF"), apperrors.ErrCodeInvalidMessage, "decode envelope"),
			expected: "[INVALID_MESSAGE] decode envelope: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.Code(fmt.Errorf("pause: %w", apperrors.ErrInvalidState)))
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.Code(stderrors.New("boom")))
}

func TestWithDetails_DoesNotMutateShared(t *testing.T) {
	detailed := apperrors.ErrAlreadyBound.WithDetails("bound to r1")

	assert.Equal(t, "bound to r1", detailed.Details)
	assert.Empty(t, apperrors.ErrAlreadyBound.Details)
	assert.True(t, apperrors.IsAlreadyBound(detailed))
}
