package internal_test

import (
	"fmt"
	"testing"

	"github.com/koopa0/system-design/14-chess-relay/internal"
	apperrors "github.com/koopa0/system-design/14-chess-relay/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeInbound 測試解析客戶端訊息
func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected internal.Inbound
	}{
		{
			name:     "join-room bare string",
			input:    `{"event":"join-room","data":"room7"}`,
			expected: internal.JoinRoom{RoomID: "room7"},
		},
		{
			name:     "join-room object",
			input:    `{"event":"join-room","data":{"roomId":"room7"}}`,
			expected: internal.JoinRoom{RoomID: "room7"},
		},
		{
			name:  "move",
			input: `{"event":"move","data":{"from":"e2","to":"e4","roomId":"r1","whiteTime":297,"blackTime":300}}`,
			expected: internal.Move{
				From: "e2", To: "e4", RoomID: "r1", WhiteTime: 297, BlackTime: 300,
			},
		},
		{
			name:  "move with promotion and fen",
			input: `{"event":"move","data":{"from":"a7","to":"a8","promotion":"q","roomId":"r1","whiteTime":1,"blackTime":2,"fen":"8/8/8/8/8/8/8/8 w - - 0 1"}}`,
			expected: internal.Move{
				From: "a7", To: "a8", Promotion: "q", RoomID: "r1",
				WhiteTime: 1, BlackTime: 2, FEN: "8/8/8/8/8/8/8/8 w - - 0 1",
			},
		},
		{
			name:     "rematch",
			input:    `{"event":"rematch","data":{"roomId":"r1"}}`,
			expected: internal.Rematch{RoomID: "r1"},
		},
		{
			name:     "pause-game",
			input:    `{"event":"pause-game","data":{"roomId":"r1"}}`,
			expected: internal.PauseGame{RoomID: "r1"},
		},
		{
			name:     "resume-game",
			input:    `{"event":"resume-game","data":{"roomId":"r1"}}`,
			expected: internal.ResumeGame{RoomID: "r1"},
		},
		{
			name:     "game-over",
			input:    `{"event":"game-over","data":{"roomId":"r1","reason":"checkmate"}}`,
			expected: internal.GameOver{RoomID: "r1", Reason: "checkmate"},
		},
		{
			name:     "ping without data",
			input:    `{"event":"ping"}`,
			expected: internal.Ping{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := internal.DecodeInbound([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, msg)
		})
	}
}

// TestDecodeInbound_Invalid 測試無效訊息
func TestDecodeInbound_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: `hello`},
		{name: "unknown event", input: `{"event":"castle","data":{}}`},
		{name: "missing event", input: `{"data":"room7"}`},
		{name: "join-room empty id", input: `{"event":"join-room","data":""}`},
		{name: "join-room missing data", input: `{"event":"join-room"}`},
		{name: "join-room wrong type", input: `{"event":"join-room","data":42}`},
		{name: "move missing room", input: `{"event":"move","data":{"from":"e2","to":"e4"}}`},
		{name: "move missing squares", input: `{"event":"move","data":{"roomId":"r1"}}`},
		{name: "move missing data", input: `{"event":"move"}`},
		{name: "move bad clock type", input: `{"event":"move","data":{"from":"e2","to":"e4","roomId":"r1","whiteTime":"ten"}}`},
		{name: "rematch missing room", input: `{"event":"rematch","data":{}}`},
		{name: "pause missing data", input: `{"event":"pause-game"}`},
		{name: "game-over missing room", input: `{"event":"game-over","data":{"reason":"resign"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := internal.DecodeInbound([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.Equal(t, apperrors.ErrCodeInvalidMessage, apperrors.Code(err))
		})
	}
}

// TestNewErrorNotice 測試錯誤通知內容
func TestNewErrorNotice(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected internal.ErrorNotice
	}{
		{
			name:     "plain app error",
			err:      apperrors.ErrNotInRoom,
			expected: internal.ErrorNotice{Code: apperrors.ErrCodeNotInRoom, Message: "session is not in this room"},
		},
		{
			name: "wrapped with details",
			err:  fmt.Errorf("join r2: %w", apperrors.ErrAlreadyBound.WithDetails("bound to r1")),
			expected: internal.ErrorNotice{
				Code:    apperrors.ErrCodeAlreadyBound,
				Message: "session already bound to another room: bound to r1",
			},
		},
		{
			name:     "foreign error",
			err:      fmt.Errorf("boom"),
			expected: internal.ErrorNotice{Code: apperrors.ErrCodeInternal, Message: "internal error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, internal.NewErrorNotice(tt.err))
		})
	}
}
