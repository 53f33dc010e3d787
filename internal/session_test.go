package internal_test

import (
	"testing"

	"github.com/koopa0/system-design/14-chess-relay/internal"
	apperrors "github.com/koopa0/system-design/14-chess-relay/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_Connect(t *testing.T) {
	sm := internal.NewSessionManager(testLogger())

	seen := make(map[string]bool)
	for range 100 {
		id := sm.Connect()
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true

		_, bound := sm.RoomOf(id)
		assert.False(t, bound)
	}
	assert.Equal(t, 100, sm.Count())
}

func TestSessionManager_BindRoom(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(sm *internal.SessionManager) string
		roomID   string
		checkErr func(t *testing.T, err error)
	}{
		{
			name:     "bind fresh session",
			setup:    func(sm *internal.SessionManager) string { return sm.Connect() },
			roomID:   "r1",
			checkErr: func(t *testing.T, err error) { require.NoError(t, err) },
		},
		{
			name: "rebind same room is noop",
			setup: func(sm *internal.SessionManager) string {
				id := sm.Connect()
				require.NoError(t, sm.BindRoom(id, "r1"))
				return id
			},
			roomID:   "r1",
			checkErr: func(t *testing.T, err error) { require.NoError(t, err) },
		},
		{
			name: "bind different room fails",
			setup: func(sm *internal.SessionManager) string {
				id := sm.Connect()
				require.NoError(t, sm.BindRoom(id, "r1"))
				return id
			},
			roomID: "r2",
			checkErr: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.True(t, apperrors.IsAlreadyBound(err))
			},
		},
		{
			name:   "unknown session",
			setup:  func(sm *internal.SessionManager) string { return "ghost" },
			roomID: "r1",
			checkErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrUnknownSession)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := internal.NewSessionManager(testLogger())
			id := tt.setup(sm)
			tt.checkErr(t, sm.BindRoom(id, tt.roomID))
		})
	}

	t.Run("failed rebind keeps original room", func(t *testing.T) {
		sm := internal.NewSessionManager(testLogger())
		id := sm.Connect()
		require.NoError(t, sm.BindRoom(id, "r1"))
		require.Error(t, sm.BindRoom(id, "r2"))

		roomID, ok := sm.RoomOf(id)
		require.True(t, ok)
		assert.Equal(t, "r1", roomID)
	})
}

func TestSessionManager_Disconnect(t *testing.T) {
	sm := internal.NewSessionManager(testLogger())

	bound := sm.Connect()
	require.NoError(t, sm.BindRoom(bound, "r1"))
	unbound := sm.Connect()

	roomID, ok := sm.Disconnect(bound)
	assert.True(t, ok)
	assert.Equal(t, "r1", roomID)
	assert.False(t, sm.Exists(bound))

	roomID, ok = sm.Disconnect(unbound)
	assert.False(t, ok)
	assert.Empty(t, roomID)

	// 重複斷線是 no-op
	_, ok = sm.Disconnect(bound)
	assert.False(t, ok)

	assert.Equal(t, 0, sm.Count())
}
