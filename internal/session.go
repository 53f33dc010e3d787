package internal

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/koopa0/system-design/14-chess-relay/pkg/errors"
)

// Session 一條傳輸連線的身份
type Session struct {
	ID          string
	RoomID      string // 空字串表示尚未綁定
	ConnectedAt time.Time
}

// SessionManager 連線管理器
//
// 每條連線最多綁定一個房間，綁定關係必須與 Registry 的座位列表一致；
// 任何不一致都是程式錯誤，而不是可恢復的執行期狀況。
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewSessionManager 創建連線管理器
func NewSessionManager(logger *slog.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Connect 為新連線分配唯一身份
func (sm *SessionManager) Connect() string {
	id := uuid.NewString()

	sm.mu.Lock()
	sm.sessions[id] = &Session{ID: id, ConnectedAt: time.Now()}
	sm.mu.Unlock()

	sm.logger.Debug("連線已註冊", "session_id", id)
	return id
}

// BindRoom 綁定房間
//
// 已綁定同一房間是 no-op；已綁定其他房間回傳 ErrAlreadyBound。
func (sm *SessionManager) BindRoom(sessionID, roomID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return fmt.Errorf("bind %s: %w", sessionID, apperrors.ErrUnknownSession)
	}

	switch session.RoomID {
	case roomID:
		return nil
	case "":
		session.RoomID = roomID
		return nil
	default:
		return fmt.Errorf("bind %s to %s: %w", sessionID, roomID,
			apperrors.ErrAlreadyBound.WithDetails("bound to "+session.RoomID))
	}
}

// Disconnect 清除連線並回傳原本所在的房間
func (sm *SessionManager) Disconnect(sessionID string) (string, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return "", false
	}
	delete(sm.sessions, sessionID)

	sm.logger.Debug("連線已移除", "session_id", sessionID, "room_id", session.RoomID)
	return session.RoomID, session.RoomID != ""
}

// RoomOf 連線所在房間
func (sm *SessionManager) RoomOf(sessionID string) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists || session.RoomID == "" {
		return "", false
	}
	return session.RoomID, true
}

// Exists 連線是否存在
func (sm *SessionManager) Exists(sessionID string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, exists := sm.sessions[sessionID]
	return exists
}

// Count 連線數
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
