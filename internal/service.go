package internal

import (
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/koopa0/system-design/14-chess-relay/pkg/errors"
)

// Service 配對與中繼服務
//
// 系統設計考量：
//
//  1. 單一寫入者：
//     一把 mutex 序列化所有修改操作，等價於單執行緒事件迴圈；
//     admit/remove/move 在同一房間上不可交換，不能拆成各自獨立的鎖。
//
//  2. 廣播順序：
//     Transport 的實作是非阻塞的（寫入緩衝 channel），
//     在持鎖狀態下送出，保證同一房間的扇出順序等於處理順序。
//
//  3. 無逾時：
//     等待對手、閒置玩家、停止的棋鐘都沒有逾時。斷線是唯一的取消信號。
type Service struct {
	registry       *Registry
	sessions       *SessionManager
	transport      Transport
	metrics        *Metrics
	logger         *slog.Logger
	initialSeconds int
	mu             sync.Mutex
}

// NewService 創建服務
func NewService(cfg GameConfig, transport Transport, metrics *Metrics, logger *slog.Logger) *Service {
	return &Service{
		registry:       NewRegistry(cfg.InitialSeconds, logger),
		sessions:       NewSessionManager(logger),
		transport:      transport,
		metrics:        metrics,
		logger:         logger,
		initialSeconds: cfg.InitialSeconds,
	}
}

// Registry 房間註冊表（唯讀查詢用）
func (s *Service) Registry() *Registry {
	return s.registry
}

// Sessions 連線管理器（唯讀查詢用）
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Connect 新連線建立
func (s *Service) Connect() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.sessions.Connect()
	s.metrics.Sessions.Set(float64(s.sessions.Count()))
	return id
}

// Disconnect 連線中斷
//
// 立即釋放座位，沒有寬限期也沒有重連視窗。
// 房間只剩一人時通知留下的玩家；進行中的對局轉為暫停，已結束的對局維持 game_over。
func (s *Service) Disconnect(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, bound := s.sessions.Disconnect(sessionID)
	s.metrics.Sessions.Set(float64(s.sessions.Count()))
	if !bound {
		return
	}

	s.transport.LeaveGroup(sessionID, roomID)

	switch s.registry.Remove(roomID, sessionID) {
	case RemoveSolo:
		if err := s.registry.Update(roomID, func(r *Room) error {
			r.Suspend()
			return nil
		}); err != nil {
			s.logger.Error("暫停房間失敗", "room_id", roomID, "error", err)
		}
		s.transport.BroadcastToRoom(roomID, EventPauseGame, nil, "")
		s.logger.Info("對手離開，對局暫停", "room_id", roomID, "session_id", sessionID)

	case RemoveDeleted:
		s.logger.Info("最後一位玩家離開", "room_id", roomID, "session_id", sessionID)

	case RemoveNoop:
		// 綁定存在但座位不存在：兩邊的狀態已經分歧
		s.logger.Error("連線綁定與房間座位不一致", "room_id", roomID, "session_id", sessionID)
	}

	s.metrics.Rooms.Set(float64(s.registry.Count()))
}

// Handle 分派客戶端事件
//
// 失敗時只通知發起的連線一次，不重試；房間已滿另有專屬通知。
func (s *Service) Handle(sessionID string, msg Inbound) error {
	var (
		event string
		err   error
	)

	switch m := msg.(type) {
	case JoinRoom:
		event = EventJoinRoom
		_, err = s.JoinRoom(sessionID, m.RoomID)
	case Move:
		event = EventMove
		err = s.Move(sessionID, m)
	case Rematch:
		event = EventRematch
		err = s.Rematch(sessionID, m.RoomID)
	case PauseGame:
		event = EventPauseGame
		err = s.Pause(sessionID, m.RoomID)
	case ResumeGame:
		event = EventResumeGame
		err = s.Resume(sessionID, m.RoomID)
	case GameOver:
		event = EventGameOver
		err = s.EndGame(sessionID, m.RoomID, m.Reason)
	case Ping:
		s.transport.Send(sessionID, EventPong, nil)
		return nil
	default:
		event = "unknown"
		err = fmt.Errorf("%T: %w", msg, apperrors.ErrInvalidMessage)
	}

	s.metrics.observe(event, err)

	if err != nil && !apperrors.IsRoomFull(err) {
		s.Reject(sessionID, err)
	}
	return err
}

// Reject 送出單次錯誤通知
func (s *Service) Reject(sessionID string, err error) {
	s.logger.Warn("拒絕客戶端事件", "session_id", sessionID, "error", err)
	s.transport.Send(sessionID, EventError, NewErrorNotice(err))
}

// Stats 統計資訊
func (s *Service) Stats() map[string]any {
	return map[string]any{
		"total_rooms":    s.registry.Count(),
		"total_sessions": s.sessions.Count(),
		"by_state":       s.registry.CountByState(),
	}
}

// requireBound 確認連線綁定在指定房間（呼叫者需持有鎖）
func (s *Service) requireBound(sessionID, roomID string) error {
	bound, ok := s.sessions.RoomOf(sessionID)
	if !ok || bound != roomID {
		return fmt.Errorf("session %s room %s: %w", sessionID, roomID, apperrors.ErrNotInRoom)
	}
	return nil
}

// sendTo 單播；對方已不可達時靜默略過
func (s *Service) sendTo(sessionID, event string, payload any) {
	if !s.transport.Send(sessionID, event, payload) {
		s.logger.Debug("接收者不可達", "session_id", sessionID, "event", event)
	}
}
