package internal

import (
	"errors"
	"fmt"

	apperrors "github.com/koopa0/system-design/14-chess-relay/pkg/errors"
)

// JoinRoom 加入房間並在兩人到齊時開始對局
//
// 流程：
//
//	檢查綁定 → Registry.Admit → 綁定連線 → 加入廣播群組 → （兩人）配對
//
// 第三位玩家收到 room-full，不會被加入座位或群組。
func (s *Service) JoinRoom(sessionID, roomID string) (Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sessions.Exists(sessionID) {
		return "", fmt.Errorf("join %s: %w", roomID, apperrors.ErrUnknownSession)
	}

	if bound, ok := s.sessions.RoomOf(sessionID); ok && bound != roomID {
		s.logger.Error("連線已綁定其他房間",
			"session_id", sessionID,
			"room_id", roomID,
			"bound_room_id", bound)
		return "", fmt.Errorf("join %s: %w", roomID, apperrors.ErrAlreadyBound.WithDetails("bound to "+bound))
	}

	admission, err := s.registry.Admit(roomID, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRoomFull) {
			s.metrics.Rejections.Inc()
			s.sendTo(sessionID, EventRoomFull, nil)
			s.logger.Info("房間已滿", "room_id", roomID, "session_id", sessionID)
		}
		return "", err
	}

	if err := s.sessions.BindRoom(sessionID, roomID); err != nil {
		// 前面已檢查過綁定，走到這裡代表狀態分歧；撤銷座位保持一致
		if admission.Added {
			s.registry.Remove(roomID, sessionID)
		}
		s.logger.Error("綁定房間失敗", "room_id", roomID, "session_id", sessionID, "error", err)
		return "", err
	}

	s.transport.JoinGroup(sessionID, roomID)
	s.metrics.Rooms.Set(float64(s.registry.Count()))

	s.logger.Info("玩家加入房間",
		"room_id", roomID,
		"session_id", sessionID,
		"color", admission.Color,
		"occupants", admission.Occupants,
		"retry", !admission.Added)

	if admission.Occupants == MaxOccupants {
		if admission.Added {
			s.startMatch(roomID)
		} else {
			s.replayMatch(roomID, sessionID)
		}
	}

	return admission.Color, nil
}

// startMatch 兩人到齊：重置棋鐘、通知雙方顏色與對手上線
//
// 任一方在此期間已斷線時靜默略過，只通知仍可達的一方。
func (s *Service) startMatch(roomID string) {
	var (
		occupants []string
		clock     ClockPair
	)
	if err := s.registry.Update(roomID, func(r *Room) error {
		r.Start(s.initialSeconds)
		occupants = r.Occupants()
		clock = r.Clock
		return nil
	}); err != nil {
		s.logger.Error("開始對局失敗", "room_id", roomID, "error", err)
		return
	}

	for i, id := range occupants {
		s.sendTo(id, EventMatchFound, MatchFound{
			Color:  ColorAt(i),
			RoomID: roomID,
			Timers: clock,
		})
	}

	// 與 match-found 分開送出：上線狀態之後也可能獨立改變
	for _, id := range occupants {
		s.sendTo(id, EventOpponentConnected, nil)
	}

	s.metrics.Matches.Inc()
	s.logger.Info("配對成功", "room_id", roomID, "white", occupants[0], "black", occupants[1])
}

// replayMatch 重送的 join：只把目前對局資訊補發給重送者，不打擾對手
func (s *Service) replayMatch(roomID, sessionID string) {
	var notice MatchFound
	if err := s.registry.Update(roomID, func(r *Room) error {
		notice = MatchFound{Color: r.ColorOf(sessionID), RoomID: roomID, Timers: r.Clock}
		return nil
	}); err != nil {
		s.logger.Error("補發配對資訊失敗", "room_id", roomID, "session_id", sessionID, "error", err)
		return
	}

	s.sendTo(sessionID, EventMatchFound, notice)
	s.sendTo(sessionID, EventOpponentConnected, nil)
}
