package internal

// 系統設計問題：
//   中繼端不懂西洋棋規則，如何轉發走子並協調雙方的棋鐘？
//
// 設計方案：
//   ✅ 只驗證「發送者在房內」與「房間狀態」，不驗證走子合法性
//   ✅ 棋鐘以走子方回報的值為準（已知的信任弱點，刻意保留）
//   ✅ 暫停/恢復/再戰都是房間層級的廣播轉換
//   ✅ 中繼端不跑計時器：棋鐘「正在走」是客戶端的推論

// Move 轉發走子給對手
func (s *Service) Move(sessionID string, m Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireBound(sessionID, m.RoomID); err != nil {
		return err
	}

	if err := s.registry.Update(m.RoomID, func(r *Room) error {
		return r.RecordMove(m.WhiteTime, m.BlackTime, m.FEN)
	}); err != nil {
		return err
	}

	s.transport.BroadcastToRoom(m.RoomID, EventOpponentMove, OpponentMove{
		From:      m.From,
		To:        m.To,
		Promotion: m.Promotion,
		WhiteTime: m.WhiteTime,
		BlackTime: m.BlackTime,
	}, sessionID)

	s.logger.Debug("走子已轉發",
		"room_id", m.RoomID,
		"session_id", sessionID,
		"from", m.From,
		"to", m.To)

	return nil
}

// Pause 暫停對局並通知房內所有人（包含發起者）
func (s *Service) Pause(sessionID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireBound(sessionID, roomID); err != nil {
		return err
	}

	var changed bool
	if err := s.registry.Update(roomID, func(r *Room) error {
		var err error
		changed, err = r.Pause()
		return err
	}); err != nil {
		return err
	}

	if !changed {
		return nil
	}

	s.transport.BroadcastToRoom(roomID, EventPauseGame, nil, "")
	s.logger.Info("對局暫停", "room_id", roomID, "session_id", sessionID)
	return nil
}

// Resume 恢復對局，棋鐘重置為初始值並通知房內所有人
func (s *Service) Resume(sessionID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireBound(sessionID, roomID); err != nil {
		return err
	}

	var clock ClockPair
	if err := s.registry.Update(roomID, func(r *Room) error {
		if err := r.Resume(s.initialSeconds); err != nil {
			return err
		}
		clock = r.Clock
		return nil
	}); err != nil {
		return err
	}

	s.transport.BroadcastToRoom(roomID, EventResumeGame, ClockUpdate{
		WhiteTime: clock.White,
		BlackTime: clock.Black,
	}, "")
	s.logger.Info("對局恢復", "room_id", roomID, "session_id", sessionID)
	return nil
}

// Rematch 再戰：重置棋鐘並只通知對手（發起者自行重置本地狀態）
func (s *Service) Rematch(sessionID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireBound(sessionID, roomID); err != nil {
		return err
	}

	if err := s.registry.Update(roomID, func(r *Room) error {
		r.Rematch(s.initialSeconds)
		return nil
	}); err != nil {
		return err
	}

	s.transport.BroadcastToRoom(roomID, EventRematchRequest, nil, sessionID)
	s.logger.Info("再戰", "room_id", roomID, "session_id", sessionID)
	return nil
}

// EndGame 對局結束（由客戶端規則引擎判定），通知對手
func (s *Service) EndGame(sessionID, roomID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireBound(sessionID, roomID); err != nil {
		return err
	}

	if err := s.registry.Update(roomID, func(r *Room) error {
		return r.Finish()
	}); err != nil {
		return err
	}

	s.transport.BroadcastToRoom(roomID, EventGameOver, GameOverNotice{Reason: reason}, sessionID)
	s.logger.Info("對局結束", "room_id", roomID, "session_id", sessionID, "reason", reason)
	return nil
}
