package internal

import (
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/koopa0/system-design/14-chess-relay/pkg/errors"
)

// 事件名稱（沿用既有客戶端的命名，不可更改）
const (
	// 客戶端 → 伺服器
	EventJoinRoom = "join-room"
	EventMove     = "move"
	EventRematch  = "rematch"
	EventPing     = "ping"

	// 雙向
	EventPauseGame  = "pause-game"
	EventResumeGame = "resume-game"
	EventGameOver   = "game-over"

	// 伺服器 → 客戶端
	EventMatchFound        = "match-found"
	EventOpponentConnected = "opponent-connected"
	EventOpponentMove      = "opponent-move"
	EventRoomFull          = "room-full"
	EventRematchRequest    = "rematch-request"
	EventError             = "error"
	EventPong              = "pong"
)

// Event 傳輸層的訊息信封，每個 WebSocket 文字幀一個
type Event struct {
	Type string `json:"event"`
	Data any    `json:"data,omitempty"`
}

type inboundEnvelope struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Inbound 客戶端事件（封閉集合，只能是本檔案定義的型別）
type Inbound interface {
	inbound()
}

// JoinRoom 加入房間
type JoinRoom struct {
	RoomID string
}

// Move 走子；from/to/promotion 對中繼端是不透明的
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	RoomID    string `json:"roomId"`
	WhiteTime int    `json:"whiteTime"`
	BlackTime int    `json:"blackTime"`
	FEN       string `json:"fen,omitempty"`
}

// Rematch 再戰請求
type Rematch struct {
	RoomID string `json:"roomId"`
}

// PauseGame 暫停
type PauseGame struct {
	RoomID string `json:"roomId"`
}

// ResumeGame 恢復
type ResumeGame struct {
	RoomID string `json:"roomId"`
}

// GameOver 對局結束（由規則引擎所在的客戶端判定）
type GameOver struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason,omitempty"`
}

// Ping 應用層心跳
type Ping struct{}

func (JoinRoom) inbound()   {}
func (Move) inbound()       {}
func (Rematch) inbound()    {}
func (PauseGame) inbound()  {}
func (ResumeGame) inbound() {}
func (GameOver) inbound()   {}
func (Ping) inbound()       {}

// DecodeInbound 解析客戶端訊息
func DecodeInbound(data []byte) (Inbound, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidMessage, "decode envelope")
	}

	switch env.Type {
	case EventJoinRoom:
		roomID, err := decodeJoinRoom(env.Data)
		if err != nil {
			return nil, err
		}
		return JoinRoom{RoomID: roomID}, nil

	case EventMove:
		var m Move
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		if m.RoomID == "" || m.From == "" || m.To == "" {
			return nil, invalidMessage(env.Type, "roomId, from and to are required")
		}
		return m, nil

	case EventRematch:
		var m Rematch
		if err := decodeRoomPayload(env, &m, &m.RoomID); err != nil {
			return nil, err
		}
		return m, nil

	case EventPauseGame:
		var m PauseGame
		if err := decodeRoomPayload(env, &m, &m.RoomID); err != nil {
			return nil, err
		}
		return m, nil

	case EventResumeGame:
		var m ResumeGame
		if err := decodeRoomPayload(env, &m, &m.RoomID); err != nil {
			return nil, err
		}
		return m, nil

	case EventGameOver:
		var m GameOver
		if err := decodeRoomPayload(env, &m, &m.RoomID); err != nil {
			return nil, err
		}
		return m, nil

	case EventPing:
		return Ping{}, nil

	default:
		return nil, invalidMessage(env.Type, "unknown event")
	}
}

// decodeJoinRoom join-room 的 payload 是裸字串，也接受 {"roomId": "..."}
func decodeJoinRoom(raw json.RawMessage) (string, error) {
	var roomID string
	if err := json.Unmarshal(raw, &roomID); err != nil {
		var obj struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeInvalidMessage, "decode "+EventJoinRoom)
		}
		roomID = obj.RoomID
	}
	if roomID == "" {
		return "", invalidMessage(EventJoinRoom, "roomId is required")
	}
	return roomID, nil
}

func decodePayload(env inboundEnvelope, v any) error {
	if len(env.Data) == 0 {
		return invalidMessage(env.Type, "missing data")
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidMessage, "decode "+env.Type)
	}
	return nil
}

func decodeRoomPayload(env inboundEnvelope, v any, roomID *string) error {
	if err := decodePayload(env, v); err != nil {
		return err
	}
	if *roomID == "" {
		return invalidMessage(env.Type, "roomId is required")
	}
	return nil
}

func invalidMessage(event, details string) error {
	return fmt.Errorf("event %q: %w", event, apperrors.ErrInvalidMessage.WithDetails(details))
}

// MatchFound 配對成功
type MatchFound struct {
	Color  Color     `json:"color"`
	RoomID string    `json:"roomId"`
	Timers ClockPair `json:"timers"`
}

// OpponentMove 轉發給對手的走子
type OpponentMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	WhiteTime int    `json:"whiteTime"`
	BlackTime int    `json:"blackTime"`
}

// ClockUpdate 恢復對局時的棋鐘
type ClockUpdate struct {
	WhiteTime int `json:"whiteTime"`
	BlackTime int `json:"blackTime"`
}

// GameOverNotice 對局結束通知
type GameOverNotice struct {
	Reason string `json:"reason,omitempty"`
}

// ErrorNotice 單次錯誤通知（只送給發起的連線）
type ErrorNotice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorNotice 從錯誤產生通知
func NewErrorNotice(err error) ErrorNotice {
	notice := ErrorNotice{Code: apperrors.Code(err), Message: "internal error"}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		notice.Message = appErr.Message
		if appErr.Details != "" {
			notice.Message += ": " + appErr.Details
		}
	}
	return notice
}
