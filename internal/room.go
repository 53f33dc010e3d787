package internal

import (
	"slices"
	"time"
)

// 系統設計問題：
//   兩位玩家如何在一個以字串識別的房間內配對、分配顏色，並共享一組棋鐘？
//
// 核心挑戰：
//   1. 座位順序：先進房者執白、後進房者執黑，顏色由位置推導而非獨立儲存
//   2. 容量：最多兩人，第三人直接拒絕而不是排隊
//   3. 生命週期：第一次加入時隱式建立，最後一人離開時立即銷毀
//
// 設計方案：
//   ✅ 有限狀態機（FSM）- 規範暫停/恢復/再戰的狀態轉換
//   ✅ 有序 slice 儲存座位 - 索引即顏色
//   ✅ Room 本身不加鎖 - 由 Registry 統一保護

// RoomState 房間狀態
//
// 有限狀態機設計：
//
//	waiting → active ⇄ paused
//	            ↓        ↑
//	        game_over ───┘（再戰回到 active）
//
// 狀態轉換規則：
//   - waiting → active：第二位玩家到齊
//   - active → paused：任一方暫停，或對手斷線只剩一人
//   - paused → active：恢復（棋鐘重置為初始值）
//   - active → game_over：一方回報對局結束
//   - 任何狀態 → active：再戰
type RoomState string

const (
	StateWaiting  RoomState = "waiting"   // 等待對手
	StateActive   RoomState = "active"    // 對局進行中
	StatePaused   RoomState = "paused"    // 暫停
	StateGameOver RoomState = "game_over" // 對局結束，等待再戰
)

// Color 棋子顏色
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// MaxOccupants 每個房間的座位數
const MaxOccupants = 2

// ColorAt 由座位索引推導顏色
func ColorAt(index int) Color {
	switch index {
	case 0:
		return White
	case 1:
		return Black
	default:
		return ""
	}
}

// ClockPair 雙方剩餘時間（整數秒）
type ClockPair struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// NewClockPair 以相同的初始時間建立棋鐘
func NewClockPair(seconds int) ClockPair {
	return ClockPair{White: seconds, Black: seconds}
}

// Room 對局房間
//
// 系統設計考量：
//
//  1. 並發控制：
//     Room 不持有鎖，所有讀寫都透過 Registry 的鎖進行，
//     這樣「座位列表」與「房間狀態」永遠在同一臨界區內被修改。
//
//  2. 棋鐘權威：
//     中繼端不自行倒數，只記錄走子方回報的時間。
//     恢復與再戰時一律重置為初始值。
//
//  3. GameState：
//     對中繼端不透明的局面資料（例如 FEN），只存不解析。
type Room struct {
	ID        string
	State     RoomState
	Clock     ClockPair
	GameState string
	Moves     int
	CreatedAt time.Time
	UpdatedAt time.Time

	occupants []string
}

// NewRoom 創建新房間
func NewRoom(id string, initialSeconds int) *Room {
	now := time.Now()
	return &Room{
		ID:        id,
		State:     StateWaiting,
		Clock:     NewClockPair(initialSeconds),
		CreatedAt: now,
		UpdatedAt: now,
		occupants: make([]string, 0, MaxOccupants),
	}
}

// Occupants 回傳座位順序的副本
func (r *Room) Occupants() []string {
	return slices.Clone(r.occupants)
}

// OccupantCount 座位數
func (r *Room) OccupantCount() int {
	return len(r.occupants)
}

// Contains 是否已在房間內
func (r *Room) Contains(sessionID string) bool {
	return slices.Contains(r.occupants, sessionID)
}

// ColorOf 由座位位置推導顏色，不在房間內回傳空字串
func (r *Room) ColorOf(sessionID string) Color {
	return ColorAt(slices.Index(r.occupants, sessionID))
}

// Seat 安排座位
//
// 回傳 (顏色, 是否新加入, 是否已滿)：
//   - 已在房間內：冪等，回傳原本的顏色
//   - 座位已滿：拒絕，不排隊
func (r *Room) Seat(sessionID string) (Color, bool, bool) {
	if idx := slices.Index(r.occupants, sessionID); idx >= 0 {
		return ColorAt(idx), false, false
	}
	if len(r.occupants) >= MaxOccupants {
		return "", false, true
	}

	r.occupants = append(r.occupants, sessionID)
	r.touch()
	return ColorAt(len(r.occupants) - 1), true, false
}

// Unseat 移除座位，剩下的玩家依序前移
func (r *Room) Unseat(sessionID string) bool {
	idx := slices.Index(r.occupants, sessionID)
	if idx < 0 {
		return false
	}
	r.occupants = slices.Delete(r.occupants, idx, idx+1)
	r.touch()
	return true
}

// Start 開始對局（兩人到齊）
func (r *Room) Start(initialSeconds int) {
	r.reset(initialSeconds)
}

// Pause 暫停：只允許從 active 轉換，已暫停視為冪等
//
// 回傳 true 表示狀態確實改變（需要廣播）。
func (r *Room) Pause() (bool, error) {
	switch r.State {
	case StatePaused:
		return false, nil
	case StateActive:
		r.State = StatePaused
		r.touch()
		return true, nil
	default:
		return false, errInvalidState(r.State, EventPauseGame)
	}
}

// Suspend 對手離開時暫停進行中的對局
//
// 只有 active 會轉為 paused；game_over 必須經由再戰才能回到 active。
func (r *Room) Suspend() bool {
	if r.State != StateActive {
		return false
	}
	r.State = StatePaused
	r.touch()
	return true
}

// Resume 恢復對局
//
// 棋鐘直接重置為初始值，而非還原暫停前的剩餘時間。
// 這是既有客戶端依賴的行為，測試會釘住它。
func (r *Room) Resume(initialSeconds int) error {
	if r.State != StatePaused {
		return errInvalidState(r.State, EventResumeGame)
	}
	r.State = StateActive
	r.Clock = NewClockPair(initialSeconds)
	r.touch()
	return nil
}

// Rematch 再戰：任何狀態都可以，座位順序不變
func (r *Room) Rematch(initialSeconds int) {
	r.reset(initialSeconds)
}

// RecordMove 記錄走子方回報的棋鐘與局面，只允許在 active 狀態
func (r *Room) RecordMove(whiteTime, blackTime int, gameState string) error {
	if r.State != StateActive {
		return errInvalidState(r.State, EventMove)
	}
	r.Clock = ClockPair{White: whiteTime, Black: blackTime}
	if gameState != "" {
		r.GameState = gameState
	}
	r.Moves++
	r.touch()
	return nil
}

// Finish 對局結束
func (r *Room) Finish() error {
	if r.State != StateActive {
		return errInvalidState(r.State, EventGameOver)
	}
	r.State = StateGameOver
	r.touch()
	return nil
}

// Snapshot 產生唯讀快照（用於序列化）
func (r *Room) Snapshot() RoomSnapshot {
	occupants := make([]OccupantView, 0, len(r.occupants))
	for i, id := range r.occupants {
		occupants = append(occupants, OccupantView{SessionID: id, Color: ColorAt(i)})
	}
	return RoomSnapshot{
		ID:        r.ID,
		State:     r.State,
		Occupants: occupants,
		Clock:     r.Clock,
		GameState: r.GameState,
		Moves:     r.Moves,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *Room) reset(initialSeconds int) {
	r.State = StateActive
	r.Clock = NewClockPair(initialSeconds)
	r.GameState = ""
	r.Moves = 0
	r.touch()
}

func (r *Room) touch() {
	r.UpdatedAt = time.Now()
}

// OccupantView 座位資訊
type OccupantView struct {
	SessionID string `json:"session_id"`
	Color     Color  `json:"color"`
}

// RoomSnapshot 房間快照
type RoomSnapshot struct {
	ID        string         `json:"room_id"`
	State     RoomState      `json:"state"`
	Occupants []OccupantView `json:"occupants"`
	Clock     ClockPair      `json:"clock"`
	GameState string         `json:"game_state,omitempty"`
	Moves     int            `json:"moves"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
