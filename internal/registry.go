package internal

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	apperrors "github.com/koopa0/system-design/14-chess-relay/pkg/errors"
)

// RemoveResult 移除座位後房間的狀況
type RemoveResult int

const (
	RemoveNoop    RemoveResult = iota // 房間不存在或玩家不在房內
	RemoveSolo                        // 剩下一人（觸發暫停）
	RemoveDeleted                     // 房間已空並被刪除
)

// Admission 加入結果
type Admission struct {
	Color     Color
	Added     bool // false 表示重複加入（冪等）
	Created   bool // 此次加入隱式建立了房間
	Occupants int
}

// Registry 房間註冊表
//
// 房間 ID → 座位列表 + 對局狀態。
// 所有操作都是同步的，除了明確的 RoomFull 之外不會失敗。
type Registry struct {
	rooms          map[string]*Room
	initialSeconds int
	mu             sync.RWMutex
	logger         *slog.Logger
}

// NewRegistry 創建房間註冊表
func NewRegistry(initialSeconds int, logger *slog.Logger) *Registry {
	return &Registry{
		rooms:          make(map[string]*Room),
		initialSeconds: initialSeconds,
		logger:         logger,
	}
}

// Admit 加入房間
//
// 房間不存在時以預設棋鐘建立；已滿且玩家不在房內時回傳 ErrRoomFull。
// 同一玩家重複加入是冪等的（客戶端可能重送 join 訊息）。
func (reg *Registry) Admit(roomID, sessionID string) (Admission, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[roomID]
	if !exists {
		room = NewRoom(roomID, reg.initialSeconds)
		reg.rooms[roomID] = room
	}

	color, added, full := room.Seat(sessionID)
	if full {
		return Admission{Occupants: room.OccupantCount()}, fmt.Errorf("admit %s: %w", roomID, apperrors.ErrRoomFull)
	}

	if !exists {
		reg.logger.Info("房間已創建", "room_id", roomID)
	}

	return Admission{
		Color:     color,
		Added:     added,
		Created:   !exists,
		Occupants: room.OccupantCount(),
	}, nil
}

// Remove 移除玩家
//
// 房間空了立即刪除；不存在的房間是 no-op。
func (reg *Registry) Remove(roomID, sessionID string) RemoveResult {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[roomID]
	if !exists || !room.Unseat(sessionID) {
		return RemoveNoop
	}

	switch room.OccupantCount() {
	case 0:
		delete(reg.rooms, roomID)
		reg.logger.Info("房間已移除", "room_id", roomID)
		return RemoveDeleted
	case 1:
		return RemoveSolo
	default:
		return RemoveNoop
	}
}

// OccupantCount 房間人數，不存在回傳 0
func (reg *Registry) OccupantCount(roomID string) int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	if room, exists := reg.rooms[roomID]; exists {
		return room.OccupantCount()
	}
	return 0
}

// Occupants 座位順序，不存在回傳 nil
func (reg *Registry) Occupants(roomID string) []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	if room, exists := reg.rooms[roomID]; exists {
		return room.Occupants()
	}
	return nil
}

// Update 在寫鎖內修改房間
func (reg *Registry) Update(roomID string, fn func(*Room) error) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[roomID]
	if !exists {
		return fmt.Errorf("room %s: %w", roomID, apperrors.ErrNotInRoom)
	}
	return fn(room)
}

// Snapshot 房間快照
func (reg *Registry) Snapshot(roomID string) (RoomSnapshot, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, exists := reg.rooms[roomID]
	if !exists {
		return RoomSnapshot{}, false
	}
	return room.Snapshot(), true
}

// List 列出房間（依 ID 排序後分頁）
func (reg *Registry) List(state RoomState, page, limit int) ([]RoomSnapshot, int) {
	reg.mu.RLock()
	filtered := make([]RoomSnapshot, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		if state != "" && room.State != state {
			continue
		}
		filtered = append(filtered, room.Snapshot())
	}
	reg.mu.RUnlock()

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].ID < filtered[j].ID })

	total := len(filtered)
	// 先比較頁數再相乘，超大的 page 不會溢位
	if page < 1 || limit < 1 || page-1 > (total-1)/limit {
		return []RoomSnapshot{}, total
	}
	start := (page - 1) * limit
	if start >= total {
		return []RoomSnapshot{}, total
	}
	end := start + min(limit, total-start)

	return filtered[start:end], total
}

// Count 房間總數
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// CountByState 各狀態房間數
func (reg *Registry) CountByState() map[RoomState]int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	result := make(map[RoomState]int)
	for _, room := range reg.rooms {
		result[room.State]++
	}
	return result
}

// errInvalidState 狀態不允許時的錯誤
func errInvalidState(state RoomState, event string) error {
	return fmt.Errorf("%s in state %s: %w", event, state, apperrors.ErrInvalidState)
}
