// Package testutils 提供測試用的傳輸層替身
package testutils

import (
	"sort"
	"sync"
)

// Delivery 一次送達記錄
type Delivery struct {
	SessionID string
	Event     string
	Payload   any
}

// RecordingTransport 記錄所有送出的事件，並模擬房間群組
//
// 可以用 Drop 模擬已經斷線、無法送達的連線。
type RecordingTransport struct {
	mu         sync.Mutex
	groups     map[string]map[string]bool
	dropped    map[string]bool
	deliveries []Delivery
}

// NewRecordingTransport 創建記錄用 Transport
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{
		groups:  make(map[string]map[string]bool),
		dropped: make(map[string]bool),
	}
}

// Send 記錄單播
func (t *RecordingTransport) Send(sessionID, event string, payload any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.send(sessionID, event, payload)
}

// BroadcastToRoom 依 sessionID 排序後逐一記錄，結果可預期
func (t *RecordingTransport) BroadcastToRoom(roomID, event string, payload any, exclude string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members := make([]string, 0, len(t.groups[roomID]))
	for id := range t.groups[roomID] {
		if id != exclude {
			members = append(members, id)
		}
	}
	sort.Strings(members)

	for _, id := range members {
		t.send(id, event, payload)
	}
}

// JoinGroup 加入群組
func (t *RecordingTransport) JoinGroup(sessionID, roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.groups[roomID] == nil {
		t.groups[roomID] = make(map[string]bool)
	}
	t.groups[roomID][sessionID] = true
}

// LeaveGroup 離開群組
func (t *RecordingTransport) LeaveGroup(sessionID, roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.groups[roomID], sessionID)
	if len(t.groups[roomID]) == 0 {
		delete(t.groups, roomID)
	}
}

// Drop 之後送往該連線的事件都會失敗
func (t *RecordingTransport) Drop(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropped[sessionID] = true
}

// Members 群組成員（排序後）
func (t *RecordingTransport) Members(roomID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	members := make([]string, 0, len(t.groups[roomID]))
	for id := range t.groups[roomID] {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// For 某連線收到的所有事件
func (t *RecordingTransport) For(sessionID string) []Delivery {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result []Delivery
	for _, d := range t.deliveries {
		if d.SessionID == sessionID {
			result = append(result, d)
		}
	}
	return result
}

// Events 某連線收到的事件名稱（依序）
func (t *RecordingTransport) Events(sessionID string) []string {
	deliveries := t.For(sessionID)
	events := make([]string, 0, len(deliveries))
	for _, d := range deliveries {
		events = append(events, d.Event)
	}
	return events
}

// Last 某連線最後一次收到的指定事件
func (t *RecordingTransport) Last(sessionID, event string) (Delivery, bool) {
	deliveries := t.For(sessionID)
	for i := len(deliveries) - 1; i >= 0; i-- {
		if deliveries[i].Event == event {
			return deliveries[i], true
		}
	}
	return Delivery{}, false
}

// All 所有送達記錄
func (t *RecordingTransport) All() []Delivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Delivery(nil), t.deliveries...)
}

// Reset 清空送達記錄（保留群組）
func (t *RecordingTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deliveries = nil
}

func (t *RecordingTransport) send(sessionID, event string, payload any) bool {
	if t.dropped[sessionID] {
		return false
	}
	t.deliveries = append(t.deliveries, Delivery{SessionID: sessionID, Event: event, Payload: payload})
	return true
}
