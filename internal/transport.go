package internal

// Transport 服務所需的傳輸層原語
//
// 實作必須是非阻塞的：Service 在持有鎖時呼叫這些方法，
// 以保證同一房間的廣播順序等於事件處理順序。
type Transport interface {
	// Send 送給單一連線，連線不存在或緩衝區滿時回傳 false
	Send(sessionID, event string, payload any) bool
	// BroadcastToRoom 送給房間群組內的所有連線（exclude 為空表示不排除）
	BroadcastToRoom(roomID, event string, payload any, exclude string)
	// JoinGroup 將連線加入房間群組
	JoinGroup(sessionID, roomID string)
	// LeaveGroup 將連線移出房間群組
	LeaveGroup(sessionID, roomID string)
}
