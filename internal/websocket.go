package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	apperrors "github.com/koopa0/system-design/14-chess-relay/pkg/errors"
	"golang.org/x/time/rate"
)

// 系統設計問題：
//   如何把「每條連線一個事件通道 + 房間群組廣播」落地成 WebSocket？
//
// 核心挑戰：
//   1. 順序：同一連線的事件必須按傳輸順序處理
//   2. 非阻塞：Service 持鎖時呼叫 Send，絕不能卡在慢客戶端上
//   3. 心跳：偵測死連線（網路異常、瀏覽器崩潰），轉成一般的斷線
//
// 設計方案：
//   ✅ 每條連線一個 readPump（天然保序）+ 一個 writePump
//   ✅ 緩衝 channel - 滿了就丟棄，不拖累整個房間
//   ✅ Ping/Pong 心跳 - 54s/60s
//   ✅ 令牌桶限速 - 每條連線獨立

// Dispatcher 處理連線生命週期與客戶端事件
type Dispatcher interface {
	Connect() string
	Handle(sessionID string, msg Inbound) error
	Disconnect(sessionID string)
}

// WebSocketHub WebSocket 連接中心，實作 Transport
//
// 兩層索引：
//   - conns：sessionID → Connection（單播）
//   - groups：roomID → sessionID → Connection（房間廣播）
type WebSocketHub struct {
	dispatcher Dispatcher
	cfg        WebSocketConfig
	limits     RateLimitConfig
	metrics    *Metrics
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	conns      map[string]*Connection
	groups     map[string]map[string]*Connection
	mu         sync.RWMutex
}

// Connection WebSocket 連接
type Connection struct {
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *WebSocketHub
	limiter   *rate.Limiter
	closeOnce sync.Once // 確保 channel 只關閉一次
}

// NewWebSocketHub 創建 WebSocket Hub
func NewWebSocketHub(cfg WebSocketConfig, limits RateLimitConfig, allowedOrigins []string, metrics *Metrics, logger *slog.Logger) *WebSocketHub {
	return &WebSocketHub{
		cfg:     cfg,
		limits:  limits,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns:  make(map[string]*Connection),
		groups: make(map[string]map[string]*Connection),
	}
}

// Attach 設定事件分派者（Service 依賴 Hub 作為 Transport，反向依賴在這裡接上）
func (hub *WebSocketHub) Attach(dispatcher Dispatcher) {
	hub.dispatcher = dispatcher
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// ServeWS 處理 WebSocket 連接
func (hub *WebSocketHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	sessionID := hub.dispatcher.Connect()

	connection := &Connection{
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, hub.cfg.SendBuffer),
		Hub:       hub,
		limiter:   rate.NewLimiter(rate.Limit(hub.limits.EventsPerSecond), hub.limits.Burst),
	}

	hub.register(connection)

	go connection.writePump()
	go connection.readPump()

	hub.logger.Info("WebSocket 連接建立", "session_id", sessionID, "remote_addr", r.RemoteAddr)
}

// register 註冊連接
func (hub *WebSocketHub) register(conn *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	hub.conns[conn.SessionID] = conn
	hub.metrics.Connections.Set(float64(len(hub.conns)))
}

// unregister 取消註冊連接，同時移出所有群組
func (hub *WebSocketHub) unregister(conn *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if actual, exists := hub.conns[conn.SessionID]; !exists || actual != conn {
		return
	}
	delete(hub.conns, conn.SessionID)

	for roomID, members := range hub.groups {
		delete(members, conn.SessionID)
		if len(members) == 0 {
			delete(hub.groups, roomID)
		}
	}

	conn.closeSend()
	hub.metrics.Connections.Set(float64(len(hub.conns)))
}

// Send 單播
func (hub *WebSocketHub) Send(sessionID, event string, payload any) bool {
	message, ok := hub.encode(event, payload)
	if !ok {
		return false
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	conn, exists := hub.conns[sessionID]
	if !exists {
		return false
	}
	return hub.enqueue(conn, message)
}

// BroadcastToRoom 廣播到房間群組
func (hub *WebSocketHub) BroadcastToRoom(roomID, event string, payload any, exclude string) {
	message, ok := hub.encode(event, payload)
	if !ok {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for sessionID, conn := range hub.groups[roomID] {
		if sessionID == exclude {
			continue
		}
		hub.enqueue(conn, message)
	}
}

// JoinGroup 加入房間群組
func (hub *WebSocketHub) JoinGroup(sessionID, roomID string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	conn, exists := hub.conns[sessionID]
	if !exists {
		return
	}
	if hub.groups[roomID] == nil {
		hub.groups[roomID] = make(map[string]*Connection)
	}
	hub.groups[roomID][sessionID] = conn
}

// LeaveGroup 離開房間群組
func (hub *WebSocketHub) LeaveGroup(sessionID, roomID string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if members, exists := hub.groups[roomID]; exists {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(hub.groups, roomID)
		}
	}
}

func (hub *WebSocketHub) encode(event string, payload any) ([]byte, bool) {
	message, err := json.Marshal(Event{Type: event, Data: payload})
	if err != nil {
		hub.logger.Error("序列化事件失敗", "event", event, "error", err)
		return nil, false
	}
	return message, true
}

// enqueue 非阻塞寫入（呼叫者需持有讀鎖，保證 Send channel 尚未關閉）
func (hub *WebSocketHub) enqueue(conn *Connection, message []byte) bool {
	select {
	case conn.Send <- message:
		return true
	default:
		hub.metrics.DroppedSends.Inc()
		hub.logger.Warn("連接緩衝區滿", "session_id", conn.SessionID)
		return false
	}
}

// Stop 關閉所有連接
func (hub *WebSocketHub) Stop() {
	hub.mu.Lock()
	conns := make([]*Connection, 0, len(hub.conns))
	for _, conn := range hub.conns {
		conns = append(conns, conn)
	}
	hub.mu.Unlock()

	// readPump 會因連線關閉而退出，並走正常的斷線流程
	for _, conn := range conns {
		conn.Conn.Close()
	}

	hub.logger.Info("WebSocket Hub 已停止", "connections", len(conns))
}

// ConnectionCount 連接數
func (hub *WebSocketHub) ConnectionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.conns)
}

func (c *Connection) closeSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// readPump 讀取客戶端消息
//
// 每條連線只有一個 readPump，事件按傳輸順序交給 Dispatcher。
// 讀取失敗（包含心跳逾時）即視為斷線，立即釋放座位。
func (c *Connection) readPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Hub.dispatcher.Disconnect(c.SessionID)
		c.Conn.Close()
		c.Hub.logger.Info("WebSocket 連接關閉", "session_id", c.SessionID)
	}()

	c.Conn.SetReadLimit(c.Hub.cfg.MaxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.Hub.cfg.PongWait)); err != nil {
		c.Hub.logger.Error("設置讀取期限失敗", "error", err)
	}

	// Pong 處理器（收到 Pong 重置超時）
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.Hub.cfg.PongWait)); err != nil {
			c.Hub.logger.Error("設置讀取期限失敗", "error", err)
		}
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket 讀取錯誤", "error", err, "session_id", c.SessionID)
			}
			return
		}

		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

// handleMessage 限速、解析並交給 Dispatcher
func (c *Connection) handleMessage(message []byte) {
	if !c.limiter.Allow() {
		c.Hub.Send(c.SessionID, EventError, NewErrorNotice(apperrors.ErrRateLimited))
		return
	}

	msg, err := DecodeInbound(message)
	if err != nil {
		c.Hub.logger.Warn("解析客戶端消息失敗", "error", err, "session_id", c.SessionID)
		c.Hub.Send(c.SessionID, EventError, NewErrorNotice(err))
		return
	}

	// 錯誤已由 Dispatcher 通知客戶端
	_ = c.Hub.dispatcher.Handle(c.SessionID, msg)
}

// writePump 寫入消息到客戶端
//
// 定時送出 Ping；客戶端回覆 Pong 後 readPump 重置期限。
// Send channel 被關閉時送出 Close 幀並退出。
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.cfg.WriteWait)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if !ok {
				// 嘗試發送關閉消息，忽略錯誤（連接可能已關閉）
				_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// 批量發送隊列中的消息（每則一幀，保持順序）
			n := len(c.Send)
			for range n {
				next, ok := <-c.Send
				if !ok {
					return
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, next); err != nil {
					c.Hub.logger.Error("發送消息失敗", "error", err)
					return
				}
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.cfg.WriteWait)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
