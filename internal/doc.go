// Package internal 提供兩人對局的即時配對與中繼服務。
//
// 兩位玩家以同一個房間 ID 加入，先到者執白、後到者執黑；
// 到齊後服務端通知雙方開始，之後轉發走子、暫停、恢復與再戰事件，
// 直到任一方斷線。走子合法性由客戶端的規則引擎負責，服務端不解析棋局。
//
// # 元件
//
//   - Registry：房間 ID → 有序座位 + 對局狀態
//   - SessionManager：連線 → 最多一個房間
//   - Service：配對（coordinator.go）與中繼（relay.go），序列化所有修改
//   - WebSocketHub：Transport 的 WebSocket 實作
//   - Handler：唯讀 HTTP 查詢、/metrics
//
// # 協議
//
// 每個 WebSocket 文字幀是一個 JSON 信封：
//
//	{"event": "join-room", "data": "room7"}
//	{"event": "move", "data": {"from": "e2", "to": "e4", "roomId": "room7", "whiteTime": 297, "blackTime": 300}}
//
// 伺服器送出 match-found、opponent-connected、opponent-move、room-full、
// pause-game、resume-game、rematch-request、game-over、error。
//
// # 已知限制
//
//   - 棋鐘以走子方回報的值為準，服務端不計時
//   - 恢復對局時棋鐘重置為初始值，而非暫停前的剩餘時間
//   - 斷線立即釋放座位，重連會得到全新的連線身份
//   - 沒有任何逾時（等待對手、閒置、棋鐘停止）
package internal
