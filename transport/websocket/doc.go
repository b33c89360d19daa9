// Package websocket provides live board updates for the Ludo engine.
//
// The websocket package implements:
//   - Session-scoped subscriptions over WebSocket
//   - Broadcasting session state and board text after every command
//   - Connection keepalive and cleanup
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub owns all
// subscriptions. Registration, removal and fan-out all run on the Run
// goroutine; transports only enqueue messages. Each connection has a read
// goroutine for keepalive and a write goroutine for delivery. A client that
// cannot keep up is dropped.
//
// Message Protocol:
//
// Connections are read-only. Clients subscribe with ?session=<id> and
// receive JSON messages:
//
//	{"session_id": "table-1", "event": "dice_rolled", "session": {...}, "board": "📋 Ludo Board ..."}
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//	hub.BroadcastToSession("table-1", websocket.EventGameStarted, info, board)
package websocket
