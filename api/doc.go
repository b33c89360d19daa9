// Package api provides HTTP REST API handlers for the Ludo engine.
//
// The api package implements:
//   - RESTful endpoints for every game command
//   - Error code to HTTP status mapping
//   - Request ids and request logging
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"session_id": "..."}, optional)
//   - GET /api/sessions - List live sessions
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - End a session (idempotent)
//
// Roster:
//   - POST /api/sessions/{id}/players - Join ({"player_id": 1, "name": "Alice"})
//   - DELETE /api/sessions/{id}/players/{player_id} - Leave
//
// Game Operations:
//   - POST /api/sessions/{id}/begin - Start the game
//   - POST /api/sessions/{id}/roll - Roll ({"player_id": 1, "dice": 6}; omit dice to roll randomly)
//   - GET /api/sessions/{id}/board - Board as JSON, or plain text with ?format=text
//   - GET /api/rules - Board rules
//
// Other:
//   - GET /api/health - Health check
//   - GET /ws?session={id} - Live board updates
//
// Errors:
//
// Failed requests return {"error": "...", "code": "..."}. Rule violations
// (not_your_turn, already_started, ...) map to 409, not_found to 404,
// invalid_input to 400, persistence_failure to 503 and everything else
// to 500.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//	server := api.NewServer(gameService, hub, logger)
//	http.ListenAndServe(":8080", server)
package api
