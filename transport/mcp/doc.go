// Package mcp exposes the Ludo REST API as Model Context Protocol tools.
//
// The client holds no game state. Every tool call is translated into a
// REST request against a running server and the JSON response is turned
// into a short text result for the agent.
//
// MCP Tools:
//   - create_session: Create a session, or reset one that has not started
//   - join_game: Join a forming session with a numeric player_id
//   - leave_game: Leave a session
//   - begin_game: Start the game
//   - roll_dice: Roll for the current player (dice is optional)
//   - show_board: Render the board
//   - end_game: End and remove a session
//   - list_sessions: List live sessions
//   - game_rules: Explain the rules
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: mount client.Handler() on POST /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
