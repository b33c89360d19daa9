package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/ludo-engine/api"
	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/service"
	"github.com/wricardo/ludo-engine/game/session"
)

// newTestAPI starts a real REST server backed by an in-memory manager
func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	manager := session.NewManager(engine.DefaultRules(), logger)
	srv := httptest.NewServer(api.NewServer(service.NewGameService(manager, logger), nil, logger))
	t.Cleanup(srv.Close)
	return srv
}

func callTool(t *testing.T, client *Client, name string, args map[string]interface{}) (string, bool) {
	t.Helper()

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"create_session": client.handleCreateSession,
		"list_sessions":  client.handleListSessions,
		"end_game":       client.handleEndGame,
		"join_game":      client.handleJoinGame,
		"leave_game":     client.handleLeaveGame,
		"begin_game":     client.handleBeginGame,
		"roll_dice":      client.handleRollDice,
		"show_board":     client.handleShowBoard,
		"game_rules":     client.handleGameRules,
	}
	handler, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool %s", name)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("%s returned error: %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("%s returned no content", name)
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("%s returned non-text content", name)
	}
	return text.Text, result.IsError
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080/"
	client := NewClient(baseURL)

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "not your turn", "code": "not_your_turn"})
			return
		}
		if r.URL.Path == "/bare" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	var result map[string]string
	if err := client.apiCall(ctx, "GET", "/ok", nil, &result); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result["status"] != "healthy" {
		t.Errorf("Unexpected result %v", result)
	}

	if err := client.apiCall(ctx, "GET", "/fail", nil, nil); err == nil || err.Error() != "not your turn" {
		t.Errorf("Expected API error message, got %v", err)
	}

	if err := client.apiCall(ctx, "GET", "/bare", nil, nil); err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestToolFlow(t *testing.T) {
	client := NewClient(newTestAPI(t).URL)

	text, isErr := callTool(t, client, "create_session", map[string]interface{}{"session_id": "mcp-1"})
	if isErr || !strings.Contains(text, "mcp-1") {
		t.Fatalf("create_session: %s", text)
	}

	// Player ids arrive as JSON numbers or strings
	text, isErr = callTool(t, client, "join_game", map[string]interface{}{"session_id": "mcp-1", "player_id": float64(1), "name": "Alice"})
	if isErr || !strings.Contains(text, "Alice joined") {
		t.Fatalf("join_game: %s", text)
	}
	text, isErr = callTool(t, client, "join_game", map[string]interface{}{"session_id": "mcp-1", "player_id": "2", "name": "Bob"})
	if isErr || !strings.Contains(text, "Total players: 2") {
		t.Fatalf("join_game: %s", text)
	}

	text, isErr = callTool(t, client, "begin_game", map[string]interface{}{"session_id": "mcp-1"})
	if isErr || !strings.Contains(text, "Alice goes first") {
		t.Fatalf("begin_game: %s", text)
	}

	text, isErr = callTool(t, client, "roll_dice", map[string]interface{}{"session_id": "mcp-1", "player_id": 2, "dice": 6})
	if !isErr || !strings.Contains(text, "Alice") {
		t.Errorf("Expected out of turn error naming Alice, got %s", text)
	}

	text, isErr = callTool(t, client, "roll_dice", map[string]interface{}{"session_id": "mcp-1", "player_id": 1, "dice": float64(6)})
	if isErr || !strings.Contains(text, "go again") {
		t.Fatalf("roll_dice: %s", text)
	}

	text, isErr = callTool(t, client, "show_board", map[string]interface{}{"session_id": "mcp-1"})
	if isErr || !strings.HasPrefix(text, "📋 Ludo Board | players: 2") {
		t.Errorf("show_board: %s", text)
	}

	text, _ = callTool(t, client, "list_sessions", map[string]interface{}{})
	if !strings.Contains(text, "mcp-1: 2 players, started, Alice to roll") {
		t.Errorf("list_sessions: %s", text)
	}

	text, isErr = callTool(t, client, "leave_game", map[string]interface{}{"session_id": "mcp-1", "player_id": 2})
	if isErr || !strings.Contains(text, "Players remaining: 1") {
		t.Errorf("leave_game: %s", text)
	}

	text, isErr = callTool(t, client, "end_game", map[string]interface{}{"session_id": "mcp-1"})
	if isErr || !strings.Contains(text, "ended") {
		t.Errorf("end_game: %s", text)
	}

	text, _ = callTool(t, client, "list_sessions", map[string]interface{}{})
	if text != "No active sessions" {
		t.Errorf("Expected no sessions, got %s", text)
	}
}

func TestToolArgumentValidation(t *testing.T) {
	client := NewClient(newTestAPI(t).URL)
	callTool(t, client, "create_session", map[string]interface{}{"session_id": "args"})

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{"missing session", "begin_game", map[string]interface{}{}, "session_id is required"},
		{"missing player", "join_game", map[string]interface{}{"session_id": "args"}, "player_id is required"},
		{"bad player", "leave_game", map[string]interface{}{"session_id": "args", "player_id": "alice"}, "player_id must be an integer"},
		{"bad dice", "roll_dice", map[string]interface{}{"session_id": "args", "player_id": 1, "dice": "six"}, "dice must be an integer"},
		{"unknown session", "show_board", map[string]interface{}{"session_id": "nope"}, "no active game"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callTool(t, client, tt.tool, tt.args)
			if !isErr {
				t.Fatalf("Expected error result, got %s", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("Expected %q in %q", tt.want, text)
			}
		})
	}
}

func TestHandleGameRules(t *testing.T) {
	client := NewClient(newTestAPI(t).URL)

	text, isErr := callTool(t, client, "game_rules", nil)
	if isErr {
		t.Fatalf("game_rules: %s", text)
	}
	for _, want := range []string{"square 30", "at least 2 players", "sends them back", "current player keeps the turn", "joined just before them"} {
		if !strings.Contains(strings.ToLower(text), strings.ToLower(want)) {
			t.Errorf("Expected %q in rules", want)
		}
	}
}

func TestHandler(t *testing.T) {
	client := NewClient(newTestAPI(t).URL)
	handler := client.Handler()

	req := httptest.NewRequest("GET", "/mcp", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", w.Code)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	req = httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	for _, tool := range []string{"create_session", "join_game", "roll_dice", "show_board", "game_rules"} {
		if !strings.Contains(w.Body.String(), tool) {
			t.Errorf("Expected %s in tools/list response", tool)
		}
	}
}
