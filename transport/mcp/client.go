package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Ludo",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Ludo - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Be the first player to move your single token from start to the home square.

AVAILABLE TOOLS:
- create_session: Create (or reset a forming) game session
- join_game: Add a player to a forming session
- leave_game: Remove a player from a session
- begin_game: Start the game (at least 2 players)
- roll_dice: Roll for the current player (omit dice for a random roll)
- show_board: Show the board
- end_game: End and remove a session
- list_sessions: List all live sessions
- game_rules: Explain the rules

Players are identified by a numeric player_id chosen by the caller.`),
	)

	// Register all tools
	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func playerIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Numeric player ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session. A session that has not started yet is reset.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to use (optional, generated when empty)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all live game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_game",
		Description: "End a game and remove its session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleEndGame)

	// Roster
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_game",
		Description: "Join a session that has not started yet",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player_id":  playerIDProperty(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Display name",
				},
			},
			Required: []string{"session_id", "player_id"},
		},
	}, c.handleJoinGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_game",
		Description: "Leave a session. The game ends when the last player leaves.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player_id":  playerIDProperty(),
			},
			Required: []string{"session_id", "player_id"},
		},
	}, c.handleLeaveGame)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "begin_game",
		Description: "Start the game. The first player to join goes first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleBeginGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "roll_dice",
		Description: "Roll the dice for the current player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player_id":  playerIDProperty(),
				"dice": map[string]interface{}{
					"type":        "integer",
					"minimum":     engine.MinDice,
					"maximum":     engine.MaxDice,
					"description": "Dice value (optional, rolled randomly when omitted)",
				},
			},
			Required: []string{"session_id", "player_id"},
		},
	}, c.handleRollDice)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "show_board",
		Description: "Show the board with every player's position",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleShowBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Explain the rules of the game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Handler serves single JSON-RPC messages over HTTP POST
func (c *Client) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func requireSessionID(args map[string]interface{}) (string, error) {
	id := strings.TrimSpace(cast.ToString(args["session_id"]))
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return id, nil
}

// requirePlayerID accepts numbers and numeric strings
func requirePlayerID(args map[string]interface{}) (int64, error) {
	raw, ok := args["player_id"]
	if !ok || raw == nil {
		return 0, fmt.Errorf("player_id is required")
	}
	id, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, fmt.Errorf("player_id must be an integer: %v", err)
	}
	return id, nil
}

func sessionPath(sessionID string, parts ...string) string {
	p := "/api/sessions/" + url.PathEscape(sessionID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := strings.TrimSpace(cast.ToString(args["session_id"]))

	body := map[string]string{}
	if sessionID != "" {
		body["session_id"] = sessionID
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("🎮 Ludo game created! Session: %s\nUse join_game to join. When all players joined, use begin_game to start.", info.ID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Sessions []service.SessionInfo `json:"sessions"`
		Count    int                   `json:"count"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText("No active sessions"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active sessions: %d\n", resp.Count)
	for _, s := range resp.Sessions {
		status := "forming"
		if s.Started {
			status = "started"
		}
		fmt.Fprintf(&b, "- %s: %d players, %s", s.ID, len(s.Players), status)
		if s.CurrentPlayer != nil {
			fmt.Fprintf(&b, ", %s to roll", s.CurrentPlayer.Name)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleEndGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireSessionID(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.EndResult
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result.Message), nil
}

func (c *Client) handleJoinGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := requireSessionID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	playerID, err := requirePlayerID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"player_id": playerID,
		"name":      cast.ToString(args["name"]),
	}
	var result service.JoinResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "players"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result.Message), nil
}

func (c *Client) handleLeaveGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := requireSessionID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	playerID, err := requirePlayerID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.LeaveResult
	path := sessionPath(sessionID, "players", cast.ToString(playerID))
	if err := c.apiCall(ctx, "DELETE", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result.Message), nil
}

func (c *Client) handleBeginGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireSessionID(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.BeginResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "begin"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result.Message + "\n\n" + result.Board), nil
}

func (c *Client) handleRollDice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := requireSessionID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	playerID, err := requirePlayerID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{"player_id": playerID}
	if raw, ok := args["dice"]; ok && raw != nil {
		dice, err := cast.ToIntE(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("dice must be an integer: %v", err)), nil
		}
		body["dice"] = dice
	}

	var result service.RollResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "roll"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result.Summary), nil
}

func (c *Client) handleShowBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireSessionID(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var view service.BoardView
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "board"), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(view.Board), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := engine.DefaultRules()
	if err := c.apiCall(ctx, "GET", "/api/rules", nil, &rules); err != nil {
		// Fall back to the default board when the server is unreachable
		rules = engine.DefaultRules()
	}

	text := fmt.Sprintf(`Ludo - Rules

SETUP:
- Create a session, then every player joins with a numeric player_id.
- At least 2 players are needed to begin. Nobody can join after the game begins.
- Players take turns in the order they joined.

MOVING:
- Every token starts off the board.
- A roll of %[2]d enters the token on square 0.
- Otherwise the token moves forward by the dice value.
- A roll that would pass square %[1]d does not move the token.
- Landing exactly on square %[1]d wins the game.

CAPTURES:
- Landing on a square occupied by opponents sends them back off the board.

TURNS:
- Rolling a %[3]d gives the same player another roll.
- Any other roll passes the turn to the next player.
- When a player who joined before the current player leaves, the current player keeps the turn.
- When the current player leaves, the turn passes back to the player who joined just before them,
  or to the new first player if they were first.`,
		rules.BoardSize, engine.EntryRoll, engine.BonusRoll)

	return mcp.NewToolResultText(text), nil
}
