package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/ludo-engine/game/service"
	"github.com/wricardo/ludo-engine/transport/websocket"
)

// RequestIDHeader carries the id assigned to every request
const RequestIDHeader = "X-Request-ID"

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestLogger)

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleEndSession).Methods("DELETE")

	// Roster
	api.HandleFunc("/sessions/{id}/players", s.handleJoin).Methods("POST")
	api.HandleFunc("/sessions/{id}/players/{player_id}", s.handleLeave).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/begin", s.handleBegin).Methods("POST")
	api.HandleFunc("/sessions/{id}/roll", s.handleRoll).Methods("POST")
	api.HandleFunc("/sessions/{id}/board", s.handleBoard).Methods("GET")

	api.HandleFunc("/rules", s.handleRules).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Router exposes the underlying router so other handlers (such as the MCP
// endpoint) can be mounted next to the API
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string       `json:"error"`
	Code      service.Code `json:"code"`
	Retryable bool         `json:"retryable,omitempty"`
}

func respondError(w http.ResponseWriter, err error) {
	code := service.CodeOf(err)
	respondJSON(w, statusFor(code), ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		Retryable: service.Retryable(err),
	})
}

func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: message,
		Code:  service.CodeInvalidInput,
	})
}

// statusFor maps error codes to HTTP status codes
func statusFor(code service.Code) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeAlreadyActive, service.CodeAlreadyStarted, service.CodeAlreadyJoined,
		service.CodeNotInGame, service.CodeNotEnoughPlayers, service.CodeNotStarted, service.CodeNotYourTurn:
		return http.StatusConflict
	case service.CodeInvalidInput:
		return http.StatusBadRequest
	case service.CodePersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body. An empty body is not an error.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) broadcast(sessionID, event string, info *service.SessionInfo, board string) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToSession(sessionID, event, info, board)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.SessionID)
	if err != nil {
		s.respondMutationError(w, r, req.SessionID, websocket.EventSessionCreated, err)
		return
	}

	s.broadcast(info.ID, websocket.EventSessionCreated, info, "")
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.EndSession(r.Context(), sessionID)
	if err != nil {
		s.respondMutationError(w, r, sessionID, websocket.EventSessionEnded, err)
		return
	}

	if result.Ended {
		s.broadcast(sessionID, websocket.EventSessionEnded, nil, "")
	}
	respondJSON(w, http.StatusOK, result)
}

// Roster Handlers

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		PlayerID int64  `json:"player_id"`
		Name     string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	result, err := s.service.Join(r.Context(), sessionID, req.PlayerID, req.Name)
	if err != nil {
		s.respondMutationError(w, r, sessionID, websocket.EventPlayerJoined, err)
		return
	}

	s.broadcastState(r, sessionID, websocket.EventPlayerJoined)
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	playerID, err := strconv.ParseInt(vars["player_id"], 10, 64)
	if err != nil {
		respondBadRequest(w, fmt.Sprintf("invalid player id %q", vars["player_id"]))
		return
	}

	result, err := s.service.Leave(r.Context(), sessionID, playerID)
	if err != nil {
		s.respondMutationError(w, r, sessionID, websocket.EventPlayerLeft, err)
		return
	}

	if result.Ended {
		s.broadcast(sessionID, websocket.EventSessionEnded, nil, "")
	} else {
		s.broadcastState(r, sessionID, websocket.EventPlayerLeft)
	}
	respondJSON(w, http.StatusOK, result)
}

// Game Handlers

func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Begin(r.Context(), sessionID)
	if err != nil {
		s.respondMutationError(w, r, sessionID, websocket.EventGameStarted, err)
		return
	}

	s.broadcast(sessionID, websocket.EventGameStarted, result.Session, result.Board)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRoll(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		PlayerID int64 `json:"player_id"`
		Dice     int   `json:"dice,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	result, err := s.service.Roll(r.Context(), sessionID, req.PlayerID, req.Dice)
	if err != nil {
		s.respondMutationError(w, r, sessionID, websocket.EventDiceRolled, err)
		return
	}

	event := websocket.EventDiceRolled
	if result.Ended {
		event = websocket.EventGameWon
	}
	s.broadcast(sessionID, event, result.Session, result.Board)
	if result.Captured != nil && s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventPlayerCaptured, result.Captured)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	view, err := s.service.Board(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, view.Board)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Rules())
}

// broadcastState pushes the current board, or session_ended if the
// session is gone
func (s *Server) broadcastState(r *http.Request, sessionID, event string) {
	if s.hub == nil {
		return
	}
	view, err := s.service.Board(r.Context(), sessionID)
	if err != nil {
		if service.CodeOf(err) == service.CodeNotFound {
			s.hub.BroadcastToSession(sessionID, websocket.EventSessionEnded, nil, "")
		}
		return
	}
	s.hub.BroadcastToSession(sessionID, event, view.Session, view.Board)
}

// respondMutationError reports a failed command. A persistence failure
// leaves the mutation applied in memory, so subscribers still get the
// resulting state.
func (s *Server) respondMutationError(w http.ResponseWriter, r *http.Request, sessionID, event string, err error) {
	if sessionID != "" && service.CodeOf(err) == service.CodePersistence {
		s.broadcastState(r, sessionID, event)
	}
	respondError(w, err)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live updates disabled", http.StatusNotImplemented)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades pass through the recorder
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// requestLogger tags each request with an id and logs its outcome
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Warn("request failed", fields...)
		} else {
			s.logger.Debug("request", fields...)
		}
	})
}
