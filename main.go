// Command ludo-engine runs the Ludo session engine.
//
// It supports two commands:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server against an existing API, or an internal one if none answers
//
// Settings come from the environment (and an optional .env file). Flags
// override host/port, debug logging, storage, and optional ngrok tunneling.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/ludo-engine/api"
	"github.com/wricardo/ludo-engine/game/config"
	"github.com/wricardo/ludo-engine/game/service"
	"github.com/wricardo/ludo-engine/game/session"
	"github.com/wricardo/ludo-engine/transport/mcp"
	"github.com/wricardo/ludo-engine/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Ludo Session Engine"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "ludo-engine",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Flags:   append(commonFlags(), serveFlags()...),
				Action:  serveAction,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server",
				Flags: append(commonFlags(), &cli.StringFlag{
					Name:  "base-url",
					Usage: "REST API to proxy to (default: probe host:port, else start an internal server)",
				}),
				Action: mcpAction,
			},
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "HTTP server host (LUDO_HOST)"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port (LUDO_PORT)"},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging (LUDO_DEBUG)"},
		&cli.IntFlag{Name: "board-size", Usage: "Home square index (LUDO_BOARD_SIZE)"},
		&cli.StringFlag{Name: "store", Usage: "Session store: file or sqlite (LUDO_STORE)"},
		&cli.StringFlag{Name: "data-file", Usage: "JSON snapshot path for the file store (LUDO_DATA_FILE)"},
		&cli.StringFlag{Name: "sqlite-path", Usage: "Database path for the sqlite store (LUDO_SQLITE_PATH)"},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel (NGROK_ENABLED)"},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)"},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
	}
}

// loadSettings reads the environment and applies any flags that were set
func loadSettings(cmd *cli.Command) (config.Settings, error) {
	settings, err := config.Load()
	if err != nil {
		return config.Settings{}, err
	}

	if cmd.IsSet("host") {
		settings.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("debug") {
		settings.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("board-size") {
		settings.BoardSize = int(cmd.Int("board-size"))
	}
	if cmd.IsSet("store") {
		settings.Store = cmd.String("store")
	}
	if cmd.IsSet("data-file") {
		settings.DataFile = cmd.String("data-file")
	}
	if cmd.IsSet("sqlite-path") {
		settings.SQLitePath = cmd.String("sqlite-path")
	}
	if cmd.IsSet("ngrok") {
		settings.NgrokEnabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		settings.NgrokAuth = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		settings.NgrokDomain = cmd.String("ngrok-domain")
	}

	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// newLogger returns a development logger in debug mode and a JSON
// production logger otherwise. Both write to stderr.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// services bundles what both commands need
type services struct {
	settings config.Settings
	logger   *zap.Logger
	manager  *session.Manager
	game     service.GameService
}

// initializeServices opens the store, reloads persisted sessions and wires
// the game service.
func initializeServices(ctx context.Context, settings config.Settings, logger *zap.Logger) (*services, error) {
	store, err := settings.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	manager := session.NewManagerWithPersistence(settings.Rules(), store, logger)

	// Sessions are restored before any command is accepted. An unreadable
	// table is fatal: the next flush would overwrite it.
	if _, err := manager.LoadPersistedSessions(ctx); err != nil {
		return nil, multierr.Append(err, manager.Close())
	}

	return &services{
		settings: settings,
		logger:   logger,
		manager:  manager,
		game:     service.NewGameService(manager, logger),
	}, nil
}

// close flushes and releases the store
func (s *services) close(ctx context.Context) error {
	return multierr.Combine(
		s.manager.Flush(ctx),
		s.manager.Close(),
	)
}

// newRouter combines the REST API, the WebSocket hub and the /mcp endpoint
func newRouter(s *services, hub *websocket.Hub, baseURL string) http.Handler {
	apiServer := api.NewServer(s.game, hub, s.logger)
	mcpClient := mcp.NewClient(baseURL)

	router := apiServer.Router()
	router.Handle("/mcp", mcpClient.Handler())
	return router
}

// sessionCleanupRoutine periodically removes sessions that have not changed
// within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, maxAge time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := manager.CleanupExpiredSessions(ctx, maxAge)
			if err != nil {
				logger.Warn("failed to persist after cleanup", zap.Error(err))
			}
			if removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("count", removed))
			}
		}
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) (err error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(settings.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	svc, err := initializeServices(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = multierr.Append(err, svc.close(shutdownCtx))
	}()

	return runHTTPServer(ctx, svc)
}

// runHTTPServer serves REST, WebSocket and /mcp until ctx is cancelled.
// If ngrok is enabled it also serves through a public tunnel.
func runHTTPServer(ctx context.Context, svc *services) error {
	logger := svc.logger
	settings := svc.settings

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	if settings.CleanupInterval > 0 && settings.SessionTTL > 0 {
		go sessionCleanupRoutine(ctx, svc.manager, settings.CleanupInterval, settings.SessionTTL, logger)
	}

	addr := settings.Addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      newRouter(svc, hub, "http://"+addr),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("rest", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if settings.NgrokEnabled {
		go serveNgrok(ctx, httpServer, settings, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// serveNgrok serves the HTTP server through an ngrok tunnel. Shutting the
// server down closes the tunnel listener.
func serveNgrok(ctx context.Context, httpServer *http.Server, settings config.Settings, logger *zap.Logger) {
	if settings.NgrokAuth == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
		logger.Info("using custom ngrok domain", zap.String("domain", settings.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.NgrokAuth))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	ngrokURL := tun.URL()
	logger.Info("🚀 ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("rest", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"),
	)

	if err := httpServer.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

func mcpAction(ctx context.Context, cmd *cli.Command) (err error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(settings.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	baseURL := cmd.String("base-url")
	if baseURL == "" {
		candidate := "http://" + settings.Addr()
		if apiAvailable(ctx, candidate) {
			logger.Info("external API server found, using it for MCP", zap.String("url", candidate))
			baseURL = candidate
		}
	}

	if baseURL == "" {
		var svc *services
		svc, err = initializeServices(ctx, settings, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err = multierr.Append(err, svc.close(shutdownCtx))
		}()

		var stopInternal func()
		baseURL, stopInternal, err = startInternalServer(svc)
		if err != nil {
			return err
		}
		defer stopInternal()
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a REST API answers the health check at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalServer serves the REST API on a random loopback port
func startInternalServer(svc *services) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	baseURL := "http://" + listener.Addr().String()
	svc.logger.Info("starting internal HTTP server for MCP stdio", zap.String("url", baseURL))

	httpServer := &http.Server{
		Handler: api.NewServer(svc.game, nil, svc.logger),
	}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			svc.logger.Error("internal HTTP server error", zap.Error(err))
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}
	return baseURL, stop, nil
}
