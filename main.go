// Command tictacbot starts the Tic Tac Toe chat bot server.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing the REST API, the
//     WebSocket chat transport, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server against the same game service
//
// Configuration comes from a YAML file plus TICTACBOT_* environment
// variables; flags select the config file, debug logging, and optional
// ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/chatplay/tictacbot/api"
	"github.com/chatplay/tictacbot/game/config"
	"github.com/chatplay/tictacbot/game/economy"
	"github.com/chatplay/tictacbot/game/service"
	"github.com/chatplay/tictacbot/game/store"
	"github.com/chatplay/tictacbot/gateway"
	"github.com/chatplay/tictacbot/transport/mcp"
	"github.com/chatplay/tictacbot/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tic Tac Toe Bot"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	cmd := &cli.Command{
		Name:    "tictacbot",
		Usage:   "Tic Tac Toe chat bot with bank accounts",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Sources: cli.EnvVars("TICTACBOT_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP server with the chat, REST, and MCP endpoints",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "ngrok",
						Usage:   "Expose the server through an ngrok tunnel",
						Sources: cli.EnvVars("NGROK_ENABLED"),
					},
					&cli.StringFlag{
						Name:    "ngrok-auth",
						Usage:   "Ngrok auth token",
						Sources: cli.EnvVars("NGROK_AUTHTOKEN"),
					},
					&cli.StringFlag{
						Name:    "ngrok-domain",
						Usage:   "Custom ngrok domain (optional)",
						Sources: cli.EnvVars("NGROK_DOMAIN"),
					},
				},
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Run an MCP stdio server",
				Action: runMCP,
			},
		},
		DefaultCommand: "serve",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newLogger builds the application logger.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// services bundles everything the transports sit on top of.
type services struct {
	cfg    *config.Config
	log    *zap.Logger
	games  service.GameService
	ledger *economy.Ledger
	close  func()
}

// buildServices loads config and wires the stores, game service, and
// ledger for the selected storage backend.
func buildServices(configPath string, debug bool) (*services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(debug || cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	var (
		sessions    service.SessionStore
		ledgerStore economy.LedgerStore
		closeFn     = func() {}
	)
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		sqliteStore, err := store.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		// The ledger shares the session database file.
		sqliteLedger, err := economy.NewSQLiteLedgerFromDB(sqliteStore.DB())
		if err != nil {
			sqliteStore.Close()
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		sessions = sqliteStore
		ledgerStore = sqliteLedger
		closeFn = func() { sqliteStore.Close() }

	case config.BackendRedis:
		redisStore := store.NewRedisStore(
			cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB)
		sessions = redisStore
		ledgerStore = economy.NewMemoryLedgerStore()
		closeFn = func() { redisStore.Close() }

	default:
		sessions = store.NewMemoryStore()
		ledgerStore = economy.NewMemoryLedgerStore()
	}

	logger.Info("Storage ready", zap.String("backend", cfg.Storage.Backend))

	return &services{
		cfg:    cfg,
		log:    logger,
		games:  service.NewGameService(sessions, logger),
		ledger: economy.NewLedger(ledgerStore, logger),
		close:  closeFn,
	}, nil
}

// runServe starts the HTTP server with REST API, WebSocket chat hub, and
// an /mcp endpoint. If ngrok is enabled it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	svc, err := buildServices(cmd.String("config"), cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer svc.close()
	defer svc.log.Sync()

	// Create WebSocket hub and wire the gateway into it
	hub := websocket.NewHub(nil, svc.log)
	gw := gateway.New(svc.games, svc.ledger, hub, svc.log, gateway.Options{
		Prefix:  svc.cfg.Prefix,
		Admins:  svc.cfg.Admins,
		Metrics: gateway.NewMetrics(prometheus.DefaultRegisterer),
	})
	hub.SetHandler(gw)
	go hub.Run()

	// Create API server
	apiServer := api.NewServer(svc.games, hub, svc.log)

	// Create MCP server for the /mcp endpoint
	mcpServer := mcp.NewServer(svc.games, svc.ledger)

	// Create main router that combines API and MCP
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	httpServer := &http.Server{
		Addr:         svc.cfg.Listen,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Setup graceful shutdown context
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		svc.log.Info("HTTP server listening",
			zap.String("addr", svc.cfg.Listen),
			zap.String("ws", "/ws?channel=<channel>&user=<id>"),
			zap.String("api", "/api"),
			zap.String("mcp", "/mcp"))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			svc.log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Janitor for stale pending sessions
	if svc.cfg.Expiry.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			expireLoop(runCtx, svc.games, svc.log, svc.cfg.Expiry.Interval, svc.cfg.Expiry.MaxAge)
		}()
	}

	// Start ngrok tunnel if enabled
	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(runCtx, cmd, svc.log, mainRouter)
		}()
	}

	// Wait for shutdown signal
	sig := <-stop
	svc.log.Info("Shutting down", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		svc.log.Error("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	svc.log.Info("Server stopped")
	return nil
}

// expireLoop periodically removes pending sessions nobody joined.
func expireLoop(ctx context.Context, games service.GameService, logger *zap.Logger, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := games.ExpireIdle(ctx, maxAge)
			if err != nil {
				logger.Warn("Session expiry failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("Expired idle sessions", zap.Int("count", removed))
			}
		}
	}
}

// runNgrok serves the router through an ngrok tunnel until ctx ends.
func runNgrok(ctx context.Context, cmd *cli.Command, logger *zap.Logger, handler http.Handler) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		logger.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	domain := cmd.String("ngrok-domain")
	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("Using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("Failed to start ngrok tunnel", zap.Error(err))
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logger.Warn("Failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	logger.Info("Ngrok tunnel established", zap.String("url", tun.URL()))

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logger.Warn("Ngrok server error", zap.Error(err))
	}
}

// runMCP runs the MCP stdio server against the configured storage.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	svc, err := buildServices(cmd.String("config"), cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer svc.close()
	defer svc.log.Sync()

	mcpServer := mcp.NewServer(svc.games, svc.ledger)

	svc.log.Info("MCP stdio server ready")
	if err := mcpserver.ServeStdio(mcpServer.GetMCPServer()); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}
