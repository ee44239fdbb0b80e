// Package main provides the MCP server entry point for searching local
// AI assistant logs.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/logsearch/internal/config"
	mcpserver "github.com/bull/logsearch/internal/mcp"
	"github.com/bull/logsearch/internal/schema"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/logsearch/config.toml)")
	flag.Parse()

	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := cfg.Logger()

	server := mcpserver.NewServer(&mcpserver.Config{
		IndexDir: cfg.IndexDir,
		Schema:   schema.New(),
		Logger:   logger,
	})
	if err := server.Health(ctx); err != nil {
		logger.Warn("Index not ready; searches return no results until it is built", "index_dir", cfg.IndexDir, "error", err)
	}

	mux := mcpserver.NewMux(server, &mcpserver.HTTPHandlerOptions{Stateless: true})
	addr := "127.0.0.1:" + cfg.Server.Port

	if cfg.Server.HTTP {
		// HTTP mode: serve MCP over HTTP for remote clients
		httpServer := &http.Server{Addr: addr, Handler: mux}
		go func() {
			<-ctx.Done()
			httpServer.Shutdown(context.Background())
		}()
		logger.Info("Starting HTTP server", "addr", addr, "mcp", "/mcp", "health", "/health")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: run MCP server over stdin/stdout for local clients.
	// Also start HTTP health endpoint in background for local testing
	go func() {
		logger.Info("Starting health server", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("Health server error", "error", err)
		}
	}()

	logger.Info("Starting logsearch MCP server (stdio mode)", "index_dir", cfg.IndexDir)
	if err := server.Run(ctx); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
