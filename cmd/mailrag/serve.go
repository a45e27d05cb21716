package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalvix/mailrag/internal/analyze"
	"github.com/kalvix/mailrag/internal/api"
	"github.com/kalvix/mailrag/internal/composer"
	"github.com/kalvix/mailrag/internal/config"
	"github.com/kalvix/mailrag/internal/gate"
	"github.com/kalvix/mailrag/internal/llm"
	"github.com/kalvix/mailrag/internal/pipeline"
	"github.com/kalvix/mailrag/internal/source"
	"github.com/kalvix/mailrag/internal/store"
	"github.com/kalvix/mailrag/internal/synthesis"
	"github.com/kalvix/mailrag/internal/trace"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the mailrag server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running mailrag server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mailrag system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "mailrag.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "mailrag version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Database.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("mailrag is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("mailrag is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the record source.
	var src source.Source
	var pinger api.Pinger
	switch cfg.Database.Backend {
	case "postgres":
		pg, err := source.OpenPostgres(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("opening record source: %w", err)
		}
		defer func() {
			if err := pg.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: closing record source: %v\n", err)
			}
		}()
		src, pinger = pg, pg
	case "sqlite":
		lite, err := source.OpenSQLite(cfg.Database.DataDir)
		if err != nil {
			return fmt.Errorf("opening record source: %w", err)
		}
		defer func() {
			if err := lite.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: closing record source: %v\n", err)
			}
		}()
		src, pinger = lite, lite
	}

	// Build the query pipeline.
	client := llm.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL,
		cfg.OpenAI.ChatModel, cfg.OpenAI.EmbedModel, cfg.OpenAI.EmbedDim)

	recordStore := store.New()
	builder := store.NewBuilder(src, client, recordStore)

	var judge gate.Judge
	if cfg.Retrieval.GateMode == "floor" {
		judge = gate.FloorJudge{Floor: float32(cfg.Retrieval.ScoreFloor)}
	} else {
		judge = gate.ModelJudge{Model: client}
	}

	pipe := pipeline.New(pipeline.Config{
		Embedder:    client,
		Store:       recordStore,
		Gate:        gate.New(judge, 0),
		Analyzer:    analyze.New(client),
		Composer:    composer.New(cfg.Retrieval.MaxContextChars),
		Synthesizer: synthesis.New(client),
		Tracer:      trace.Slog{},
		TopK:        cfg.Retrieval.TopK,
	})

	deps := api.Deps{
		Pipeline: pipe,
		Builder:  builder,
		Store:    recordStore,
		Source:   pinger,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	stdioSrv := server.NewStdioServer(api.NewMCPServer(deps))
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(deps),
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "mailrag listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Database.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("mailrag is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop mailrag (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to mailrag (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		var health api.HealthResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&health)
		resp.Body.Close()
		if resp.StatusCode == 200 && decodeErr == nil {
			printStatus("Server", "%s on port %d", health.Status, cfg.Server.Port)
			printStatus("Records", "%d indexed", health.RecordCount)
			if health.Source != "" {
				printStatus("Source", "%s", health.Source)
			}
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Backend", "%s", cfg.Database.Backend)
	printStatus("Chat model", "%s", cfg.OpenAI.ChatModel)
	printStatus("Embed model", "%s", cfg.OpenAI.EmbedModel)
	printStatus("Data dir", "%s", cfg.Database.DataDir)
	return nil
}
