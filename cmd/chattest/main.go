// chattest connects to a running relay and exchanges messages from the
// console. Each line typed on stdin is sent as one request; the tagged
// reply is printed when it arrives.
//
// Usage: go run ./cmd/chattest --url ws://localhost:8080/ws --user alice
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/handwave/relay/internal/client"
	"github.com/handwave/relay/internal/protocol"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "relay WebSocket URL")
	user := flag.String("user", "chattest", "user id to connect as")
	session := flag.String("session", "", "session id (random when empty)")
	timeout := flag.Duration("timeout", 30*time.Second, "per-request timeout")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	// Replies go to stdout; logs stay on stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	sessionID := *session
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cfg := client.DefaultConfig()
	cfg.URL = *url
	cfg.UserID = *user
	cfg.SessionID = sessionID
	cfg.RequestTimeout = *timeout

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	c := client.New(cfg, logger)
	if err := c.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	logger.Info("connected to relay",
		"url", *url,
		"user_id", *user,
		"session_id", sessionID,
	)
	fmt.Println("type a message and press enter (Ctrl+D to quit)")

	// One goroutine per request so slow replies never block the prompt
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		go func(message string) {
			start := time.Now()
			resp, err := c.SendMessage(ctx, message)
			if err != nil {
				fmt.Printf("[error] %s: %v\n", message, err)
				return
			}

			elapsed := time.Since(start).Round(time.Millisecond)
			if resp.Status == protocol.StatusError {
				fmt.Printf("[%s %s] error: %s\n", resp.RequestID[:8], elapsed, resp.Response)
				return
			}
			fmt.Printf("[%s %s] %s\n", resp.RequestID[:8], elapsed, resp.Response)
		}(line)

		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("stdin read failed", "error", err)
	}

	// Let in-flight requests land before tearing down
	if n := c.Pending(); n > 0 {
		logger.Info("waiting for in-flight requests", "pending", n)
		deadline := time.Now().Add(*timeout)
		for c.Pending() > 0 && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
		}
	}

	logger.Info("closing")
}
