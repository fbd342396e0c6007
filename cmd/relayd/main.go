package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/handwave/relay/internal/assist"
	"github.com/handwave/relay/internal/config"
	"github.com/handwave/relay/internal/database"
	"github.com/handwave/relay/internal/journal"
	"github.com/handwave/relay/internal/ratelimit"
	"github.com/handwave/relay/internal/registry"
	"github.com/handwave/relay/internal/router"
	"github.com/handwave/relay/internal/sweeper"
	"github.com/handwave/relay/internal/transport"
	"github.com/handwave/relay/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/relay.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Optional .env for local development; config expands ${VAR} references
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using system environment")
	}

	logger.Info("starting relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"registry_backend", cfg.Registry.Backend,
		"assist_backend", cfg.Assist.Backend,
		"journal_enabled", cfg.Journal.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to Postgres when the registry or the journal needs it
	var pool *pgxpool.Pool
	if cfg.Registry.Backend == "postgres" || cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Registry.Postgres.Host,
			"port", cfg.Registry.Postgres.Port,
			"database", cfg.Registry.Postgres.Name,
		)

		pool, err = database.Connect(ctx, cfg.Registry.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		logger.Info("database connected")
	}

	// Connection registry
	var store registry.Store
	switch cfg.Registry.Backend {
	case "postgres":
		if err := registry.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure registry schema", "error", err)
			os.Exit(1)
		}
		store = registry.NewPostgres(pool)
	default:
		store = registry.NewMemory()
	}

	// Components are stopped explicitly below, in dependency order; their
	// run contexts must outlive the signal context so shutdown disconnects
	// still flow through the router and into the journal.
	runCtx := context.Background()

	// Connection journal (optional)
	var jw *journal.Writer
	if cfg.Journal.Enabled {
		if err := journal.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure journal schema", "error", err)
			os.Exit(1)
		}
		jw = journal.NewWriter(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, pool, logger)
		if err := jw.Start(runCtx); err != nil {
			logger.Error("failed to start journal writer", "error", err)
			os.Exit(1)
		}
	}

	// Per-user rate limiter
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Quota:  cfg.RateLimit.Quota,
		Window: cfg.RateLimit.Window,
	})

	// Processing backend
	var proc router.Processor
	switch cfg.Assist.Backend {
	case "http":
		proc = assist.NewClient(
			cfg.Assist.BaseURL,
			cfg.Assist.APIKey,
			assist.WithLogger(logger),
			assist.WithTimeout(cfg.Assist.Timeout),
			assist.WithRetries(cfg.Assist.MaxRetries, time.Second),
		)
	default:
		proc = &assist.Echo{}
	}

	// Transport server (WebSocket endpoint)
	ts := transport.NewServer(transport.ServerConfig{
		ReadTimeout:     cfg.Server.ReadTimeout,
		PingInterval:    cfg.Server.PingInterval,
		WriteTimeout:    cfg.Server.WriteTimeout,
		EventBufferSize: cfg.Server.EventBufferSize,
	}, logger)
	if err := ts.Start(runCtx); err != nil {
		logger.Error("failed to start transport server", "error", err)
		os.Exit(1)
	}

	// Message router
	rt := router.NewRouter(router.RouterConfig{
		Workers:         cfg.Router.Workers,
		ProcessTimeout:  cfg.Router.ProcessTimeout,
		DeliveryRetries: cfg.Router.DeliveryRetries,
		DeliveryBackoff: cfg.Router.DeliveryBackoff,
	}, ts.Events(), store, limiter, proc, ts, jw, logger)
	if err := rt.Start(runCtx); err != nil {
		logger.Error("failed to start message router", "error", err)
		os.Exit(1)
	}

	// Lifecycle sweeper
	sw := sweeper.New(sweeper.Config{
		Interval:       cfg.Sweeper.Interval,
		StaleThreshold: cfg.Sweeper.StaleThreshold,
	}, store, jw, logger)
	if err := sw.Start(runCtx); err != nil {
		logger.Error("failed to start sweeper", "error", err)
		os.Exit(1)
	}

	// HTTP listeners: WebSocket upgrades and health/debug
	mux := chi.NewRouter()
	ts.RegisterRoutes(mux)

	wsServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.HealthAddr,
		Handler: createHealthHandler(pool, store, ts, rt, sw, jw, logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("websocket listener started", "addr", cfg.Server.ListenAddr)
		if err := wsServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("websocket listener: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("health listener started", "addr", cfg.Server.HealthAddr)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("health listener: %w", err)
		}
		return nil
	})

	logger.Info("relay running",
		"instance_id", cfg.Instance.ID,
		"ws", fmt.Sprintf("ws://localhost%s/ws", cfg.Server.ListenAddr),
		"health", fmt.Sprintf("http://localhost%s/health", cfg.Server.HealthAddr),
	)

	// Wait for a signal or a listener failure
	<-gctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting upgrades, then wind down in dependency order: the
	// transport emits disconnects for every open socket, the router applies
	// them to the registry, and the journal flushes the records.
	wsServer.Shutdown(shutdownCtx)
	ts.Stop(shutdownCtx)
	rt.Stop(shutdownCtx)
	sw.Stop(shutdownCtx)
	if jw != nil {
		jw.Stop(shutdownCtx)
	}
	healthServer.Shutdown(shutdownCtx)

	if err := g.Wait(); err != nil {
		logger.Error("listener error", "error", err)
		os.Exit(1)
	}

	logger.Info("relay stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(
	pool *pgxpool.Pool,
	store registry.Store,
	ts transport.Server,
	rt router.Router,
	sw *sweeper.Sweeper,
	jw *journal.Writer,
	logger *slog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Check database
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["postgres"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["postgres"] = "connected"
			}
		}

		// Check registry
		conns, err := store.List(ctx)
		if err != nil {
			logger.Warn("health check: registry list failed", "error", err)
			health.Status = "unhealthy"
			health.Components["registry"] = map[string]string{
				"status": "error",
				"error":  err.Error(),
			}
		} else {
			health.Components["registry"] = map[string]any{
				"connections": len(conns),
			}
		}

		health.Components["transport"] = ts.Stats()
		health.Components["router"] = rt.Stats()
		health.Components["sweeper"] = sw.Stats()
		if jw != nil {
			health.Components["journal"] = jw.Stats()
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/connections", func(w http.ResponseWriter, r *http.Request) {
		conns, err := store.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Limit to first 100 for debugging
		limit := 100
		total := len(conns)
		if len(conns) > limit {
			conns = conns[:limit]
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":       total,
			"showing":     len(conns),
			"connections": conns,
		})
	})

	return mux
}
