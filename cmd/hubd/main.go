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

	"golang.org/x/sync/errgroup"

	"github.com/ursuslabs/ursus-realtime/internal/bridge"
	"github.com/ursuslabs/ursus-realtime/internal/config"
	"github.com/ursuslabs/ursus-realtime/internal/hub"
	"github.com/ursuslabs/ursus-realtime/internal/metrics"
	"github.com/ursuslabs/ursus-realtime/internal/query"
	"github.com/ursuslabs/ursus-realtime/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/hubd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting hubd",
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
		"addr", cfg.Server.Addr,
		"ws_path", cfg.Server.WSPath,
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

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

	pool, err := query.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	queries := query.NewPostgres(pool, logger)
	logger.Info("database connected")

	// Create hub with metrics wired as the stats observer
	collectors := metrics.NewHub()

	h := hub.New(hub.Config{
		HeartbeatInterval:         cfg.Stream.HeartbeatInterval,
		ClientTimeout:             cfg.Stream.ClientTimeout,
		MaxSubscriptionsPerClient: cfg.Stream.MaxSubscriptionsPerClient,
		RateLimitWindow:           cfg.Stream.RateLimitWindow,
		RateLimitMaxRequests:      cfg.Stream.RateLimitMaxRequests,
		MaxBatchSize:              cfg.Stream.MaxBatchSize,
		BatchInterval:             cfg.Stream.BatchInterval,
		StatsInterval:             cfg.Stream.StatsInterval,
		QueryTimeout:              cfg.Stream.QueryTimeout,
		SendQueueSize:             cfg.Server.SendQueueSize,
	}, queries, logger)
	h.SetStatsObserver(collectors.Observe)

	if err := h.Start(ctx); err != nil {
		logger.Error("failed to start hub", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		h.Stop(stopCtx)
	}()

	// Start event bridge
	br := bridge.New(bridge.Config{
		URL:           cfg.NATS.URL,
		SubjectPrefix: cfg.NATS.SubjectPrefix,
		BufferSize:    cfg.NATS.BufferSize,
		ReconnectWait: cfg.NATS.ReconnectWait,
		MaxReconnects: cfg.NATS.MaxReconnects,
	}, h, logger)

	if err := br.Start(ctx); err != nil {
		logger.Error("failed to start event bridge", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		br.Stop(stopCtx)
	}()

	// WebSocket server
	wsMux := http.NewServeMux()
	wsMux.Handle(cfg.Server.WSPath, hub.NewServer(h, hub.ServerConfig{
		ReadBufferSize:  cfg.Server.ReadBufferSize,
		WriteBufferSize: cfg.Server.WriteBufferSize,
		MaxPayloadBytes: cfg.Server.MaxPayloadBytes,
		WriteTimeout:    cfg.Server.WriteTimeout,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
	}, logger))
	wsServer := &http.Server{Addr: cfg.Server.Addr, Handler: wsMux}

	// Metrics and health server
	opsMux := http.NewServeMux()
	opsMux.Handle(cfg.Metrics.Path, collectors.Handler())
	opsMux.Handle("/health", healthHandler(h, br, queries))
	opsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: opsMux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("websocket server listening",
			"addr", cfg.Server.Addr,
			"path", cfg.Server.WSPath,
		)
		if err := wsServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("websocket server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("ops server listening",
			"port", cfg.Metrics.Port,
			"metrics_path", cfg.Metrics.Path,
		)
		if err := opsServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Feed bridge counter deltas into the metrics registry.
		ticker := time.NewTicker(cfg.Stream.StatsInterval)
		defer ticker.Stop()
		var prev bridge.Stats
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s := br.Stats()
				collectors.ObserveBridge("dispatched", float64(s.Dispatched-prev.Dispatched))
				collectors.ObserveBridge("decode_error", float64(s.DecodeErrors-prev.DecodeErrors))
				collectors.ObserveBridge("unknown", float64(s.Unknown-prev.Unknown))
				prev = s
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		wsServer.Shutdown(shutdownCtx)
		opsServer.Shutdown(shutdownCtx)
		return nil
	})

	logger.Info("hubd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		cancel()
	}

	logger.Info("hubd stopped")
}

// healthHandler reports hub, database, and event-source health.
func healthHandler(h *hub.Hub, br *bridge.Bridge, queries *query.Postgres) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := queries.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		if br.Connected() {
			health.Components["nats"] = "connected"
		} else {
			health.Status = "degraded"
			health.Components["nats"] = "disconnected"
		}

		health.Components["hub"] = h.Stats()
		health.Components["bridge"] = br.Stats()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})
}
