// Command staytrack serves the hostel occupancy and rent collection API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"staytrack/internal/api"
	"staytrack/internal/auth"
	"staytrack/internal/blob"
	"staytrack/internal/config"
	"staytrack/internal/core"
	"staytrack/internal/live"
	"staytrack/internal/logging"
	"staytrack/internal/prefs"
	"staytrack/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("exiting", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, closer, err := core.OpenPersistentStore(ctx, core.StorageConfig{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	}, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeQuietly(closer, logger, "store")

	baseURL := cfg.Blob.PublicBaseURL
	if baseURL == "" {
		baseURL = "/files"
	}
	blobs, err := blob.Open(ctx, blob.Config{
		Driver:        blob.Driver(cfg.Blob.Driver),
		FSRoot:        cfg.Blob.FSRoot,
		PublicBaseURL: baseURL,
		S3: blob.S3Config{
			Region:          cfg.Blob.S3.Region,
			Bucket:          cfg.Blob.S3.Bucket,
			Endpoint:        cfg.Blob.S3.Endpoint,
			AccessKeyID:     cfg.Blob.S3.AccessKeyID,
			SecretAccessKey: cfg.Blob.S3.SecretAccessKey,
			PathStyle:       cfg.Blob.S3.PathStyle,
		},
	})
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := core.NewPrometheusRecorder(reg)
	if err != nil {
		return err
	}

	hub := live.NewHub(logger)
	var (
		directory auth.Directory = auth.NewMemoryDirectory()
		prefStore prefs.Store    = prefs.NewMemory()
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer closeQuietly(client, logger, "redis")
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		relay := live.NewRedisRelay(client, hub, "", logger)
		stopRelay, err := relay.Start(ctx)
		if err != nil {
			return err
		}
		defer stopRelay()
		hub.SetRelay(relay)
		directory = auth.NewRedisDirectory(client)
		prefStore = prefs.NewRedis(client)
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Warn("redis not configured; accounts and preferences are kept in memory")
	}

	svc := core.NewService(store,
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithAuditRecorder(core.NewZapAuditRecorder(logger)),
		core.WithBlobStore(blobs),
		core.WithPublisher(hub),
	)
	provider, err := auth.NewProvider(directory, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, auth.WithLogger(logger))
	if err != nil {
		return err
	}
	exports := report.NewWorker(svc, blobs, logger)
	exports.Start()

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.New(api.Deps{
			Service:  svc,
			Auth:     provider,
			Hub:      hub,
			Prefs:    prefStore,
			Exports:  exports,
			Blobs:    blobs,
			Gatherer: reg,
			Logger:   logger,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("blob", string(blobs.Driver())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := exports.Stop(shutdownCtx); err != nil {
		logger.Warn("export worker shutdown", zap.Error(err))
	}
	return nil
}

func closeQuietly(c io.Closer, logger *zap.Logger, what string) {
	if err := c.Close(); err != nil {
		logger.Warn("close "+what, zap.Error(err))
	}
}
