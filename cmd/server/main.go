package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"elearn/internal/config"
	"elearn/internal/db"
	"elearn/internal/httpapi"
	"elearn/internal/logging"
	"elearn/internal/storage"
	"elearn/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openMetadataStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api := httpapi.New(cfg, httpapi.Deps{
		Store:    st,
		Objects:  objects,
		Logger:   logger,
		Registry: reg,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewEcho(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			"addr", cfg.ListenAddr,
			"metadata", cfg.MetadataDriver,
			"storage", cfg.StorageBackend,
			"bucket", objects.Bucket(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

func openMetadataStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.MetadataDriver {
	case config.MetadataSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store.NewSQLite(conn), nil
	default:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := db.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return store.NewPostgres(pool), nil
	}
}

func openObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		s, err := storage.NewLocalStore(cfg.StorageRoot, cfg.MediaBucket)
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return s, nil
	case config.StorageMinio:
		s, err := storage.NewMinioStore(storage.MinioOptions{
			Endpoint:  cfg.S3EndpointHost(),
			Region:    cfg.S3Region,
			Bucket:    cfg.MediaBucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("init minio storage: %w", err)
		}
		return s, nil
	default:
		client, err := storage.NewS3Client(ctx, storage.S3ClientOptions{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		return storage.NewS3Store(storage.S3Options{Client: client, Bucket: cfg.MediaBucket}), nil
	}
}
