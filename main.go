package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jonathanw33/mrsa-kds/internal/client"
	"github.com/jonathanw33/mrsa-kds/internal/config"
	"github.com/jonathanw33/mrsa-kds/internal/db"
	"github.com/jonathanw33/mrsa-kds/internal/handler"
	"github.com/jonathanw33/mrsa-kds/internal/logger"
	"github.com/jonathanw33/mrsa-kds/internal/metrics"
	"github.com/jonathanw33/mrsa-kds/internal/resultstore"
	"github.com/jonathanw33/mrsa-kds/internal/service"
	"github.com/jonathanw33/mrsa-kds/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Log.Level, os.Stdout)
	ctx := context.Background()

	backend, closeBackend, err := openHistoryBackend(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open history storage")
	}
	defer closeBackend()

	m := metrics.New()
	capacity, err := strconv.Atoi(cfg.History.Capacity)
	if err != nil || capacity <= 0 || capacity > resultstore.DefaultCapacity {
		log.WithField("value", cfg.History.Capacity).Warnf("HISTORY_CAPACITY must be 1-%d, using default", resultstore.DefaultCapacity)
		capacity = resultstore.DefaultCapacity
	}
	store := resultstore.New(backend,
		resultstore.WithKey(cfg.History.Key),
		resultstore.WithCapacity(capacity),
		resultstore.WithLogger(log),
		resultstore.WithMetrics(m),
	)
	log.WithFields(logrus.Fields{
		"driver":   backend.Driver(),
		"key":      cfg.History.Key,
		"capacity": capacity,
	}).Info("history store ready")

	authService, err := service.NewAuthService(ctx, cfg.Auth)
	if err != nil {
		log.WithError(err).Fatal("failed to init auth service")
	}
	if authService.Disabled() {
		log.Warn("AUTH_DISABLED is set, API routes accept unauthenticated requests")
	}

	threshold, err := strconv.ParseFloat(cfg.AnalysisAPI.DefaultThreshold, 64)
	if err != nil {
		threshold = service.DefaultThreshold
	}
	analysisClient := client.NewAnalysisClient(cfg.AnalysisAPI)
	analysisService := service.NewAnalysisService(analysisClient, store, threshold, log, m)
	historyService := service.NewHistoryService(analysisClient, store, log)

	var generator service.TextGenerator
	if cfg.GenAI.APIKey != "" {
		genaiClient, err := client.NewGenAIClient(ctx, cfg.GenAI)
		if err != nil {
			log.WithError(err).Warn("genai client unavailable, explanations disabled")
		} else {
			generator = genaiClient
		}
	}
	explainService := service.NewExplainService(historyService, generator)

	router := handler.NewRouter(handler.RouterDeps{
		Server:   cfg.Server,
		Auth:     authService,
		Analysis: handler.NewAnalysisHandler(analysisService),
		History:  handler.NewHistoryHandler(historyService, explainService),
		Metrics:  m,
		Log:      logger.Component(log, "http"),
	})

	log.WithField("addr", cfg.Server.Addr).Info("starting server")
	if err := router.Run(cfg.Server.Addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// openHistoryBackend selects the blob store behind the local history.
func openHistoryBackend(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	noop := func() {}
	driver, err := storage.ParseDriver(cfg.History.Driver)
	if err != nil {
		return nil, noop, err
	}

	switch driver {
	case storage.DriverMemory:
		return storage.NewMemory(), noop, nil
	case storage.DriverFile:
		s, err := storage.NewFile(cfg.History.FileRoot)
		return s, noop, err
	case storage.DriverSQLite:
		s, err := storage.NewSQLite(ctx, cfg.History.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	case storage.DriverPostgres:
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		pg := &db.Postgres{Pool: pool}
		if err := pg.EnsureHistorySchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return pg, pool.Close, nil
	case storage.DriverS3:
		s, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		return s, noop, err
	}
	return nil, noop, fmt.Errorf("unsupported history driver %q", driver)
}
