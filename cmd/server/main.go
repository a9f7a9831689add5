package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fuel-blend-prediction-service/internal/adapters/primary/http/handlers"
	"fuel-blend-prediction-service/internal/adapters/primary/http/middleware"
	"fuel-blend-prediction-service/internal/adapters/secondary/artifact"
	"fuel-blend-prediction-service/internal/adapters/secondary/csvfile"
	"fuel-blend-prediction-service/internal/adapters/secondary/postgres"
	"fuel-blend-prediction-service/internal/adapters/secondary/prometheus"
	"fuel-blend-prediction-service/internal/adapters/secondary/sqldb"
	"fuel-blend-prediction-service/internal/config"
	output "fuel-blend-prediction-service/internal/core/ports/output"
	"fuel-blend-prediction-service/internal/core/services"
	"fuel-blend-prediction-service/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	closeLog := initLogger(cfg)
	defer closeLog.Close()

	shutdownTracing, err := telemetry.InitTracing(context.Background(), cfg.Tracing)
	if err != nil {
		log.Warnf("tracing init failed (continuing without tracing): %v", err)
	}

	// Load model artifact; the service does not start without one
	model, err := artifact.Load(cfg.Model.Path)
	if err != nil {
		log.Fatalf("load model: %v", err)
	}
	info := model.Info()
	log.WithFields(log.Fields{
		"path":     cfg.Model.Path,
		"name":     info.Name,
		"version":  info.Version,
		"features": info.FeatureCount,
		"outputs":  info.OutputCount,
	}).Info("model loaded")

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Output Ports - Dataset Source)
	source, closeSource := newDatasetSource(cfg)
	defer closeSource()
	log.Infof("dataset source: %s", source.Describe())

	// Prometheus Recorder (Optional - based on config)
	var recorder *prometheus.Recorder
	var predictionMetrics output.PredictionMetrics
	if cfg.Metrics.Enabled {
		recorder = prometheus.NewRecorder()
		predictionMetrics = recorder
		log.Info("prometheus metrics enabled")
	} else {
		log.Info("prometheus metrics disabled")
	}

	// Core Services (Application Layer)
	predictionSvc := services.NewPredictionService(source, model, predictionMetrics, services.PredictionConfig{
		ExcludeColumns: cfg.Prediction.ExcludeColumns,
		OutputNames:    cfg.Prediction.OutputNames(),
		LoadTimeout:    cfg.Dataset.LoadTimeout,
		MaxConcurrent:  int64(cfg.Prediction.MaxConcurrent),
	})
	if err := predictionSvc.CheckOutputs(); err != nil {
		log.WithError(err).Warn("output names do not match the model; predictions will fail until fixed")
	}

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(predictionSvc)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging())
	if recorder != nil {
		router.Use(middleware.Metrics(recorder))
	}
	router.Use(gin.Recovery())

	h.RegisterRoutes(router)
	if recorder != nil {
		router.GET("/metrics", gin.WrapH(recorder.Handler()))
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("server forced shutdown: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Warnf("tracing shutdown: %v", err)
	}

	log.Info("server stopped")
}

// newDatasetSource builds the configured source. Connection failures are
// logged, not fatal: the source is retried on every request and reported by
// /healthz.
func newDatasetSource(cfg *config.Config) (output.DatasetSource, func()) {
	switch cfg.DataSource.Kind {
	case config.SourcePostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			log.Fatalf("parse db config: %v", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
		if err != nil {
			log.Fatalf("create db pool: %v", err)
		}
		if err := pool.Ping(context.Background()); err != nil {
			log.Warnf("ping db: %v", err)
		} else {
			log.Info("database connection established")
		}
		return postgres.NewDatasetRepository(pool, cfg.Dataset.Table), pool.Close

	case config.SourceSQL:
		db, err := sqldb.Open(cfg.Database.Driver, cfg.Database.DSN(), sqldb.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Warnf("ping db: %v", err)
		} else {
			log.Info("database connection established")
		}
		return sqldb.NewDatasetRepository(db, cfg.Database.Driver, cfg.Dataset.Table), func() { _ = db.Close() }

	default:
		return csvfile.NewDatasetSource(cfg.Dataset.File, cfg.Dataset.Delimiter), func() {}
	}
}

func initLogger(cfg *config.Config) io.Closer {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if cfg.Logger.File == "" {
		return io.NopCloser(nil)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Logger.File,
		MaxSize:    cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAgeDays,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator
}
