package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/inventory/internal/adapter/handler"
	"github.com/rl1809/inventory/internal/adapter/messaging"
	"github.com/rl1809/inventory/internal/adapter/storage"
	"github.com/rl1809/inventory/internal/config"
	"github.com/rl1809/inventory/internal/core/service"
	"github.com/rl1809/inventory/internal/core/workflow"
	"github.com/rl1809/inventory/internal/metrics"
	"github.com/rl1809/inventory/internal/port"
	"github.com/rl1809/inventory/internal/tracing"
	"github.com/rl1809/inventory/migrations"
)

const serviceName = "inventory-service"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = logger.Level(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracerProvider(serviceName, cfg.Jaeger.Endpoint, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracing")
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open mysql")
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mysql")
	}
	if err := migrations.Apply(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}
	logger.Info().Msg("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	logger.Info().Msg("connected to redis")

	// Initialize adapters
	mysqlAdapter := storage.NewMySQLAdapter(db)
	catalog, err := storage.NewCatalogAdapter(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init catalog")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewInventory(reg)

	inventory := service.NewInventoryService(mysqlAdapter, catalog,
		service.WithLogger(logger.With().Str("component", "inventory").Logger()),
		service.WithMetrics(m),
	)

	rollbackOpts := []workflow.RollbackOption{
		workflow.WithRollbackMaxRetries(cfg.Rollback.MaxRetries),
		workflow.WithRollbackLogger(logger.With().Str("component", "rollback").Logger()),
		workflow.WithRollbackMetrics(m),
	}
	var alerter *messaging.KafkaAlerter
	if len(cfg.Kafka.Brokers) > 0 {
		alerter = messaging.NewKafkaAlerter(messaging.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic))
		rollbackOpts = append(rollbackOpts, workflow.WithAlerter(alerter))
	}
	rollback := workflow.NewInventoryRollbackHandler(inventory, rollbackOpts...)

	var registry port.UndoRegistry = storage.NewRedisAdapter(rdb, rollback)
	pipelineLogger := logger.With().Str("component", "pipeline").Logger()

	availability := workflow.NewPipeline(registry, pipelineLogger,
		workflow.NewCheckAvailabilityActivity(catalog, inventory, m),
	)
	checkout := workflow.NewPipeline(registry, pipelineLogger,
		workflow.NewDecrementInventoryActivity(inventory,
			workflow.WithDecrementMaxRetries(cfg.Checkout.MaxRetries),
			workflow.WithDecrementLogger(logger.With().Str("component", "checkout").Logger()),
			workflow.WithDecrementMetrics(m),
		),
	)

	deps := handler.Deps{
		Catalog:          catalog,
		Inventory:        inventory,
		Availability:     availability,
		Checkout:         checkout,
		AdjustMaxRetries: cfg.Checkout.MaxRetries,
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(deps, logger))

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(deps, logger).Register(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		logger.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP shutdown")
		}
		logger.Info().Msg("HTTP server stopped")

		grpcServer.GracefulStop()
		logger.Info().Msg("gRPC server stopped")

		if alerter != nil {
			alerter.Close()
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
		rdb.Close()
		db.Close()
		logger.Info().Msg("connections closed")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
