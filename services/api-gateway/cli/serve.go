package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/kafka"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
	redisstore "github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/redis"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/pkg/telemetry"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/services/api-gateway/config"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/services/api-gateway/handler"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/services/api-gateway/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("http-port", "8080", "HTTP server port")
	serveCmd.Flags().String("metrics-addr", ":9095", "Prometheus metrics server address")
	serveCmd.Flags().String("kafka-brokers", "localhost:9092", "comma-separated Kafka broker addresses")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address (host:port)")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")

	bindFlag("http_port", serveCmd.Flags(), "http-port")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("kafka_brokers", serveCmd.Flags(), "kafka-brokers")
	bindFlag("redis_addr", serveCmd.Flags(), "redis-addr")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	logger := buildLogger(cfg.LogLevel, "api-gateway")

	shutdownTracer, err := telemetry.InitTracer(context.Background(), "api-gateway", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer()

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	producer := kafka.NewProducer(brokers)
	defer func() { _ = producer.Close() }()

	redisClient := redisstore.NewClient(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	store := redisstore.NewJobStateStore(redisClient)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.NewPool(initCtx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	restHandler := handler.NewREST(
		postgres.NewPostRepository(pool),
		postgres.NewJobRepository(pool),
		postgres.NewNotificationRepository(pool),
		postgres.NewTrendRepository(pool),
		store,
		producer,
		logger,
	)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1MB limit
	r.Get("/healthz", restHandler.Healthz)
	r.Get("/readyz", restHandler.Readyz)
	r.Route("/api/v1", restHandler.Routes)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	telemetry.StartMetricsServer(runCtx, cfg.MetricsAddr, logger)

	go func() {
		logger.Info("api-gateway HTTP starting", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("shutting down...")
	runCancel()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("HTTP shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("stopped")
	return nil
}
