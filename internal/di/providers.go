package di

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"KalshiPulse/internal/domain/models"
	"KalshiPulse/internal/domain/repository"
	domsvc "KalshiPulse/internal/domain/service"
	"KalshiPulse/internal/handler/api"
	mid "KalshiPulse/internal/middleware"
	internalrepo "KalshiPulse/internal/repository"
	"KalshiPulse/internal/risk"
	"KalshiPulse/internal/service/kalshi"
	"KalshiPulse/internal/services/ensemble"
	"KalshiPulse/internal/services/reasoning"
	"KalshiPulse/internal/signal"
	"KalshiPulse/internal/usecase"
	"KalshiPulse/pkg/cache"
	pkgch "KalshiPulse/pkg/clickhouse"
	"KalshiPulse/pkg/config"
	xhttp "KalshiPulse/pkg/http"
	pkgkafka "KalshiPulse/pkg/kafka"
	applogger "KalshiPulse/pkg/logger"
	"KalshiPulse/pkg/metrics"
	"KalshiPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Log.Pretty {
		format = "console"
	}
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the cache service: layered Redis-backed when
// Redis is enabled, in-memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Redis.MemorySize)), nil
	}

	host := cfg.Redis.Addr
	port := 6379
	if i := strings.LastIndex(cfg.Redis.Addr, ":"); i >= 0 {
		host = cfg.Redis.Addr[:i]
		p, err := strconv.Atoi(cfg.Redis.Addr[i+1:])
		if err != nil {
			return nil, fmt.Errorf("redis addr: %w", err)
		}
		port = p
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.KeyPrefix),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache, cache.WithLayeredMemorySize(cfg.Redis.MemorySize)), nil
}

// ProvideMarketData creates the Kalshi REST client.
func ProvideMarketData(cfg *config.Config, cacheSvc cache.Service, log *applogger.Logger) repository.MarketData {
	return kalshi.NewClient(cfg, cacheSvc, log)
}

// ProvideMarketStream creates the Kalshi WebSocket stream.
func ProvideMarketStream(cfg *config.Config, log *applogger.Logger) repository.MarketStream {
	return kalshi.NewStream(cfg, log)
}

// ProvideReasoningEngine creates the LLM reasoning engine.
func ProvideReasoningEngine(cfg *config.Config, log *applogger.Logger) domsvc.ReasoningEngine {
	return reasoning.NewEngine(cfg, log)
}

// ProvideEnsembleModel creates the statistical ensemble model.
func ProvideEnsembleModel(log *applogger.Logger) domsvc.EnsembleModel {
	return ensemble.NewModel(log)
}

// ProvideAnalyzer creates the concurrent analysis use case.
func ProvideAnalyzer(re domsvc.ReasoningEngine, em domsvc.EnsembleModel, log *applogger.Logger) *usecase.Analyzer {
	return usecase.NewAnalyzer(re, em, log)
}

// ProvideGenerator creates the signal generator.
func ProvideGenerator(cfg *config.Config, log *applogger.Logger, m repository.Metrics) *signal.Generator {
	return signal.NewGenerator(cfg.Strategy.MinConfidence, log, m)
}

// ProvideTrader creates the trade executor.
func ProvideTrader(cfg *config.Config, market repository.MarketData, log *applogger.Logger, m repository.Metrics) *usecase.Trader {
	return usecase.NewTrader(cfg, market, log, m)
}

// ProvideExposureMonitor creates the risk monitor from configured limits.
func ProvideExposureMonitor(cfg *config.Config, trader *usecase.Trader, log *applogger.Logger, m repository.Metrics) *risk.ExposureMonitor {
	limits := models.RiskLimits{
		MaxPositionSize: cfg.Risk.MaxPositionSize,
		MaxDrawdown:     cfg.Risk.MaxDrawdown,
		VarLimit:        cfg.Risk.VarLimit,
		MaxCorrelation:  cfg.Risk.MaxCorrelation,
	}
	return risk.NewExposureMonitor(limits, cfg.Strategy.MaxPositionSize, trader, log, m)
}

// ProvideClickHouseClient creates a ClickHouse client when the
// clickhouse backend is selected, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != "clickhouse" {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	schema := append(
		[]string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database)},
		internalrepo.DecisionEventsSchema...,
	)
	if err := client.InitSchema(ctx, schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend
// is selected, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideStorage creates the ClickHouse event sink.
func ProvideStorage(chClient *pkgch.Client) repository.Storage {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseStorage(chClient.DB(), "decision_events")
}

// ProvidePublisher creates the Kafka event sink.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideEventRecorder creates the decision event recorder.
func ProvideEventRecorder(pub repository.Publisher, store repository.Storage, m repository.Metrics, cfg *config.Config) *usecase.EventRecorder {
	return usecase.NewEventRecorder(pub, store, m, cfg.Backend.Type)
}

// ProvideStrategyRunner assembles the full decision pipeline.
func ProvideStrategyRunner(
	market repository.MarketData,
	analyzer *usecase.Analyzer,
	generator *signal.Generator,
	monitor *risk.ExposureMonitor,
	trader *usecase.Trader,
	recorder *usecase.EventRecorder,
	log *applogger.Logger,
	m repository.Metrics,
) *usecase.StrategyRunner {
	return usecase.NewStrategyRunner(market, analyzer, generator, monitor, trader, recorder, log, m)
}

// ProvideStreamPipeline creates the realtime ticker pipeline.
func ProvideStreamPipeline(stream repository.MarketStream, m repository.Metrics, log *applogger.Logger) *mid.StreamPipeline {
	return mid.NewStreamPipeline(stream, m, log, mid.WithMaxRPS(50))
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(
	log *applogger.Logger,
	runner *usecase.StrategyRunner,
	trader *usecase.Trader,
	monitor *risk.ExposureMonitor,
	market repository.MarketData,
) xhttp.Handler {
	return api.NewStrategyHandler(log, runner, trader, monitor, market)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	runner *usecase.StrategyRunner,
	recorder *usecase.EventRecorder,
	pipeline *mid.StreamPipeline,
	handler xhttp.Handler,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, runner, recorder, pipeline, handler, chClient)
}
