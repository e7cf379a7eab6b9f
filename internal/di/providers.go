package di

import (
	"context"
	"fmt"
	"time"

	"BuzzRadar/internal/alerts"
	"BuzzRadar/internal/analytics"
	"BuzzRadar/internal/domain/repository"
	"BuzzRadar/internal/handler/api"
	"BuzzRadar/internal/handler/ws"
	internalrepo "BuzzRadar/internal/repository"
	"BuzzRadar/internal/scheduler"
	"BuzzRadar/internal/usecase"
	"BuzzRadar/pkg/cache"
	pkgch "BuzzRadar/pkg/clickhouse"
	"BuzzRadar/pkg/config"
	xhttp "BuzzRadar/pkg/http"
	pkgkafka "BuzzRadar/pkg/kafka"
	applogger "BuzzRadar/pkg/logger"
	"BuzzRadar/pkg/metrics"
	"BuzzRadar/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Log.Format
	if format == "" {
		format = "json"
	}
	output := cfg.Log.Output
	if output == "" {
		output = "stdout"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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
	if err := client.InitSchema(ctx, pkgch.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCache creates the cache backend: a memory+Redis layered cache when
// Redis is enabled, in-process TTL cache otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

// ProvideKafkaProducer creates the alert stream producer, or nil when no
// alerts topic is configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Kafka.AlertsTopic == "" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.Producer.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the posts consumer, or nil when no posts
// topic is configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Kafka.PostsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideObservationStore creates the ClickHouse posts repository.
func ProvideObservationStore(ch *pkgch.Client, log *applogger.Logger) repository.ObservationStore {
	return internalrepo.NewCHObservationStore(ch, log)
}

// ProvideAggregateStore creates the ClickHouse aggregates repository.
func ProvideAggregateStore(ch *pkgch.Client, log *applogger.Logger) repository.AggregateStore {
	return internalrepo.NewCHAggregateStore(ch, log)
}

// ProvideAlertStore creates the ClickHouse alerts repository.
func ProvideAlertStore(ch *pkgch.Client, log *applogger.Logger) repository.AlertStore {
	return internalrepo.NewCHAlertStore(ch, log)
}

// ProvideWatermarkStore creates the ClickHouse watermark repository.
func ProvideWatermarkStore(ch *pkgch.Client, log *applogger.Logger) repository.WatermarkStore {
	return internalrepo.NewCHWatermarkStore(ch, log)
}

// ProvideWSHub creates the websocket alert feed.
func ProvideWSHub(log *applogger.Logger) *ws.Hub {
	return ws.NewHub(log)
}

// ProvideAlertPublisher fans transitions out to Kafka and the websocket feed.
func ProvideAlertPublisher(producer *pkgkafka.Producer, hub *ws.Hub, cfg *config.Config) repository.AlertPublisher {
	var kafkaSink repository.AlertPublisher
	if producer != nil {
		kafkaSink = internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertsTopic)
	}
	return internalrepo.NewFanoutPublisher(kafkaSink, hub)
}

// ProvideAlertManager creates the alert lifecycle manager.
func ProvideAlertManager(store repository.AlertStore, publisher repository.AlertPublisher, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *alerts.Manager {
	return alerts.New(store, publisher, m, log,
		cfg.Analytics.Hysteresis,
		cfg.Analytics.AlertMaxAge,
		alerts.WithRetry(cfg.Analytics.WriteRetries, cfg.Analytics.WriteBackoffMin, cfg.Analytics.WriteBackoffMax),
	)
}

// ProvideAggregator creates the interval aggregator.
func ProvideAggregator(obs repository.ObservationStore, aggs repository.AggregateStore, m repository.Metrics) *usecase.Aggregator {
	return usecase.NewAggregator(obs, aggs, m)
}

// ProvidePipeline assembles the per-interval analytics chain.
func ProvidePipeline(aggregator *usecase.Aggregator, aggs repository.AggregateStore, alertMgr *alerts.Manager, log *applogger.Logger, cfg *config.Config) *usecase.Pipeline {
	detector := analytics.Detector{
		ElevatedZ:    cfg.Analytics.ElevatedZ,
		AnomalousZ:   cfg.Analytics.AnomalousZ,
		MinPostCount: int64(cfg.Analytics.MinPostCount),
	}
	return usecase.NewPipeline(aggregator, aggs, detector, alertMgr, log,
		cfg.Analytics.WindowSize, cfg.Analytics.MinSamples)
}

// ProvideRunner creates the analytics run orchestrator.
func ProvideRunner(pipeline *usecase.Pipeline, obs repository.ObservationStore, marks repository.WatermarkStore, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.Runner {
	return usecase.NewRunner(pipeline, obs, marks, m, log,
		cfg.Analytics.BucketWidth,
		cfg.Analytics.TickerLookback,
		cfg.Analytics.BackfillLimit,
		cfg.Analytics.Workers,
		cfg.Analytics.TickerTimeout,
	)
}

// ProvideMaintenance creates the daily maintenance job.
func ProvideMaintenance(aggs repository.AggregateStore, alertMgr *alerts.Manager, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.Maintenance {
	return usecase.NewMaintenance(aggs, alertMgr, m, log, cfg.Scheduler.Retention)
}

// ProvideScheduler creates the cadence scheduler. Redis-backed deployments
// get a distributed run lock so replicas do not double-process.
func ProvideScheduler(runner *usecase.Runner, maint *usecase.Maintenance, m repository.Metrics, log *applogger.Logger, c cache.Service, cfg *config.Config) *scheduler.Scheduler {
	opts := []scheduler.Option{}
	if cfg.Redis.Enabled {
		opts = append(opts, scheduler.WithDistributedLock(c, cfg.Analytics.TickerTimeout+cfg.Scheduler.AnalyticsInterval))
	}
	return scheduler.New(&runnerJob{runner}, maint, m, log,
		cfg.Scheduler.AnalyticsInterval, cfg.Scheduler.MaintenanceHour, opts...)
}

// runnerJob adapts Runner's summary-returning Run to the scheduler job shape.
type runnerJob struct {
	runner *usecase.Runner
}

func (j *runnerJob) Run(ctx context.Context) error {
	_, err := j.runner.Run(ctx)
	return err
}

// ProvidePostsHandler registers the posts ingest handler.
func ProvidePostsHandler(store repository.ObservationStore, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.KafkaPostsHandler {
	return usecase.NewKafkaPostsHandler(cfg.Kafka.PostsTopic, store, m, log)
}

// ProvideDashboard creates the read-API usecase.
func ProvideDashboard(aggs repository.AggregateStore, alertStore repository.AlertStore, obs repository.ObservationStore, c cache.Service, log *applogger.Logger, cfg *config.Config) *usecase.Dashboard {
	ttl := cfg.Redis.TTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return usecase.NewDashboard(aggs, alertStore, obs, c, ttl, log)
}

// ProvideHTTPHandler combines the REST API and the websocket feed.
func ProvideHTTPHandler(log *applogger.Logger, dashboard *usecase.Dashboard, hub *ws.Hub) xhttp.Handler {
	return xhttp.CombineHandlers(api.NewDashboardHandler(log, dashboard), hub)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	posts *usecase.KafkaPostsHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
	publisher repository.AlertPublisher,
	c cache.Service,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, log, sched, consumer, posts, chClient, handler)
	app.AddCloser(publisher.Close)
	if closer, ok := c.(interface{ Close() error }); ok {
		app.AddCloser(closer.Close)
	}
	return app
}
