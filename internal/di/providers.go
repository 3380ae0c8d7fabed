package di

import (
	"context"
	"fmt"
	"time"

	"SepsisWatch/internal/domain/repository"
	domsvc "SepsisWatch/internal/domain/service"
	mid "SepsisWatch/internal/middleware"
	internalrepo "SepsisWatch/internal/repository"
	"SepsisWatch/internal/services/features"
	"SepsisWatch/internal/services/model"
	"SepsisWatch/internal/services/scoring"
	"SepsisWatch/internal/services/validation"
	"SepsisWatch/internal/usecase"
	pkgcache "SepsisWatch/pkg/cache"
	pkgch "SepsisWatch/pkg/clickhouse"
	"SepsisWatch/pkg/config"
	pkgkafka "SepsisWatch/pkg/kafka"
	applogger "SepsisWatch/pkg/logger"
	"SepsisWatch/pkg/metrics"
	"SepsisWatch/pkg/queue"
	"SepsisWatch/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// warehouse schema exists.
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

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		`CREATE TABLE IF NOT EXISTS ` + db + `.risk_results (
			event_date Date,
			event_time DateTime,
			patient_id String,
			admission_id String,
			ts String,
			risk_score Float64,
			risk_level LowCardinality(String),
			alert UInt8,
			top_contributors String,
			features String,
			flags String,
			missingness_score Float64
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(event_date)
		ORDER BY (patient_id, admission_id, event_time)`,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideResultStorage creates the ClickHouse results sink.
func ProvideResultStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".risk_results")
}

// ProvideResultStore creates the dashboard read-back store.
func ProvideResultStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.ResultStore {
	s := internalrepo.NewCHResultStore(chClient, cfg.ClickHouse.Database+".risk_results")
	s.SetLogger(l)
	return s
}

// ProvideResultPublisher creates the Kafka results publisher.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.ResultsTopic, cfg.Kafka.Consumer.DLQTopic)
}

// ProvideRedisCache creates the shared Redis client wrapper. Returns nil when
// Redis is disabled; downstream wiring degrades gracefully.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideQuarantine creates the rejected-event sink: the Redis review queue
// when Redis is enabled, otherwise the Kafka dead-letter topic.
func ProvideQuarantine(rc *pkgcache.RedisCache, pub repository.Publisher, cfg *config.Config, l *applogger.Logger) repository.Quarantine {
	if rc == nil {
		return internalrepo.NewKafkaQuarantine(pub)
	}
	prefix := cfg.Redis.QuarantineQueue
	if prefix == "" {
		prefix = "sepsiswatch:quarantine"
	}
	q := queue.NewRedisPublisher(l, rc.Client(), queue.WithKeyPrefix(prefix))
	return internalrepo.NewRedisQuarantine(q)
}

// ProvideValidator creates the schema and plausibility validator.
func ProvideValidator(cfg *config.Config) *validation.Validator {
	return validation.New(cfg.Scoring.Limits)
}

// ProvideFeatureEngine creates the feature engine from configured thresholds.
func ProvideFeatureEngine(cfg *config.Config) (*features.Engine, error) {
	th, err := features.ThresholdsFromConfig(cfg.Scoring.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("feature thresholds: %w", err)
	}
	return features.NewEngine(th), nil
}

// ProvideScorer creates the rule-based risk scorer.
func ProvideScorer(cfg *config.Config) (*scoring.Scorer, error) {
	s, err := scoring.New(&cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	return s, nil
}

// ProvideModelScorer creates the optional remote model adapter. The nil
// interface (not a nil pointer in an interface) keeps scoring rule-based when
// no model URL is configured.
func ProvideModelScorer(cfg *config.Config) domsvc.ModelScorer {
	if rs := model.NewRemoteScorer(cfg); rs != nil {
		return rs
	}
	return nil
}

// ProvidePipeline assembles the assessment pipeline.
func ProvidePipeline(
	validator *validation.Validator,
	engine *features.Engine,
	scorer *scoring.Scorer,
	modelScorer domsvc.ModelScorer,
	m repository.Metrics,
) *usecase.Pipeline {
	return usecase.NewPipeline(validator, engine, scorer, modelScorer, m)
}

// ProvideEventProcessor creates the event processor routing to the configured
// backend.
func ProvideEventProcessor(
	pipe *usecase.Pipeline,
	pub repository.Publisher,
	store repository.Storage,
	quarantine repository.Quarantine,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.EventProcessor {
	return usecase.NewEventProcessor(
		pipe,
		pub,
		store,
		quarantine,
		m,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideIntakeBuffer puts the throttling buffer in front of the processor.
func ProvideIntakeBuffer(proc *usecase.EventProcessor, m repository.Metrics) *mid.IntakeBuffer {
	return mid.NewIntakeBuffer(usecase.SinkFromProcessor(proc), m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
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

// ProvideKafkaObservationsHandler registers the handler for the observations
// topic, fronted by the intake buffer.
func ProvideKafkaObservationsHandler(buf *mid.IntakeBuffer, m repository.Metrics, cfg *config.Config) *usecase.KafkaObservationsHandler {
	return usecase.NewKafkaObservationsHandler(cfg.Kafka.ObservationsTopic, buf, m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	proc *usecase.EventProcessor,
	buf *mid.IntakeBuffer,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaObservationsHandler,
	chClient *pkgch.Client,
	results repository.ResultStore,
	storage repository.Storage,
	rc *pkgcache.RedisCache,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, proc, buf, consumer, kh, chClient, results, storage, rc)
}
