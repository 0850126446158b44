package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"doiregistrar/internal/customer/resolver"
	"doiregistrar/internal/customer/secrets"
	doimetrics "doiregistrar/internal/doi/metrics"
	"doiregistrar/internal/doi/service"
	"doiregistrar/internal/events/bus"
	"doiregistrar/internal/events/deadletter"
	"doiregistrar/internal/events/fanout"
	eventmetrics "doiregistrar/internal/events/metrics"
	"doiregistrar/internal/events/models"
	"doiregistrar/internal/events/publisher"
	"doiregistrar/internal/handler"
	"doiregistrar/internal/platform/config"
	"doiregistrar/internal/platform/httpserver"
	"doiregistrar/internal/platform/kafka"
	"doiregistrar/internal/platform/kafka/consumer"
	"doiregistrar/internal/platform/logger"
	"doiregistrar/internal/platform/metrics"
	"doiregistrar/internal/platform/postgres"
	"doiregistrar/internal/platform/redis"
	"doiregistrar/internal/registry/transport"
	"doiregistrar/pkg/platform/circuit"
)

// main runs the fan-out loop, the change-record handler loop and the ops
// HTTP server until SIGINT/SIGTERM.
func main() {
	if err := run(); err != nil {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	checks := map[string]httpserver.HealthCheck{}

	store, closeStore, err := secretStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	registry, err := transport.New(transport.Config{
		MdsURL:         cfg.Registry.MdsURL,
		RestURL:        cfg.Registry.RestURL,
		ConnectTimeout: cfg.Registry.ConnectTimeout,
		RequestTimeout: cfg.Registry.RequestTimeout,
	}, transport.WithLogger(log))
	if err != nil {
		return fmt.Errorf("registry transport: %w", err)
	}
	svcOpts := []service.Option{service.WithLogger(log), service.WithMetrics(doimetrics.New(reg))}
	if cfg.Registry.EnforcePrefix {
		svcOpts = append(svcOpts, service.WithPrefixGuard())
	}
	customers := resolver.New(store, resolver.WithLogger(log))
	checks["customers"] = func(ctx context.Context) error {
		_, err := customers.Customers(ctx)
		return err
	}
	lifecycle := service.New(customers, registry, svcOpts...)

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	defer producer.Close()
	checks["kafka"] = producer.Ping
	if cfg.Kafka.BootstrapTopics {
		if err := kafka.EnsureTopics(ctx, producer, cfg.Kafka, log); err != nil {
			return err
		}
	}

	var (
		db      *sql.DB
		pgStore *deadletter.PostgresStore
	)
	if cfg.UsesPostgres() {
		db, err = postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		checks["postgres"] = db.PingContext
		pgStore = deadletter.NewPostgres(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	sink := deadLetterSink(cfg, producer, pgStore, log)

	pubCfg := publisher.Config{
		MaxAttempts:       cfg.Publisher.MaxAttempts,
		BatchSize:         cfg.Publisher.BatchSize,
		Backoff:           cfg.Publisher.Backoff,
		MaxBackoff:        cfg.Publisher.MaxBackoff,
		DeadLetterTimeout: cfg.Publisher.DeadLetterTimeout,
	}
	pubMetrics := eventmetrics.New(reg)
	newPublisher := func(topic string) *publisher.Publisher {
		return publisher.New(bus.NewKafka(producer, topic, bus.WithLogger(log)), sink, pubCfg,
			publisher.WithLogger(log),
			publisher.WithMetrics(pubMetrics),
		)
	}

	var admin httpserver.DeadLetterAdmin
	if pgStore != nil {
		redriveBus := bus.NewKafka(producer, cfg.Kafka.EventsTopic,
			bus.WithLogger(log),
			bus.WithTopicFor(models.DetailTypeDoiUpdated, cfg.Kafka.NotificationsTopic),
			bus.WithTopicFor(models.DetailTypeMintIndeterminate, cfg.Kafka.NotificationsTopic),
		)
		admin = deadletter.NewRedriver(db, pgStore, redriveBus, pubCfg, log)
	}

	fanoutClient, err := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.FanoutGroup, []string{cfg.Kafka.ChangeTopic})
	if err != nil {
		return err
	}
	handlerClient, err := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.HandlerGroup, []string{cfg.Kafka.EventsTopic})
	if err != nil {
		fanoutClient.Close()
		return err
	}

	consumerMetrics := metrics.New(reg)
	fanoutLoop := consumer.New(fanoutClient, cfg.Kafka.FanoutGroup,
		fanout.New(newPublisher(cfg.Kafka.EventsTopic)),
		consumer.WithLogger(log),
		consumer.WithMetrics(consumerMetrics),
	)

	dispatcher := handler.NewDispatcher(
		handler.New(lifecycle, handler.WithLogger(log), handler.WithDirectory(customers)),
		newPublisher(cfg.Kafka.NotificationsTopic),
		sink,
		log,
	)
	handlerLoop := consumer.New(handlerClient, cfg.Kafka.HandlerGroup,
		consumer.PerMessage(dispatcher),
		consumer.WithLogger(log),
		consumer.WithMetrics(consumerMetrics),
	)

	srv := httpserver.New(cfg.Server.Addr, httpserver.NewOpsRouter(httpserver.Ops{
		Gatherer:    reg,
		Checks:      checks,
		DeadLetters: admin,
		Logger:      log,
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fanoutLoop.Run(gctx) })
	g.Go(func() error { return handlerLoop.Run(gctx) })
	g.Go(func() error {
		log.Info("ops server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		fanoutClient.Close()
		handlerClient.Close()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("worker stopped")
	return err
}

// secretStore picks the credential document source. Inline JSON wins over Redis.
func secretStore(ctx context.Context, cfg *config.Config, checks map[string]httpserver.HealthCheck) (resolver.SecretStore, func(), error) {
	if cfg.Secrets.Inline != "" {
		return secrets.NewStatic([]byte(cfg.Secrets.Inline)), func() {}, nil
	}
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return nil, nil, errors.New("no customer secret source: set DOI_SECRETS_INLINE or DOI_REDIS_URL")
	}
	checks["redis"] = client.Health
	return secrets.NewRedisStore(client, cfg.Secrets.RedisKey), func() { _ = client.Close() }, nil
}

func deadLetterSink(cfg *config.Config, producer *kgo.Client, pgStore *deadletter.PostgresStore, log *slog.Logger) deadletter.Sink {
	kafkaSink := deadletter.NewKafka(producer, cfg.Kafka.DeadLetterTopic)
	switch cfg.DeadLetter.Backend {
	case config.BackendPostgres:
		return pgStore
	case config.BackendFailover:
		breaker := circuit.New("dead-letter-kafka",
			circuit.WithFailureThreshold(cfg.DeadLetter.FailureThreshold),
			circuit.WithCooldown(cfg.DeadLetter.Cooldown),
		)
		return deadletter.NewFailover(kafkaSink, pgStore,
			deadletter.WithBreaker(breaker),
			deadletter.WithFailoverLogger(log),
		)
	default:
		return kafkaSink
	}
}
