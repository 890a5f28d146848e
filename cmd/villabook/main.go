package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"villabook/internal/app/admin"
	appavailability "villabook/internal/app/availability"
	"villabook/internal/app/booking"
	"villabook/internal/app/calendar"
	"villabook/internal/app/commands"
	"villabook/internal/app/middleware"
	"villabook/internal/app/outbox"
	"villabook/internal/app/policies"
	"villabook/internal/app/queries"
	"villabook/internal/app/reconcile"
	"villabook/internal/app/services/auth"
	domainauth "villabook/internal/domain/auth"
	"villabook/internal/domain/availability"
	"villabook/internal/domain/reservation"
	"villabook/internal/infra/broker/kafka"
	"villabook/internal/infra/config"
	mongostore "villabook/internal/infra/db/mongo"
	"villabook/internal/infra/email"
	ginserver "villabook/internal/infra/http/gin"
	"villabook/internal/infra/inbox"
	"villabook/internal/infra/notify"
	"villabook/internal/infra/obs"
	infraoutbox "villabook/internal/infra/outbox"
	"villabook/internal/infra/payments"
	"villabook/internal/infra/security"
	"villabook/internal/infra/storage/file"
	"villabook/internal/infra/storage/memory"
	redisstore "villabook/internal/infra/storage/redis"
	"villabook/internal/infra/storage/s3"
)

const eventSource = "app://villabook"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(getenv("APP_ENV", "dev")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: app.metrics}, app.health, app.handlers)

	var workers sync.WaitGroup
	for name, run := range app.workers {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker stopped", "worker", name, "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode, "fallback", cfg.FallbackMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	workers.Wait()
	app.writer.Wait()
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	health   obs.HealthHandlers
	metrics  *obs.Metrics
	writer   *booking.Writer
	workers  map[string]func(ctx context.Context) error
	closers  []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type stores struct {
	remote      reservation.RemoteStore
	fallback    reservation.FallbackStore
	blocks      availability.BlockStore
	sessions    domainauth.SessionStore
	idempotency middleware.IdempotencyStore
	outbox      interface {
		outbox.Outbox
		infraoutbox.Store
	}
	inbox inbox.Deduper
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		metrics: obs.NewMetrics("villabook"),
		workers: map[string]func(ctx context.Context) error{},
	}
	checks := map[string]obs.Check{}

	catalog, err := config.LoadCatalog(cfg.UnitsFile)
	if err != nil {
		return nil, err
	}

	st := stores{
		sessions:    memory.NewSessionStore(),
		idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		outbox:      memory.NewOutbox(),
		inbox:       inbox.NewMemory(),
	}

	switch cfg.StorageMode {
	case config.StorageMongo:
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		app.closers = append(app.closers, func() { _ = client.Close(context.Background()) })
		checks["mongo"] = client.Ping
		remote, err := mongostore.NewReservationStore(ctx, client.DB)
		if err != nil {
			return nil, err
		}
		remote.Logger = logger
		st.remote = remote
		st.blocks = mongostore.NewBlockStore(client.DB)
		if st.idempotency, err = mongostore.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL); err != nil {
			return nil, err
		}
		if st.outbox, err = infraoutbox.NewMongoStore(ctx, client.DB); err != nil {
			return nil, err
		}
		if st.inbox, err = inbox.NewStore(ctx, client.DB, cfg.KafkaGroupID, 7*24*time.Hour); err != nil {
			return nil, err
		}
	default:
		st.remote = memory.NewReservationStore()
		st.blocks = memory.NewBlockStore()
	}

	var redisClient *redis.Client
	if cfg.FallbackMode == config.FallbackRedis {
		redisClient, err = redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		st.sessions = redisstore.NewSessionStore(redisClient, cfg.RedisPrefix)
	}
	switch cfg.FallbackMode {
	case config.FallbackRedis:
		st.fallback = redisstore.NewFallbackStore(redisClient, cfg.RedisPrefix)
	case config.FallbackFile:
		fb, err := file.NewFallbackStore(cfg.FallbackFile)
		if err != nil {
			return nil, err
		}
		st.fallback = fb
	default:
		st.fallback = memory.NewFallbackStore()
	}

	broadcaster := appavailability.NewBroadcaster()
	cache := appavailability.NewRemoteCache(st.remote, broadcaster, logger)
	oracle := &appavailability.Oracle{
		Remote:   cache,
		Fallback: st.fallback,
		Blocks:   st.blocks,
		Seed:     availability.DefaultSeed(),
		Logger:   logger,
	}
	encoder := outbox.JSONEventEncoder{}

	var notifier policies.Notifier = notify.Disabled{}
	if cfg.NotifyURL != "" {
		notifier = notify.NewHTTPNotifier(cfg.NotifyURL, cfg.NotifyTimeout)
	}
	var mailer email.Mailer = email.LogMailer{Logger: logger}
	if cfg.ResendAPIKey != "" {
		mailer = email.NewResendMailer(cfg.ResendAPIKey)
	}

	writer := &booking.Writer{
		Catalog:       catalog,
		Oracle:        oracle,
		Remote:        st.remote,
		Fallback:      st.fallback,
		Payments:      payments.Simulated{Delay: cfg.PaymentDelay, Logger: logger},
		Notifier:      notifier,
		Outbox:        st.outbox,
		Encoder:       encoder,
		Snapshot:      cache,
		Broadcaster:   broadcaster,
		Metrics:       app.metrics,
		Logger:        logger,
		RemoteTimeout: cfg.RemoteWriteTimeout,
		Location:      cfg.Location,
	}
	app.writer = writer

	reconciler := &reconcile.Reconciler{
		Remote:   st.remote,
		Fallback: st.fallback,
		Promoter: writer,
		Interval: cfg.ReconcileInterval,
		Logger:   logger,
	}

	adminSvc := &admin.Service{
		Catalog:      catalog,
		Remote:       st.remote,
		Fallback:     st.fallback,
		Blocks:       st.blocks,
		Cache:        cache,
		Availability: oracle,
		Broadcaster:  broadcaster,
		Outbox:       st.outbox,
		Encoder:      encoder,
		Logger:       logger,
	}
	if cfg.ExportsEnabled() {
		exports, err := s3.NewExportStore(s3.Options{
			Endpoint:  cfg.S3Endpoint,
			UseSSL:    cfg.S3UseSSL,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			LinkTTL:   cfg.S3LinkTTL,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("export storage: %w", err)
		}
		adminSvc.Uploader = exports
	}

	authSvc := &auth.Service{
		AdminName:    cfg.AdminName,
		PasswordHash: cfg.AdminPasswordHash,
		Sessions:     st.sessions,
		Passwords:    security.BcryptHasher{},
		Tokens:       security.RandomTokenGenerator{},
		SessionTTL:   cfg.SessionTTL,
		Logger:       logger,
	}
	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin login disabled")
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[booking.CreateReservationCommand, booking.Result](commandBus, booking.CreateReservationKey, writer)
	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[calendar.GetCalendarQuery, calendar.Month](queryBus, calendar.GetCalendarKey, &calendar.GetCalendarHandler{Oracle: oracle, Catalog: catalog, Location: cfg.Location})
	queries.RegisterHandler[calendar.GetQuoteQuery, calendar.QuoteView](queryBus, calendar.GetQuoteKey, &calendar.GetQuoteHandler{Catalog: catalog})
	admin.Register(commandBus, queryBus, adminSvc, reconciler)

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Observe(logger, app.metrics),
		middleware.Authorization(auth.AdminAuthorizer{}),
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Idempotency(st.idempotency, nil),
		middleware.OutboxFlush(st.outbox, logger),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.ObserveQueries(logger, app.metrics),
		middleware.QueryAuthorization(auth.AdminAuthorizer{}),
	)

	app.workers["remote-cache"] = cache.Run
	app.workers["reconciler"] = reconciler.Run

	if cfg.MessagingEnabled() {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, "villabook")
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.closers = append(app.closers, func() { _ = producer.Close() })
		worker := &infraoutbox.Worker{
			Store:       st.outbox,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Source:      eventSource,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
			Metrics:     app.metrics,
		}
		app.workers["outbox"] = worker.Run

		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, &kafka.ChangeHandler{
			Cache:       cache,
			Broadcaster: broadcaster,
			Inbox:       st.inbox,
			Source:      eventSource,
			Logger:      logger,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		app.closers = append(app.closers, func() { _ = consumer.Close() })
		topics := kafka.Topics(cfg.KafkaTopicPrefix)
		app.workers["availability-consumer"] = func(ctx context.Context) error { return consumer.Run(ctx, topics) }
	}

	checks["remote-snapshot"] = func(context.Context) error {
		if !cache.Loaded() {
			return errors.New("remote snapshot not loaded")
		}
		return nil
	}
	app.health = obs.HealthHandlers{Checks: checks}
	app.handlers = ginserver.Handlers{
		Catalog:        ginserver.CatalogHandler{Catalog: catalog, Queries: queryBusWithMiddleware},
		Calendar:       ginserver.CalendarHandler{Queries: queryBusWithMiddleware, Catalog: catalog, Broadcaster: broadcaster, Logger: logger},
		Reservations:   ginserver.ReservationHandler{Commands: commandBusWithMiddleware},
		Admin:          ginserver.AdminHandler{Auth: authSvc, Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
		Email:          ginserver.EmailHandler{Mailer: mailer, Logger: logger},
		Metrics:        app.metrics.Handler(),
		AuthMiddleware: ginserver.AuthMiddleware{Service: authSvc, Logger: logger}.Handle,
	}
	return app, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
