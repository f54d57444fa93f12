package main

import (
	"context"
	"time"

	"fieldslots/internal/availability/feed"
	"fieldslots/internal/availability/fetcher"
	"fieldslots/internal/availability/gateway"
	"fieldslots/internal/availability/handler"
	"fieldslots/internal/availability/reconciler"
	"fieldslots/internal/availability/repository"
	"fieldslots/internal/availability/service"
	"fieldslots/internal/availability/validator"
	"fieldslots/pkg/app"
	"fieldslots/pkg/cache"
	"fieldslots/pkg/client"
	"fieldslots/pkg/config"
	kafka_config "fieldslots/pkg/kafka/config"
	"fieldslots/pkg/metrics"
)

const ServiceName = "availability"

type components struct {
	feed    *feed.Client
	service service.SlotService
}

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Availability service")
	m := metrics.New(cfg.MetricsNamespace)
	c := initServices(cfg, m)

	serverApp := app.NewApplication(cfg, m)
	payloadValidator := validator.NewPayloadValidator(cfg.Location)
	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client.Mongo, c.feed, cfg.Log),
		handler.NewSlotHandler(c.service, payloadValidator, cfg.Log),
	)
	serverApp.OnShutdown("slot service", func(context.Context) error { return c.service.Close() })
	serverApp.OnShutdown("live feed", func(context.Context) error { return c.feed.Disconnect() })
	serverApp.OnShutdown("clients", func(context.Context) error {
		cfg.Client.GracefulShutdown(cfg.Log)
		return nil
	})
	serverApp.Run()
}

func initServices(cfg *config.Config, m *metrics.Metrics) *components {
	payloadValidator := validator.NewPayloadValidator(cfg.Location)
	bookingAPI := client.NewBookingAPI(cfg.BookingAPIURL, cfg.BookingAPITimeout)

	var history repository.ReservationRepository
	var fallback fetcher.ReservationSource = fetcher.NewHTTPReservationSource(bookingAPI)
	if cfg.HasMongo() {
		cfg.SetMongo()
		history = repository.NewMongoReservationRepository(cfg)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
		if err := history.EnsureIndexes(ctx); err != nil {
			cfg.Log.Warn("Failed to ensure reservation indexes", "error", err)
		}
		cancel()
		fallback = history
		cfg.Log.Info("Reservation history enabled", "database", cfg.MongoDatabaseName)
	}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.HasRedis() {
		cfg.SetRedis()
		store = cache.NewRedisStore(cfg.Client.Redis, ServiceName+":")
	}

	snapshots := fetcher.NewCached(
		fetcher.NewSnapshotFetcher(bookingAPI, fallback, payloadValidator, m, cfg.Log.Component("fetcher")),
		store,
		cfg.SnapshotCacheTTL,
		m,
		cfg.Log.Component("cache"),
	)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	liveFeed := feed.NewClient(
		feed.NewKafkaTransport(kafkaCfg, feed.KafkaTopics{
			Commands:    cfg.FeedCommandsTopic,
			Updates:     cfg.FeedUpdatesTopic,
			GroupPrefix: cfg.FeedGroupPrefix,
			Source:      ServiceName,
		}, m, cfg.Log.Component("kafka")),
		feed.Options{
			ReconnectDelay:       cfg.FeedReconnectDelay,
			MaxReconnectAttempts: cfg.FeedMaxReconnectAttempts,
		},
		m,
		cfg.Log.Component("feed"),
	)
	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := liveFeed.Connect(connectCtx); err != nil {
		cfg.Log.Warn("Live feed unavailable at startup, relying on snapshots", "error", err)
	}
	cancel()

	owner := reconciler.New(snapshots, liveFeed, payloadValidator, reconciler.Options{
		RefreshInterval: cfg.RefreshInterval,
		FetchTimeout:    cfg.FetchTimeout,
		Location:        cfg.Location,
		Candidates:      cfg.CandidateHours(),
	}, m, cfg.Log.Component("reconciler"))

	bookingGateway := gateway.NewBookingGateway(bookingAPI, payloadValidator, m, cfg.Log.Component("gateway"))

	var historyStore service.HistoryStore
	if history != nil {
		historyStore = history
	}
	slotService := service.NewSlotService(owner, bookingGateway, historyStore, m, cfg.Log.Component("service"))

	cfg.Log.Info("Availability service initialized",
		"opening_hour", cfg.OpeningHour,
		"closing_hour", cfg.ClosingHour,
		"timezone", cfg.VenueTimezone,
	)
	return &components{feed: liveFeed, service: slotService}
}
