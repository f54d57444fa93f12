package config

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fieldslots/pkg/client"
	"fieldslots/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port      string
	LogLevel  string
	LogFormat string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BookingAPIURL     string
	BookingAPITimeout time.Duration

	VenueTimezone string
	Location      *time.Location
	OpeningHour   int
	ClosingHour   int

	RefreshInterval  time.Duration
	SnapshotCacheTTL time.Duration
	FetchTimeout     time.Duration

	FeedCommandsTopic        string
	FeedUpdatesTopic         string
	FeedGroupPrefix          string
	FeedReconnectDelay       time.Duration
	FeedMaxReconnectAttempts int

	MetricsNamespace string

	Log    *logger.Logger
	Client *client.Client
}

type loadOptions struct {
	logOutput io.Writer
}

type Option func(*loadOptions)

// WithLogOutput redirects the configured logger, e.g. to stderr for CLI tools.
func WithLogOutput(w io.Writer) Option {
	return func(o *loadOptions) {
		o.logOutput = w
	}
}

func Load(serviceName string, opts ...Option) *Config {
	o := &loadOptions{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, ""),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port:      getEnvStr(EnvPort, DefaultPort),
		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		BookingAPIURL:     strings.TrimRight(getEnvStr(EnvBookingAPIURL, DefaultBookingAPIURL), "/"),
		BookingAPITimeout: getEnvDuration(EnvBookingAPITimeout, DefaultBookingAPITimeout),

		VenueTimezone: getEnvStr(EnvVenueTimezone, DefaultVenueTimezone),
		OpeningHour:   getEnvNum(EnvOpeningHour, DefaultOpeningHour),
		ClosingHour:   getEnvNum(EnvClosingHour, DefaultClosingHour),

		RefreshInterval:  getEnvDuration(EnvRefreshInterval, DefaultRefreshInterval),
		SnapshotCacheTTL: getEnvDuration(EnvSnapshotCacheTTL, DefaultSnapshotCacheTTL),
		FetchTimeout:     getEnvDuration(EnvFetchTimeout, DefaultFetchTimeout),

		FeedCommandsTopic:        getEnvStr(EnvFeedCommandsTopic, DefaultFeedCommandsTopic),
		FeedUpdatesTopic:         getEnvStr(EnvFeedUpdatesTopic, DefaultFeedUpdatesTopic),
		FeedGroupPrefix:          getEnvStr(EnvFeedGroupPrefix, DefaultFeedGroupPrefix),
		FeedReconnectDelay:       getEnvDuration(EnvFeedReconnectDelay, DefaultFeedReconnectDelay),
		FeedMaxReconnectAttempts: getEnvNum(EnvFeedMaxReconnectAttempts, DefaultFeedMaxReconnectAttempts),

		MetricsNamespace: getEnvStr(EnvMetricsNamespace, DefaultMetricsNamespace),

		Client: client.NewClient(),
	}

	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Output:    o.logOutput,
		AddSource: true,
		Service:   serviceName,
	})

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// HasMongo reports whether a reservation history store is configured.
func (cfg *Config) HasMongo() bool {
	return cfg.MongoURI != ""
}

func (cfg *Config) HasRedis() bool {
	return cfg.RedisAddr != ""
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

// CandidateHours lists the bookable hour buckets of a venue day.
func (cfg *Config) CandidateHours() []int {
	hours := make([]int, 0, cfg.ClosingHour-cfg.OpeningHour)
	for h := cfg.OpeningHour; h < cfg.ClosingHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI != "" && !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoURI != "" && cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty when MongoURI is set")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if !regexp.MustCompile(`^https?://`).MatchString(cfg.BookingAPIURL) {
		errors = append(errors, fmt.Sprintf("BookingAPIURL must start with 'http://' or 'https://', got: %s", cfg.BookingAPIURL))
	}
	if cfg.BookingAPITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("BookingAPITimeout must be positive, got: %s", cfg.BookingAPITimeout))
	}

	loc, err := time.LoadLocation(cfg.VenueTimezone)
	if err != nil {
		errors = append(errors, fmt.Sprintf("VenueTimezone must be a valid IANA zone, got: %s", cfg.VenueTimezone))
	} else {
		cfg.Location = loc
	}
	if cfg.OpeningHour < 0 || cfg.OpeningHour > 23 {
		errors = append(errors, fmt.Sprintf("OpeningHour must be between 0 and 23, got: %d", cfg.OpeningHour))
	}
	if cfg.ClosingHour < 1 || cfg.ClosingHour > 24 {
		errors = append(errors, fmt.Sprintf("ClosingHour must be between 1 and 24, got: %d", cfg.ClosingHour))
	}
	if cfg.ClosingHour <= cfg.OpeningHour {
		errors = append(errors, fmt.Sprintf("ClosingHour (%d) must be > OpeningHour (%d)", cfg.ClosingHour, cfg.OpeningHour))
	}

	if cfg.RefreshInterval <= 0 {
		errors = append(errors, fmt.Sprintf("RefreshInterval must be positive, got: %s", cfg.RefreshInterval))
	}
	if cfg.SnapshotCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("SnapshotCacheTTL cannot be negative, got: %s", cfg.SnapshotCacheTTL))
	}
	if cfg.FetchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("FetchTimeout must be positive, got: %s", cfg.FetchTimeout))
	}

	if cfg.FeedCommandsTopic == "" {
		errors = append(errors, "FeedCommandsTopic cannot be empty")
	}
	if cfg.FeedUpdatesTopic == "" {
		errors = append(errors, "FeedUpdatesTopic cannot be empty")
	}
	if cfg.FeedReconnectDelay <= 0 {
		errors = append(errors, fmt.Sprintf("FeedReconnectDelay must be positive, got: %s", cfg.FeedReconnectDelay))
	}
	if cfg.FeedMaxReconnectAttempts < 0 {
		errors = append(errors, fmt.Sprintf("FeedMaxReconnectAttempts cannot be negative, got: %d", cfg.FeedMaxReconnectAttempts))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"booking_api_url", cfg.BookingAPIURL,
		"booking_api_timeout", cfg.BookingAPITimeout,
		"venue_timezone", cfg.VenueTimezone,
		"opening_hour", cfg.OpeningHour,
		"closing_hour", cfg.ClosingHour,
		"refresh_interval", cfg.RefreshInterval,
		"snapshot_cache_ttl", cfg.SnapshotCacheTTL,
		"fetch_timeout", cfg.FetchTimeout,
		"feed_commands_topic", cfg.FeedCommandsTopic,
		"feed_updates_topic", cfg.FeedUpdatesTopic,
		"feed_reconnect_delay", cfg.FeedReconnectDelay,
		"feed_max_reconnect_attempts", cfg.FeedMaxReconnectAttempts,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
