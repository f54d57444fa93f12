package config

import "time"

const (
	DefaultMongoDatabaseName = "fieldslots"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisDB = 0

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultBookingAPIURL     = "http://localhost:3000/api"
	DefaultBookingAPITimeout = 10 * time.Second

	DefaultVenueTimezone = "UTC"
	DefaultOpeningHour   = 8
	DefaultClosingHour   = 24

	DefaultRefreshInterval  = 30 * time.Second
	DefaultSnapshotCacheTTL = 15 * time.Second
	DefaultFetchTimeout     = 10 * time.Second

	DefaultFeedCommandsTopic        = "availability.commands"
	DefaultFeedUpdatesTopic         = "availability.updates"
	DefaultFeedGroupPrefix          = "fieldslots-"
	DefaultFeedReconnectDelay       = 2 * time.Second
	DefaultFeedMaxReconnectAttempts = 5

	DefaultMetricsNamespace = "fieldslots"
)
