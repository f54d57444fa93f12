package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvBookingAPIURL     = "BOOKING_API_URL"
	EnvBookingAPITimeout = "BOOKING_API_TIMEOUT"

	EnvVenueTimezone = "VENUE_TIMEZONE"
	EnvOpeningHour   = "OPENING_HOUR"
	EnvClosingHour   = "CLOSING_HOUR"

	EnvRefreshInterval  = "REFRESH_INTERVAL"
	EnvSnapshotCacheTTL = "SNAPSHOT_CACHE_TTL"
	EnvFetchTimeout     = "FETCH_TIMEOUT"

	EnvFeedCommandsTopic        = "FEED_COMMANDS_TOPIC"
	EnvFeedUpdatesTopic         = "FEED_UPDATES_TOPIC"
	EnvFeedGroupPrefix          = "FEED_GROUP_PREFIX"
	EnvFeedReconnectDelay       = "FEED_RECONNECT_DELAY"
	EnvFeedMaxReconnectAttempts = "FEED_MAX_RECONNECT_ATTEMPTS"

	EnvMetricsNamespace = "METRICS_NAMESPACE"
)
