// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Capacity ceilings and lease durations are passed
// explicitly to the services at construction time so they stay unit-testable
// without a live configuration source.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	QueueCapacity      int           // max ACTIVE tokens per concert
	TokenTTL           time.Duration // queue token lifetime
	WaitSecondsPerUser int           // estimated processing seconds per waiting user
	ReservationLease   time.Duration // window a PENDING reservation stays confirmable
	LockWait           time.Duration // max time to block acquiring a seat lock
	LockLease          time.Duration // auto-expiry of a held seat lock
	OutboxBatchSize    int           // max PENDING records per relay pass
	OutboxMaxRetry     int           // FAILED records at/above this are not re-driven
	OutboxRetention    time.Duration // PUBLISHED records older than this are deleted
	PromoteInterval    time.Duration // waiting→active promotion cadence
	SweepInterval      time.Duration // expired-reservation sweep cadence
	RelayInterval      time.Duration // outbox relay cadence
	RetryInterval      time.Duration // outbox failed-record retry cadence
	CacheTTL           time.Duration // catalog cache entry lifetime
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message. Tunables fall back to the
// defaults the system was sized for.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		QueueCapacity:      intOr("QUEUE_CAPACITY", 50),
		TokenTTL:           minutesOr("QUEUE_TOKEN_TTL_MIN", 30),
		WaitSecondsPerUser: intOr("QUEUE_WAIT_SECONDS_PER_USER", 2),
		ReservationLease:   minutesOr("RESERVATION_LEASE_MIN", 5),
		LockWait:           secondsOr("LOCK_WAIT_SEC", 5),
		LockLease:          secondsOr("LOCK_LEASE_SEC", 10),
		OutboxBatchSize:    intOr("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetry:     intOr("OUTBOX_MAX_RETRY", 5),
		OutboxRetention:    daysOr("OUTBOX_RETENTION_DAYS", 7),
		PromoteInterval:    secondsOr("QUEUE_PROMOTE_INTERVAL_SEC", 10),
		SweepInterval:      secondsOr("RESERVATION_SWEEP_INTERVAL_SEC", 60),
		RelayInterval:      secondsOr("OUTBOX_RELAY_INTERVAL_SEC", 1),
		RetryInterval:      minutesOr("OUTBOX_RETRY_INTERVAL_MIN", 5),
		CacheTTL:           secondsOr("CATALOG_CACHE_TTL_SEC", 60),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr retrieves an integer environment variable, falling back to def when
// unset. An unparsable value is a fatal configuration error.
func intOr(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func secondsOr(key string, def int) time.Duration {
	return time.Duration(intOr(key, def)) * time.Second
}

func minutesOr(key string, def int) time.Duration {
	return time.Duration(intOr(key, def)) * time.Minute
}

func daysOr(key string, def int) time.Duration {
	return time.Duration(intOr(key, def)) * 24 * time.Hour
}
