package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultPopularity   = 15
	defaultBatchSize    = 10
	defaultRetry        = 3
	defaultFailureDelay = 2 * time.Second
	defaultRequestDelay = 350 * time.Millisecond
)

// Settings holds everything the ingest pipelines need from the environment.
type Settings struct {
	APIKey         string
	Popularity     float64
	BatchSize      int
	Retry          int
	BackfilledDays string
	FileDate       string
	DownloadDir    string

	// Pauses between detail requests; tuned against the remote service's
	// undocumented abuse threshold, so they stay configurable.
	DetailFailureDelay time.Duration
	DetailRequestDelay time.Duration
}

// Load reads pipeline settings from the environment. A missing API key is the
// caller's problem to make fatal.
func Load() (*Settings, error) {
	pop, err := GetEnvFloat("POPULARITY", defaultPopularity)
	if err != nil {
		return nil, err
	}
	batch, err := GetEnvInt("BATCH_SIZE", defaultBatchSize)
	if err != nil {
		return nil, err
	}
	retry, err := GetEnvInt("RETRY", defaultRetry)
	if err != nil {
		return nil, err
	}

	return &Settings{
		APIKey:             os.Getenv("MOVIE_DB"),
		Popularity:         pop,
		BatchSize:          batch,
		Retry:              retry,
		BackfilledDays:     os.Getenv("BACKFILLED_DAYS"),
		FileDate:           os.Getenv("FILE_DATE"),
		DownloadDir:        GetEnv("DOWNLOAD_DIR", os.TempDir()),
		DetailFailureDelay: getEnvDuration("DETAIL_FAILURE_DELAY", defaultFailureDelay),
		DetailRequestDelay: getEnvDuration("DETAIL_REQUEST_DELAY", defaultRequestDelay),
	}, nil
}

// DatabaseConfig returns host, port, user, password, database name
func DatabaseConfig() (string, string, string, string, string) {
	host := GetEnv("DB_HOST", "postgres")
	port := GetEnv("DB_PORT", "5432")
	user := GetEnv("DB_USER", "postgres")
	password := GetEnv("DB_PASS", "")
	name := GetEnv("DB_NAME", "movies")
	return host, port, user, password, name
}

// RedisConfig returns host, port, password
func RedisConfig() (string, string, string) {
	host := GetEnv("R_HOST", "redis")
	port := GetEnv("R_PORT", "6379")
	password := GetEnv("R_PASS", "")
	return host, port, password
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt parses an integer environment value, falling back to defaultValue
// when the key is unset.
func GetEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

// GetEnvFloat parses a numeric environment value, falling back to defaultValue
// when the key is unset.
func GetEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, value)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
