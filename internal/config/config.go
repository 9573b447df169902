package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Date range. A zero StartDate means yesterday at every cycle.
	StartDate time.Time
	SpanDays  int
	SpanYears float64

	SmokeBaseURL     string
	FireBaseURL      string
	BoundaryURL      string
	DefaultSourceCRS string

	FetchTimeout      time.Duration
	FetchConcurrency  int
	FetchAllOrNothing bool
	ArchiveCacheSize  int
	MaxExtractMB      int
	TempDir           string
	PollInterval      time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka sink configuration.
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaSmokeTopic      string
	KafkaFireTopic       string
	KafkaMaxMessageBytes int

	// OutputDir enables the GeoJSON file sink when set.
	OutputDir string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	var startDate time.Time
	if s := os.Getenv("HMS_START_DATE"); s != "" {
		startDate, err = domain.ParseDate(s)
		if err != nil {
			return nil, errors.New("invalid HMS_START_DATE: want YYYY-MM-DD")
		}
	}

	spanDays, spanYears, err := parseSpan()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "500s", false)
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("POLL_INTERVAL", "6h", true)
	if err != nil {
		return nil, err
	}

	concurrency, err := parseInt("FETCH_CONCURRENCY", 1, 1)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("ARCHIVE_CACHE_SIZE", 16, 0)
	if err != nil {
		return nil, err
	}
	maxExtractMB, err := parseInt("ARCHIVE_MAX_EXTRACT_MB", 2048, 1)
	if err != nil {
		return nil, err
	}
	maxMessageBytes, err := parseInt("KAFKA_MAX_MESSAGE_BYTES", 10<<20, 1)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := os.Getenv("KAFKA_BROKERS") != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		StartDate: startDate,
		SpanDays:  spanDays,
		SpanYears: spanYears,

		SmokeBaseURL:     sharedcfg.EnvOrDefault("HMS_SMOKE_BASE_URL", domain.DefaultSmokeBaseURL),
		FireBaseURL:      sharedcfg.EnvOrDefault("HMS_FIRE_BASE_URL", domain.DefaultFireBaseURL),
		BoundaryURL:      sharedcfg.EnvOrDefault("HMS_BOUNDARY_URL", domain.DefaultBoundaryURL),
		DefaultSourceCRS: os.Getenv("HMS_DEFAULT_SOURCE_CRS"),

		FetchTimeout:      fetchTimeout,
		FetchConcurrency:  concurrency,
		FetchAllOrNothing: os.Getenv("FETCH_ALL_OR_NOTHING") == "true",
		ArchiveCacheSize:  cacheSize,
		MaxExtractMB:      maxExtractMB,
		TempDir:           os.Getenv("TEMP_DIR"),
		PollInterval:      pollInterval,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:         kafkaEnabled,
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSmokeTopic:      sharedcfg.EnvOrDefault("KAFKA_SMOKE_TOPIC", "hms-smoke-plumes"),
		KafkaFireTopic:       sharedcfg.EnvOrDefault("KAFKA_FIRE_TOPIC", "hms-fire-detections"),
		KafkaMaxMessageBytes: maxMessageBytes,

		OutputDir: os.Getenv("OUTPUT_DIR"),
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSmokeTopic == "" {
			return nil, errors.New("KAFKA_SMOKE_TOPIC is required")
		}
		if cfg.KafkaFireTopic == "" {
			return nil, errors.New("KAFKA_FIRE_TOPIC is required")
		}
	}

	return cfg, nil
}

// parseSpan reads HMS_SPAN_DAYS or HMS_SPAN_YEARS. Setting both is an error;
// setting neither defaults to seven days.
func parseSpan() (int, float64, error) {
	daysStr := os.Getenv("HMS_SPAN_DAYS")
	yearsStr := os.Getenv("HMS_SPAN_YEARS")

	switch {
	case daysStr != "" && yearsStr != "":
		return 0, 0, errors.New("HMS_SPAN_DAYS and HMS_SPAN_YEARS are mutually exclusive")
	case yearsStr != "":
		years, err := strconv.ParseFloat(yearsStr, 64)
		if err != nil || years <= 0 {
			return 0, 0, errors.New("invalid HMS_SPAN_YEARS")
		}
		return 0, years, nil
	case daysStr != "":
		days, err := strconv.Atoi(daysStr)
		if err != nil || days <= 0 {
			return 0, 0, errors.New("invalid HMS_SPAN_DAYS")
		}
		return days, 0, nil
	default:
		return 7, 0, nil
	}
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, minimum int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// Span returns the configured date-range span.
func (c *Config) Span() domain.Span {
	return domain.Span{Days: c.SpanDays, Years: c.SpanYears}
}
