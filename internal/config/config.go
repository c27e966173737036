package config

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Output formats accepted by OUTPUT_FORMAT.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatBoth    = "both"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	InputDir     string
	OutputDir    string
	OutputFormat string
	BaselineFile string
	ExcludeFile  string

	// APFile enables the disturbed-day filter; days with Ap above
	// APThreshold are dropped before resampling.
	APFile      string
	APThreshold float64

	Periods         []domain.Period
	SVSpacing       int
	MinValidHours   int
	UseTabularMean  bool
	DateErrorPolicy domain.DateErrorPolicy

	Workers     int
	RunInterval time.Duration

	KafkaBrokers   []string
	KafkaSinkTopic string
	BatchSize      int

	S3Bucket          string
	S3Prefix          string
	S3Region          string
	S3Endpoint        string
	S3PathStyle       bool
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PutsPerSecond   float64

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	periods, err := parsePeriods(sharedcfg.EnvOrDefault("RESAMPLE_PERIODS", string(domain.PeriodMonthly)))
	if err != nil {
		return nil, err
	}

	svSpacing, err := positiveInt("SV_SPACING", 12)
	if err != nil {
		return nil, err
	}
	minValidHours, err := positiveInt("MIN_VALID_HOURS", 1)
	if err != nil {
		return nil, err
	}
	if minValidHours > domain.HoursPerDay {
		return nil, fmt.Errorf("invalid MIN_VALID_HOURS: must be at most %d", domain.HoursPerDay)
	}
	workers, err := positiveInt("WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	useTabularMean, err := strconv.ParseBool(sharedcfg.EnvOrDefault("USE_TABULAR_MEAN", "false"))
	if err != nil {
		return nil, errors.New("invalid USE_TABULAR_MEAN")
	}

	policy, err := domain.ParseDateErrorPolicy(sharedcfg.EnvOrDefault("DATE_ERROR_POLICY", string(domain.DateErrorSkip)))
	if err != nil {
		return nil, fmt.Errorf("invalid DATE_ERROR_POLICY: %w", err)
	}

	runInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("RUN_INTERVAL", "0"))
	if err != nil || runInterval < 0 {
		return nil, errors.New("invalid RUN_INTERVAL")
	}

	s3PathStyle, err := strconv.ParseBool(sharedcfg.EnvOrDefault("S3_PATH_STYLE", "false"))
	if err != nil {
		return nil, errors.New("invalid S3_PATH_STYLE")
	}
	s3PutsPerSecond, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("S3_PUTS_PER_SECOND", "10"), 64)
	if err != nil || s3PutsPerSecond <= 0 {
		return nil, errors.New("invalid S3_PUTS_PER_SECOND: must be a positive number")
	}

	apThreshold, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("AP_THRESHOLD", "30"), 64)
	if err != nil || apThreshold < 0 {
		return nil, errors.New("invalid AP_THRESHOLD: must be a non-negative number")
	}

	cfg := &Config{
		InputDir:     sharedcfg.EnvOrDefault("INPUT_DIR", "./data/wdc"),
		OutputDir:    sharedcfg.EnvOrDefault("OUTPUT_DIR", "./data/out"),
		OutputFormat: strings.ToLower(sharedcfg.EnvOrDefault("OUTPUT_FORMAT", FormatCSV)),
		BaselineFile: sharedcfg.EnvOrDefault("BASELINE_FILE", ""),
		ExcludeFile:  sharedcfg.EnvOrDefault("EXCLUDE_FILE", ""),
		APFile:       sharedcfg.EnvOrDefault("AP_FILE", ""),
		APThreshold:  apThreshold,

		Periods:         periods,
		SVSpacing:       svSpacing,
		MinValidHours:   minValidHours,
		UseTabularMean:  useTabularMean,
		DateErrorPolicy: policy,

		Workers:     workers,
		RunInterval: runInterval,

		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "geomag-series"),
		BatchSize:      batchSize,

		S3Bucket:          sharedcfg.EnvOrDefault("S3_BUCKET", ""),
		S3Prefix:          strings.Trim(sharedcfg.EnvOrDefault("S3_PREFIX", "geomag"), "/"),
		S3Region:          sharedcfg.EnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:        sharedcfg.EnvOrDefault("S3_ENDPOINT", ""),
		S3PathStyle:       s3PathStyle,
		S3AccessKeyID:     sharedcfg.EnvOrDefault("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: sharedcfg.EnvOrDefault("S3_SECRET_ACCESS_KEY", ""),
		S3PutsPerSecond:   s3PutsPerSecond,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		LogFile:         sharedcfg.EnvOrDefault("LOG_FILE", ""),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.InputDir == "" {
		return nil, errors.New("INPUT_DIR is required")
	}
	switch cfg.OutputFormat {
	case FormatCSV, FormatParquet, FormatBoth:
	default:
		return nil, fmt.Errorf("invalid OUTPUT_FORMAT %q: want csv, parquet or both", cfg.OutputFormat)
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.PublishEnabled() && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// PublishEnabled reports whether series are published to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// UploadEnabled reports whether products are uploaded to object storage.
func (c *Config) UploadEnabled() bool {
	return c.S3Bucket != ""
}

// WritesCSV reports whether CSV files are produced.
func (c *Config) WritesCSV() bool {
	return c.OutputFormat == FormatCSV || c.OutputFormat == FormatBoth
}

// WritesParquet reports whether Parquet files are produced.
func (c *Config) WritesParquet() bool {
	return c.OutputFormat == FormatParquet || c.OutputFormat == FormatBoth
}

// AggregateOptions returns the daily-mean settings.
func (c *Config) AggregateOptions() domain.AggregateOptions {
	return domain.AggregateOptions{MinValidHours: c.MinValidHours, UseTabularMean: c.UseTabularMean}
}

func parsePeriods(s string) ([]domain.Period, error) {
	var periods []domain.Period
	seen := make(map[domain.Period]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p, err := domain.ParsePeriod(part)
		if err != nil {
			return nil, fmt.Errorf("invalid RESAMPLE_PERIODS: %w", err)
		}
		if !seen[p] {
			seen[p] = true
			periods = append(periods, p)
		}
	}
	if len(periods) == 0 {
		return nil, errors.New("RESAMPLE_PERIODS is required")
	}
	return periods, nil
}

func positiveInt(key string, def int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, strconv.Itoa(def))
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
