package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/layerstage/internal/report"
)

// Environment variables consulted when the matching flag is not set.
const (
	EnvLogLevel    = "LAYERSTAGE_LOG_LEVEL"
	EnvLogFormat   = "LAYERSTAGE_LOG_FORMAT"
	EnvS3AccessKey = "LAYERSTAGE_S3_ACCESS_KEY"
	EnvS3SecretKey = "LAYERSTAGE_S3_SECRET_KEY"
	EnvS3Region    = "LAYERSTAGE_S3_REGION"
	EnvS3UseSSL    = "LAYERSTAGE_S3_USE_SSL"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	LayerPaths []string // hcl files or directories

	Output      string // table, json or yaml
	ReportFile  string
	MetricsFile string
	EnvFile     string

	Concurrency int           // overrides the manifest when positive
	Timeout     time.Duration // bounds the whole run when positive

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.LayerPaths) == 0 {
		return nil, errors.New("at least one layer manifest path is required")
	}
	if cfg.Output == "" {
		cfg.Output = report.FormatTable
	}
	if !report.ValidFormat(cfg.Output) {
		return nil, fmt.Errorf("invalid output %q: must be one of %v", cfg.Output, report.Formats)
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must not be negative, got %d", cfg.Concurrency)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}
	return &cfg, nil
}
