// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// All config for the application.
// Leaf keys come from field names: an envconfig tag such as "USER" would also match the unprefixed $USER.
type Config struct {
	Env      string         `split_words:"true" default:"development"`
	Log      LogConfig      `envconfig:"LOG"`
	Watcher  WatcherConfig  `envconfig:"WATCHER"`
	Printer  PrinterConfig  `envconfig:"PRINTER"`
	Metrics  MetricsConfig  `envconfig:"METRICS"`
	RabbitMQ RabbitMQConfig `envconfig:"RABBITMQ"`
	Postgres PostgresConfig `envconfig:"POSTGRES"`
	S3       S3Config       `envconfig:"S3"`
}

type LogConfig struct {
	Level  string `split_words:"true" default:"info"`
	Format string `split_words:"true"` // json or pretty, derived from Env when empty
}

// stores which folder to watch and how often to poll a growing file
type WatcherConfig struct {
	Folder       string        `split_words:"true"`
	PollInterval time.Duration `split_words:"true" default:"1s"`
	Interactive  bool          `split_words:"true" default:"true"`
}

type PrinterConfig struct {
	// Path to the SumatraPDF (or compatible) executable
	Executable string `split_words:"true"`
}

type MetricsConfig struct {
	Addr string `split_words:"true"` // e.g. ":9108", empty disables the endpoint
}

// publishing is skipped when URI is empty
type RabbitMQConfig struct {
	URI      string `split_words:"true"`
	Exchange string `split_words:"true" default:"pdfwatch.print.events"`
}

func (c RabbitMQConfig) Enabled() bool { return c.URI != "" }

// the print journal is skipped when Host is empty
type PostgresConfig struct {
	Host     string `split_words:"true"`
	Port     int    `split_words:"true" default:"5432"`
	User     string `split_words:"true" default:"pdfwatch"`
	Password string `split_words:"true"`
	DBName   string `split_words:"true" default:"pdfwatch"`
	SSLMode  string `split_words:"true" default:"disable"`
}

func (c PostgresConfig) Enabled() bool { return c.Host != "" }

// archive of printed files, skipped when Bucket is empty
type S3Config struct {
	Bucket    string `split_words:"true"`
	Prefix    string `split_words:"true" default:"printed"`
	Region    string `split_words:"true" default:"us-west-2"`
	AccessKey string `split_words:"true"`
	SecretKey string `split_words:"true"`
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("PDFWATCH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if cfg.Watcher.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.Watcher.PollInterval)
	}
	return &cfg, nil
}
