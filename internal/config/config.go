package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Data source kinds
const (
	SourcePostgres = "postgres"
	SourceSQL      = "sql"
	SourceCSV      = "csv"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Model      ModelConfig
	DataSource DataSourceConfig
	Database   DatabaseConfig
	Dataset    DatasetConfig
	Prediction PredictionConfig
	Metrics    MetricsConfig
	Tracing    TracingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LoggerConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type ModelConfig struct {
	Path string
}

type DataSourceConfig struct {
	Kind string
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns DATABASE_DSN when set, otherwise a connection string built for
// the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", d.User, d.Password, d.Host, d.Port, d.Name)
	case "sqlite3":
		return d.Name
	default:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}
}

type DatasetConfig struct {
	Table       string
	File        string
	Delimiter   rune
	LoadTimeout time.Duration
}

type PredictionConfig struct {
	ExcludeColumns []string
	Names          []string
	OutputPrefix   string
	OutputCount    int
	MaxConcurrent  int
}

// OutputNames returns the explicit name list, or prefix1..prefixN when none
// is configured.
func (p PredictionConfig) OutputNames() []string {
	if len(p.Names) > 0 {
		return p.Names
	}
	names := make([]string, p.OutputCount)
	for i := range names {
		names[i] = p.OutputPrefix + strconv.Itoa(i+1)
	}
	return names
}

type MetricsConfig struct {
	Enabled bool
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")
	v.SetDefault("LOGGER_FILE", "")
	v.SetDefault("LOGGER_MAX_SIZE_MB", 100)
	v.SetDefault("LOGGER_MAX_BACKUPS", 3)
	v.SetDefault("LOGGER_MAX_AGE_DAYS", 28)
	v.SetDefault("MODEL_PATH", "models/blend_model.json")
	v.SetDefault("DATA_SOURCE_KIND", SourceSQL)
	v.SetDefault("DATABASE_DRIVER", "mysql")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_USER", "root")
	v.SetDefault("DATABASE_PASSWORD", "")
	v.SetDefault("DATABASE_NAME", "cts")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DATASET_TABLE", "test_data")
	v.SetDefault("DATASET_FILE", "")
	v.SetDefault("DATASET_FILE_DELIMITER", ",")
	v.SetDefault("DATASET_LOAD_TIMEOUT", "30s")
	v.SetDefault("PREDICTION_EXCLUDE_COLUMNS", "ID")
	v.SetDefault("PREDICTION_OUTPUT_NAMES", "")
	v.SetDefault("PREDICTION_OUTPUT_PREFIX", "Predicted_BlendProperty")
	v.SetDefault("PREDICTION_OUTPUT_COUNT", 10)
	v.SetDefault("PREDICTION_MAX_CONCURRENT", 4)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_INSECURE", true)
	v.SetDefault("TRACING_SERVICE_NAME", "fuel-blend-prediction-service")

	// Env
	v.AutomaticEnv()

	// Optional file; env still wins
	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	lifetime, err := time.ParseDuration(v.GetString("DATABASE_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, fmt.Errorf("DATABASE_CONN_MAX_LIFETIME: %w", err)
	}
	loadTimeout, err := time.ParseDuration(v.GetString("DATASET_LOAD_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("DATASET_LOAD_TIMEOUT: %w", err)
	}
	delimiter, err := parseDelimiter(v.GetString("DATASET_FILE_DELIMITER"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Logger: LoggerConfig{
			Level:      v.GetString("LOGGER_LEVEL"),
			Format:     v.GetString("LOGGER_FORMAT"),
			File:       v.GetString("LOGGER_FILE"),
			MaxSizeMB:  v.GetInt("LOGGER_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOGGER_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOGGER_MAX_AGE_DAYS"),
		},
		Model: ModelConfig{
			Path: v.GetString("MODEL_PATH"),
		},
		DataSource: DataSourceConfig{
			Kind: strings.ToLower(v.GetString("DATA_SOURCE_KIND")),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DATABASE_DRIVER")),
			URL:             v.GetString("DATABASE_DSN"),
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Name:            v.GetString("DATABASE_NAME"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: lifetime,
		},
		Dataset: DatasetConfig{
			Table:       v.GetString("DATASET_TABLE"),
			File:        v.GetString("DATASET_FILE"),
			Delimiter:   delimiter,
			LoadTimeout: loadTimeout,
		},
		Prediction: PredictionConfig{
			ExcludeColumns: splitList(v.GetString("PREDICTION_EXCLUDE_COLUMNS")),
			Names:          splitList(v.GetString("PREDICTION_OUTPUT_NAMES")),
			OutputPrefix:   v.GetString("PREDICTION_OUTPUT_PREFIX"),
			OutputCount:    v.GetInt("PREDICTION_OUTPUT_COUNT"),
			MaxConcurrent:  v.GetInt("PREDICTION_MAX_CONCURRENT"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("TRACING_ENABLED"),
			Endpoint:    v.GetString("TRACING_ENDPOINT"),
			Insecure:    v.GetBool("TRACING_INSECURE"),
			ServiceName: v.GetString("TRACING_SERVICE_NAME"),
		},
	}

	// The pgx source always speaks postgres
	if cfg.DataSource.Kind == SourcePostgres {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultPort(cfg.Database.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Model.Path == "" {
		errs = append(errs, errors.New("MODEL_PATH is required"))
	}

	switch c.DataSource.Kind {
	case SourcePostgres:
		errs = append(errs, validateTable(c.Dataset.Table))
	case SourceSQL:
		switch c.Database.Driver {
		case "mysql", "postgres", "sqlite3":
		default:
			errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not one of mysql, postgres, sqlite3", c.Database.Driver))
		}
		errs = append(errs, validateTable(c.Dataset.Table))
	case SourceCSV:
		if c.Dataset.File == "" {
			errs = append(errs, errors.New("DATASET_FILE is required for the csv source"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATA_SOURCE_KIND %q is not one of postgres, sql, csv", c.DataSource.Kind))
	}

	if len(c.Prediction.Names) == 0 && c.Prediction.OutputCount <= 0 {
		errs = append(errs, errors.New("PREDICTION_OUTPUT_COUNT must be positive when PREDICTION_OUTPUT_NAMES is unset"))
	}
	if c.Prediction.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("PREDICTION_MAX_CONCURRENT must be positive"))
	}
	if c.Dataset.LoadTimeout <= 0 {
		errs = append(errs, errors.New("DATASET_LOAD_TIMEOUT must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port))
	}

	return errors.Join(errs...)
}

// defaultPort is the driver's well known port, used when DATABASE_PORT is unset.
func defaultPort(driver string) int {
	if driver == "postgres" {
		return 5432
	}
	return 3306
}

func validateTable(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("DATASET_TABLE %q is not a valid table name", name)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("DATASET_FILE_DELIMITER %q must be a single character", s)
	}
	return r[0], nil
}
