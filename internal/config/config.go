package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEnvFile is loaded when present and FEEDBACK_ENV_FILE is unset.
const DefaultEnvFile = ".env"

// Config captures the settings required to boot the feedback engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Rules     RulesConfig     `yaml:"rules"`
	Cache     CacheConfig     `yaml:"cache"`
}

// ServerConfig controls the gRPC and HTTP listeners.
type ServerConfig struct {
	GRPCAddress     string        `yaml:"grpcAddress"`
	HTTPAddress     string        `yaml:"httpAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// StoreConfig selects and configures the feedback backend.
type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	Path          string        `yaml:"path"`
	DSN           string        `yaml:"dsn"`
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watchDebounce"`
}

// AnalyticsConfig tunes report defaults.
type AnalyticsConfig struct {
	Threshold     float64       `yaml:"threshold"`
	TopDimensions int           `yaml:"topDimensions"`
	TopIssues     int           `yaml:"topIssues"`
	RecentWindow  time.Duration `yaml:"recentWindow"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig controls rule-pack loading for the recommender.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls caching of generated reports.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ReportTTL    time.Duration `yaml:"reportTTL"`
}

// Store backends.
const (
	BackendFile     = "file"
	BackendLog      = "log"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Load initialises Config from defaults, a YAML file, an optional .env file
// and environment overrides, in that order. Variables already present in the
// environment win over the .env file.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv("FEEDBACK_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile() error {
	envFile := os.Getenv("FEEDBACK_ENV_FILE")
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", envFile, err)
	}
	return nil
}

// Validate rejects settings the engine cannot start with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendLog:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s backend", c.Store.Backend)
		}
	case BackendSQLite, BackendPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s backend", c.Store.Backend)
		}
		if c.Store.Watch {
			return errors.New("store.watch is only supported by file and log backends")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Analytics.TopDimensions <= 0 || c.Analytics.TopIssues <= 0 {
		return errors.New("analytics top counts must be positive")
	}
	if c.Analytics.Threshold <= 0 {
		return errors.New("analytics.threshold must be positive")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			GRPCAddress:     ":50051",
			HTTPAddress:     ":8080",
			GracefulTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Backend:       BackendFile,
			Path:          "feedback_data.json",
			WatchDebounce: 250 * time.Millisecond,
		},
		Analytics: AnalyticsConfig{
			Threshold:     4.0,
			TopDimensions: 3,
			TopIssues:     5,
			RecentWindow:  7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
		Cache: CacheConfig{
			Backend:      "none",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			ReportTTL:    30 * time.Second,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FEEDBACK_GRPC_ADDRESS"); v != "" {
		cfg.Server.GRPCAddress = v
	}
	if v := os.Getenv("FEEDBACK_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("FEEDBACK_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("FEEDBACK_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FEEDBACK_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("FEEDBACK_STORE_WATCH"); v != "" {
		cfg.Store.Watch = truthy(v)
	}
	if v := os.Getenv("FEEDBACK_ANALYTICS_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analytics.Threshold = f
		}
	}
	if v := os.Getenv("FEEDBACK_ANALYTICS_TOP_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analytics.TopDimensions = n
		}
	}
	if v := os.Getenv("FEEDBACK_ANALYTICS_TOP_ISSUES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analytics.TopIssues = n
		}
	}
	if v := os.Getenv("FEEDBACK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FEEDBACK_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("FEEDBACK_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("FEEDBACK_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("FEEDBACK_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("FEEDBACK_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("FEEDBACK_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("FEEDBACK_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("FEEDBACK_CACHE_TLS"); truthy(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("FEEDBACK_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	durations := map[string]*time.Duration{
		"FEEDBACK_GRACEFUL_TIMEOUT":     &cfg.Server.GracefulTimeout,
		"FEEDBACK_STORE_WATCH_DEBOUNCE": &cfg.Store.WatchDebounce,
		"FEEDBACK_ANALYTICS_RECENT":     &cfg.Analytics.RecentWindow,
		"FEEDBACK_CACHE_DIAL_TIMEOUT":   &cfg.Cache.DialTimeout,
		"FEEDBACK_CACHE_READ_TIMEOUT":   &cfg.Cache.ReadTimeout,
		"FEEDBACK_CACHE_WRITE_TIMEOUT":  &cfg.Cache.WriteTimeout,
		"FEEDBACK_CACHE_REPORT_TTL":     &cfg.Cache.ReportTTL,
	}
	for key, target := range durations {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*target = d
			}
		}
	}
}

func truthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
