package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds the runtime settings. Values come from the process
// environment, optionally seeded from a .env file.
type Config struct {
	ListenAddress string `envconfig:"LISTEN" default:":3002"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	// StorageType selects the durable medium: filesystem, memory, sqlite, s3, badger or postgres.
	// memory lasts only as long as the process.
	StorageType string `envconfig:"STORAGE_TYPE" default:"filesystem"`
	StorageKey  string `envconfig:"STORAGE_KEY" default:"CalorieTracker.s1"`

	LocalStoragePath string `envconfig:"LOCAL_STORAGE_PATH" default:"./data"`
	DataSourceName   string `envconfig:"DATA_SOURCE_NAME" default:"calories.db"`
	BadgerPath       string `envconfig:"BADGER_PATH" default:"./data/badger"`
	PostgresDSN      string `envconfig:"POSTGRES_DSN"`
	MemoryQuota      int    `envconfig:"MEMORY_QUOTA" default:"0"`

	S3BucketName string `envconfig:"S3_BUCKET_NAME"`
	S3Prefix     string `envconfig:"S3_PREFIX"`
	S3Region     string `envconfig:"S3_REGION"`
	S3Endpoint   string `envconfig:"S3_ENDPOINT"`
	S3PathStyle  bool   `envconfig:"S3_PATH_STYLE" default:"false"`

	// SeedFile points at HTML whose <li> entries seed an empty store on first run.
	SeedFile   string `envconfig:"SEED_FILE"`
	SeedListID string `envconfig:"SEED_LIST_ID"`

	StatusTimeout time.Duration `envconfig:"STATUS_TIMEOUT" default:"2500ms"`
	FormPage      string        `envconfig:"FORM_PAGE" default:"food-item.html"`
	ListPage      string        `envconfig:"LIST_PAGE" default:"food-list.html"`
}

var storageTypes = map[string]bool{
	"memory":     true,
	"filesystem": true,
	"sqlite":     true,
	"s3":         true,
	"badger":     true,
	"postgres":   true,
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}
	return FromEnv()
}

// FromEnv parses the environment without touching .env files.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that envconfig cannot express.
func (c *Config) Validate() error {
	c.StorageType = strings.ToLower(strings.TrimSpace(c.StorageType))
	if c.StorageType == "" {
		c.StorageType = "filesystem"
	}
	if !storageTypes[c.StorageType] {
		return fmt.Errorf("unsupported STORAGE_TYPE: %s", c.StorageType)
	}
	if c.StorageKey == "" {
		return fmt.Errorf("STORAGE_KEY must not be empty")
	}
	if c.StorageType == "s3" && c.S3BucketName == "" {
		return fmt.Errorf("S3_BUCKET_NAME environment variable must be set for s3 storage type")
	}
	if c.StorageType == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN environment variable must be set for postgres storage type")
	}
	if c.MemoryQuota < 0 {
		return fmt.Errorf("MEMORY_QUOTA must not be negative")
	}
	if c.StatusTimeout <= 0 {
		return fmt.Errorf("STATUS_TIMEOUT must be positive")
	}
	return nil
}
