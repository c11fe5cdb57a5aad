package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "BOOKS"

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverRedis    = "redis"
)

// Config defines the structure of the configuration file.
// Environment variables are named after the nesting, e.g. BOOKS_SERVER_PORT.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Bolt     BoltConfig     `yaml:"bolt"`
	Redis    RedisConfig    `yaml:"redis"`
}

type ServerConfig struct {
	Host             string        `yaml:"host" envconfig:"HOST"`
	Port             int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	FieldErrorStatus int           `yaml:"field_error_status" envconfig:"FIELD_ERROR_STATUS"`
}

type LogConfig struct {
	Level      zapcore.Level `yaml:"level" envconfig:"LEVEL"`
	Production bool          `yaml:"production" envconfig:"PRODUCTION"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"DRIVER"`
}

type PostgresConfig struct {
	URL            string `yaml:"url" envconfig:"URL"`
	MigrationsPath string `yaml:"migrations_path" envconfig:"MIGRATIONS_PATH"`
}

type BoltConfig struct {
	FilePath string        `yaml:"file_path" envconfig:"FILE_PATH"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Bucket   string        `yaml:"bucket" envconfig:"BUCKET"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"ADDR"`
	Username string `yaml:"username" envconfig:"USERNAME"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB"`
	Key      string `yaml:"key" envconfig:"KEY"`
}

// LoadConfigFile decodes the yaml file into config. A missing or empty file leaves config untouched.
func LoadConfigFile(configFile string, config *Config) error {
	file, err := os.Open(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	err = yaml.NewDecoder(file).Decode(config)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadConfigEnvs reads the environment variables carrying prefix into config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// setDefaults fills every parameter that no source provided.
func setDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 10 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 10 * time.Second
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}
	if config.Server.FieldErrorStatus == 0 {
		config.Server.FieldErrorStatus = 405
	}
	if config.Storage.Driver == "" {
		config.Storage.Driver = DriverMemory
	}
	if config.Postgres.MigrationsPath == "" {
		config.Postgres.MigrationsPath = "./migrations"
	}
	if config.Bolt.Timeout == 0 {
		config.Bolt.Timeout = time.Second
	}
	if config.Bolt.Bucket == "" {
		config.Bolt.Bucket = "books"
	}
	if config.Redis.Key == "" {
		config.Redis.Key = "books"
	}
}

// Validate reports the first invalid parameter.
func Validate(config *Config) error {
	if config.Server.Host == "" || config.Server.Port <= 0 {
		return errors.New("make sure to set valid server address and port in configuration")
	}
	if config.Server.FieldErrorStatus < 400 || config.Server.FieldErrorStatus > 499 {
		return fmt.Errorf("field error status must be a client error code, got %d", config.Server.FieldErrorStatus)
	}

	switch config.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if config.Postgres.URL == "" {
			return errors.New("postgres storage requires a connection url")
		}
	case DriverBolt:
		if config.Bolt.FilePath == "" {
			return errors.New("bolt storage requires a file path")
		}
	case DriverRedis:
		if config.Redis.Addr == "" {
			return errors.New("redis storage requires an address")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}
	return nil
}

/*
Loads in order the yaml file, the dotenv file and the environment variables, later
sources overriding earlier ones. Missing files are skipped. Defaults are applied
last, then the result is validated.
*/
func Load(configFile, envFile string) (*Config, error) {
	config := &Config{}

	if err := LoadConfigFile(configFile, config); err != nil {
		return nil, fmt.Errorf("failed to load configurations from file: %w", err)
	}

	if _, err := os.Stat(envFile); err == nil {
		if err = godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to set environment configurations: %w", err)
		}
	}

	if err := LoadConfigEnvs(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("failed to load configurations from environment: %w", err)
	}

	setDefaults(config)
	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}
