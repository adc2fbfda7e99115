package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"canteen/logger"
)

const envPrefix = "CANTEEN_"

var validate = validator.New()

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	Mode            string        `yaml:"mode" validate:"omitempty,oneof=debug release test"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
	AllowOrigins    []string      `yaml:"allow_origins"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" validate:"required,oneof=mysql postgres sqlite memory"`
	DSN      string `yaml:"dsn" validate:"required_if=Driver sqlite"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`

	MaxOpenConns int  `yaml:"max_open_conns" validate:"min=0"`
	MaxIdleConns int  `yaml:"max_idle_conns" validate:"min=0"`
	Migrate      bool `yaml:"migrate"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" validate:"required_if=Enabled true"`
	Password string        `yaml:"password"`
	Database int           `yaml:"database" validate:"min=0"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl" validate:"min=0"`
}

type RabbitMQConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url" validate:"required_if=Enabled true"`
	Exchange       string        `yaml:"exchange"`
	PublishTimeout time.Duration `yaml:"publish_timeout" validate:"min=0"`
}

type EngineConfig struct {
	// LockTimeout bounds how long a placement waits for a stock row lock.
	LockTimeout time.Duration `yaml:"lock_timeout" validate:"min=0"`
}

type SeedConfig struct {
	Path string `yaml:"path"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Engine   EngineConfig   `yaml:"engine"`
	Log      logger.Config  `yaml:"log"`
	Seed     SeedConfig     `yaml:"seed"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:  "memory",
			Migrate: true,
		},
		Engine: EngineConfig{LockTimeout: 2 * time.Second},
		Log:    logger.DefaultConfig(),
	}
}

// Load reads the YAML file at filename over the defaults, then applies
// CANTEEN_* environment overrides and validates the result. Variables from a
// .env file in the working directory are loaded first; they never replace
// variables already set. An empty filename skips the YAML step.
func Load(filename string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	config := Default()
	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			return Config{}, err
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", filename, err)
		}
	}

	if err := applyEnv(&config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("invalid config: database.dsn or database.host is required for %s", c.Database.Driver)
		}
	}
	return nil
}

func applyEnv(c *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("SERVER_ADDR", &c.Server.Addr)
	str("SERVER_MODE", &c.Server.Mode)

	str("DB_DRIVER", &c.Database.Driver)
	str("DB_DSN", &c.Database.DSN)
	str("DB_USER", &c.Database.Username)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_HOST", &c.Database.Host)
	str("DB_PORT", &c.Database.Port)
	str("DB_NAME", &c.Database.Database)

	if v, ok := os.LookupEnv(envPrefix + "REDIS_ADDR"); ok {
		c.Redis.Addr = v
		c.Redis.Enabled = v != ""
	}
	str("REDIS_PASSWORD", &c.Redis.Password)
	if v, ok := os.LookupEnv(envPrefix + "REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %w", envPrefix, err)
		}
		c.Redis.Database = n
	}

	if v, ok := os.LookupEnv(envPrefix + "RABBITMQ_URL"); ok {
		c.RabbitMQ.URL = v
		c.RabbitMQ.Enabled = v != ""
	}

	if err := dur("LOCK_TIMEOUT", &c.Engine.LockTimeout); err != nil {
		return err
	}

	if v, ok := os.LookupEnv(envPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = logger.Level(v)
	}
	str("LOG_FORMAT", &c.Log.Format)

	str("SEED_PATH", &c.Seed.Path)
	return nil
}
