package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	LogLevel string `yaml:"log_level"`

	MySQL struct {
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"mysql"`

	Redis struct {
		Addr     string `yaml:"addr"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers    []string `yaml:"brokers"`
		AlertTopic string   `yaml:"alert_topic"`
	} `yaml:"kafka"`

	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`

	Checkout struct {
		MaxRetries int `yaml:"max_retries"`
	} `yaml:"checkout"`

	Rollback struct {
		MaxRetries int `yaml:"max_retries"`
	} `yaml:"rollback"`
}

func Default() Config {
	var c Config
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":50051"
	c.LogLevel = "info"
	c.MySQL.DSN = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	c.MySQL.MaxOpenConns = 50
	c.MySQL.MaxIdleConns = 25
	c.Redis.Addr = "localhost:6379"
	c.Redis.PoolSize = 100
	c.Kafka.AlertTopic = "inventory-compensation-failed"
	c.Checkout.MaxRetries = 5
	c.Rollback.MaxRetries = 5
	return c
}

// Load starts from Default, applies the YAML file named by CONFIG_FILE if
// set, then environment overrides.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	c := Default()

	if path := getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse config file: %w", err)
		}
	}

	setString(getenv, "HTTP_ADDR", &c.HTTPAddr)
	setString(getenv, "GRPC_ADDR", &c.GRPCAddr)
	setString(getenv, "LOG_LEVEL", &c.LogLevel)
	setString(getenv, "MYSQL_DSN", &c.MySQL.DSN)
	setString(getenv, "REDIS_ADDR", &c.Redis.Addr)
	setString(getenv, "KAFKA_ALERT_TOPIC", &c.Kafka.AlertTopic)
	setString(getenv, "JAEGER_ENDPOINT", &c.Jaeger.Endpoint)
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if err := setInt(getenv, "CHECKOUT_MAX_RETRIES", &c.Checkout.MaxRetries); err != nil {
		return c, err
	}
	if err := setInt(getenv, "ROLLBACK_MAX_RETRIES", &c.Rollback.MaxRetries); err != nil {
		return c, err
	}

	return c, c.validate()
}

func (c Config) validate() error {
	if c.Checkout.MaxRetries < 1 {
		return fmt.Errorf("checkout.max_retries must be positive, got %d", c.Checkout.MaxRetries)
	}
	if c.Rollback.MaxRetries < 1 {
		return fmt.Errorf("rollback.max_retries must be positive, got %d", c.Rollback.MaxRetries)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the configured zerolog level, defaulting to info.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func setString(getenv func(string) string, key string, dst *string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

func setInt(getenv func(string) string, key string, dst *int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
