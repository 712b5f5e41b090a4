package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig возвращается, если конфигурация не прошла проверку
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config конфигурация сервиса
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Logs        LogsConfig        `toml:"logs"`
	Metrics     MetricsConfig     `toml:"metrics"`
	UserService UserServiceConfig `toml:"user_service"`
	RabbitMQ    RabbitMQConfig    `toml:"rabbitmq"`
	Redis       RedisConfig       `toml:"redis"`
	Sync        SyncConfig        `toml:"sync"`
}

// ServerConfig настройки HTTP сервера (таймауты в секундах)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig подключение к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// LogsConfig настройки логирования
type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// MetricsConfig настройки Prometheus
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// UserServiceConfig клиент справочника пользователей
type UserServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"`
}

func (u UserServiceConfig) TimeoutDuration() time.Duration {
	return time.Duration(u.Timeout) * time.Second
}

// RabbitMQConfig realtime-транспорт
type RabbitMQConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
	Prefetch int    `toml:"prefetch"`
}

// RedisConfig хранилище избранного
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// SyncConfig параметры синхронизации сессий
type SyncConfig struct {
	CountdownLookAheadMinutes int `toml:"countdown_look_ahead_minutes"`
	RefundWindowHours         int `toml:"refund_window_hours"`
	TickIntervalSeconds       int `toml:"tick_interval_seconds"`
}

func (s SyncConfig) CountdownLookAhead() time.Duration {
	return time.Duration(s.CountdownLookAheadMinutes) * time.Minute
}

func (s SyncConfig) RefundWindow() time.Duration {
	return time.Duration(s.RefundWindowHours) * time.Hour
}

func (s SyncConfig) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalSeconds) * time.Second
}

// Load читает конфигурацию из TOML файла, применяет значения по умолчанию
// и переопределения из окружения
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     10,
			WriteTimeout:    10,
			IdleTimeout:     60,
			ShutdownTimeout: 15,
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logs: LogsConfig{Level: "info"},
		Metrics: MetricsConfig{
			Path:        "/metrics",
			ServiceName: "booking_sync",
		},
		UserService: UserServiceConfig{Timeout: 5},
		RabbitMQ: RabbitMQConfig{
			Exchange: "booking_sync.events",
			Prefetch: 16,
		},
		Sync: SyncConfig{
			CountdownLookAheadMinutes: 60,
			RefundWindowHours:         24,
			TickIntervalSeconds:       30,
		},
	}
}

// applyEnv переопределяет секреты и адреса из окружения
func applyEnv(cfg *Config) {
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.UserService.URL, "USER_SERVICE_URL")
	setString(&cfg.RabbitMQ.URL, "RABBIT_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Logs.Level, "LOG_LEVEL")
	setInt(&cfg.Server.HTTPPort, "HTTP_PORT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	switch {
	case c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535:
		return fmt.Errorf("%w: server.http_port must be in 1..65535", ErrInvalidConfig)
	case c.Database.Host == "":
		return fmt.Errorf("%w: database.host is required", ErrInvalidConfig)
	case c.Database.DBName == "":
		return fmt.Errorf("%w: database.dbname is required", ErrInvalidConfig)
	case c.UserService.URL == "":
		return fmt.Errorf("%w: user_service.url is required", ErrInvalidConfig)
	case c.RabbitMQ.URL == "":
		return fmt.Errorf("%w: rabbitmq.url is required", ErrInvalidConfig)
	case c.RabbitMQ.Exchange == "":
		return fmt.Errorf("%w: rabbitmq.exchange is required", ErrInvalidConfig)
	case c.Redis.Addr == "":
		return fmt.Errorf("%w: redis.addr is required", ErrInvalidConfig)
	case c.Sync.CountdownLookAheadMinutes <= 0:
		return fmt.Errorf("%w: sync.countdown_look_ahead_minutes must be positive", ErrInvalidConfig)
	case c.Sync.RefundWindowHours <= 0:
		return fmt.Errorf("%w: sync.refund_window_hours must be positive", ErrInvalidConfig)
	case c.Sync.TickIntervalSeconds <= 0:
		return fmt.Errorf("%w: sync.tick_interval_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}
