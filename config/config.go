// Package config reads relay settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const minMessageSize = 1 << 20

type Config struct {
	Host            string
	Port            string
	MaxMessageSize  int64
	ForwardEvents   bool
	WriteWait       time.Duration
	PongWait        time.Duration
	PingInterval    time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	RedisAddr     string
	RedisChannel  string
	RabbitMQURL   string
	RabbitMQQueue string
}

func Default() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            "8765",
		MaxMessageSize:  4 * 1024 * 1024,
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingInterval:    54 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
		RedisChannel:    "gaze_events",
		RabbitMQQueue:   "gaze_events",
	}
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// FromEnv overlays non-empty environment values on Default. getenv is
// usually os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	str("HOST", &cfg.Host)
	str("PORT", &cfg.Port)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_CHANNEL", &cfg.RedisChannel)
	str("RABBITMQ_URL", &cfg.RabbitMQURL)
	str("RABBITMQ_QUEUE", &cfg.RabbitMQQueue)
	dur("WRITE_WAIT", &cfg.WriteWait)
	dur("PONG_WAIT", &cfg.PongWait)
	dur("PING_INTERVAL", &cfg.PingInterval)
	dur("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	if v := strings.TrimSpace(getenv("MAX_MESSAGE_SIZE")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_MESSAGE_SIZE: %w", err))
		} else {
			cfg.MaxMessageSize = n
		}
	}
	if v := strings.TrimSpace(getenv("FORWARD_EVENTS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FORWARD_EVENTS: %w", err))
		} else {
			cfg.ForwardEvents = b
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.MaxMessageSize < minMessageSize {
		return fmt.Errorf("max message size %d is below %d bytes", c.MaxMessageSize, minMessageSize)
	}
	if c.WriteWait <= 0 || c.PongWait <= 0 || c.PingInterval <= 0 {
		return errors.New("write wait, pong wait and ping interval must be positive")
	}
	if c.PingInterval >= c.PongWait {
		return fmt.Errorf("ping interval %s must be shorter than pong wait %s", c.PingInterval, c.PongWait)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
