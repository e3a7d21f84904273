package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hxri-nxrxyxn/eyetap/config"
	"github.com/hxri-nxrxyxn/eyetap/domain"
	"github.com/hxri-nxrxyxn/eyetap/server"
	"github.com/hxri-nxrxyxn/eyetap/sink"
)

const (
	amqpAttempts = 5
	amqpBackoff  = 5 * time.Second
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		setupLogger("info", "text")
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventSink, closeSinks, err := buildSink(ctx, cfg)
	if err != nil {
		slog.Error("event sink setup failed", "error", err)
		os.Exit(1)
	}
	defer closeSinks()

	if err := server.New(cfg, eventSink).Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func setupLogger(levelName, format string) {
	level := slog.LevelInfo
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
}

func buildSink(ctx context.Context, cfg config.Config) (domain.EventSink, func(), error) {
	sinks := sink.Multi{sink.Log{}}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.RedisAddr != "" {
		rdb, err := sink.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { rdb.Close() })
		sinks = append(sinks, sink.NewRedis(rdb, cfg.RedisChannel))
		slog.Info("publishing gaze events to redis", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	}

	if cfg.RabbitMQURL != "" {
		conn, ch, err := sink.DialAMQP(ctx, cfg.RabbitMQURL, cfg.RabbitMQQueue, amqpAttempts, amqpBackoff)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			ch.Close()
			conn.Close()
		})
		sinks = append(sinks, sink.NewAMQP(ch, cfg.RabbitMQQueue))
		slog.Info("publishing gaze events to rabbitmq", "queue", cfg.RabbitMQQueue)
	}

	return sinks, closeAll, nil
}
