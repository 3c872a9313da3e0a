package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glizzus/callsched/internal/config"
	"github.com/glizzus/callsched/internal/loop"
	"github.com/glizzus/callsched/internal/schedule"
	"github.com/glizzus/callsched/internal/worker"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var heartbeat = flag.String("heartbeat", "* * * * *", "Cron expression for the heartbeat task")

func newFiredHandler(ctx context.Context, redisConfig *config.RedisConfig) (worker.FiredHandler, func(), error) {
	if !redisConfig.Enabled() {
		slog.Warn("REDIS_ADDR is not set, fired callbacks will only be logged")
		return &worker.PrintingFiredHandler{}, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	closer := func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close redis client", slog.Any("error", err))
		}
	}
	return worker.NewRedisFiredHandler(rdb, redisConfig.Stream), closer, nil
}

func runWorker() error {
	flag.Parse()
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	schedConfig, err := config.NewSchedulerConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load scheduler config: %w", err)
	}
	level, err := schedConfig.Level()
	if err != nil {
		return err
	}
	slog.SetLogLoggerLevel(level)

	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, closeHandler, err := newFiredHandler(ctx, redisConfig)
	if err != nil {
		return err
	}
	defer closeHandler()

	forwarder := worker.NewForwarder(handler, schedConfig.MaxPending, slog.Default())
	l, err := loop.New(slog.Default(), schedule.WithConfig(schedConfig), schedule.WithObserver(forwarder.Observe))
	if err != nil {
		return fmt.Errorf("failed to create loop: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return forwarder.Run(gctx) })
	g.Go(func() error { return l.Run(gctx) })

	err = l.Call(gctx, func(s *schedule.Scheduler) error {
		beat, err := schedule.NewCronTask(s, "heartbeat", *heartbeat, func(any) {
			if next, ok := s.NextDeadline(); ok {
				slog.Info("heartbeat", slog.Int("pending", s.Stats().Pending), slog.Time("next", next))
			}
		})
		if err != nil {
			return err
		}
		upcoming, err := s.NextRunTimes(*heartbeat, 3)
		if err != nil {
			return err
		}
		slog.Info("Heartbeat armed", slog.Any("upcoming", upcoming))
		return beat.Start(nil)
	})
	if err != nil {
		stop()
		return errors.Join(fmt.Errorf("failed to arm heartbeat: %w", err), g.Wait())
	}

	slog.Info("Worker started", slog.String("heartbeat", *heartbeat), slog.Bool("redis", redisConfig.Enabled()))
	return g.Wait()
}

func main() {
	if err := runWorker(); err != nil {
		slog.Error("Worker encountered an error", slog.Any("error", err))
		os.Exit(1)
	}
}
