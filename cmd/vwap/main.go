package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"itchvwap/api/grpcserver"
	"itchvwap/api/telemetry"
	"itchvwap/config"
	"itchvwap/domain/itch"
	"itchvwap/domain/vwap"
	"itchvwap/infra/codec"
	"itchvwap/infra/feed"
	"itchvwap/infra/kafka"
	"itchvwap/infra/outbox"
	"itchvwap/infra/redis"
	"itchvwap/infra/sequence"
	"itchvwap/infra/sink"
	"itchvwap/jobs/broadcaster"
	"itchvwap/service"
)

func main() {
	// ---------------- Config ----------------

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	// ---------------- Logger ----------------

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	logger = logger.With(zap.String("run_id", cfg.RunID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	_ = logger.Sync()

	if err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	mode, err := vwap.ParseMode(cfg.Report.Mode)
	if err != nil {
		return err
	}
	enc, err := codec.New(cfg.Codec)
	if err != nil {
		return err
	}

	// ---------------- Feed ----------------

	src, err := feed.Open(cfg.Feed.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	dec := itch.NewDecoder(src, itch.WithPayloadLength(itch.TagOrderCancel, cfg.Feed.CancelPayloadLen))
	logger.Info("feed opened",
		zap.String("path", src.Path),
		zap.Bool("gzip", src.Compressed),
		zap.Int("cancel_payload_len", cfg.Feed.CancelPayloadLen),
	)

	// ---------------- Background Jobs ----------------

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	var jobs sync.WaitGroup
	stopJobs := func() {
		cancelJobs()
		jobs.Wait()
	}
	defer stopJobs()

	// ---------------- Sinks ----------------

	// The report file is the only sink whose failure aborts the run.

	sinks := sink.NewMulti(sink.NewFile(cfg.Report.Output))
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Warn("sink close", zap.Error(err))
		}
	}()

	if cfg.Report.Echo {
		sinks.Add(sink.NewLog(logger))
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), enc, cfg.RunID)
		sinks.Add(sink.NewBestEffort("kafka", producer, logger))
		logger.Info("kafka sink enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		publisher := redis.NewPublisher(rdb, enc, cfg.RunID, cfg.Redis.TTL, logger.Named("redis"))
		sinks.Add(sink.NewBestEffort("redis", publisher, logger))
		logger.Info("redis sink enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var bc *broadcaster.Broadcaster
	if cfg.Outbox.Enabled {
		ob, err := outbox.Open(cfg.Outbox.Dir)
		if err != nil {
			return err
		}
		defer ob.Close()

		seqGen := sequence.New(0)
		if err := service.ResumeFromOutbox(ob, seqGen, logger); err != nil {
			return err
		}
		sinks.Add(sink.NewBestEffort("outbox", outbox.NewSink(ob, seqGen, enc, cfg.RunID), logger))

		producer, err := broadcaster.NewProducer(cfg.Outbox.Brokers)
		if err != nil {
			return fmt.Errorf("broadcaster producer: %w", err)
		}
		bc = broadcaster.New(ob, producer, cfg.Outbox.Topic, cfg.Outbox.Interval, logger)
		defer bc.Close()

		jobs.Add(1)
		go func() {
			defer jobs.Done()
			bc.Run(jobCtx)
		}()
		defer stopJobs()
	}

	if cfg.Telemetry.Addr != "" {
		hub := telemetry.NewHub(enc, cfg.RunID, logger)
		startTelemetry(jobCtx, &jobs, hub, cfg.Telemetry.Addr, logger)
		sinks.Add(sink.NewBestEffort("telemetry", hub, logger))
	}

	// ---------------- gRPC ----------------

	var health *grpcserver.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", cfg.GRPC.Addr, err)
		}
		health = grpcserver.New(logger)
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.Error("grpc server exited", zap.Error(err))
			}
		}()
		defer health.Stop()
		health.SetServing(true)
	}

	// ---------------- Service ----------------

	svc := service.NewFeedService(sinks, logger,
		vwap.WithMode(mode),
		vwap.WithPrecision(cfg.Report.Precision),
	)

	started := time.Now()
	runErr := svc.Run(ctx, dec)

	if health != nil {
		health.SetServing(false)
	}

	st := svc.Stats()
	logger.Info("run summary",
		zap.Uint64("messages", st.Messages),
		zap.Int("orders", st.Orders),
		zap.Int("executions", st.Executions),
		zap.Uint64("reports", st.Reports),
		zap.Uint64("hour", st.Hour),
		zap.Bool("session_ended", st.Stopped),
		zap.Duration("elapsed", time.Since(started)),
	)

	// ---------------- Shutdown ----------------

	// Stop the ticker before the final drain so only one pass touches the outbox.
	stopJobs()

	if bc != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := bc.Drain(drainCtx); err != nil {
			logger.Warn("outbox drain incomplete", zap.Error(err))
		}
		cancel()
	}

	if errors.Is(runErr, context.Canceled) {
		logger.Warn("interrupted", zap.Uint64("messages", st.Messages))
		return nil
	}
	return runErr
}

// startTelemetry runs the hub and its HTTP server as background jobs, so
// waiting on jobs also waits for clients to be closed.
func startTelemetry(ctx context.Context, jobs *sync.WaitGroup, hub *telemetry.Hub, addr string, logger *zap.Logger) {
	jobs.Add(2)
	go func() {
		defer jobs.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer jobs.Done()
		if err := hub.ListenAndServe(ctx, addr); err != nil {
			logger.Error("telemetry server", zap.Error(err))
		}
	}()
}
