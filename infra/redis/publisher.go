// Package redis mirrors the latest VWAP per instrument into Redis and fans
// updates out over pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"itchvwap/domain/vwap"
	"itchvwap/infra/codec"
)

// Client abstracts the connection so tests can swap in a pipeline spy.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Pipeline() redis.Pipeliner
	Close() error
}

const (
	keyLatest     = "vwap:latest"
	keyPrefix     = "vwap:"
	channelPrefix = "vwap."
)

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Publisher writes each report in one pipeline round trip:
// SET vwap:<symbol>, PUBLISH vwap.<symbol> per line, then SET vwap:latest.
type Publisher struct {
	rdb    Client
	codec  codec.Codec
	runID  string
	ttl    time.Duration
	logger *zap.Logger
	seq    uint64
}

func NewPublisher(rdb Client, c codec.Codec, runID string, ttl time.Duration, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, codec: c, runID: runID, ttl: ttl, logger: logger}
}

type symbolUpdate struct {
	RunID     string `json:"run_id"`
	Hour      uint64 `json:"hour"`
	Timestamp uint64 `json:"timestamp"`
	Stock     string `json:"stock"`
	Shares    uint64 `json:"shares"`
	VWAP      string `json:"vwap"`
}

func (p *Publisher) Publish(ctx context.Context, r vwap.Report) error {
	p.seq++
	latest, err := p.codec.Encode(codec.FromReport(p.runID, p.seq, r))
	if err != nil {
		return fmt.Errorf("encode hour %d: %w", r.Hour, err)
	}

	pipe := p.rdb.Pipeline()
	for _, l := range r.Lines {
		payload, err := json.Marshal(symbolUpdate{
			RunID:     p.runID,
			Hour:      r.Hour,
			Timestamp: r.Timestamp,
			Stock:     l.Stock,
			Shares:    l.Shares,
			VWAP:      l.VWAP.String(),
		})
		if err != nil {
			return err
		}
		pipe.Set(ctx, keyPrefix+l.Stock, payload, p.ttl)
		pipe.Publish(ctx, channelPrefix+l.Stock, payload)
	}
	pipe.Set(ctx, keyLatest, latest, p.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Error("redis pipeline error", zap.Error(err), zap.Uint64("hour", r.Hour))
		return fmt.Errorf("redis publish hour %d: %w", r.Hour, err)
	}
	p.logger.Debug("published", zap.Uint64("hour", r.Hour), zap.Int("symbols", len(r.Lines)))
	return nil
}

func (p *Publisher) Close() error {
	return p.rdb.Close()
}
