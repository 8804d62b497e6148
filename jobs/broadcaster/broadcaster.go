package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"itchvwap/infra/outbox"
)

// Broadcaster drains the report outbox to Kafka.
type Broadcaster struct {
	outbox     *outbox.Outbox
	producer   sarama.SyncProducer
	topic      string
	interval   time.Duration
	maxRetries uint32
	logger     *zap.Logger
}

const DefaultMaxRetries = 5

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	return sarama.NewSyncProducer(brokers, cfg)
}

func New(
	ob *outbox.Outbox,
	producer sarama.SyncProducer,
	topic string,
	interval time.Duration,
	logger *zap.Logger,
) *Broadcaster {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Broadcaster{
		outbox:     ob,
		producer:   producer,
		topic:      topic,
		interval:   interval,
		maxRetries: DefaultMaxRetries,
		logger:     logger.Named("broadcaster"),
	}
}

// ------------------------------------------------
// RUN LOOP
// ------------------------------------------------

// Run delivers pending records on every tick until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	b.logger.Info("started", zap.String("topic", b.topic), zap.Duration("interval", b.interval))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stopped")
			return

		case <-ticker.C:
			if _, err := b.replayOnce(); err != nil {
				b.logger.Error("outbox scan failed", zap.Error(err))
			}
		}
	}
}

// Drain repeats delivery passes until nothing is left to send, every
// remaining record has exhausted its retries, or ctx is done.
func (b *Broadcaster) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := b.replayOnce()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// ------------------------------------------------
// REPLAY LOGIC
// ------------------------------------------------

type pending struct {
	seq uint64
	rec outbox.Record
}

// replayOnce attempts every NEW record, and every FAILED or SENT record with
// retries left. Delivery is synchronous within a pass, so a record found in
// SENT was interrupted mid-flight by a crash and counts as one failed
// attempt. Interrupted records with no retries left are parked as FAILED.
// It returns the number of attempts made.
func (b *Broadcaster) replayOnce() (int, error) {
	var batch []pending

	collect := func(seq uint64, rec outbox.Record) error {
		batch = append(batch, pending{seq: seq, rec: rec})
		return nil
	}
	if err := b.outbox.ScanByState(outbox.StateNew, collect); err != nil {
		return 0, err
	}
	if err := b.outbox.ScanByState(outbox.StateFailed, func(seq uint64, rec outbox.Record) error {
		if rec.Retries >= b.maxRetries {
			return nil
		}
		return collect(seq, rec)
	}); err != nil {
		return 0, err
	}
	var exhausted []pending
	if err := b.outbox.ScanByState(outbox.StateSent, func(seq uint64, rec outbox.Record) error {
		rec.Retries++
		if rec.Retries > b.maxRetries {
			exhausted = append(exhausted, pending{seq: seq, rec: rec})
			return nil
		}
		b.logger.Warn("redelivering interrupted record", zap.Uint64("seq", seq), zap.Uint32("retries", rec.Retries))
		return collect(seq, rec)
	}); err != nil {
		return 0, err
	}
	for _, p := range exhausted {
		if err := b.outbox.UpdateState(p.seq, outbox.StateFailed, p.rec.Retries-1); err != nil {
			return 0, err
		}
	}

	for _, p := range batch {
		b.deliver(p.seq, p.rec)
	}
	return len(batch), nil
}

func (b *Broadcaster) deliver(seq uint64, rec outbox.Record) {
	// 1. Mark SENT (idempotent)
	if err := b.outbox.UpdateState(seq, outbox.StateSent, rec.Retries); err != nil {
		b.logger.Error("mark sent", zap.Uint64("seq", seq), zap.Error(err))
		return
	}

	// 2. Publish to Kafka
	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(seq, 10)),
		Value: sarama.ByteEncoder(rec.Payload),
	}
	partition, offset, err := b.producer.SendMessage(msg)
	if err != nil {
		retries := rec.Retries + 1
		b.logger.Warn("send failed", zap.Uint64("seq", seq), zap.Uint32("retries", retries), zap.Error(err))
		if err := b.outbox.UpdateState(seq, outbox.StateFailed, retries); err != nil {
			b.logger.Error("mark failed", zap.Uint64("seq", seq), zap.Error(err))
		}
		return
	}

	// 3. Mark ACKED
	if err := b.outbox.UpdateState(seq, outbox.StateAcked, rec.Retries); err != nil {
		b.logger.Error("mark acked", zap.Uint64("seq", seq), zap.Error(err))
		return
	}
	b.logger.Debug("delivered", zap.Uint64("seq", seq), zap.Int32("partition", partition), zap.Int64("offset", offset))
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
