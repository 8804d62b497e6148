package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"itchvwap/domain/vwap"
	"itchvwap/infra/codec"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes every report synchronously, keyed by run id so a
// run's reports stay on one partition in order.
type Producer struct {
	writer MessageWriter
	codec  codec.Codec
	runID  string
	seq    uint64
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
}

func NewProducer(w MessageWriter, c codec.Codec, runID string) *Producer {
	return &Producer{writer: w, codec: c, runID: runID}
}

func (p *Producer) Publish(ctx context.Context, r vwap.Report) error {
	p.seq++
	value, err := p.codec.Encode(codec.FromReport(p.runID, p.seq, r))
	if err != nil {
		return fmt.Errorf("encode hour %d: %w", r.Hour, err)
	}
	return p.Send(ctx, []byte(p.runID), value)
}

func (p *Producer) Send(
	ctx context.Context,
	key []byte,
	value []byte,
) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte(p.codec.ContentType())},
		},
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
