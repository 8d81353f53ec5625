package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/uhyunpark/marketcore/pkg/app/core/ledger"
	"github.com/uhyunpark/marketcore/pkg/wire"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends one message per trade, keyed by item so all of an
// item's trades land on one partition. Hooks run after the item lock is
// released, so two placements on the same item may publish out of order;
// consumers order by TradeID. The value is the trade in its wire form.
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.SugaredLogger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.SugaredLogger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
	}
	// async writes report failures here instead of to the caller
	w.Completion = func(msgs []kafka.Message, err error) {
		if err != nil {
			logger.Warnw("kafka_publish_failed", "topic", topic, "messages", len(msgs), "err", err)
		}
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

func newKafkaPublisherWithWriter(w messageWriter, logger *zap.SugaredLogger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

func (p *KafkaPublisher) PublishTrades(ctx context.Context, item string, trades []ledger.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(trades))
	for _, tr := range trades {
		value, err := json.Marshal(wire.NewTradeView(tr))
		if err != nil {
			return fmt.Errorf("encode trade %d: %w", tr.TradeID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(item),
			Value:   value,
			Headers: []kafka.Header{{Key: "type", Value: []byte("trade")}},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d trades for %s: %w", len(msgs), item, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
