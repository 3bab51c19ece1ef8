package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// LedgerTopic is where settlement ledger entries are published for
// downstream reconciliation consumers.
const LedgerTopic = "settlement-ledger"

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher drains unpublished ledger entries to Kafka. It is an outbox
// poller: the entry is written to the ledger first, published later, so a
// broker outage never loses a settlement record.
type Publisher struct {
	ledger   Ledger
	writer   kafkaWriter
	interval time.Duration
	batch    int64
	log      *slog.Logger
}

func NewPublisher(ledger Ledger, writer kafkaWriter, interval time.Duration, log *slog.Logger) *Publisher {
	return &Publisher{ledger: ledger, writer: writer, interval: interval, batch: 50, log: log}
}

// Run polls until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.publishBatch(ctx); err != nil {
				p.log.Error("publishing ledger batch failed", "error", err)
			}
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) error {
	entries, err := p.ledger.Unpublished(ctx, p.batch)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		payload, err := json.Marshal(entry)
		if err != nil {
			p.log.Error("encoding ledger entry failed", "reference", entry.Reference, "error", err)
			continue
		}
		msg := kafka.Message{
			Key:   []byte(entry.Reference),
			Value: payload,
		}
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			// Leave the entry unpublished; the next tick retries it.
			return err
		}
		if err := p.ledger.MarkPublished(ctx, entry.ID); err != nil {
			p.log.Error("marking ledger entry published failed",
				"reference", entry.Reference, "error", err)
		}
	}
	return nil
}
