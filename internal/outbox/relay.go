package outbox

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Relay drains pending outbox rows to Kafka. With no brokers configured the
// relay idles and rows accumulate until an operator drains them; the alert
// itself is already durable and logged at write time.
type Relay struct {
	store    Store
	brokers  []string
	logger   *log.Logger
	interval time.Duration

	writers map[string]*kafka.Writer
}

func NewRelay(store Store, brokersCSV string, logger *log.Logger) *Relay {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Relay{
		store:    store,
		brokers:  brokers,
		logger:   logger,
		interval: 2 * time.Second,
		writers:  make(map[string]*kafka.Writer),
	}
}

// Enabled reports whether a broker is configured.
func (r *Relay) Enabled() bool {
	return len(r.brokers) > 0
}

// Run drains the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	if !r.Enabled() {
		r.logger.Printf("outbox relay disabled: no kafka brokers configured")
		return
	}
	defer r.closeWriters()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Printf("outbox drain: %v", err)
			}
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) error {
	pending, err := r.store.FetchPending(ctx, 100)
	if err != nil {
		return err
	}
	for _, rec := range pending {
		writer := r.writerFor(rec.Topic)
		msg := kafka.Message{
			Key:   []byte(rec.Key),
			Value: rec.Payload,
			Time:  time.Now().UTC(),
		}
		if err := writer.WriteMessages(ctx, msg); err != nil {
			return err
		}
		if err := r.store.MarkSent(ctx, rec.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) writerFor(topic string) *kafka.Writer {
	if w, ok := r.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(r.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	r.writers[topic] = w
	return w
}

func (r *Relay) closeWriters() {
	for _, w := range r.writers {
		if err := w.Close(); err != nil {
			r.logger.Printf("close kafka writer: %v", err)
		}
	}
}
