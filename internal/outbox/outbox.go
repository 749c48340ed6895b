// Package outbox gives checkout a durable channel for events and operational
// alerts: rows are written alongside the transaction that produced them and
// relayed to Kafka asynchronously, so an alert is never lost to a broker
// outage.
package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Record struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

// Store persists and drains outbox records.
type Store interface {
	Insert(ctx context.Context, eventID, topic, key string, payload any) error
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

type postgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Insert(ctx context.Context, eventID, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO checkout_outbox (event_id, topic, key, payload)
VALUES ($1, $2, $3, $4)
`, eventID, topic, key, data)
	return err
}

func (s *postgresStore) FetchPending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, event_id, topic, key, payload, created_at, sent_at
FROM checkout_outbox
WHERE sent_at IS NULL
ORDER BY id
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *postgresStore) MarkSent(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE checkout_outbox SET sent_at = now() WHERE id = $1`, id)
	return err
}

// memoryStore keeps records in process for tests and databaseless runs.
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	recs   []Record
}

func NewMemory() Store {
	return &memoryStore{}
}

func (s *memoryStore) Insert(_ context.Context, eventID, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.recs = append(s.recs, Record{
		ID:        s.nextID,
		EventID:   eventID,
		Topic:     topic,
		Key:       key,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *memoryStore) FetchPending(_ context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.recs {
		if rec.SentAt == nil {
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memoryStore) MarkSent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recs {
		if s.recs[i].ID == id {
			now := time.Now().UTC()
			s.recs[i].SentAt = &now
		}
	}
	return nil
}
