// Package postgres persists operation notifications for indexer-style
// consumers that want a queryable history.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityKeeper/internal/notify"
)

// Sink writes notifications to a Postgres table.
type Sink struct {
	pool *pgxpool.Pool
}

func NewSink(ctx context.Context, dsn string) (*Sink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Sink{pool: pool}, nil
}

func (s *Sink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Publish inserts one notification row.
func (s *Sink) Publish(ctx context.Context, n notify.Notification) error {
	payload, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("marshal notification data: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO position_notifications (
			kind, caller, position_id, emitted_at, data, created_at
		) VALUES ($1, $2, $3, $4, $5, now())
	`,
		string(n.Kind),
		n.Caller,
		n.PositionID,
		n.EmittedAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// PublishBatch inserts a batch of notifications in one round trip.
func (s *Sink) PublishBatch(ctx context.Context, notifications []notify.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, n := range notifications {
		payload, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("marshal notification data: %w", err)
		}
		batch.Queue(`
			INSERT INTO position_notifications (
				kind, caller, position_id, emitted_at, data, created_at
			) VALUES ($1, $2, $3, $4, $5, now())
		`,
			string(n.Kind),
			n.Caller,
			n.PositionID,
			n.EmittedAt,
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range notifications {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
