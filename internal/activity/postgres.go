package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresLog stores activity in the activity_events table.
type PostgresLog struct {
	pool *pgxpool.Pool
}

func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

func (l *PostgresLog) Record(ctx context.Context, entry Entry) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("activity log pool is nil")
	}
	entry, err := prepare(entry)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = l.pool.Exec(ctx,
		`INSERT INTO activity_events (id, learner_id, kind, topic_id, duration_seconds, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
		entry.ID,
		entry.LearnerID,
		string(entry.Kind),
		nullIfEmpty(entry.TopicID),
		int64(entry.Duration/time.Second),
		entry.At,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	slog.Debug("activity logged",
		"kind", entry.Kind,
		"learner_id", entry.LearnerID,
		"topic_id", entry.TopicID,
	)
	return nil
}

func (l *PostgresLog) Entries(ctx context.Context, learnerID string) ([]Entry, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("activity log pool is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := l.pool.Query(ctx,
		`SELECT id::text, kind, topic_id, duration_seconds, created_at
		 FROM activity_events
		 WHERE learner_id = $1
		 ORDER BY created_at ASC`,
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := Entry{LearnerID: learnerID}
		var kind string
		var topicID *string
		var seconds int64
		if err := rows.Scan(&e.ID, &kind, &topicID, &seconds, &e.At); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.Kind = Kind(kind)
		if topicID != nil {
			e.TopicID = *topicID
		}
		e.Duration = time.Duration(seconds) * time.Second
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	return entries, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
