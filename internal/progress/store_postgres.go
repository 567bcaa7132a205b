package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store. Max-merge and idempotent
// completion are enforced by the upserts themselves, so concurrent writers
// across processes cannot lose updates.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) MergeScore(ctx context.Context, learnerID, topicID string, score float64) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var stored float64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := ensureLearner(ctx, tx, learnerID); err != nil {
			return err
		}
		return tx.QueryRow(ctx,
			`INSERT INTO topic_mastery (learner_id, topic_id, score, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (learner_id, topic_id) DO UPDATE
			 SET score = GREATEST(topic_mastery.score, EXCLUDED.score),
			     updated_at = CASE WHEN EXCLUDED.score > topic_mastery.score
			                       THEN EXCLUDED.updated_at
			                       ELSE topic_mastery.updated_at END
			 RETURNING score`,
			learnerID,
			topicID,
			score,
		).Scan(&stored)
	})
	if err != nil {
		return 0, fmt.Errorf("merge score: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) CompleteChapter(ctx context.Context, learnerID, topicID, chapterID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var inserted bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := ensureLearner(ctx, tx, learnerID); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx,
			`INSERT INTO chapter_completions (learner_id, topic_id, chapter_id, completed_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (learner_id, topic_id, chapter_id) DO NOTHING`,
			learnerID,
			topicID,
			chapterID,
		)
		if err != nil {
			return err
		}
		inserted = cmd.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("complete chapter: %w", err)
	}
	return inserted, nil
}

// Record reads scores and completions inside one repeatable-read transaction
// so a concurrent write is either fully visible or not at all.
func (s *PostgresStore) Record(ctx context.Context, learnerID string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec := Record{
		LearnerID: learnerID,
		Scores:    map[string]float64{},
		Completed: map[string][]string{},
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return Record{}, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT topic_id, score, updated_at FROM topic_mastery WHERE learner_id = $1`,
		learnerID,
	)
	if err != nil {
		return Record{}, fmt.Errorf("query scores: %w", err)
	}
	for rows.Next() {
		var topicID string
		var score float64
		var updatedAt time.Time
		if err := rows.Scan(&topicID, &score, &updatedAt); err != nil {
			rows.Close()
			return Record{}, fmt.Errorf("scan score: %w", err)
		}
		rec.Scores[topicID] = score
		if updatedAt.After(rec.UpdatedAt) {
			rec.UpdatedAt = updatedAt
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("iterate scores: %w", err)
	}

	rows, err = tx.Query(ctx,
		`SELECT topic_id, chapter_id, completed_at
		 FROM chapter_completions
		 WHERE learner_id = $1
		 ORDER BY topic_id, chapter_id`,
		learnerID,
	)
	if err != nil {
		return Record{}, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var topicID, chapterID string
		var completedAt time.Time
		if err := rows.Scan(&topicID, &chapterID, &completedAt); err != nil {
			return Record{}, fmt.Errorf("scan completion: %w", err)
		}
		rec.Completed[topicID] = append(rec.Completed[topicID], chapterID)
		if completedAt.After(rec.UpdatedAt) {
			rec.UpdatedAt = completedAt
		}
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("iterate completions: %w", err)
	}

	return rec, nil
}

func ensureLearner(ctx context.Context, tx pgx.Tx, learnerID string) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO learners (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		learnerID,
	); err != nil {
		return fmt.Errorf("ensure learner: %w", err)
	}
	return nil
}
