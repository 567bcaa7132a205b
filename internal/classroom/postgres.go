package classroom

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresRegistry reads enrollments from the classrooms tables.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates a PostgresRegistry.
func NewPostgresRegistry(pool *pgxpool.Pool) (*PostgresRegistry, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	return &PostgresRegistry{pool: pool}, nil
}

func (r *PostgresRegistry) Classrooms(ctx context.Context, learnerID string) ([]Classroom, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name
		 FROM classroom_enrollments e
		 JOIN classrooms c ON c.id = e.classroom_id
		 WHERE e.learner_id = $1
		 ORDER BY c.name, c.id`,
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query classrooms: %w", err)
	}

	rooms, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Classroom])
	if err != nil {
		return nil, fmt.Errorf("scan classrooms: %w", err)
	}
	if rooms == nil {
		rooms = []Classroom{}
	}
	return rooms, nil
}

func (r *PostgresRegistry) Enroll(ctx context.Context, learnerID string, room Classroom) error {
	if err := validate(room); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO classrooms (id, name) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			room.ID, room.Name,
		); err != nil {
			return fmt.Errorf("upsert classroom: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO classroom_enrollments (classroom_id, learner_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			room.ID, learnerID,
		); err != nil {
			return fmt.Errorf("insert enrollment: %w", err)
		}
		return nil
	})
}
