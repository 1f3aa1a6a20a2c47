package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// PgxPool is the subset of pgxpool.Pool used by PostgresStore.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists turns in the chat_turns table. The bigserial id
// gives the append order.
type PostgresStore struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("chat: pgx pool required")
	}
	return &PostgresStore{
		pool:   pool,
		tracer: otel.Tracer("geminichat.internal.chat.postgres_store"),
	}
}

func (s *PostgresStore) Turns(ctx context.Context, userID string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "chat.postgres.turns")
	defer span.End()

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: lookup user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT role, content
		FROM chat_turns
		WHERE user_id = $1
		ORDER BY id ASC
	`, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: load turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.Role, &turn.Content); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("chat: scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: iterate turns: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) Append(ctx context.Context, userID string, turn Turn) error {
	ctx, span := s.tracer.Start(ctx, "chat.postgres.append")
	defer span.End()

	id, err := uuid.Parse(userID)
	if err != nil {
		return ErrUserNotFound
	}

	// Insert only when the user row exists so a deleted user cannot collect turns.
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO chat_turns (user_id, role, content)
		SELECT id, $2, $3 FROM users WHERE id = $1
	`, id, turn.Role, turn.Content)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: insert turn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) RemoveLast(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "chat.postgres.remove_last")
	defer span.End()

	id, err := uuid.Parse(userID)
	if err != nil {
		return ErrUserNotFound
	}
	_, err = s.pool.Exec(ctx, `
		DELETE FROM chat_turns
		WHERE id = (
			SELECT id FROM chat_turns WHERE user_id = $1 ORDER BY id DESC LIMIT 1
		)
	`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: delete last turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "chat.postgres.clear")
	defer span.End()

	id, err := uuid.Parse(userID)
	if err != nil {
		return ErrUserNotFound
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM chat_turns WHERE user_id = $1`, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: clear turns: %w", err)
	}
	return nil
}
