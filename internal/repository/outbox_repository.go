package repository

import (
	"context"
	"fmt"
	"time"

	"threadkart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// outboxRepository implements the OutboxRepository interface using PostgreSQL.
type outboxRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox repository.
func NewOutboxRepository(pool *pgxpool.Pool, logger zerolog.Logger) OutboxRepository {
	return &outboxRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "outbox").Logger(),
	}
}

// Enqueue inserts a pending notification within the provided transaction,
// so the notification intent commits or rolls back with the state change
// that produced it.
func (r *outboxRepository) Enqueue(ctx context.Context, tx pgx.Tx, msg *model.OutboxMessage) error {
	query := `
		INSERT INTO notification_outbox
			(id, order_id, kind, destination, params, image_url, status,
			 attempts, next_attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		msg.ID, msg.OrderID, msg.Kind, msg.Destination, msg.Params,
		msg.ImageURL, msg.Status, msg.Attempts, msg.NextAttempt, msg.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", msg.OrderID.String()).
			Str("kind", string(msg.Kind)).
			Msg("failed to enqueue notification")
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// ClaimDue atomically claims up to limit pending messages that are due.
// SKIP LOCKED keeps the API drainer and the sweeper drainer from claiming
// the same row.
func (r *outboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxMessage, error) {
	query := `
		UPDATE notification_outbox SET attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM notification_outbox
			WHERE status = $1 AND next_attempt <= $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, order_id, kind, destination, params, image_url, status,
		          attempts, next_attempt, last_error, created_at
	`

	rows, err := r.pool.Query(ctx, query, model.OutboxPending, now, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to claim outbox messages")
		return nil, fmt.Errorf("failed to claim outbox messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.OutboxMessage
	for rows.Next() {
		var m model.OutboxMessage
		err := rows.Scan(
			&m.ID, &m.OrderID, &m.Kind, &m.Destination, &m.Params, &m.ImageURL,
			&m.Status, &m.Attempts, &m.NextAttempt, &m.LastError, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkSent records successful delivery.
func (r *outboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notification_outbox SET status = $2, last_error = NULL WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, model.OutboxSent)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message sent: %w", err)
	}
	return nil
}

// Reschedule records a failed attempt, parking the message as FAILED when
// the retry budget is exhausted.
func (r *outboxRepository) Reschedule(ctx context.Context, id uuid.UUID, nextAttempt time.Time, sendErr string, park bool) error {
	status := model.OutboxPending
	if park {
		status = model.OutboxFailed
	}

	query := `UPDATE notification_outbox SET status = $2, next_attempt = $3, last_error = $4 WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id, status, nextAttempt, sendErr)
	if err != nil {
		return fmt.Errorf("failed to reschedule outbox message: %w", err)
	}

	if park {
		r.logger.Warn().
			Str("outbox_id", id.String()).
			Str("error", sendErr).
			Msg("notification parked after exhausting retries")
	}
	return nil
}
