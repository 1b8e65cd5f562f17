// Package outbox drains queued WhatsApp notifications. Notification intents
// are written transactionally with the order state change that produced
// them; this worker is the only place sends actually happen, so delivery
// retries never re-run business logic.
package outbox

import (
	"context"
	"time"

	"threadkart/internal/config"
	"threadkart/internal/model"
	"threadkart/internal/repository"
	"threadkart/internal/whatsapp"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// rescheduleDelay caps how far out a failed message is pushed.
const maxRescheduleDelay = 30 * time.Minute

// OrderFlags is the slice of the order repository the worker needs to
// record delivery on the order row.
type OrderFlags interface {
	SetNotifiedFlag(ctx context.Context, orderID uuid.UUID, kind model.NotificationKind) error
}

// Worker drains the notification outbox.
type Worker struct {
	outboxRepo repository.OutboxRepository
	orderRepo  OrderFlags
	sender     whatsapp.Sender
	cfg        config.OutboxConfig
	logger     zerolog.Logger

	// newBackOff builds the in-drain retry policy for a single send.
	newBackOff func() backoff.BackOff
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo repository.OutboxRepository,
	orderRepo OrderFlags,
	sender whatsapp.Sender,
	cfg config.OutboxConfig,
	logger zerolog.Logger,
) *Worker {
	return &Worker{
		outboxRepo: outboxRepo,
		orderRepo:  orderRepo,
		sender:     sender,
		cfg:        cfg,
		logger:     logger.With().Str("worker", "outbox").Logger(),
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 500 * time.Millisecond
			bo.MaxElapsedTime = 10 * time.Second
			return bo
		},
	}
}

// Run drains the outbox on an interval until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.DrainInterval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.cfg.DrainInterval).Msg("outbox worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("outbox worker stopped")
			return
		case <-ticker.C:
			if _, err := w.DrainOnce(ctx); err != nil {
				w.logger.Error().Err(err).Msg("outbox drain failed")
			}
		}
	}
}

// DrainOnce claims one batch of due messages and attempts delivery. Returns
// the number of messages delivered.
func (w *Worker) DrainOnce(ctx context.Context) (int, error) {
	msgs, err := w.outboxRepo.ClaimDue(ctx, time.Now(), w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range msgs {
		if w.deliver(ctx, &msgs[i]) {
			sent++
		}
	}

	if len(msgs) > 0 {
		w.logger.Info().
			Int("claimed", len(msgs)).
			Int("sent", sent).
			Msg("outbox batch drained")
	}
	return sent, nil
}

// deliver sends one message, retrying transient failures briefly before
// handing the message back to the queue with a pushed-out next attempt.
func (w *Worker) deliver(ctx context.Context, msg *model.OutboxMessage) bool {
	operation := func() error {
		return w.sender.Send(ctx, msg)
	}

	sendErr := backoff.Retry(operation, backoff.WithContext(w.newBackOff(), ctx))
	if sendErr != nil {
		park := msg.Attempts >= w.cfg.MaxAttempts
		next := time.Now().Add(rescheduleDelay(msg.Attempts))
		if err := w.outboxRepo.Reschedule(ctx, msg.ID, next, sendErr.Error(), park); err != nil {
			w.logger.Error().Err(err).Str("outbox_id", msg.ID.String()).Msg("failed to reschedule message")
		}
		return false
	}

	if err := w.outboxRepo.MarkSent(ctx, msg.ID); err != nil {
		// The send went out; worst case the message is retried and the
		// recipient sees a duplicate.
		w.logger.Error().Err(err).Str("outbox_id", msg.ID.String()).Msg("failed to mark message sent")
		return true
	}

	if err := w.orderRepo.SetNotifiedFlag(ctx, msg.OrderID, msg.Kind); err != nil {
		w.logger.Error().
			Err(err).
			Str("order_id", msg.OrderID.String()).
			Str("kind", string(msg.Kind)).
			Msg("failed to set notified flag")
	}
	return true
}

// rescheduleDelay doubles per attempt, capped at maxRescheduleDelay.
func rescheduleDelay(attempts int) time.Duration {
	delay := time.Minute
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxRescheduleDelay {
			return maxRescheduleDelay
		}
	}
	return delay
}
