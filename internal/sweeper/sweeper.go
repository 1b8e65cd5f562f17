// Package sweeper runs the periodic lifecycle maintenance pass: cancelling
// orders whose seller-response deadline elapsed, closing expired return
// windows and crediting the held earnings, purging stale OTPs, and draining
// any queued notifications before exiting.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"threadkart/internal/config"
	"threadkart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	leaseKey = "threadkart:sweeper:lease"
	leaseTTL = 2 * time.Minute
)

// Lease is a best-effort mutual exclusion guard around a sweep run. Every
// claim the sweeper makes is a conditional update, so correctness does not
// depend on the lease; it only keeps overlapping runs from wasting work.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context)
}

// RedisLease implements Lease with SET NX EX.
type RedisLease struct {
	client *redis.Client
	token  string
	logger zerolog.Logger
}

// NewRedisLease creates a lease backed by the given Redis client.
func NewRedisLease(client *redis.Client, logger zerolog.Logger) *RedisLease {
	return &RedisLease{
		client: client,
		token:  uuid.NewString(),
		logger: logger.With().Str("component", "sweeper_lease").Logger(),
	}
}

// Acquire attempts to take the lease. Returns false when another run holds it.
func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, leaseKey, l.token, leaseTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sweeper lease: %w", err)
	}
	return ok, nil
}

// Release drops the lease if this run still holds it. The TTL covers the
// case where the check-and-delete races with expiry.
func (l *RedisLease) Release(ctx context.Context) {
	held, err := l.client.Get(ctx, leaseKey).Result()
	if err != nil || held != l.token {
		return
	}
	if err := l.client.Del(ctx, leaseKey).Err(); err != nil {
		l.logger.Warn().Err(err).Msg("failed to release sweeper lease")
	}
}

// OrderFinalizer is the slice of the order service the sweeper needs to
// refund and notify for each order it cancels.
type OrderFinalizer interface {
	FinalizeTimeoutCancellation(ctx context.Context, order *model.Order) error
}

// Drainer drains the notification outbox once.
type Drainer interface {
	DrainOnce(ctx context.Context) (int, error)
}

// OrderClaims is the slice of the order repository the sweeper uses.
type OrderClaims interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	ClaimTimedOut(ctx context.Context, now time.Time, note string) ([]model.Order, error)
}

// EarningClaims is the slice of the earning repository the sweeper uses.
type EarningClaims interface {
	ClaimExpiredReturnWindows(ctx context.Context, tx pgx.Tx, now time.Time) ([]model.OrderItem, error)
	InsertEarning(ctx context.Context, tx pgx.Tx, earning *model.SellerEarning) error
}

// OTPPurger deletes OTP rows past a cutoff.
type OTPPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper executes one maintenance pass over the order lifecycle.
type Sweeper struct {
	lease       Lease
	orderRepo   OrderClaims
	earningRepo EarningClaims
	otpRepo     OTPPurger
	finalizer   OrderFinalizer
	drainer     Drainer
	cfg         config.LifecycleConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// New creates a new sweeper.
func New(
	lease Lease,
	orderRepo OrderClaims,
	earningRepo EarningClaims,
	otpRepo OTPPurger,
	finalizer OrderFinalizer,
	drainer Drainer,
	cfg config.LifecycleConfig,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		lease:       lease,
		orderRepo:   orderRepo,
		earningRepo: earningRepo,
		otpRepo:     otpRepo,
		finalizer:   finalizer,
		drainer:     drainer,
		cfg:         cfg,
		logger:      logger.With().Str("component", "sweeper").Logger(),
		now:         time.Now,
	}
}

// Run executes one full sweep. Individual steps are independent, so a
// failing step is logged and the remaining steps still run; the combined
// error is returned for the exit code.
func (s *Sweeper) Run(ctx context.Context) error {
	acquired, err := s.lease.Acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Info().Msg("another sweep is in progress, skipping")
		return nil
	}
	defer s.lease.Release(ctx)

	started := s.now()
	var errs []error

	if err := s.sweepTimeouts(ctx); err != nil {
		s.logger.Error().Err(err).Msg("timeout sweep failed")
		errs = append(errs, err)
	}
	if err := s.sweepReturnWindows(ctx); err != nil {
		s.logger.Error().Err(err).Msg("return window sweep failed")
		errs = append(errs, err)
	}
	if err := s.purgeOTPs(ctx); err != nil {
		s.logger.Error().Err(err).Msg("otp purge failed")
		errs = append(errs, err)
	}
	if _, err := s.drainer.DrainOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("outbox drain failed")
		errs = append(errs, err)
	}

	s.logger.Info().Dur("elapsed", s.now().Sub(started)).Msg("sweep completed")
	return errors.Join(errs...)
}

// sweepTimeouts cancels orders whose seller never responded in time. The
// claim is a single conditional update, so an order accepted between the
// deadline elapsing and the sweep running is left alone.
func (s *Sweeper) sweepTimeouts(ctx context.Context) error {
	now := s.now()
	note := fmt.Sprintf("[%s] Auto-cancelled: no seller response within %s\n",
		now.Format(time.RFC3339), s.cfg.SellerResponseWindow)

	orders, err := s.orderRepo.ClaimTimedOut(ctx, now, note)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}

	s.logger.Info().Int("count", len(orders)).Msg("cancelling timed-out orders")

	var errs []error
	for i := range orders {
		order := &orders[i]
		if err := s.finalizer.FinalizeTimeoutCancellation(ctx, order); err != nil {
			// The order is already CANCELLED; the refund is retried by
			// reconciliation, so keep going.
			s.logger.Error().
				Err(err).
				Str("order_number", order.OrderNumber).
				Msg("failed to finalize timeout cancellation")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sweepReturnWindows completes expired return windows and credits the held
// seller earnings in the same transaction as the claim.
func (s *Sweeper) sweepReturnWindows(ctx context.Context) (err error) {
	now := s.now()

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	items, err := s.earningRepo.ClaimExpiredReturnWindows(ctx, tx, now)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return tx.Commit(ctx)
	}

	credited := 0
	for _, item := range items {
		if item.SellerID == nil {
			s.logger.Warn().
				Str("order_item_id", item.ID.String()).
				Msg("expired return window on item with no seller, skipping earning")
			continue
		}
		gross := item.Amount()
		commission := gross * s.cfg.CommissionRate
		earning := &model.SellerEarning{
			ID:                uuid.New(),
			SellerID:          *item.SellerID,
			OrderItemID:       item.ID,
			Type:              model.EarningTypePostReturnWindow,
			Amount:            gross - commission,
			Commission:        commission,
			CreditedToBalance: true,
			CreditedAt:        &now,
			CreatedAt:         now,
		}
		if err = s.earningRepo.InsertEarning(ctx, tx, earning); err != nil {
			return err
		}
		credited++
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit return window sweep: %w", err)
	}

	s.logger.Info().
		Int("completed", len(items)).
		Int("credited", credited).
		Msg("closed expired return windows")
	return nil
}

// purgeOTPs deletes OTP rows past the retention cutoff.
func (s *Sweeper) purgeOTPs(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.OTPRetention)
	purged, err := s.otpRepo.PurgeExpired(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.Info().Int64("purged", purged).Msg("purged expired otps")
	}
	return nil
}
