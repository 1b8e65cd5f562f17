package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"threadkart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// otpRepository implements the OTPRepository interface using PostgreSQL.
type otpRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOTPRepository creates a new PostgreSQL-backed OTP repository.
func NewOTPRepository(pool *pgxpool.Pool, logger zerolog.Logger) OTPRepository {
	return &otpRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "otp").Logger(),
	}
}

// Create inserts a new OTP row.
func (r *otpRepository) Create(ctx context.Context, otp *model.WhatsAppOTP) error {
	query := `
		INSERT INTO whatsapp_otps (id, phone_number, otp_code, expires_at, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		otp.ID, otp.PhoneNumber, otp.OTPCode, otp.ExpiresAt, otp.Verified, otp.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("phone", otp.PhoneNumber).Msg("failed to create otp")
		return fmt.Errorf("failed to create otp: %w", err)
	}
	return nil
}

// GetActiveByPhone retrieves the most recent unverified OTP for a phone number.
func (r *otpRepository) GetActiveByPhone(ctx context.Context, phone string) (*model.WhatsAppOTP, error) {
	query := `
		SELECT id, phone_number, otp_code, expires_at, verified, created_at
		FROM whatsapp_otps
		WHERE phone_number = $1 AND NOT verified
		ORDER BY created_at DESC
		LIMIT 1
	`

	var otp model.WhatsAppOTP
	err := r.pool.QueryRow(ctx, query, phone).Scan(
		&otp.ID, &otp.PhoneNumber, &otp.OTPCode, &otp.ExpiresAt, &otp.Verified, &otp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}
	return &otp, nil
}

// MarkVerified consumes an OTP.
func (r *otpRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE whatsapp_otps SET verified = TRUE WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark otp verified: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows whose expiry is before the cutoff.
func (r *otpRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM whatsapp_otps WHERE expires_at < $1`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to purge expired otps")
		return 0, fmt.Errorf("failed to purge expired otps: %w", err)
	}

	if tag.RowsAffected() > 0 {
		r.logger.Info().Int64("purged", tag.RowsAffected()).Msg("purged expired otp rows")
	}
	return tag.RowsAffected(), nil
}
