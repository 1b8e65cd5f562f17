package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"threadkart/internal/config"
	"threadkart/internal/model"
	"threadkart/internal/repository"
	"threadkart/internal/whatsapp"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// authService implements AuthService: WhatsApp OTP login for sellers.
type authService struct {
	otpRepo    repository.OTPRepository
	sellerRepo repository.SellerRepository
	sender     whatsapp.Sender
	authCfg    config.AuthConfig
	otpTTL     time.Duration
	logger     zerolog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	otpRepo repository.OTPRepository,
	sellerRepo repository.SellerRepository,
	sender whatsapp.Sender,
	authCfg config.AuthConfig,
	otpTTL time.Duration,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		otpRepo:    otpRepo,
		sellerRepo: sellerRepo,
		sender:     sender,
		authCfg:    authCfg,
		otpTTL:     otpTTL,
		logger:     logger.With().Str("service", "auth").Logger(),
	}
}

// SendOTP generates a six digit code, stores it and delivers it over
// WhatsApp. The send is synchronous: the caller is waiting on the code.
func (s *authService) SendOTP(ctx context.Context, phone string) error {
	normalized := whatsapp.NormalizePhone(phone)
	if normalized == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "A valid phone number is required")
	}

	seller, err := s.sellerRepo.GetByPhone(ctx, normalized)
	if err != nil {
		return err
	}
	if seller == nil {
		// Do not reveal which numbers have accounts.
		s.logger.Warn().Str("phone", normalized).Msg("otp requested for unknown phone")
		return nil
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	now := time.Now()
	otp := &model.WhatsAppOTP{
		ID:          uuid.New(),
		PhoneNumber: normalized,
		OTPCode:     code,
		ExpiresAt:   now.Add(s.otpTTL),
		CreatedAt:   now,
	}
	if err := s.otpRepo.Create(ctx, otp); err != nil {
		return err
	}

	msg := &model.OutboxMessage{
		ID:          uuid.New(),
		Kind:        model.NotifyOTP,
		Destination: normalized,
		Params:      []string{code},
		CreatedAt:   now,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send otp: %w", err)
	}

	s.logger.Info().Str("phone", normalized).Msg("otp sent")
	return nil
}

// VerifyOTP consumes a code and returns a signed session token.
func (s *authService) VerifyOTP(ctx context.Context, phone, code string) (string, error) {
	normalized := whatsapp.NormalizePhone(phone)

	otp, err := s.otpRepo.GetActiveByPhone(ctx, normalized)
	if err != nil {
		return "", err
	}
	if otp == nil || otp.OTPCode != code {
		return "", model.ErrInvalidOTP
	}
	if otp.Expired(time.Now()) {
		return "", model.ErrOTPExpired
	}

	if err := s.otpRepo.MarkVerified(ctx, otp.ID); err != nil {
		return "", err
	}

	seller, err := s.sellerRepo.GetByPhone(ctx, normalized)
	if err != nil {
		return "", err
	}
	if seller == nil {
		return "", model.ErrInvalidOTP
	}

	token, err := s.issueToken(seller)
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}

	s.logger.Info().Str("seller_id", seller.ID.String()).Msg("seller logged in via otp")
	return token, nil
}

// issueToken signs a session JWT for a seller.
func (s *authService) issueToken(seller *model.Seller) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   seller.ID.String(),
		"phone": seller.Phone,
		"iat":   now.Unix(),
		"exp":   now.Add(s.authCfg.SessionTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.authCfg.JWTSecret))
}

// generateOTP returns a uniformly random six digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
