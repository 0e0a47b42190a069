package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"jansarthi-be/models"
	"jansarthi-be/observability"
	"jansarthi-be/store"
	"jansarthi-be/utils"
)

var (
	ErrOTPNotFound        = errors.New("no valid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrOTPTooManyAttempts = errors.New("too many failed otp attempts")
	ErrSMSFailed          = errors.New("sms delivery failed")
)

// InvalidOTPError reports a wrong code and how many tries are left.
type InvalidOTPError struct {
	Remaining int
}

func (e *InvalidOTPError) Error() string {
	return fmt.Sprintf("Invalid OTP. %d attempts remaining.", e.Remaining)
}

// CooldownError is returned when a new code is requested too soon.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("Please wait %d seconds before requesting a new OTP.", int(e.RetryAfter.Round(time.Second).Seconds()))
}

type OTPService struct {
	Store       store.OTPs
	SMS         SMSSender
	Cooldown    *Cooldown
	Metrics     *observability.Metrics
	Expiry      time.Duration
	Length      int
	MaxAttempts int
	Now         func() time.Time
	Rand        io.Reader
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// GenerateCode returns n random decimal digits.
func GenerateCode(r io.Reader, n int) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

func (s *OTPService) countSent(result string) {
	if s.Metrics != nil {
		s.Metrics.OTPSent.WithLabelValues(result).Inc()
	}
}

// Issue creates a fresh code for the number and sends it by SMS.
func (s *OTPService) Issue(ctx context.Context, mobile string) error {
	ok, retryAfter, err := s.Cooldown.Acquire(ctx, mobile)
	if err != nil {
		// fail open
		slog.Warn("OTP cooldown unavailable", "error", err)
	} else if !ok {
		s.countSent("throttled")
		return &CooldownError{RetryAfter: retryAfter}
	}

	code, err := GenerateCode(s.Rand, s.Length)
	if err != nil {
		return err
	}
	now := s.now()
	otp := &models.OTP{
		MobileNumber: mobile,
		ExpiresAt:    now.Add(s.Expiry),
		CreatedAt:    now,
	}
	if err := otp.HashCode(code); err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	if err := s.Store.CreateOTP(ctx, otp); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}

	if err := s.SMS.Send(ctx, mobile, OTPMessage(code, s.Expiry)); err != nil {
		slog.Error("Failed to send OTP", "to", utils.MaskPhone(mobile), "error", err)
		s.countSent("failed")
		if relErr := s.Cooldown.Release(ctx, mobile); relErr != nil {
			slog.Warn("OTP cooldown release failed", "error", relErr)
		}
		return fmt.Errorf("%w: %v", ErrSMSFailed, err)
	}
	s.countSent("sent")
	return nil
}

// Verify checks the code against the newest unused OTP for the number and
// consumes it on success. Every check reserves one of MaxAttempts in the
// store before the hash is compared, so parallel guesses cannot exceed it.
func (s *OTPService) Verify(ctx context.Context, mobile, code string) error {
	otp, err := s.Store.LatestUnusedOTP(ctx, mobile)
	if errors.Is(err, store.ErrNotFound) {
		return ErrOTPNotFound
	}
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}

	now := s.now()
	if otp.Expired(now) {
		return ErrOTPExpired
	}
	if otp.AttemptCount >= s.MaxAttempts {
		return ErrOTPTooManyAttempts
	}

	reserved, err := s.Store.ReserveOTPAttempt(ctx, otp.ID, s.MaxAttempts)
	if errors.Is(err, store.ErrNotFound) {
		return s.unavailable(ctx, mobile, otp.ID)
	}
	if err != nil {
		return fmt.Errorf("record otp attempt: %w", err)
	}

	if !reserved.CompareCode(code) {
		return &InvalidOTPError{Remaining: s.MaxAttempts - reserved.AttemptCount}
	}
	err = s.Store.ConsumeOTP(ctx, otp.ID, now)
	if errors.Is(err, store.ErrNotFound) {
		return ErrOTPNotFound
	}
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

// unavailable explains a failed reservation: the code was consumed in the
// meantime, or its attempts ran out.
func (s *OTPService) unavailable(ctx context.Context, mobile string, id int64) error {
	latest, err := s.Store.LatestUnusedOTP(ctx, mobile)
	if err != nil || latest.ID != id {
		return ErrOTPNotFound
	}
	return ErrOTPTooManyAttempts
}
