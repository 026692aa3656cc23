package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/mail"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
)

// Причины отказа при проверке кода. Значения стабильны и отдаются клиенту.
const (
	OTPReasonInvalidCode     = "invalid_code"
	OTPReasonAlreadyUsed     = "already_used"
	OTPReasonExpired         = "expired"
	OTPReasonTooManyAttempts = "too_many_attempts"
)

var otpMessages = map[string]string{
	OTPReasonInvalidCode:     "Kode OTP tidak valid.",
	OTPReasonAlreadyUsed:     "Kode OTP sudah digunakan.",
	OTPReasonExpired:         "Kode OTP sudah kedaluwarsa. Silakan minta kode baru.",
	OTPReasonTooManyAttempts: "Terlalu banyak percobaan. Silakan minta kode baru.",
}

var (
	otpContextPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)
	otpCodePattern    = regexp.MustCompile(`^\d{6}$`)
)

// OTPRepository описывает хранилище одноразовых кодов.
type OTPRepository interface {
	Create(ctx context.Context, record *models.OTPRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteOtherUnused(ctx context.Context, email string, keep uuid.UUID) error
	FindByEmailAndCode(ctx context.Context, email, code string) (*models.OTPRecord, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
	IncrementAttempts(ctx context.Context, email string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OTPMailer отправляет код на почту.
type OTPMailer interface {
	SendOTP(ctx context.Context, to mail.Address, code, purpose string, ttl time.Duration) error
}

// VerifyResult: итог проверки кода. Отказ не является ошибкой.
type VerifyResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// OTPService выдаёт и погашает одноразовые коды.
//
// На один email в каждый момент действует не больше одного непогашенного кода:
// выдача нового удаляет прежние. Код действует ttl с момента выдачи, включая
// сам момент истечения. После maxAttempts неверных попыток код блокируется.
type OTPService struct {
	repo        OTPRepository
	mailer      OTPMailer
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	generate    func() (string, error)
}

// NewOTPService создаёт сервис одноразовых кодов.
func NewOTPService(repo OTPRepository, mailer OTPMailer, ttl time.Duration, maxAttempts int) *OTPService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &OTPService{
		repo:        repo,
		mailer:      mailer,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
		generate:    generateOTPCode,
	}
}

// Issue создаёт код для email и отправляет его письмом.
// Если письмо не ушло, удаляется только новая запись, прежний код остаётся в силе.
// После успешной отправки остальные непогашенные коды email удаляются.
func (s *OTPService) Issue(ctx context.Context, rawEmail, otpContext string) (*models.OTPRecord, error) {
	email, err := mail.ParseAddress(rawEmail)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "Format email tidak valid.")
	}

	otpContext = strings.TrimSpace(otpContext)
	if otpContext == "" {
		otpContext = models.OTPContextGeneric
	}
	if !otpContextPattern.MatchString(otpContext) {
		return nil, apperror.New(apperror.ErrCodeValidation, "Konteks verifikasi tidak valid.")
	}

	code, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("otp service: generate code: %w", err)
	}

	now := s.now()
	record := &models.OTPRecord{
		Email:     email.String(),
		Code:      code,
		Context:   otpContext,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	if err := s.mailer.SendOTP(ctx, email, code, otpContext, s.ttl); err != nil {
		logger.Entry(logrus.Fields{
			"email":   email,
			"context": otpContext,
			"error":   err,
		}).Error("otp service: не удалось отправить код")

		if delErr := s.repo.Delete(ctx, record.ID); delErr != nil {
			logger.Entry(logrus.Fields{"otp_id": record.ID, "error": delErr}).Warn("otp service: не удалось удалить неотправленный код")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeUnavailable, "Gagal mengirim kode OTP. Silakan coba lagi nanti.")
	}

	if err := s.repo.DeleteOtherUnused(ctx, email.String(), record.ID); err != nil {
		// Старые коды всё равно истекут через ttl.
		logger.Entry(logrus.Fields{"email": email, "error": err}).Warn("otp service: не удалось удалить прежние коды")
	}

	logger.Entry(logrus.Fields{
		"email":      email,
		"context":    otpContext,
		"expires_at": record.ExpiresAt,
	}).Info("otp service: код выдан")

	return record, nil
}

// Verify проверяет код. Если otpContext не пустой, код должен быть выдан для него.
// Ошибка возвращается только при сбое хранилища.
func (s *OTPService) Verify(ctx context.Context, rawEmail, code, otpContext string) (*VerifyResult, error) {
	email, err := mail.ParseAddress(rawEmail)
	code = strings.TrimSpace(code)
	if err != nil || !otpCodePattern.MatchString(code) {
		return otpFailure(OTPReasonInvalidCode), nil
	}

	record, err := s.repo.FindByEmailAndCode(ctx, email.String(), code)
	if errors.Is(err, repository.ErrOTPNotFound) {
		return s.wrongCode(ctx, email.String())
	}
	if err != nil {
		return nil, err
	}

	if otpContext != "" && record.Context != otpContext {
		return s.wrongCode(ctx, email.String())
	}

	if record.Used {
		return otpFailure(OTPReasonAlreadyUsed), nil
	}

	if record.Attempts >= s.maxAttempts {
		return otpFailure(OTPReasonTooManyAttempts), nil
	}

	if record.ExpiredAt(s.now()) {
		return otpFailure(OTPReasonExpired), nil
	}

	if err := s.repo.MarkUsed(ctx, record.ID); err != nil {
		if errors.Is(err, repository.ErrOTPAlreadyUsed) {
			return otpFailure(OTPReasonAlreadyUsed), nil
		}
		return nil, err
	}

	return &VerifyResult{Success: true, Message: "Verifikasi berhasil."}, nil
}

// Redeem погашает код и превращает отказ в AppError.
// Используется потоками регистрации и входа.
func (s *OTPService) Redeem(ctx context.Context, email, code, otpContext string) error {
	result, err := s.Verify(ctx, email, code, otpContext)
	if err != nil {
		return err
	}
	if !result.Success {
		return apperror.New(apperror.ErrCodeBadRequest, result.Message)
	}
	return nil
}

// SweepExpired удаляет коды, истёкшие больше одного ttl назад.
func (s *OTPService) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredBefore(ctx, s.now().Add(-s.ttl))
}

// RunSweeper периодически вызывает SweepExpired до отмены ctx.
func (s *OTPService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.SweepExpired(ctx)
			if err != nil {
				logger.Entry(logrus.Fields{"error": err}).Error("otp service: ошибка очистки кодов")
				continue
			}
			if removed > 0 {
				logger.Entry(logrus.Fields{"removed": removed}).Info("otp service: удалены истёкшие коды")
			}
		}
	}
}

func (s *OTPService) wrongCode(ctx context.Context, email string) (*VerifyResult, error) {
	if err := s.repo.IncrementAttempts(ctx, email); err != nil {
		return nil, err
	}
	return otpFailure(OTPReasonInvalidCode), nil
}

func otpFailure(reason string) *VerifyResult {
	return &VerifyResult{Success: false, Reason: reason, Message: otpMessages[reason]}
}

// generateOTPCode возвращает равномерно распределённый код из [100000, 999999].
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
