package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/mail"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
	"github.com/baronda/siskamling-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// AuthService инкапсулирует регистрацию и вход жителей по одноразовым кодам.
type AuthService struct {
	repo     AuthRepository
	otp      OTPRedeemer
	tokens   *TokenManager
	sessions SessionRevoker
}

// RegisterInput содержит данные жителя при регистрации.
type RegisterInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
	RT      string
	RW      string
	OTPCode string
}

// AuthResult возвращает итог регистрации или входа.
type AuthResult struct {
	User    *models.User `json:"user"`
	Session *Session     `json:"session"`
}

// NewAuthService создаёт сервис аутентификации жителей.
func NewAuthService(repo AuthRepository, otp OTPRedeemer, tokens *TokenManager) *AuthService {
	return &AuthService{repo: repo, otp: otp, tokens: tokens}
}

// Register создаёт жителя после проверки кода user_registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email, err := mail.ParseAddress(in.Email)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "Format email tidak valid.")
	}

	for _, check := range []error{
		validation.ValidateName(in.Name),
		validation.ValidatePhone(in.Phone),
		validation.ValidateLength("alamat", strings.TrimSpace(in.Address), 0, validation.MaxAddressLength),
		validation.ValidateRTRW("RT", in.RT),
		validation.ValidateRTRW("RW", in.RW),
	} {
		if check != nil {
			return nil, apperror.Wrap(check, apperror.ErrCodeValidation, check.Error())
		}
	}

	if _, err := s.repo.GetByEmail(ctx, email.String()); err == nil {
		return nil, apperror.ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	if err := s.otp.Redeem(ctx, email.String(), in.OTPCode, models.OTPContextUserRegistration); err != nil {
		return nil, err
	}

	user := &models.User{
		Name:    strings.TrimSpace(in.Name),
		Email:   email.String(),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		RT:      strings.TrimSpace(in.RT),
		RW:      strings.TrimSpace(in.RW),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperror.ErrEmailTaken
		}
		return nil, err
	}

	session, err := s.tokens.Generate(user.ID, RoleUser, KindUser)
	if err != nil {
		return nil, err
	}

	logger.Entry(logrus.Fields{"user_id": user.ID}).Info("auth service: житель зарегистрирован")
	return &AuthResult{User: user, Session: session}, nil
}

// Login выполняет вход жителя по коду user_login.
func (s *AuthService) Login(ctx context.Context, rawEmail, otpCode string) (*AuthResult, error) {
	email, err := mail.ParseAddress(rawEmail)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "Format email tidak valid.")
	}

	user, err := s.repo.GetByEmail(ctx, email.String())
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, apperror.New(apperror.ErrCodeForbidden, "Akun Anda dinonaktifkan. Hubungi pengurus RT/RW.")
	}

	if err := s.otp.Redeem(ctx, email.String(), otpCode, models.OTPContextUserLogin); err != nil {
		return nil, err
	}

	session, err := s.tokens.Generate(user.ID, RoleUser, KindUser)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Session: session}, nil
}

// GetProfile возвращает жителя.
func (s *AuthService) GetProfile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	return user, err
}

// ListResidents возвращает жителей для администратора.
func (s *AuthService) ListResidents(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.repo.List(ctx, limit, offset)
}

// SetActive включает или отключает учётную запись жителя.
func (s *AuthService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	err := s.repo.SetActive(ctx, id, active)
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperror.ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if s.sessions != nil {
		s.sessions.Revoke(KindUser, id)
	}
	return nil
}

// SetSessionRevoker подключает сброс кеша сессий при отключении жителя.
func (s *AuthService) SetSessionRevoker(sessions SessionRevoker) {
	s.sessions = sessions
}
