package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/mail"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
	"github.com/baronda/siskamling-backend/internal/validation"
)

// Причины отказа при входе и смене кода доступа.
const (
	StaffReasonInvalidCredentials = "invalid_credentials"
	StaffReasonPending            = "pending"
	StaffReasonSuspended          = "suspended"

	AccessCodeReasonWrongCode = "wrong_code"
	AccessCodeReasonCooldown  = "cooldown"
	AccessCodeReasonInvalid   = "invalid_code"
	AccessCodeReasonSameCode  = "same_code"
)

// StaffRepository описывает хранилище сотрудников.
type StaffRepository interface {
	Create(ctx context.Context, staff *models.Staff) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Staff, error)
	GetByEmail(ctx context.Context, email string) (*models.Staff, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Staff, error)
	ListAdmins(ctx context.Context) ([]models.Staff, error)
	UpsertAdmin(ctx context.Context, staff *models.Staff, accessCodeHash string) error
	Activate(ctx context.Context, id uuid.UUID, accessCodeHash string) error
	Suspend(ctx context.Context, id uuid.UUID, until *time.Time, reason string) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	UpdateAccessCode(ctx context.Context, id uuid.UUID, accessCodeHash string, changedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OTPRedeemer погашает одноразовый код для конкретного потока.
type OTPRedeemer interface {
	Redeem(ctx context.Context, email, code, otpContext string) error
}

// StaffMailer отправляет письма сотрудникам.
type StaffMailer interface {
	SendAccessCode(ctx context.Context, to mail.Address, name, code string, approved bool) error
	SendRejection(ctx context.Context, to mail.Address, name, reason string) error
}

// AdminActionRecorder пишет журнал действий администратора.
type AdminActionRecorder interface {
	Record(ctx context.Context, actorID uuid.UUID, action, targetType string, targetID *uuid.UUID, details any)
}

// AdminNotifier оповещает администраторов.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, event string, data any)
}

// StaffLoginResult: итог входа сотрудника.
type StaffLoginResult struct {
	Success        bool          `json:"success"`
	Reason         string        `json:"reason,omitempty"`
	Message        string        `json:"message"`
	Session        *Session      `json:"session,omitempty"`
	Staff          *models.Staff `json:"staff,omitempty"`
	SuspendedUntil *time.Time    `json:"suspended_until,omitempty"`
}

// AccessCodeResult: итог смены кода доступа.
type AccessCodeResult struct {
	Success       bool       `json:"success"`
	Reason        string     `json:"reason,omitempty"`
	Message       string     `json:"message"`
	NextAllowedAt *time.Time `json:"next_allowed_at,omitempty"`
}

// AdmissionResult: итог одобрения заявки.
type AdmissionResult struct {
	Staff    *models.Staff `json:"staff"`
	MailSent bool          `json:"mail_sent"`
}

// ApplyInput: заявка на роль сотрудника патруля.
type ApplyInput struct {
	Name    string
	Email   string
	Phone   string
	OTPCode string
}

// StaffService управляет приёмом сотрудников, входом и кодами доступа.
type StaffService struct {
	repo     StaffRepository
	otp      OTPRedeemer
	mailer   StaffMailer
	audit    AdminActionRecorder
	notifier AdminNotifier
	tokens   *TokenManager
	sessions SessionRevoker
	cooldown time.Duration
	now      func() time.Time
}

// NewStaffService создаёт сервис сотрудников.
func NewStaffService(
	repo StaffRepository,
	otp OTPRedeemer,
	mailer StaffMailer,
	audit AdminActionRecorder,
	notifier AdminNotifier,
	tokens *TokenManager,
	cooldown time.Duration,
) *StaffService {
	return &StaffService{
		repo:     repo,
		otp:      otp,
		mailer:   mailer,
		audit:    audit,
		notifier: notifier,
		tokens:   tokens,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// SetSessionRevoker подключает сброс кеша сессий при смене статуса сотрудника.
func (s *StaffService) SetSessionRevoker(sessions SessionRevoker) {
	s.sessions = sessions
}

func (s *StaffService) revokeSessions(staffID uuid.UUID) {
	if s.sessions != nil {
		s.sessions.Revoke(KindStaff, staffID)
	}
}

var errInvalidStaffTransition = apperror.New(apperror.ErrCodeInvalidTransition, "Perubahan status petugas tidak diizinkan.")

// Apply регистрирует заявку. Email подтверждается кодом staff_registration.
func (s *StaffService) Apply(ctx context.Context, in ApplyInput) (*models.Staff, error) {
	email, err := mail.ParseAddress(in.Email)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "Format email tidak valid.")
	}
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePhone(in.Phone); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if _, err := s.repo.GetByEmail(ctx, email.String()); err == nil {
		return nil, apperror.ErrEmailTaken
	} else if !errors.Is(err, repository.ErrStaffNotFound) {
		return nil, err
	}

	if err := s.otp.Redeem(ctx, email.String(), in.OTPCode, models.OTPContextStaffRegistration); err != nil {
		return nil, err
	}

	staff := &models.Staff{
		Name:   strings.TrimSpace(in.Name),
		Email:  email.String(),
		Phone:  strings.TrimSpace(in.Phone),
		Role:   models.StaffRoleStaff,
		Status: models.StaffStatusPending,
	}
	if err := s.repo.Create(ctx, staff); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperror.ErrEmailTaken
		}
		return nil, err
	}

	s.notifier.NotifyAdmins(ctx, "staff.applied", map[string]any{
		"staff_id": staff.ID,
		"name":     staff.Name,
	})

	logger.Entry(logrus.Fields{"staff_id": staff.ID}).Info("staff service: новая заявка")
	return staff, nil
}

// Login проверяет код доступа и выдаёт токен.
// Приостановка с прошедшей датой окончания не мешает входу, но статус не меняется.
func (s *StaffService) Login(ctx context.Context, rawEmail, accessCode string) (*StaffLoginResult, error) {
	invalid := &StaffLoginResult{Reason: StaffReasonInvalidCredentials, Message: apperror.ErrInvalidCredentials.Message}

	email, err := mail.ParseAddress(rawEmail)
	if err != nil {
		return invalid, nil
	}

	staff, err := s.repo.GetByEmail(ctx, email.String())
	if errors.Is(err, repository.ErrStaffNotFound) {
		return invalid, nil
	}
	if err != nil {
		return nil, err
	}

	// У заявки ещё нет кода доступа, поэтому проверяем статус до сравнения кода.
	if staff.Status == models.StaffStatusPending {
		return &StaffLoginResult{Reason: StaffReasonPending, Message: "Pendaftaran Anda masih menunggu persetujuan admin."}, nil
	}

	if staff.AccessCodeHash == nil || bcrypt.CompareHashAndPassword([]byte(*staff.AccessCodeHash), []byte(accessCode)) != nil {
		return invalid, nil
	}

	if staff.SuspendedAt(s.now()) {
		msg := "Akun Anda ditangguhkan. Hubungi admin."
		if staff.SuspensionEndDate != nil {
			msg = fmt.Sprintf("Akun Anda ditangguhkan hingga %s.", staff.SuspensionEndDate.Format("02-01-2006 15:04"))
		}
		return &StaffLoginResult{Reason: StaffReasonSuspended, Message: msg, SuspendedUntil: staff.SuspensionEndDate}, nil
	}

	session, err := s.tokens.Generate(staff.ID, staff.Role, KindStaff)
	if err != nil {
		return nil, err
	}

	return &StaffLoginResult{Success: true, Message: "Berhasil masuk.", Session: session, Staff: staff}, nil
}

// GetProfile возвращает сотрудника по идентификатору.
func (s *StaffService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	staff, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrStaffNotFound) {
		return nil, apperror.ErrStaffNotFound
	}
	return staff, err
}

// List возвращает сотрудников для администратора.
func (s *StaffService) List(ctx context.Context, status string, limit, offset int) ([]models.Staff, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// Approve переводит заявку в active и отправляет первый код доступа.
// last_code_change_at не заполняется, чтобы сотрудник мог сразу сменить код.
func (s *StaffService) Approve(ctx context.Context, actor *Claims, staffID uuid.UUID) (*AdmissionResult, error) {
	staff, err := s.loadForTransition(ctx, actor, staffID, models.StaffStatusPending, models.StaffStatusActive)
	if err != nil {
		return nil, err
	}

	code, err := generateAccessCode()
	if err != nil {
		return nil, fmt.Errorf("staff service: generate access code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("staff service: hash access code: %w", err)
	}

	if err := s.repo.Activate(ctx, staff.ID, string(hash)); err != nil {
		return nil, err
	}
	staff.Status = models.StaffStatusActive

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionStaffApprove, "staff", &staff.ID, map[string]any{"email": staff.Email})

	mailSent := true
	if err := s.mailer.SendAccessCode(ctx, mail.Address(staff.Email), staff.Name, code, true); err != nil {
		mailSent = false
		logger.Entry(logrus.Fields{"staff_id": staff.ID, "error": err}).Error("staff service: не удалось отправить код доступа после одобрения")
	}

	return &AdmissionResult{Staff: staff, MailSent: mailSent}, nil
}

// Reject удаляет заявку и сообщает об отказе письмом.
func (s *StaffService) Reject(ctx context.Context, actor *Claims, staffID uuid.UUID, reason string) error {
	staff, err := s.loadForTransition(ctx, actor, staffID, models.StaffStatusPending, models.StaffStatusDeleted)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, staff.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionStaffReject, "staff", &staff.ID, map[string]any{
		"email":  staff.Email,
		"reason": reason,
	})

	if err := s.mailer.SendRejection(ctx, mail.Address(staff.Email), staff.Name, reason); err != nil {
		logger.Entry(logrus.Fields{"staff_id": staff.ID, "error": err}).Error("staff service: не удалось отправить письмо об отказе")
	}

	return nil
}

// Suspend приостанавливает сотрудника. until == nil означает бессрочно.
func (s *StaffService) Suspend(ctx context.Context, actor *Claims, staffID uuid.UUID, until *time.Time, reason string) error {
	if actor.SubjectID == staffID {
		return apperror.New(apperror.ErrCodeBadRequest, "Anda tidak dapat menangguhkan akun sendiri.")
	}
	if until != nil && !until.After(s.now()) {
		return apperror.New(apperror.ErrCodeValidation, "Tanggal akhir penangguhan harus di masa depan.")
	}

	staff, err := s.loadForTransition(ctx, actor, staffID, models.StaffStatusActive, models.StaffStatusSuspended)
	if err != nil {
		return err
	}

	if err := s.repo.Suspend(ctx, staff.ID, until, strings.TrimSpace(reason)); err != nil {
		return err
	}
	s.revokeSessions(staff.ID)

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionStaffSuspend, "staff", &staff.ID, map[string]any{
		"until":  until,
		"reason": reason,
	})
	return nil
}

// Reactivate снимает приостановку вручную.
func (s *StaffService) Reactivate(ctx context.Context, actor *Claims, staffID uuid.UUID) error {
	staff, err := s.loadForTransition(ctx, actor, staffID, models.StaffStatusSuspended, models.StaffStatusActive)
	if err != nil {
		return err
	}

	if err := s.repo.Reactivate(ctx, staff.ID); err != nil {
		return err
	}
	s.revokeSessions(staff.ID)

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionStaffReactivate, "staff", &staff.ID, nil)
	return nil
}

// loadForTransition загружает сотрудника и проверяет переход from -> to.
func (s *StaffService) loadForTransition(ctx context.Context, actor *Claims, staffID uuid.UUID, from, to string) (*models.Staff, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}

	staff, err := s.repo.GetByID(ctx, staffID)
	if errors.Is(err, repository.ErrStaffNotFound) {
		return nil, apperror.ErrStaffNotFound
	}
	if err != nil {
		return nil, err
	}

	if staff.Status != from || !models.CanTransitionStaff(from, to) {
		return nil, errInvalidStaffTransition
	}
	return staff, nil
}

// accessCodePolicy задаёт, кто и при каком условии может сменить код.
type accessCodePolicy struct {
	authorize func(actor *Claims, target *models.Staff) error
	// checkCurrent возвращает false, если текущий код не подтверждён.
	checkCurrent func(target *models.Staff) bool
	// deliver вызывается до записи нового хеша. Ошибка отменяет смену.
	deliver func(ctx context.Context, target *models.Staff, code string) error
}

// ChangeAccessCode: смена кода самим сотрудником по текущему коду.
func (s *StaffService) ChangeAccessCode(ctx context.Context, actor *Claims, staffID uuid.UUID, currentCode, newCode string) (*AccessCodeResult, error) {
	policy := accessCodePolicy{
		authorize: func(actor *Claims, target *models.Staff) error {
			if actor.Kind != KindStaff || actor.SubjectID != target.ID {
				return apperror.ErrForbidden
			}
			return nil
		},
		checkCurrent: func(target *models.Staff) bool {
			return target.AccessCodeHash != nil &&
				bcrypt.CompareHashAndPassword([]byte(*target.AccessCodeHash), []byte(currentCode)) == nil
		},
	}
	return s.changeAccessCode(ctx, actor, staffID, policy, newCode)
}

// ResetAccessCode: сброс кода администратором. Новый код генерируется и
// отправляется сотруднику письмом.
func (s *StaffService) ResetAccessCode(ctx context.Context, actor *Claims, staffID uuid.UUID) (*AccessCodeResult, error) {
	code, err := generateAccessCode()
	if err != nil {
		return nil, fmt.Errorf("staff service: generate access code: %w", err)
	}

	policy := accessCodePolicy{
		authorize: func(actor *Claims, target *models.Staff) error {
			if !isAdmin(actor) {
				return apperror.ErrForbidden
			}
			return nil
		},
		deliver: func(ctx context.Context, target *models.Staff, code string) error {
			return s.mailer.SendAccessCode(ctx, mail.Address(target.Email), target.Name, code, false)
		},
	}

	result, err := s.changeAccessCode(ctx, actor, staffID, policy, code)
	if err != nil || !result.Success {
		return result, err
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionAccessCodeReset, "staff", &staffID, nil)
	return result, nil
}

// changeAccessCode: единая точка смены кода доступа.
// Порядок проверок: права, текущий код, пауза между сменами, новый код.
func (s *StaffService) changeAccessCode(ctx context.Context, actor *Claims, staffID uuid.UUID, policy accessCodePolicy, newCode string) (*AccessCodeResult, error) {
	staff, err := s.repo.GetByID(ctx, staffID)
	if errors.Is(err, repository.ErrStaffNotFound) {
		return nil, apperror.ErrStaffNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := policy.authorize(actor, staff); err != nil {
		return nil, err
	}

	if staff.Status == models.StaffStatusPending {
		return nil, errInvalidStaffTransition
	}

	if policy.checkCurrent != nil && !policy.checkCurrent(staff) {
		return &AccessCodeResult{Reason: AccessCodeReasonWrongCode, Message: "Kode akses saat ini salah."}, nil
	}

	now := s.now()
	if staff.LastCodeChangeAt != nil {
		next := staff.LastCodeChangeAt.Add(s.cooldown)
		if now.Before(next) {
			return &AccessCodeResult{
				Reason:        AccessCodeReasonCooldown,
				Message:       fmt.Sprintf("Kode akses baru dapat diganti lagi setelah %s.", next.Format("02-01-2006 15:04")),
				NextAllowedAt: &next,
			}, nil
		}
	}

	if err := validation.ValidateAccessCode(newCode); err != nil {
		return &AccessCodeResult{Reason: AccessCodeReasonInvalid, Message: err.Error()}, nil
	}
	if staff.AccessCodeHash != nil && bcrypt.CompareHashAndPassword([]byte(*staff.AccessCodeHash), []byte(newCode)) == nil {
		return &AccessCodeResult{Reason: AccessCodeReasonSameCode, Message: "Kode akses baru harus berbeda dari kode saat ini."}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newCode), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("staff service: hash access code: %w", err)
	}

	// Письмо уходит до записи: при ошибке доставки старый код остаётся в силе.
	if policy.deliver != nil {
		if err := policy.deliver(ctx, staff, newCode); err != nil {
			logger.Entry(logrus.Fields{"staff_id": staff.ID, "error": err}).Error("staff service: не удалось отправить новый код доступа")
			return nil, apperror.Wrap(err, apperror.ErrCodeUnavailable, apperror.ErrMailUnavailable.Message)
		}
	}

	if err := s.repo.UpdateAccessCode(ctx, staff.ID, string(hash), now); err != nil {
		return nil, err
	}

	logger.Entry(logrus.Fields{"staff_id": staff.ID, "actor_id": actor.SubjectID}).Info("staff service: код доступа изменён")

	return &AccessCodeResult{Success: true, Message: "Kode akses berhasil diperbarui."}, nil
}

func isAdmin(actor *Claims) bool {
	return actor != nil && actor.Kind == KindStaff && actor.Role == models.StaffRoleAdmin
}

const accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateAccessCode возвращает случайный код из 10 символов без похожих букв и цифр.
func generateAccessCode() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(accessCodeAlphabet)))
	for i := 0; i < 10; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(accessCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
