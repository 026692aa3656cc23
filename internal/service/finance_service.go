package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
	"github.com/baronda/siskamling-backend/internal/validation"
)

const (
	EventDueRecorded        = "due.recorded"
	EventDuePaid            = "due.paid"
	EventHonorariumRecorded = "honorarium.recorded"
	EventHonorariumPaid     = "honorarium.paid"
)

// maxAmount: верхняя граница одной суммы в рупиях.
const maxAmount int64 = 100_000_000

// FinanceRepository описывает хранилище взносов и выплат.
type FinanceRepository interface {
	CreateDue(ctx context.Context, due *models.Due) error
	CreateDuesForPeriod(ctx context.Context, period string, amount int64, recordedBy uuid.UUID) (int64, error)
	ListDuesByUser(ctx context.Context, userID uuid.UUID) ([]models.Due, error)
	ListDuesByPeriod(ctx context.Context, period string) ([]models.Due, error)
	MarkDuePaid(ctx context.Context, id uuid.UUID, at time.Time) (*models.Due, error)
	DueSummary(ctx context.Context, period string) (*models.PeriodSummary, error)
	CreateHonorarium(ctx context.Context, h *models.Honorarium) error
	ListHonorariumsByStaff(ctx context.Context, staffID uuid.UUID) ([]models.Honorarium, error)
	ListHonorariumsByPeriod(ctx context.Context, period string) ([]models.Honorarium, error)
	MarkHonorariumPaid(ctx context.Context, id uuid.UUID, at time.Time) (*models.Honorarium, error)
	HonorariumSummary(ctx context.Context, period string) (*models.PeriodSummary, error)
}

// FinanceNotifier уведомляет жителей и сотрудников о начислениях.
type FinanceNotifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, event string, data any)
	NotifyStaff(ctx context.Context, staffID uuid.UUID, event string, data any)
}

// FinanceSummary: итоги периода по взносам и выплатам.
type FinanceSummary struct {
	Period      string                `json:"period"`
	Dues        *models.PeriodSummary `json:"dues"`
	Honorariums *models.PeriodSummary `json:"honorariums"`
	Balance     int64                 `json:"balance"`
}

// FinanceService ведёт учёт взносов жителей (iuran) и выплат патрулю (honor).
type FinanceService struct {
	repo     FinanceRepository
	notifier FinanceNotifier
	audit    AdminActionRecorder
	now      func() time.Time
}

// NewFinanceService создаёт сервис учёта.
func NewFinanceService(repo FinanceRepository, notifier FinanceNotifier, audit AdminActionRecorder) *FinanceService {
	return &FinanceService{repo: repo, notifier: notifier, audit: audit, now: time.Now}
}

var errDuplicatePeriod = apperror.New(apperror.ErrCodeConflict, "Data untuk periode ini sudah tercatat.")

// RecordDue выставляет взнос жителю за период.
func (s *FinanceService) RecordDue(ctx context.Context, actor *Claims, userID uuid.UUID, period string, amount int64) (*models.Due, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	if err := validateCharge(period, amount); err != nil {
		return nil, err
	}

	due := &models.Due{UserID: userID, Period: period, Amount: amount, RecordedBy: actor.SubjectID}
	if err := s.repo.CreateDue(ctx, due); err != nil {
		if errors.Is(err, repository.ErrDuplicatePeriod) {
			return nil, errDuplicatePeriod
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionDueRecord, "due", &due.ID, map[string]any{
		"user_id": userID,
		"period":  period,
		"amount":  amount,
	})
	s.notifier.NotifyUser(ctx, userID, EventDueRecorded, due)
	return due, nil
}

// RecordDuesForPeriod выставляет взнос всем активным жителям. Возвращает число новых записей.
func (s *FinanceService) RecordDuesForPeriod(ctx context.Context, actor *Claims, period string, amount int64) (int64, error) {
	if !isAdmin(actor) {
		return 0, apperror.ErrForbidden
	}
	if err := validateCharge(period, amount); err != nil {
		return 0, err
	}

	inserted, err := s.repo.CreateDuesForPeriod(ctx, period, amount, actor.SubjectID)
	if err != nil {
		return 0, err
	}

	logger.Entry(logrus.Fields{"period": period, "inserted": inserted}).Info("finance service: взносы выставлены")
	s.audit.Record(ctx, actor.SubjectID, models.AdminActionDueRecord, "due", nil, map[string]any{
		"period":   period,
		"amount":   amount,
		"inserted": inserted,
	})
	return inserted, nil
}

// MarkDuePaid отмечает взнос оплаченным.
func (s *FinanceService) MarkDuePaid(ctx context.Context, actor *Claims, id uuid.UUID) (*models.Due, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}

	due, err := s.repo.MarkDuePaid(ctx, id, s.now())
	if errors.Is(err, repository.ErrDueNotFound) {
		return nil, apperror.ErrDueNotFound
	}
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionDuePaid, "due", &due.ID, nil)
	s.notifier.NotifyUser(ctx, due.UserID, EventDuePaid, due)
	return due, nil
}

// ListMyDues возвращает взносы жителя.
func (s *FinanceService) ListMyDues(ctx context.Context, userID uuid.UUID) ([]models.Due, error) {
	return s.repo.ListDuesByUser(ctx, userID)
}

// ListDuesByPeriod возвращает взносы за период для администратора.
func (s *FinanceService) ListDuesByPeriod(ctx context.Context, period string) ([]models.Due, error) {
	if err := validation.ValidatePeriod(period); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return s.repo.ListDuesByPeriod(ctx, period)
}

// RecordHonorarium начисляет выплату сотруднику за период.
func (s *FinanceService) RecordHonorarium(ctx context.Context, actor *Claims, staffID uuid.UUID, period string, amount int64) (*models.Honorarium, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	if err := validateCharge(period, amount); err != nil {
		return nil, err
	}

	h := &models.Honorarium{StaffID: staffID, Period: period, Amount: amount, RecordedBy: actor.SubjectID}
	if err := s.repo.CreateHonorarium(ctx, h); err != nil {
		if errors.Is(err, repository.ErrDuplicatePeriod) {
			return nil, errDuplicatePeriod
		}
		if errors.Is(err, repository.ErrStaffNotFound) {
			return nil, apperror.ErrStaffNotFound
		}
		return nil, err
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionHonorariumRecord, "honorarium", &h.ID, map[string]any{
		"staff_id": staffID,
		"period":   period,
		"amount":   amount,
	})
	s.notifier.NotifyStaff(ctx, staffID, EventHonorariumRecorded, h)
	return h, nil
}

// MarkHonorariumPaid отмечает выплату произведённой.
func (s *FinanceService) MarkHonorariumPaid(ctx context.Context, actor *Claims, id uuid.UUID) (*models.Honorarium, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}

	h, err := s.repo.MarkHonorariumPaid(ctx, id, s.now())
	if errors.Is(err, repository.ErrHonorariumNotFound) {
		return nil, apperror.ErrHonorariumNotFound
	}
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionHonorariumPaid, "honorarium", &h.ID, nil)
	s.notifier.NotifyStaff(ctx, h.StaffID, EventHonorariumPaid, h)
	return h, nil
}

// ListMyHonorariums возвращает выплаты сотрудника.
func (s *FinanceService) ListMyHonorariums(ctx context.Context, staffID uuid.UUID) ([]models.Honorarium, error) {
	return s.repo.ListHonorariumsByStaff(ctx, staffID)
}

// ListHonorariumsByPeriod возвращает выплаты за период.
func (s *FinanceService) ListHonorariumsByPeriod(ctx context.Context, period string) ([]models.Honorarium, error) {
	if err := validation.ValidatePeriod(period); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return s.repo.ListHonorariumsByPeriod(ctx, period)
}

// Summary считает итоги периода. Balance равен собранным взносам за вычетом выплаченного гонорара.
func (s *FinanceService) Summary(ctx context.Context, period string) (*FinanceSummary, error) {
	if err := validation.ValidatePeriod(period); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	dues, err := s.repo.DueSummary(ctx, period)
	if err != nil {
		return nil, err
	}
	honorariums, err := s.repo.HonorariumSummary(ctx, period)
	if err != nil {
		return nil, err
	}

	return &FinanceSummary{
		Period:      period,
		Dues:        dues,
		Honorariums: honorariums,
		Balance:     dues.PaidAmount - honorariums.PaidAmount,
	}, nil
}

func validateCharge(period string, amount int64) error {
	if err := validation.ValidatePeriod(period); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if amount <= 0 || amount > maxAmount {
		return apperror.New(apperror.ErrCodeValidation, "Jumlah harus lebih dari 0 dan tidak melebihi Rp100.000.000.")
	}
	return nil
}
