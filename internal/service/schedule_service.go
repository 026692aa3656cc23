package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
	"github.com/baronda/siskamling-backend/internal/validation"
)

const (
	EventScheduleAssigned = "schedule.assigned"
	EventScheduleChanged  = "schedule.changed"
	EventScheduleRemoved  = "schedule.removed"
)

// maxScheduleRange ограничивает выборку смен у администратора.
const maxScheduleRange = 92 * 24 * time.Hour

// ScheduleRepository описывает хранилище смен.
type ScheduleRepository interface {
	Create(ctx context.Context, s *models.Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	Update(ctx context.Context, s *models.Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListRange(ctx context.Context, from, to time.Time) ([]models.Schedule, error)
	ListByStaff(ctx context.Context, staffID uuid.UUID, from time.Time) ([]models.Schedule, error)
	CheckIn(ctx context.Context, id uuid.UUID, at time.Time) error
}

// StaffLookup находит сотрудника по ID.
type StaffLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Staff, error)
}

// StaffNotifier уведомляет конкретного сотрудника.
type StaffNotifier interface {
	NotifyStaff(ctx context.Context, staffID uuid.UUID, event string, data any)
}

// ScheduleInput: данные смены от администратора.
type ScheduleInput struct {
	StaffID    uuid.UUID
	PatrolDate string
	ShiftStart string
	ShiftEnd   string
	Area       string
	Notes      string
}

// ScheduleService управляет графиком патрулирования.
type ScheduleService struct {
	repo     ScheduleRepository
	staff    StaffLookup
	notifier StaffNotifier
	audit    AdminActionRecorder
	now      func() time.Time
}

// NewScheduleService создаёт сервис графика.
func NewScheduleService(repo ScheduleRepository, staff StaffLookup, notifier StaffNotifier, audit AdminActionRecorder) *ScheduleService {
	return &ScheduleService{repo: repo, staff: staff, notifier: notifier, audit: audit, now: time.Now}
}

var (
	errScheduleNotToday     = apperror.New(apperror.ErrCodeBadRequest, "Absen hanya bisa dilakukan pada hari jadwal ronda.")
	errScheduleNotScheduled = apperror.New(apperror.ErrCodeInvalidTransition, "Jadwal ini sudah tidak menunggu absen.")
)

// Create назначает смену активному сотруднику.
func (s *ScheduleService) Create(ctx context.Context, actor *Claims, in ScheduleInput) (*models.Schedule, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}

	schedule := &models.Schedule{Status: models.ScheduleStatusScheduled}
	if err := s.apply(ctx, schedule, in); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionScheduleCreate, "schedule", &schedule.ID, map[string]any{
		"staff_id":    schedule.StaffID,
		"patrol_date": in.PatrolDate,
	})
	s.notifier.NotifyStaff(ctx, schedule.StaffID, EventScheduleAssigned, schedule)
	return schedule, nil
}

// Update меняет смену. Статус не трогается.
func (s *ScheduleService) Update(ctx context.Context, actor *Claims, id uuid.UUID, in ScheduleInput) (*models.Schedule, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}

	schedule, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousStaff := schedule.StaffID

	if err := s.apply(ctx, schedule, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, mapScheduleErr(err)
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionScheduleUpdate, "schedule", &schedule.ID, nil)
	if previousStaff != schedule.StaffID {
		s.notifier.NotifyStaff(ctx, previousStaff, EventScheduleRemoved, schedule)
		s.notifier.NotifyStaff(ctx, schedule.StaffID, EventScheduleAssigned, schedule)
	} else {
		s.notifier.NotifyStaff(ctx, schedule.StaffID, EventScheduleChanged, schedule)
	}
	return schedule, nil
}

// MarkMissed отмечает неявку. Допустимо только для смены, ожидающей отметки.
func (s *ScheduleService) MarkMissed(ctx context.Context, actor *Claims, id uuid.UUID) (*models.Schedule, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}

	schedule, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status != models.ScheduleStatusScheduled {
		return nil, errScheduleNotScheduled
	}

	schedule.Status = models.ScheduleStatusMissed
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, mapScheduleErr(err)
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionScheduleUpdate, "schedule", &schedule.ID, map[string]any{"status": schedule.Status})
	return schedule, nil
}

// Delete удаляет смену.
func (s *ScheduleService) Delete(ctx context.Context, actor *Claims, id uuid.UUID) error {
	if !isAdmin(actor) {
		return apperror.ErrForbidden
	}

	schedule, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapScheduleErr(err)
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionScheduleDelete, "schedule", &id, nil)
	s.notifier.NotifyStaff(ctx, schedule.StaffID, EventScheduleRemoved, schedule)
	return nil
}

// ListRange возвращает смены за интервал дат (YYYY-MM-DD, включительно).
func (s *ScheduleService) ListRange(ctx context.Context, rawFrom, rawTo string) ([]models.Schedule, error) {
	from, err := validation.ParseDate(rawFrom)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	to, err := validation.ParseDate(rawTo)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if to.Before(from) || to.Sub(from) > maxScheduleRange {
		return nil, apperror.New(apperror.ErrCodeValidation, "Rentang tanggal tidak valid (maksimal 3 bulan).")
	}
	return s.repo.ListRange(ctx, from, to)
}

// ListMine возвращает смены сотрудника, начиная с прошлой недели.
func (s *ScheduleService) ListMine(ctx context.Context, staffID uuid.UUID) ([]models.Schedule, error) {
	from := dateOf(s.now()).AddDate(0, 0, -7)
	return s.repo.ListByStaff(ctx, staffID, from)
}

// CheckIn отмечает явку сотрудника на свою смену в день патрулирования.
// Ночная смена, переходящая через полночь, принимает отметку и утром до её окончания.
func (s *ScheduleService) CheckIn(ctx context.Context, actor *Claims, id uuid.UUID) (*models.Schedule, error) {
	if actor == nil || actor.Kind != KindStaff {
		return nil, apperror.ErrForbidden
	}

	schedule, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.StaffID != actor.SubjectID {
		return nil, apperror.ErrScheduleNotFound
	}
	if schedule.Status != models.ScheduleStatusScheduled {
		return nil, errScheduleNotScheduled
	}

	now := s.now()
	if !onPatrolDay(schedule, now) {
		return nil, errScheduleNotToday
	}

	if err := s.repo.CheckIn(ctx, schedule.ID, now); err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return nil, errScheduleNotScheduled
		}
		return nil, err
	}

	schedule.Status = models.ScheduleStatusAttended
	schedule.CheckedInAt = &now
	return schedule, nil
}

func (s *ScheduleService) get(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	schedule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapScheduleErr(err)
	}
	return schedule, nil
}

// apply проверяет ввод и переносит его в смену.
func (s *ScheduleService) apply(ctx context.Context, schedule *models.Schedule, in ScheduleInput) error {
	date, err := validation.ParseDate(in.PatrolDate)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateShift(in.ShiftStart, in.ShiftEnd); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	area := strings.TrimSpace(in.Area)
	if err := validation.ValidateLength("area", area, 1, validation.MaxLocationLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	notes := strings.TrimSpace(in.Notes)
	if err := validation.ValidateLength("catatan", notes, 0, validation.MaxNoteLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	staff, err := s.staff.GetByID(ctx, in.StaffID)
	if errors.Is(err, repository.ErrStaffNotFound) {
		return apperror.ErrStaffNotFound
	}
	if err != nil {
		return err
	}
	if staff.Status != models.StaffStatusActive {
		return apperror.New(apperror.ErrCodeBadRequest, "Jadwal hanya bisa diberikan kepada petugas aktif.")
	}

	schedule.StaffID = staff.ID
	schedule.PatrolDate = date
	schedule.ShiftStart = in.ShiftStart
	schedule.ShiftEnd = in.ShiftEnd
	schedule.Area = area
	schedule.Notes = nil
	if notes != "" {
		schedule.Notes = &notes
	}
	return nil
}

// onPatrolDay сравнивает календарные даты в часовом поясе now.
func onPatrolDay(schedule *models.Schedule, now time.Time) bool {
	patrol := schedule.PatrolDate.Format(time.DateOnly)
	today := now.Format(time.DateOnly)
	if patrol == today {
		return true
	}
	overnight := schedule.ShiftEnd < schedule.ShiftStart
	yesterday := now.AddDate(0, 0, -1).Format(time.DateOnly)
	return overnight && patrol == yesterday && now.Format("15:04") < schedule.ShiftEnd
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mapScheduleErr(err error) error {
	if errors.Is(err, repository.ErrScheduleNotFound) {
		return apperror.ErrScheduleNotFound
	}
	return err
}
