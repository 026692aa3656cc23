package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
)

// mockScheduleRepository реализует ScheduleRepository в памяти.
type mockScheduleRepository struct {
	byID map[uuid.UUID]*models.Schedule
}

func newMockScheduleRepository() *mockScheduleRepository {
	return &mockScheduleRepository{byID: make(map[uuid.UUID]*models.Schedule)}
}

func (m *mockScheduleRepository) Create(ctx context.Context, s *models.Schedule) error {
	s.ID = uuid.New()
	copied := *s
	m.byID[s.ID] = &copied
	return nil
}

func (m *mockScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrScheduleNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockScheduleRepository) Update(ctx context.Context, s *models.Schedule) error {
	if _, ok := m.byID[s.ID]; !ok {
		return repository.ErrScheduleNotFound
	}
	copied := *s
	m.byID[s.ID] = &copied
	return nil
}

func (m *mockScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrScheduleNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockScheduleRepository) ListRange(ctx context.Context, from, to time.Time) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, s := range m.byID {
		if !s.PatrolDate.Before(from) && !s.PatrolDate.After(to) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockScheduleRepository) ListByStaff(ctx context.Context, staffID uuid.UUID, from time.Time) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, s := range m.byID {
		if s.StaffID == staffID && !s.PatrolDate.Before(from) {
			out = append(out, *s)
		}
	}
	return out, nil
}

// CheckIn повторяет условный UPDATE: только из scheduled.
func (m *mockScheduleRepository) CheckIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	s, ok := m.byID[id]
	if !ok || s.Status != models.ScheduleStatusScheduled {
		return repository.ErrScheduleNotFound
	}
	s.Status = models.ScheduleStatusAttended
	s.CheckedInAt = &at
	return nil
}

type fakeStaffNotifier struct {
	events []string
	to     []uuid.UUID
}

func (f *fakeStaffNotifier) NotifyStaff(ctx context.Context, staffID uuid.UUID, event string, data any) {
	f.events = append(f.events, event)
	f.to = append(f.to, staffID)
}

type scheduleFixture struct {
	svc      *ScheduleService
	repo     *mockScheduleRepository
	staff    *mockStaffRepository
	notifier *fakeStaffNotifier
	audit    *fakeAudit
	clock    *testClock
	admin    *Claims
	guard    *models.Staff
}

func newScheduleFixture() *scheduleFixture {
	repo := newMockScheduleRepository()
	staff := newMockStaffRepository()
	notifier := &fakeStaffNotifier{}
	audit := &fakeAudit{}
	clock := &testClock{t: time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)}

	guard := &models.Staff{ID: uuid.New(), Name: "Budi", Email: "budi@example.com",
		Role: models.StaffRoleStaff, Status: models.StaffStatusActive}
	staff.byID[guard.ID] = guard

	svc := NewScheduleService(repo, staff, notifier, audit)
	svc.now = clock.Now

	return &scheduleFixture{
		svc: svc, repo: repo, staff: staff, notifier: notifier, audit: audit, clock: clock,
		admin: &Claims{SubjectID: uuid.New(), Role: models.StaffRoleAdmin, Kind: KindStaff},
		guard: guard,
	}
}

func (f *scheduleFixture) guardClaims() *Claims {
	return &Claims{SubjectID: f.guard.ID, Role: models.StaffRoleStaff, Kind: KindStaff}
}

func (f *scheduleFixture) create(t *testing.T, date, start, end string) *models.Schedule {
	t.Helper()
	schedule, err := f.svc.Create(context.Background(), f.admin, ScheduleInput{
		StaffID: f.guard.ID, PatrolDate: date, ShiftStart: start, ShiftEnd: end, Area: "Pos RW 05",
	})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return schedule
}

func TestScheduleService_CreateNotifiesAndAudits(t *testing.T) {
	f := newScheduleFixture()
	schedule := f.create(t, "2024-03-01", "22:00", "04:00")

	if schedule.Status != models.ScheduleStatusScheduled {
		t.Fatalf("expected scheduled, got %s", schedule.Status)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0] != EventScheduleAssigned || f.notifier.to[0] != f.guard.ID {
		t.Fatalf("expected assignment notification to guard, got %v", f.notifier.events)
	}
	if len(f.audit.actions) != 1 || f.audit.actions[0] != models.AdminActionScheduleCreate {
		t.Fatalf("expected audit entry, got %v", f.audit.actions)
	}
}

func TestScheduleService_CreateRequiresAdmin(t *testing.T) {
	f := newScheduleFixture()
	_, err := f.svc.Create(context.Background(), f.guardClaims(), ScheduleInput{
		StaffID: f.guard.ID, PatrolDate: "2024-03-01", ShiftStart: "22:00", ShiftEnd: "04:00", Area: "Pos",
	})
	if !apperror.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestScheduleService_CreateRejectsInactiveStaff(t *testing.T) {
	f := newScheduleFixture()
	f.guard.Status = models.StaffStatusSuspended

	_, err := f.svc.Create(context.Background(), f.admin, ScheduleInput{
		StaffID: f.guard.ID, PatrolDate: "2024-03-01", ShiftStart: "22:00", ShiftEnd: "04:00", Area: "Pos",
	})
	if err == nil {
		t.Fatal("expected error for suspended staff")
	}
	if len(f.repo.byID) != 0 {
		t.Fatal("schedule must not be stored")
	}
}

func TestScheduleService_CreateValidatesShift(t *testing.T) {
	f := newScheduleFixture()
	_, err := f.svc.Create(context.Background(), f.admin, ScheduleInput{
		StaffID: f.guard.ID, PatrolDate: "2024-03-01", ShiftStart: "22:00", ShiftEnd: "22:00", Area: "Pos",
	})
	if !apperror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestScheduleService_UpdateReassignNotifiesBoth(t *testing.T) {
	f := newScheduleFixture()
	schedule := f.create(t, "2024-03-02", "22:00", "04:00")

	other := &models.Staff{ID: uuid.New(), Name: "Joko", Email: "joko@example.com",
		Role: models.StaffRoleStaff, Status: models.StaffStatusActive}
	f.staff.byID[other.ID] = other
	f.notifier.events = nil
	f.notifier.to = nil

	_, err := f.svc.Update(context.Background(), f.admin, schedule.ID, ScheduleInput{
		StaffID: other.ID, PatrolDate: "2024-03-02", ShiftStart: "22:00", ShiftEnd: "04:00", Area: "Pos",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(f.notifier.events) != 2 ||
		f.notifier.events[0] != EventScheduleRemoved || f.notifier.to[0] != f.guard.ID ||
		f.notifier.events[1] != EventScheduleAssigned || f.notifier.to[1] != other.ID {
		t.Fatalf("unexpected notifications: %v %v", f.notifier.events, f.notifier.to)
	}
}

func TestScheduleService_CheckInOnPatrolDay(t *testing.T) {
	f := newScheduleFixture()
	schedule := f.create(t, "2024-03-01", "22:00", "04:00")

	got, err := f.svc.CheckIn(context.Background(), f.guardClaims(), schedule.ID)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if got.Status != models.ScheduleStatusAttended || got.CheckedInAt == nil {
		t.Fatalf("expected attended with timestamp, got %+v", got)
	}

	// Повторная отметка отклоняется.
	if _, err := f.svc.CheckIn(context.Background(), f.guardClaims(), schedule.ID); err == nil {
		t.Fatal("second check in must fail")
	}
}

func TestScheduleService_CheckInOvernightNextMorning(t *testing.T) {
	f := newScheduleFixture()
	schedule := f.create(t, "2024-03-01", "22:00", "04:00")

	f.clock.t = time.Date(2024, 3, 2, 3, 30, 0, 0, time.UTC)
	if _, err := f.svc.CheckIn(context.Background(), f.guardClaims(), schedule.ID); err != nil {
		t.Fatalf("overnight check in before shift end should pass: %v", err)
	}
}

func TestScheduleService_CheckInAfterShiftEnded(t *testing.T) {
	f := newScheduleFixture()
	schedule := f.create(t, "2024-03-01", "22:00", "04:00")

	f.clock.t = time.Date(2024, 3, 2, 5, 0, 0, 0, time.UTC)
	_, err := f.svc.CheckIn(context.Background(), f.guardClaims(), schedule.ID)
	if err == nil {
		t.Fatal("check in after overnight shift end must fail")
	}
	if stored := f.repo.byID[schedule.ID]; stored.Status != models.ScheduleStatusScheduled {
		t.Fatalf("status must stay scheduled, got %s", stored.Status)
	}
}

func TestScheduleService_CheckInWrongDay(t *testing.T) {
	f := newScheduleFixture()
	schedule := f.create(t, "2024-03-05", "08:00", "16:00")

	if _, err := f.svc.CheckIn(context.Background(), f.guardClaims(), schedule.ID); err == nil {
		t.Fatal("check in before patrol day must fail")
	}
}

func TestScheduleService_CheckInForeignScheduleHidden(t *testing.T) {
	f := newScheduleFixture()
	schedule := f.create(t, "2024-03-01", "22:00", "04:00")

	stranger := &Claims{SubjectID: uuid.New(), Role: models.StaffRoleStaff, Kind: KindStaff}
	_, err := f.svc.CheckIn(context.Background(), stranger, schedule.ID)
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found for foreign schedule, got %v", err)
	}
}

func TestScheduleService_MarkMissedOnlyFromScheduled(t *testing.T) {
	f := newScheduleFixture()
	schedule := f.create(t, "2024-03-01", "22:00", "04:00")

	if _, err := f.svc.CheckIn(context.Background(), f.guardClaims(), schedule.ID); err != nil {
		t.Fatalf("check in: %v", err)
	}
	_, err := f.svc.MarkMissed(context.Background(), f.admin, schedule.ID)
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.ErrCodeInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestScheduleService_ListRangeLimits(t *testing.T) {
	f := newScheduleFixture()
	f.create(t, "2024-03-01", "22:00", "04:00")
	f.create(t, "2024-04-15", "22:00", "04:00")

	got, err := f.svc.ListRange(context.Background(), "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 schedule in March, got %d", len(got))
	}

	if _, err := f.svc.ListRange(context.Background(), "2024-01-01", "2024-12-31"); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error for a year-long range, got %v", err)
	}
	if _, err := f.svc.ListRange(context.Background(), "2024-03-31", "2024-03-01"); !apperror.IsValidation(err) {
		t.Fatalf("expected validation error for reversed range, got %v", err)
	}
}

func TestScheduleService_DeleteNotifiesStaff(t *testing.T) {
	f := newScheduleFixture()
	schedule := f.create(t, "2024-03-01", "22:00", "04:00")

	if err := f.svc.Delete(context.Background(), f.admin, schedule.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if last := f.notifier.events[len(f.notifier.events)-1]; last != EventScheduleRemoved {
		t.Fatalf("expected removal notification, got %s", last)
	}
	if err := f.svc.Delete(context.Background(), f.admin, schedule.ID); !apperror.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
