package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/repository/common"
)

// ErrScheduleNotFound возвращается, когда смена не найдена.
var ErrScheduleNotFound = errors.New("schedule not found")

// ScheduleRepository работает с таблицей schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository создаёт экземпляр репозитория.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *models.Schedule) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO schedules (staff_id, patrol_date, shift_start, shift_end, area, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, created_at
	`, s.StaffID, s.PatrolDate, s.ShiftStart, s.ShiftEnd, s.Area, s.Notes).
		Scan(&s.ID, &s.Status, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("schedule repository: create %w", err)
	}
	return nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var s models.Schedule
	if err := r.db.GetContext(ctx, &s, `SELECT * FROM schedules WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, ErrScheduleNotFound, "schedule repository: get by id")
	}
	return &s, nil
}

func (r *ScheduleRepository) Update(ctx context.Context, s *models.Schedule) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET staff_id = $2, patrol_date = $3, shift_start = $4, shift_end = $5, area = $6, status = $7, notes = $8
		WHERE id = $1
	`, s.ID, s.StaffID, s.PatrolDate, s.ShiftStart, s.ShiftEnd, s.Area, s.Status, s.Notes)
	if err != nil {
		return fmt.Errorf("schedule repository: update %w", err)
	}
	return common.ExpectOne(result, ErrScheduleNotFound)
}

func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("schedule repository: delete %w", err)
	}
	return common.ExpectOne(result, ErrScheduleNotFound)
}

// ListRange возвращает смены в интервале дат включительно.
func (r *ScheduleRepository) ListRange(ctx context.Context, from, to time.Time) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.db.SelectContext(ctx, &schedules, `
		SELECT * FROM schedules WHERE patrol_date BETWEEN $1 AND $2 ORDER BY patrol_date, shift_start
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("schedule repository: list range %w", err)
	}
	return schedules, nil
}

func (r *ScheduleRepository) ListByStaff(ctx context.Context, staffID uuid.UUID, from time.Time) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.db.SelectContext(ctx, &schedules, `
		SELECT * FROM schedules WHERE staff_id = $1 AND patrol_date >= $2 ORDER BY patrol_date, shift_start
	`, staffID, from)
	if err != nil {
		return nil, fmt.Errorf("schedule repository: list by staff %w", err)
	}
	return schedules, nil
}

// CheckIn отмечает явку. Срабатывает только для смены в статусе scheduled.
func (r *ScheduleRepository) CheckIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE schedules SET status = 'attended', checked_in_at = $2 WHERE id = $1 AND status = 'scheduled'
	`, id, at)
	if err != nil {
		return fmt.Errorf("schedule repository: check in %w", err)
	}
	return common.ExpectOne(result, ErrScheduleNotFound)
}
