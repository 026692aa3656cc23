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

var ErrReportNotFound = errors.New("report not found")

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO reports (reporter_id, title, description, location, category, photo_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, threat_level, created_at, updated_at
	`, report.ReporterID, report.Title, report.Description, report.Location, report.Category, report.PhotoPath).
		Scan(&report.ID, &report.Status, &report.ThreatLevel, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("report repository: create %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.GetContext(ctx, &report, `SELECT * FROM reports WHERE id = $1`, id); err != nil {
		return nil, notFoundOr(err, ErrReportNotFound, "report repository: get by id")
	}
	return &report, nil
}

func (r *ReportRepository) ListByReporter(ctx context.Context, reporterID uuid.UUID, limit, offset int) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.SelectContext(ctx, &reports, `
		SELECT * FROM reports WHERE reporter_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, reporterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("report repository: list by reporter %w", err)
	}
	return reports, nil
}

// List возвращает сообщения для сотрудников с фильтрами по статусу и уровню угрозы.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	query := `SELECT * FROM reports WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.ThreatLevel != "" {
		query += fmt.Sprintf(" AND threat_level = $%d", argIndex)
		args = append(args, filter.ThreatLevel)
		argIndex++
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("report repository: list %w", err)
	}
	return reports, nil
}

func (r *ReportRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reports WHERE status = 'pending'`); err != nil {
		return 0, fmt.Errorf("report repository: count pending %w", err)
	}
	return count, nil
}

// UpdateStatus меняет статус только если текущий статус равен from.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, handledBy uuid.UUID, note *string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reports
		SET status = $3, handled_by = $4, handler_note = COALESCE($5, handler_note), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to, handledBy, note)
	if err != nil {
		return fmt.Errorf("report repository: update status %w", err)
	}
	return common.ExpectOne(result, ErrReportNotFound)
}

func (r *ReportRepository) SaveTriage(ctx context.Context, id uuid.UUID, result models.TriageResult, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports
		SET threat_level = $2, category = CASE WHEN category = 'other' THEN $3 ELSE category END, triage_summary = $4, triaged_at = $5, updated_at = NOW()
		WHERE id = $1
	`, id, result.ThreatLevel, result.Category, result.Summary, at)
	if err != nil {
		return fmt.Errorf("report repository: save triage %w", err)
	}
	return common.ExpectOne(res, ErrReportNotFound)
}
