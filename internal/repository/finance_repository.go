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

var (
	ErrDueNotFound        = errors.New("due not found")
	ErrHonorariumNotFound = errors.New("honorarium not found")
	ErrDuplicatePeriod    = errors.New("record for period already exists")
)

// FinanceRepository работает с взносами жителей и выплатами сотрудникам.
type FinanceRepository struct {
	db *sqlx.DB
}

// NewFinanceRepository создаёт экземпляр репозитория.
func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

func (r *FinanceRepository) CreateDue(ctx context.Context, due *models.Due) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO dues (user_id, period, amount, recorded_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, created_at
	`, due.UserID, due.Period, due.Amount, due.RecordedBy).Scan(&due.ID, &due.Status, &due.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePeriod
		}
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("finance repository: create due %w", err)
	}
	return nil
}

// CreateDuesForPeriod выставляет взнос всем активным жителям за период.
// Уже выставленные взносы не трогаются. Возвращает число новых записей.
func (r *FinanceRepository) CreateDuesForPeriod(ctx context.Context, period string, amount int64, recordedBy uuid.UUID) (int64, error) {
	var inserted int64
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var userIDs []uuid.UUID
		if err := tx.SelectContext(ctx, &userIDs, `SELECT id FROM users WHERE is_active = TRUE`); err != nil {
			return fmt.Errorf("finance repository: list residents %w", err)
		}

		bi := common.NewBatchInserter(tx,
			`INSERT INTO dues (user_id, period, amount, recorded_by)`,
			`ON CONFLICT (user_id, period) DO NOTHING`, 4, 200)
		for _, id := range userIDs {
			if err := bi.Add(ctx, id, period, amount, recordedBy); err != nil {
				return err
			}
		}
		if err := bi.Flush(ctx); err != nil {
			return err
		}
		inserted = bi.Inserted()
		return nil
	})
	return inserted, err
}

func (r *FinanceRepository) ListDuesByUser(ctx context.Context, userID uuid.UUID) ([]models.Due, error) {
	var dues []models.Due
	if err := r.db.SelectContext(ctx, &dues, `SELECT * FROM dues WHERE user_id = $1 ORDER BY period DESC`, userID); err != nil {
		return nil, fmt.Errorf("finance repository: list dues by user %w", err)
	}
	return dues, nil
}

func (r *FinanceRepository) ListDuesByPeriod(ctx context.Context, period string) ([]models.Due, error) {
	var dues []models.Due
	if err := r.db.SelectContext(ctx, &dues, `SELECT * FROM dues WHERE period = $1 ORDER BY created_at`, period); err != nil {
		return nil, fmt.Errorf("finance repository: list dues by period %w", err)
	}
	return dues, nil
}

func (r *FinanceRepository) MarkDuePaid(ctx context.Context, id uuid.UUID, at time.Time) (*models.Due, error) {
	var due models.Due
	err := r.db.GetContext(ctx, &due, `
		UPDATE dues SET status = 'paid', paid_at = $2 WHERE id = $1 RETURNING *
	`, id, at)
	if err != nil {
		return nil, notFoundOr(err, ErrDueNotFound, "finance repository: mark due paid")
	}
	return &due, nil
}

func (r *FinanceRepository) DueSummary(ctx context.Context, period string) (*models.PeriodSummary, error) {
	return r.summary(ctx, "dues", period)
}

func (r *FinanceRepository) CreateHonorarium(ctx context.Context, h *models.Honorarium) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO honorariums (staff_id, period, amount, recorded_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, created_at
	`, h.StaffID, h.Period, h.Amount, h.RecordedBy).Scan(&h.ID, &h.Status, &h.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePeriod
		}
		if isForeignKeyViolation(err) {
			return ErrStaffNotFound
		}
		return fmt.Errorf("finance repository: create honorarium %w", err)
	}
	return nil
}

func (r *FinanceRepository) ListHonorariumsByStaff(ctx context.Context, staffID uuid.UUID) ([]models.Honorarium, error) {
	var list []models.Honorarium
	if err := r.db.SelectContext(ctx, &list, `SELECT * FROM honorariums WHERE staff_id = $1 ORDER BY period DESC`, staffID); err != nil {
		return nil, fmt.Errorf("finance repository: list honorariums by staff %w", err)
	}
	return list, nil
}

func (r *FinanceRepository) ListHonorariumsByPeriod(ctx context.Context, period string) ([]models.Honorarium, error) {
	var list []models.Honorarium
	if err := r.db.SelectContext(ctx, &list, `SELECT * FROM honorariums WHERE period = $1 ORDER BY created_at`, period); err != nil {
		return nil, fmt.Errorf("finance repository: list honorariums by period %w", err)
	}
	return list, nil
}

func (r *FinanceRepository) MarkHonorariumPaid(ctx context.Context, id uuid.UUID, at time.Time) (*models.Honorarium, error) {
	var h models.Honorarium
	err := r.db.GetContext(ctx, &h, `
		UPDATE honorariums SET status = 'paid', paid_at = $2 WHERE id = $1 RETURNING *
	`, id, at)
	if err != nil {
		return nil, notFoundOr(err, ErrHonorariumNotFound, "finance repository: mark honorarium paid")
	}
	return &h, nil
}

func (r *FinanceRepository) HonorariumSummary(ctx context.Context, period string) (*models.PeriodSummary, error) {
	return r.summary(ctx, "honorariums", period)
}

// summary считает итоги по таблице. table задаётся только внутри пакета.
func (r *FinanceRepository) summary(ctx context.Context, table, period string) (*models.PeriodSummary, error) {
	summary := models.PeriodSummary{Period: period}
	query := fmt.Sprintf(`
		SELECT COUNT(*) AS total_count,
			COUNT(*) FILTER (WHERE status = 'paid') AS paid_count,
			COALESCE(SUM(amount), 0) AS total_amount,
			COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0) AS paid_amount
		FROM %s WHERE period = $1
	`, table)
	if err := r.db.GetContext(ctx, &summary, query, period); err != nil {
		return nil, fmt.Errorf("finance repository: summary %s %w", table, err)
	}
	return &summary, nil
}
