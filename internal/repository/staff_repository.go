package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/repository/common"
)

// ErrStaffNotFound возвращается, когда сотрудник не найден.
var ErrStaffNotFound = errors.New("staff not found")

// ErrEmailTaken возвращается при нарушении уникальности email.
var ErrEmailTaken = errors.New("email already registered")

const staffColumns = `id, name, email, phone, role, status, access_code_hash, last_code_change_at,
	suspension_end_date, suspension_reason, created_at, updated_at`

// StaffRepository работает с таблицей staff.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository создаёт экземпляр репозитория.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Create добавляет сотрудника. Статус и роль берутся из модели.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	query := `
		INSERT INTO staff (name, email, phone, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		staff.Name, staff.Email, staff.Phone, staff.Role, staff.Status,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("staff repository: create %w", err)
	}

	return nil
}

// GetByID возвращает сотрудника по идентификатору.
func (r *StaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	return common.GetByField[models.Staff](ctx, r.db, "staff", staffColumns, "id", id, ErrStaffNotFound)
}

// GetByEmail возвращает сотрудника по email.
func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*models.Staff, error) {
	return common.GetByField[models.Staff](ctx, r.db, "staff", staffColumns, "email", email, ErrStaffNotFound)
}

// List возвращает сотрудников, опционально отфильтрованных по статусу.
func (r *StaffRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff`
	args := []interface{}{}
	argIndex := 1

	if status != "" {
		query += fmt.Sprintf(" WHERE status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query, args...); err != nil {
		return nil, fmt.Errorf("staff repository: list %w", err)
	}

	return staff, nil
}

// ListAdmins возвращает активных администраторов.
func (r *StaffRepository) ListAdmins(ctx context.Context) ([]models.Staff, error) {
	var admins []models.Staff
	query := `SELECT ` + staffColumns + ` FROM staff WHERE role = 'admin' AND status = 'active'`
	if err := r.db.SelectContext(ctx, &admins, query); err != nil {
		return nil, fmt.Errorf("staff repository: list admins %w", err)
	}
	return admins, nil
}

// UpsertAdmin создаёт активного администратора или повышает сотрудника с тем же email.
// last_code_change_at сбрасывается, чтобы выданный код можно было сразу сменить.
func (r *StaffRepository) UpsertAdmin(ctx context.Context, staff *models.Staff, accessCodeHash string) error {
	query := `
		INSERT INTO staff (name, email, phone, role, status, access_code_hash)
		VALUES ($1, $2, $3, 'admin', 'active', $4)
		ON CONFLICT (email) DO UPDATE
		SET role = 'admin', status = 'active', access_code_hash = EXCLUDED.access_code_hash,
			last_code_change_at = NULL, suspension_end_date = NULL, suspension_reason = NULL,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		staff.Name, staff.Email, staff.Phone, accessCodeHash,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt); err != nil {
		return fmt.Errorf("staff repository: upsert admin %w", err)
	}

	staff.Role = models.StaffRoleAdmin
	staff.Status = models.StaffStatusActive
	staff.AccessCodeHash = &accessCodeHash
	return nil
}

// Activate переводит сотрудника в active и задаёт хеш кода доступа.
// last_code_change_at остаётся пустым, чтобы первый код можно было сразу сменить.
func (r *StaffRepository) Activate(ctx context.Context, id uuid.UUID, accessCodeHash string) error {
	query := `
		UPDATE staff
		SET status = 'active', access_code_hash = $2, suspension_end_date = NULL,
			suspension_reason = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "activate", query, id, accessCodeHash)
}

// Suspend переводит сотрудника в suspended.
func (r *StaffRepository) Suspend(ctx context.Context, id uuid.UUID, until *time.Time, reason string) error {
	query := `
		UPDATE staff
		SET status = 'suspended', suspension_end_date = $2, suspension_reason = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "suspend", query, id, until, reason)
}

// Reactivate снимает приостановку.
func (r *StaffRepository) Reactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE staff
		SET status = 'active', suspension_end_date = NULL, suspension_reason = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "reactivate", query, id)
}

// UpdateAccessCode записывает новый хеш кода и момент смены одной строкой.
func (r *StaffRepository) UpdateAccessCode(ctx context.Context, id uuid.UUID, accessCodeHash string, changedAt time.Time) error {
	query := `
		UPDATE staff
		SET access_code_hash = $2, last_code_change_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "update access code", query, id, accessCodeHash, changedAt)
}

// Delete удаляет сотрудника. Используется при отклонении заявки.
func (r *StaffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "delete", `DELETE FROM staff WHERE id = $1`, id)
}

func (r *StaffRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("staff repository: %s %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("staff repository: %s rows affected %w", op, err)
	}

	if rowsAffected == 0 {
		return ErrStaffNotFound
	}

	return nil
}

// isUniqueViolation проверяет код ошибки Postgres 23505.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// notFoundOr превращает sql.ErrNoRows в доменную ошибку.
func notFoundOr(err, notFound error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return fmt.Errorf("%s %w", op, err)
}
