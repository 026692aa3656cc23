package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/baronda/siskamling-backend/internal/models"
)

// ErrOTPNotFound возвращается, когда код для email не найден.
var ErrOTPNotFound = errors.New("otp not found")

// ErrOTPAlreadyUsed возвращается, когда код уже погашен другим запросом.
var ErrOTPAlreadyUsed = errors.New("otp already used")

// OTPRepository хранит одноразовые коды в таблице otps.
type OTPRepository struct {
	db *sqlx.DB
}

// NewOTPRepository создаёт экземпляр репозитория.
func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create сохраняет новый код.
func (r *OTPRepository) Create(ctx context.Context, record *models.OTPRecord) error {
	query := `
		INSERT INTO otps (email, code, context, used, attempts, created_at, expires_at)
		VALUES ($1, $2, $3, FALSE, 0, $4, $5)
		RETURNING id
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		record.Email, record.Code, record.Context, record.CreatedAt, record.ExpiresAt,
	).Scan(&record.ID); err != nil {
		return fmt.Errorf("otp repository: create %w", err)
	}

	return nil
}

// DeleteOtherUnused удаляет непогашенные коды email, кроме keep.
func (r *OTPRepository) DeleteOtherUnused(ctx context.Context, email string, keep uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE email = $1 AND used = FALSE AND id <> $2`, email, keep); err != nil {
		return fmt.Errorf("otp repository: delete unused %w", err)
	}
	return nil
}

// Delete удаляет код по идентификатору.
func (r *OTPRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE id = $1`, id); err != nil {
		return fmt.Errorf("otp repository: delete %w", err)
	}
	return nil
}

// FindByEmailAndCode ищет запись по точному совпадению email и кода.
// Сначала берутся непогашенные, внутри группы самые новые.
func (r *OTPRepository) FindByEmailAndCode(ctx context.Context, email, code string) (*models.OTPRecord, error) {
	var record models.OTPRecord
	query := `
		SELECT id, email, code, context, used, attempts, created_at, expires_at
		FROM otps
		WHERE email = $1 AND code = $2
		ORDER BY used ASC, created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &record, query, email, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("otp repository: find %w", err)
	}

	return &record, nil
}

// MarkUsed погашает код. Условие used = FALSE гарантирует, что из двух
// одновременных запросов успешным будет только один.
func (r *OTPRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE otps SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	if err != nil {
		return fmt.Errorf("otp repository: mark used %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("otp repository: mark used rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrOTPAlreadyUsed
	}

	return nil
}

// IncrementAttempts увеличивает счётчик неудачных попыток по непогашенным кодам email.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE otps SET attempts = attempts + 1 WHERE email = $1 AND used = FALSE`, email); err != nil {
		return fmt.Errorf("otp repository: increment attempts %w", err)
	}
	return nil
}

// DeleteExpiredBefore удаляет коды, истёкшие раньше cutoff. Возвращает число удалённых строк.
func (r *OTPRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("otp repository: delete expired %w", err)
	}

	return result.RowsAffected()
}
