package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/repository/common"
)

// ErrUserNotFound возвращается, когда житель не найден.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, name, email, phone, address, rt, rw, is_active, created_at, updated_at`

// UserRepository работает с таблицей users (жители).
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт жителя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, phone, address, rt, rw, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id, is_active, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.Name, user.Email, user.Phone, user.Address, user.RT, user.RW,
	).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

// GetByEmail возвращает жителя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", userColumns, "email", email, ErrUserNotFound)
}

// GetByID возвращает жителя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", userColumns, "id", id, ErrUserNotFound)
}

// List возвращает жителей постранично.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	query := `SELECT ` + userColumns + ` FROM users ORDER BY name ASC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, fmt.Errorf("user repository: list %w", err)
	}
	return users, nil
}

// SetActive включает или отключает учётную запись жителя.
func (r *UserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("user repository: set active %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("user repository: set active rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
