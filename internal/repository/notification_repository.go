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

// ErrNotificationNotFound возвращается, когда уведомление не найдено.
var ErrNotificationNotFound = errors.New("notification not found")

// Recipient определяет адресата уведомлений: житель или сотрудник.
type Recipient struct {
	ID   uuid.UUID
	Kind string
}

// NotificationRepository отвечает за работу с уведомлениями.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository создаёт экземпляр репозитория.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создаёт новое уведомление.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, recipient_kind, payload, is_read)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		notification.RecipientID,
		notification.RecipientKind,
		notification.Payload,
		notification.IsRead,
	).Scan(&notification.ID, &notification.CreatedAt); err != nil {
		return fmt.Errorf("notification repository: create %w", err)
	}

	return nil
}

// List возвращает уведомления адресата с пагинацией.
func (r *NotificationRepository) List(ctx context.Context, to Recipient, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	query := `
		SELECT * FROM notifications
		WHERE recipient_id = $1 AND recipient_kind = $2
	`
	args := []interface{}{to.ID, to.Kind}
	argIndex := 3

	if unreadOnly {
		query += " AND is_read = FALSE"
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
	}

	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, offset)
	}

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("notification repository: list %w", err)
	}

	return notifications, nil
}

// MarkAsRead отмечает уведомление адресата как прочитанное.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, to Recipient, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND recipient_id = $2 AND recipient_kind = $3
	`, id, to.ID, to.Kind)
	if err != nil {
		return fmt.Errorf("notification repository: mark as read %w", err)
	}
	return common.ExpectOne(result, ErrNotificationNotFound)
}

// MarkAllAsRead отмечает все уведомления адресата как прочитанные.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, to Recipient) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE recipient_id = $1 AND recipient_kind = $2 AND is_read = FALSE
	`, to.ID, to.Kind)
	if err != nil {
		return fmt.Errorf("notification repository: mark all as read %w", err)
	}

	return nil
}

// Delete удаляет уведомление адресата.
func (r *NotificationRepository) Delete(ctx context.Context, to Recipient, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE id = $1 AND recipient_id = $2 AND recipient_kind = $3
	`, id, to.ID, to.Kind)
	if err != nil {
		return fmt.Errorf("notification repository: delete %w", err)
	}
	return common.ExpectOne(result, ErrNotificationNotFound)
}

// CountUnread возвращает количество непрочитанных уведомлений адресата.
func (r *NotificationRepository) CountUnread(ctx context.Context, to Recipient) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND recipient_kind = $2 AND is_read = FALSE
	`, to.ID, to.Kind); err != nil {
		return 0, fmt.Errorf("notification repository: count unread %w", err)
	}

	return count, nil
}
