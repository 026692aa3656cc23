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

var (
	ErrAnnouncementNotFound = errors.New("announcement not found")
	ErrContactNotFound      = errors.New("emergency contact not found")
	ErrSettingNotFound      = errors.New("setting not found")
)

// CommunityRepository хранит общедоступные данные района:
// объявления, экстренные контакты, настройки и журнал администратора.
type CommunityRepository struct {
	db *sqlx.DB
}

func NewCommunityRepository(db *sqlx.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

func (r *CommunityRepository) ListAnnouncements(ctx context.Context, limit, offset int) ([]models.Announcement, error) {
	var list []models.Announcement
	err := r.db.SelectContext(ctx, &list, `
		SELECT * FROM announcements ORDER BY pinned DESC, created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("community repository: list announcements %w", err)
	}
	return list, nil
}

func (r *CommunityRepository) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO announcements (title, body, author_id, pinned)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, a.Title, a.Body, a.AuthorID, a.Pinned).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("community repository: create announcement %w", err)
	}
	return nil
}

func (r *CommunityRepository) UpdateAnnouncement(ctx context.Context, a *models.Announcement) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE announcements SET title = $2, body = $3, pinned = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING author_id, created_at, updated_at
	`, a.ID, a.Title, a.Body, a.Pinned).Scan(&a.AuthorID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return notFoundOr(err, ErrAnnouncementNotFound, "community repository: update announcement")
	}
	return nil
}

func (r *CommunityRepository) DeleteAnnouncement(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("community repository: delete announcement %w", err)
	}
	return common.ExpectOne(result, ErrAnnouncementNotFound)
}

func (r *CommunityRepository) ListContacts(ctx context.Context) ([]models.EmergencyContact, error) {
	var list []models.EmergencyContact
	if err := r.db.SelectContext(ctx, &list, `SELECT * FROM emergency_contacts ORDER BY sort_order, name`); err != nil {
		return nil, fmt.Errorf("community repository: list contacts %w", err)
	}
	return list, nil
}

func (r *CommunityRepository) CreateContact(ctx context.Context, c *models.EmergencyContact) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO emergency_contacts (name, phone, category, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.Name, c.Phone, c.Category, c.SortOrder).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("community repository: create contact %w", err)
	}
	return nil
}

func (r *CommunityRepository) UpdateContact(ctx context.Context, c *models.EmergencyContact) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE emergency_contacts SET name = $2, phone = $3, category = $4, sort_order = $5 WHERE id = $1
	`, c.ID, c.Name, c.Phone, c.Category, c.SortOrder)
	if err != nil {
		return fmt.Errorf("community repository: update contact %w", err)
	}
	return common.ExpectOne(result, ErrContactNotFound)
}

func (r *CommunityRepository) DeleteContact(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("community repository: delete contact %w", err)
	}
	return common.ExpectOne(result, ErrContactNotFound)
}

func (r *CommunityRepository) ListSettings(ctx context.Context) ([]models.AppSetting, error) {
	var list []models.AppSetting
	if err := r.db.SelectContext(ctx, &list, `SELECT * FROM app_settings ORDER BY key`); err != nil {
		return nil, fmt.Errorf("community repository: list settings %w", err)
	}
	return list, nil
}

func (r *CommunityRepository) GetSetting(ctx context.Context, key string) (*models.AppSetting, error) {
	var s models.AppSetting
	if err := r.db.GetContext(ctx, &s, `SELECT * FROM app_settings WHERE key = $1`, key); err != nil {
		return nil, notFoundOr(err, ErrSettingNotFound, "community repository: get setting")
	}
	return &s, nil
}

func (r *CommunityRepository) UpsertSetting(ctx context.Context, s *models.AppSetting) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO app_settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING updated_at
	`, s.Key, s.Value, s.UpdatedBy).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("community repository: upsert setting %w", err)
	}
	return nil
}

func (r *CommunityRepository) CreateAdminLog(ctx context.Context, l *models.AdminLog) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO admin_logs (actor_id, action, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, l.ActorID, l.Action, l.TargetType, l.TargetID, l.Details).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("community repository: create admin log %w", err)
	}
	return nil
}

func (r *CommunityRepository) ListAdminLogs(ctx context.Context, limit, offset int) ([]models.AdminLog, error) {
	var list []models.AdminLog
	err := r.db.SelectContext(ctx, &list, `
		SELECT * FROM admin_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("community repository: list admin logs %w", err)
	}
	return list, nil
}
