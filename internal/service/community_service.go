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
	EventAnnouncementNew = "announcement.new"
	EventSettingsChanged = "settings.changed"
)

// CommunityRepository описывает хранилище объявлений, контактов и настроек.
type CommunityRepository interface {
	ListAnnouncements(ctx context.Context, limit, offset int) ([]models.Announcement, error)
	CreateAnnouncement(ctx context.Context, a *models.Announcement) error
	UpdateAnnouncement(ctx context.Context, a *models.Announcement) error
	DeleteAnnouncement(ctx context.Context, id uuid.UUID) error
	ListContacts(ctx context.Context) ([]models.EmergencyContact, error)
	CreateContact(ctx context.Context, c *models.EmergencyContact) error
	UpdateContact(ctx context.Context, c *models.EmergencyContact) error
	DeleteContact(ctx context.Context, id uuid.UUID) error
	ListSettings(ctx context.Context) ([]models.AppSetting, error)
	GetSetting(ctx context.Context, key string) (*models.AppSetting, error)
	UpsertSetting(ctx context.Context, s *models.AppSetting) error
}

// Broadcaster рассылает события всем подключённым субъектам вида kind.
type Broadcaster interface {
	Broadcast(kind, event string, data any)
}

// AnnouncementInput: объявление от администратора.
type AnnouncementInput struct {
	Title  string
	Body   string
	Pinned bool
}

// ContactInput: экстренный контакт.
type ContactInput struct {
	Name      string
	Phone     string
	Category  string
	SortOrder int
}

// CommunityService отвечает за общие данные района.
type CommunityService struct {
	repo        CommunityRepository
	broadcaster Broadcaster
	audit       AdminActionRecorder
	cache       *CacheService
}

// publicCacheTTL: сколько живут в кеше публичные списки. Изменения администратора сбрасывают кеш сразу.
const publicCacheTTL = 10 * time.Minute

// NewCommunityService создаёт сервис.
func NewCommunityService(repo CommunityRepository, broadcaster Broadcaster, audit AdminActionRecorder) *CommunityService {
	return &CommunityService{repo: repo, broadcaster: broadcaster, audit: audit}
}

// SetCache подключает кеш публичных списков.
func (s *CommunityService) SetCache(cache *CacheService) {
	s.cache = cache
}

func (s *CommunityService) invalidate(key string) {
	if s.cache != nil {
		s.cache.Delete(key)
	}
}

// ListAnnouncements возвращает объявления: закреплённые первыми.
func (s *CommunityService) ListAnnouncements(ctx context.Context, limit, offset int) ([]models.Announcement, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListAnnouncements(ctx, limit, offset)
}

// CreateAnnouncement публикует объявление и рассылает его жителям и сотрудникам.
func (s *CommunityService) CreateAnnouncement(ctx context.Context, actor *Claims, in AnnouncementInput) (*models.Announcement, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	a, err := announcementFromInput(in)
	if err != nil {
		return nil, err
	}
	a.AuthorID = actor.SubjectID

	if err := s.repo.CreateAnnouncement(ctx, a); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionAnnouncementSave, "announcement", &a.ID, map[string]any{"title": a.Title})
	s.broadcaster.Broadcast(models.RecipientKindUser, EventAnnouncementNew, a)
	s.broadcaster.Broadcast(models.RecipientKindStaff, EventAnnouncementNew, a)
	return a, nil
}

// UpdateAnnouncement редактирует объявление.
func (s *CommunityService) UpdateAnnouncement(ctx context.Context, actor *Claims, id uuid.UUID, in AnnouncementInput) (*models.Announcement, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	a, err := announcementFromInput(in)
	if err != nil {
		return nil, err
	}
	a.ID = id

	if err := s.repo.UpdateAnnouncement(ctx, a); err != nil {
		if errors.Is(err, repository.ErrAnnouncementNotFound) {
			return nil, apperror.ErrAnnouncementNotFound
		}
		return nil, err
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionAnnouncementSave, "announcement", &a.ID, map[string]any{"title": a.Title})
	return a, nil
}

// DeleteAnnouncement удаляет объявление.
func (s *CommunityService) DeleteAnnouncement(ctx context.Context, actor *Claims, id uuid.UUID) error {
	if !isAdmin(actor) {
		return apperror.ErrForbidden
	}
	if err := s.repo.DeleteAnnouncement(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAnnouncementNotFound) {
			return apperror.ErrAnnouncementNotFound
		}
		return err
	}
	s.audit.Record(ctx, actor.SubjectID, models.AdminActionAnnouncementDrop, "announcement", &id, nil)
	return nil
}

func announcementFromInput(in AnnouncementInput) (*models.Announcement, error) {
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	if err := validation.ValidateLength("judul", title, 3, validation.MaxReportTitleLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("isi pengumuman", body, 1, validation.MaxAnnouncementBody); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return &models.Announcement{Title: title, Body: body, Pinned: in.Pinned}, nil
}

// ListContacts возвращает экстренные контакты по sort_order.
func (s *CommunityService) ListContacts(ctx context.Context) ([]models.EmergencyContact, error) {
	return cached(s.cache, CacheKeyContacts, publicCacheTTL, func() ([]models.EmergencyContact, error) {
		return s.repo.ListContacts(ctx)
	})
}

// CreateContact добавляет экстренный контакт.
func (s *CommunityService) CreateContact(ctx context.Context, actor *Claims, in ContactInput) (*models.EmergencyContact, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	c, err := contactFromInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateContact(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(CacheKeyContacts)
	s.audit.Record(ctx, actor.SubjectID, models.AdminActionContactSave, "emergency_contact", &c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// UpdateContact меняет экстренный контакт.
func (s *CommunityService) UpdateContact(ctx context.Context, actor *Claims, id uuid.UUID, in ContactInput) (*models.EmergencyContact, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	c, err := contactFromInput(in)
	if err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.repo.UpdateContact(ctx, c); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return nil, apperror.ErrContactNotFound
		}
		return nil, err
	}
	s.invalidate(CacheKeyContacts)
	s.audit.Record(ctx, actor.SubjectID, models.AdminActionContactSave, "emergency_contact", &c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// DeleteContact удаляет экстренный контакт.
func (s *CommunityService) DeleteContact(ctx context.Context, actor *Claims, id uuid.UUID) error {
	if !isAdmin(actor) {
		return apperror.ErrForbidden
	}
	if err := s.repo.DeleteContact(ctx, id); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return apperror.ErrContactNotFound
		}
		return err
	}
	s.invalidate(CacheKeyContacts)
	s.audit.Record(ctx, actor.SubjectID, models.AdminActionContactDrop, "emergency_contact", &id, nil)
	return nil
}

func contactFromInput(in ContactInput) (*models.EmergencyContact, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	category := strings.TrimSpace(in.Category)
	if err := validation.ValidateName(name); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("nomor telepon", phone); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	// Короткие номера экстренных служб (110, 112, 113) не проходят общий формат телефона.
	if len(phone) > 3 {
		if err := validation.ValidatePhone(phone); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if category == "" {
		category = "umum"
	}
	if err := validation.ValidateLength("kategori", category, 0, 50); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return &models.EmergencyContact{Name: name, Phone: phone, Category: category, SortOrder: in.SortOrder}, nil
}

// ListSettings возвращает все настройки администратору.
func (s *CommunityService) ListSettings(ctx context.Context, actor *Claims) ([]models.AppSetting, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListSettings(ctx)
}

// PublicSettings возвращает только разрешённые для публичного чтения настройки.
func (s *CommunityService) PublicSettings(ctx context.Context) (map[string]string, error) {
	return cached(s.cache, CacheKeyPublicSettings, publicCacheTTL, func() (map[string]string, error) {
		settings, err := s.repo.ListSettings(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(models.PublicSettingKeys))
		for _, setting := range settings {
			if _, ok := models.PublicSettingKeys[setting.Key]; ok {
				out[setting.Key] = setting.Value
			}
		}
		return out, nil
	})
}

// GetSetting возвращает одну настройку администратору.
func (s *CommunityService) GetSetting(ctx context.Context, actor *Claims, key string) (*models.AppSetting, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	setting, err := s.repo.GetSetting(ctx, key)
	if errors.Is(err, repository.ErrSettingNotFound) {
		return nil, apperror.ErrSettingNotFound
	}
	return setting, err
}

// UpsertSetting создаёт или обновляет настройку.
func (s *CommunityService) UpsertSetting(ctx context.Context, actor *Claims, key, value string) (*models.AppSetting, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	key = strings.TrimSpace(key)
	if err := validation.ValidateSettingKey(key); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("nilai", value, 0, validation.MaxSettingValue); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	setting := &models.AppSetting{Key: key, Value: value, UpdatedBy: &actor.SubjectID}
	if err := s.repo.UpsertSetting(ctx, setting); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.SubjectID, models.AdminActionSettingUpdate, "setting", nil, map[string]any{"key": key})
	if _, public := models.PublicSettingKeys[key]; public {
		s.invalidate(CacheKeyPublicSettings)
		s.broadcaster.Broadcast(models.RecipientKindUser, EventSettingsChanged, map[string]string{key: value})
	}
	return setting, nil
}
