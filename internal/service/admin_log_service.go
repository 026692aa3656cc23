package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
)

// AdminLogRepository описывает хранилище журнала администратора.
type AdminLogRepository interface {
	CreateAdminLog(ctx context.Context, l *models.AdminLog) error
	ListAdminLogs(ctx context.Context, limit, offset int) ([]models.AdminLog, error)
}

// AdminLogService ведёт журнал действий администраторов.
type AdminLogService struct {
	repo AdminLogRepository
}

func NewAdminLogService(repo AdminLogRepository) *AdminLogService {
	return &AdminLogService{repo: repo}
}

// Record пишет запись журнала. Действие уже выполнено, поэтому ошибка записи только логируется.
func (s *AdminLogService) Record(ctx context.Context, actorID uuid.UUID, action, targetType string, targetID *uuid.UUID, details any) {
	raw := json.RawMessage(`{}`)
	if details != nil {
		encoded, err := json.Marshal(details)
		if err != nil {
			logger.Entry(logrus.Fields{"action": action, "error": err}).Warn("admin log: не удалось сериализовать детали")
		} else {
			raw = encoded
		}
	}

	entry := &models.AdminLog{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    raw,
	}
	if err := s.repo.CreateAdminLog(ctx, entry); err != nil {
		logger.Entry(logrus.Fields{
			"actor_id": actorID,
			"action":   action,
			"error":    err,
		}).Error("admin log: не удалось записать действие")
	}
}

// List возвращает журнал администратору.
func (s *AdminLogService) List(ctx context.Context, actor *Claims, limit, offset int) ([]models.AdminLog, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListAdminLogs(ctx, limit, offset)
}
