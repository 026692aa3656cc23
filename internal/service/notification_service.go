package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
	"github.com/baronda/siskamling-backend/internal/ws"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, to repository.Recipient, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, to repository.Recipient, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, to repository.Recipient) error
	Delete(ctx context.Context, to repository.Recipient, id uuid.UUID) error
	CountUnread(ctx context.Context, to repository.Recipient) (int, error)
}

// NotificationPusher доставляет события в открытые WebSocket соединения.
type NotificationPusher interface {
	SendTo(to ws.Subject, event string, data any) error
	BroadcastKind(kind, role, event string, data any) error
}

// AdminDirectory возвращает список активных администраторов.
type AdminDirectory interface {
	ListAdmins(ctx context.Context) ([]models.Staff, error)
}

// NotificationService сохраняет уведомления и доставляет их в реальном времени.
type NotificationService struct {
	repo   NotificationRepository
	pusher NotificationPusher
	admins AdminDirectory
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationRepository, pusher NotificationPusher, admins AdminDirectory) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher, admins: admins}
}

// Notify сохраняет уведомление для адресата и отправляет его в открытые соединения.
func (s *NotificationService) Notify(ctx context.Context, to repository.Recipient, event string, data any) (*models.Notification, error) {
	payloadBytes, err := json.Marshal(map[string]any{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{
		RecipientID:   to.ID,
		RecipientKind: to.Kind,
		Payload:       payloadBytes,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	if err := s.pusher.SendTo(ws.Subject{ID: to.ID, Kind: to.Kind}, "notification", notification); err != nil {
		logger.Entry(logrus.Fields{"recipient_id": to.ID, "error": err}).Warn("notification service: не удалось отправить по ws")
	}

	return notification, nil
}

// NotifyUser уведомляет жителя. Ошибки только логируются.
func (s *NotificationService) NotifyUser(ctx context.Context, userID uuid.UUID, event string, data any) {
	s.notifyQuietly(ctx, repository.Recipient{ID: userID, Kind: models.RecipientKindUser}, event, data)
}

// NotifyStaff уведомляет сотрудника. Ошибки только логируются.
func (s *NotificationService) NotifyStaff(ctx context.Context, staffID uuid.UUID, event string, data any) {
	s.notifyQuietly(ctx, repository.Recipient{ID: staffID, Kind: models.RecipientKindStaff}, event, data)
}

// NotifyAdmins уведомляет всех активных администраторов.
func (s *NotificationService) NotifyAdmins(ctx context.Context, event string, data any) {
	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		logger.Entry(logrus.Fields{"event": event, "error": err}).Error("notification service: не удалось получить администраторов")
		return
	}
	for _, admin := range admins {
		s.NotifyStaff(ctx, admin.ID, event, data)
	}
}

// PushStaffBadge рассылает сотрудникам событие без сохранения (счётчики, бейджи).
func (s *NotificationService) PushStaffBadge(event string, data any) {
	s.Broadcast(models.RecipientKindStaff, event, data)
}

// Broadcast рассылает событие всем подключённым субъектам вида kind без сохранения.
func (s *NotificationService) Broadcast(kind, event string, data any) {
	if err := s.pusher.BroadcastKind(kind, "", event, data); err != nil {
		logger.Entry(logrus.Fields{"kind": kind, "event": event, "error": err}).Warn("notification service: не удалось разослать событие")
	}
}

func (s *NotificationService) notifyQuietly(ctx context.Context, to repository.Recipient, event string, data any) {
	if _, err := s.Notify(ctx, to, event, data); err != nil {
		logger.Entry(logrus.Fields{
			"recipient_id":   to.ID,
			"recipient_kind": to.Kind,
			"event":          event,
			"error":          err,
		}).Error("notification service: не удалось сохранить уведомление")
	}
}

// ListNotifications возвращает список уведомлений адресата.
func (s *NotificationService) ListNotifications(ctx context.Context, to repository.Recipient, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, to, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, to repository.Recipient, id uuid.UUID) error {
	return mapNotificationErr(s.repo.MarkAsRead(ctx, to, id))
}

// MarkAllAsRead отмечает все уведомления адресата как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, to repository.Recipient) error {
	return s.repo.MarkAllAsRead(ctx, to)
}

// DeleteNotification удаляет уведомление адресата.
func (s *NotificationService) DeleteNotification(ctx context.Context, to repository.Recipient, id uuid.UUID) error {
	return mapNotificationErr(s.repo.Delete(ctx, to, id))
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, to repository.Recipient) (int, error) {
	return s.repo.CountUnread(ctx, to)
}

func mapNotificationErr(err error) error {
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return apperror.ErrNotificationNotFound
	}
	return err
}
