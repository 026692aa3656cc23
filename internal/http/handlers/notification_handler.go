package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/http/handlers/common"
	"github.com/baronda/siskamling-backend/internal/service"
)

// NotificationHandler обслуживает маршруты уведомлений жителей и сотрудников.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications обрабатывает GET /api/notifications.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	unreadOnly := c.Query("unread_only") == "true"

	notifications, err := h.notifications.ListNotifications(c.Request.Context(), common.Recipient(claims), limit, offset, unreadOnly)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.List(c, notifications, limit, offset)
}

// MarkAsRead обрабатывает PUT /api/notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), common.Recipient(claims), id); err != nil {
		common.Fail(c, err)
		return
	}
	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: "Notifikasi ditandai dibaca."})
}

// MarkAllAsRead обрабатывает PUT /api/notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	if err := h.notifications.MarkAllAsRead(c.Request.Context(), common.Recipient(claims)); err != nil {
		common.Fail(c, err)
		return
	}
	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: "Semua notifikasi ditandai dibaca."})
}

// DeleteNotification обрабатывает DELETE /api/notifications/:id.
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.DeleteNotification(c.Request.Context(), common.Recipient(claims), id); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CountUnread обрабатывает GET /api/notifications/unread-count.
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	count, err := h.notifications.CountUnread(c.Request.Context(), common.Recipient(claims))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CountResponse{Count: count})
}
