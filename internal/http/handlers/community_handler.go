package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/http/handlers/common"
	"github.com/baronda/siskamling-backend/internal/service"
)

// CommunityHandler обслуживает объявления, экстренные контакты, настройки и журнал администратора.
type CommunityHandler struct {
	svc  *service.CommunityService
	logs *service.AdminLogService
}

func NewCommunityHandler(s *service.CommunityService, logs *service.AdminLogService) *CommunityHandler {
	return &CommunityHandler{svc: s, logs: logs}
}

// ListAnnouncements обрабатывает GET /api/announcements.
func (h *CommunityHandler) ListAnnouncements(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	items, err := h.svc.ListAnnouncements(c.Request.Context(), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.List(c, items, limit, offset)
}

// CreateAnnouncement обрабатывает POST /api/admin/announcements.
func (h *CommunityHandler) CreateAnnouncement(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	var req dto.AnnouncementRequest
	if !common.BindJSON(c, &req) {
		return
	}

	item, err := h.svc.CreateAnnouncement(c.Request.Context(), claims, service.AnnouncementInput{
		Title: req.Title, Body: req.Body, Pinned: req.Pinned,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateAnnouncement обрабатывает PUT /api/admin/announcements/:id.
func (h *CommunityHandler) UpdateAnnouncement(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AnnouncementRequest
	if !common.BindJSON(c, &req) {
		return
	}

	item, err := h.svc.UpdateAnnouncement(c.Request.Context(), claims, id, service.AnnouncementInput{
		Title: req.Title, Body: req.Body, Pinned: req.Pinned,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteAnnouncement обрабатывает DELETE /api/admin/announcements/:id.
func (h *CommunityHandler) DeleteAnnouncement(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteAnnouncement(c.Request.Context(), claims, id); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListContacts обрабатывает GET /api/emergency-contacts.
func (h *CommunityHandler) ListContacts(c *gin.Context) {
	contacts, err := h.svc.ListContacts(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contacts})
}

func contactInput(req dto.ContactRequest) service.ContactInput {
	return service.ContactInput{Name: req.Name, Phone: req.Phone, Category: req.Category, SortOrder: req.SortOrder}
}

// CreateContact обрабатывает POST /api/admin/emergency-contacts.
func (h *CommunityHandler) CreateContact(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	var req dto.ContactRequest
	if !common.BindJSON(c, &req) {
		return
	}

	contact, err := h.svc.CreateContact(c.Request.Context(), claims, contactInput(req))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// UpdateContact обрабатывает PUT /api/admin/emergency-contacts/:id.
func (h *CommunityHandler) UpdateContact(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ContactRequest
	if !common.BindJSON(c, &req) {
		return
	}

	contact, err := h.svc.UpdateContact(c.Request.Context(), claims, id, contactInput(req))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

// DeleteContact обрабатывает DELETE /api/admin/emergency-contacts/:id.
func (h *CommunityHandler) DeleteContact(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteContact(c.Request.Context(), claims, id); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PublicSettings обрабатывает GET /api/settings/public.
func (h *CommunityHandler) PublicSettings(c *gin.Context) {
	settings, err := h.svc.PublicSettings(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// ListSettings обрабатывает GET /api/admin/settings.
func (h *CommunityHandler) ListSettings(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	settings, err := h.svc.ListSettings(c.Request.Context(), claims)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

// GetSetting обрабатывает GET /api/admin/settings/:key.
func (h *CommunityHandler) GetSetting(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	setting, err := h.svc.GetSetting(c.Request.Context(), claims, c.Param("key"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

// UpsertSetting обрабатывает PUT /api/admin/settings/:key.
func (h *CommunityHandler) UpsertSetting(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	var req dto.SettingRequest
	if !common.BindJSON(c, &req) {
		return
	}

	setting, err := h.svc.UpsertSetting(c.Request.Context(), claims, c.Param("key"), req.Value)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

// ListAdminLogs обрабатывает GET /api/admin/logs.
func (h *CommunityHandler) ListAdminLogs(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	logs, err := h.logs.List(c.Request.Context(), claims, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.List(c, logs, limit, offset)
}
