package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/http/handlers/common"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/service"
	"github.com/baronda/siskamling-backend/internal/storage"
)

// ReportHandler обслуживает сообщения о происшествиях.
type ReportHandler struct {
	svc     *service.ReportService
	storage *storage.PhotoStorage
}

func NewReportHandler(s *service.ReportService, photos *storage.PhotoStorage) *ReportHandler {
	return &ReportHandler{svc: s, storage: photos}
}

// Create обрабатывает POST /api/reports/mine (multipart/form-data).
func (h *ReportHandler) Create(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	var form dto.CreateReportForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: common.MsgInvalidRequest, Code: string(apperror.ErrCodeValidation)})
		return
	}

	in := service.CreateReportInput{
		Title:       form.Title,
		Description: form.Description,
		Location:    form.Location,
		Category:    form.Category,
	}

	file, err := c.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Foto tidak dapat dibaca."})
		return
	default:
		src, err := file.Open()
		if err != nil {
			common.Fail(c, err)
			return
		}
		defer src.Close()
		in.Photo = src
	}

	report, err := h.svc.Create(c.Request.Context(), claims.SubjectID, in)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.Flow(c, http.StatusCreated, dto.FlowResponse{Success: true, Message: "Laporan terkirim.", Data: report})
}

// ListMine обрабатывает GET /api/reports/mine.
func (h *ReportHandler) ListMine(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	reports, err := h.svc.ListMine(c.Request.Context(), claims.SubjectID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.List(c, reports, limit, offset)
}

// GetMine обрабатывает GET /api/reports/mine/:id.
func (h *ReportHandler) GetMine(c *gin.Context) {
	report, ok := h.loadMine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

// MinePhoto обрабатывает GET /api/reports/mine/:id/photo.
func (h *ReportHandler) MinePhoto(c *gin.Context) {
	report, ok := h.loadMine(c)
	if !ok {
		return
	}
	h.servePhoto(c, report)
}

// List обрабатывает GET /api/reports?status=&threat_level=.
func (h *ReportHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	reports, err := h.svc.List(c.Request.Context(), models.ReportFilter{
		Status:      c.Query("status"),
		ThreatLevel: c.Query("threat_level"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.List(c, reports, limit, offset)
}

// Get обрабатывает GET /api/reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	report, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

// Photo обрабатывает GET /api/reports/:id/photo.
func (h *ReportHandler) Photo(c *gin.Context) {
	report, ok := h.load(c)
	if !ok {
		return
	}
	h.servePhoto(c, report)
}

// UpdateStatus обрабатывает PUT /api/reports/:id/status.
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateReportStatusRequest
	if !common.BindJSON(c, &req) {
		return
	}

	report, err := h.svc.UpdateStatus(c.Request.Context(), claims, id, req.Status, req.Note)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: "Status laporan diperbarui.", Data: report})
}

// Triage обрабатывает POST /api/reports/:id/triage.
func (h *ReportHandler) Triage(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	report, err := h.svc.Retriage(c.Request.Context(), claims, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) load(c *gin.Context) (*models.Report, bool) {
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return nil, false
	}
	report, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return nil, false
	}
	return report, true
}

func (h *ReportHandler) loadMine(c *gin.Context) (*models.Report, bool) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return nil, false
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return nil, false
	}
	report, err := h.svc.GetMine(c.Request.Context(), claims.SubjectID, id)
	if err != nil {
		common.Fail(c, err)
		return nil, false
	}
	return report, true
}

func (h *ReportHandler) servePhoto(c *gin.Context, report *models.Report) {
	if report.PhotoPath == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Laporan ini tidak memiliki foto.", Code: string(apperror.ErrCodeNotFound)})
		return
	}
	path, err := h.storage.Resolve(*report.PhotoPath)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.File(path)
}
