package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/http/handlers/common"
	"github.com/baronda/siskamling-backend/internal/service"
)

// FinanceHandler обслуживает взносы жителей и выплаты сотрудникам.
type FinanceHandler struct {
	svc *service.FinanceService
}

func NewFinanceHandler(s *service.FinanceService) *FinanceHandler {
	return &FinanceHandler{svc: s}
}

// RecordDue обрабатывает POST /api/admin/dues.
func (h *FinanceHandler) RecordDue(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	var req dto.DueRequest
	if !common.BindJSON(c, &req) {
		return
	}
	userID, _ := uuid.Parse(req.UserID)

	due, err := h.svc.RecordDue(c.Request.Context(), claims, userID, req.Period, req.Amount)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, due)
}

// RecordDuesForPeriod обрабатывает POST /api/admin/dues/period.
func (h *FinanceHandler) RecordDuesForPeriod(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	var req dto.DuesForPeriodRequest
	if !common.BindJSON(c, &req) {
		return
	}

	created, err := h.svc.RecordDuesForPeriod(c.Request.Context(), claims, req.Period, req.Amount)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CountResponse{Count: int(created)})
}

// MarkDuePaid обрабатывает POST /api/admin/dues/:id/paid.
func (h *FinanceHandler) MarkDuePaid(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	due, err := h.svc.MarkDuePaid(c.Request.Context(), claims, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, due)
}

// ListDues обрабатывает GET /api/admin/dues?period=YYYY-MM.
func (h *FinanceHandler) ListDues(c *gin.Context) {
	dues, err := h.svc.ListDuesByPeriod(c.Request.Context(), c.Query("period"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dues})
}

// MyDues обрабатывает GET /api/dues/mine.
func (h *FinanceHandler) MyDues(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	dues, err := h.svc.ListMyDues(c.Request.Context(), claims.SubjectID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dues})
}

// RecordHonorarium обрабатывает POST /api/admin/honorariums.
func (h *FinanceHandler) RecordHonorarium(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	var req dto.HonorariumRequest
	if !common.BindJSON(c, &req) {
		return
	}
	staffID, _ := uuid.Parse(req.StaffID)

	honorarium, err := h.svc.RecordHonorarium(c.Request.Context(), claims, staffID, req.Period, req.Amount)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, honorarium)
}

// MarkHonorariumPaid обрабатывает POST /api/admin/honorariums/:id/paid.
func (h *FinanceHandler) MarkHonorariumPaid(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	honorarium, err := h.svc.MarkHonorariumPaid(c.Request.Context(), claims, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, honorarium)
}

// ListHonorariums обрабатывает GET /api/admin/honorariums?period=YYYY-MM.
func (h *FinanceHandler) ListHonorariums(c *gin.Context) {
	honorariums, err := h.svc.ListHonorariumsByPeriod(c.Request.Context(), c.Query("period"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": honorariums})
}

// MyHonorariums обрабатывает GET /api/honorariums/mine.
func (h *FinanceHandler) MyHonorariums(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	honorariums, err := h.svc.ListMyHonorariums(c.Request.Context(), claims.SubjectID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": honorariums})
}

// Summary обрабатывает GET /api/admin/finance/summary?period=YYYY-MM.
func (h *FinanceHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context(), c.Query("period"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
