package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/http/handlers/common"
	"github.com/baronda/siskamling-backend/internal/service"
)

// ScheduleHandler обслуживает график патрулирования.
type ScheduleHandler struct {
	svc *service.ScheduleService
}

func NewScheduleHandler(s *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{svc: s}
}

func scheduleInput(req dto.ScheduleRequest) service.ScheduleInput {
	// binding уже проверил формат uuid
	staffID, _ := uuid.Parse(req.StaffID)
	return service.ScheduleInput{
		StaffID:    staffID,
		PatrolDate: req.PatrolDate,
		ShiftStart: req.ShiftStart,
		ShiftEnd:   req.ShiftEnd,
		Area:       req.Area,
		Notes:      req.Notes,
	}
}

// Create обрабатывает POST /api/admin/schedules.
func (h *ScheduleHandler) Create(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	var req dto.ScheduleRequest
	if !common.BindJSON(c, &req) {
		return
	}

	schedule, err := h.svc.Create(c.Request.Context(), claims, scheduleInput(req))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

// Update обрабатывает PUT /api/admin/schedules/:id.
func (h *ScheduleHandler) Update(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ScheduleRequest
	if !common.BindJSON(c, &req) {
		return
	}

	schedule, err := h.svc.Update(c.Request.Context(), claims, id, scheduleInput(req))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// MarkMissed обрабатывает POST /api/admin/schedules/:id/missed.
func (h *ScheduleHandler) MarkMissed(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	schedule, err := h.svc.MarkMissed(c.Request.Context(), claims, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// Delete обрабатывает DELETE /api/admin/schedules/:id.
func (h *ScheduleHandler) Delete(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), claims, id); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListRange обрабатывает GET /api/admin/schedules?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *ScheduleHandler) ListRange(c *gin.Context) {
	schedules, err := h.svc.ListRange(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": schedules})
}

// ListMine обрабатывает GET /api/schedules/mine.
func (h *ScheduleHandler) ListMine(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	schedules, err := h.svc.ListMine(c.Request.Context(), claims.SubjectID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": schedules})
}

// CheckIn обрабатывает POST /api/schedules/:id/check-in.
func (h *ScheduleHandler) CheckIn(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	schedule, err := h.svc.CheckIn(c.Request.Context(), claims, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: "Kehadiran ronda tercatat.", Data: schedule})
}
