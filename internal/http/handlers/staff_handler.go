package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/http/handlers/common"
	"github.com/baronda/siskamling-backend/internal/service"
)

// StaffHandler обслуживает заявки, вход и коды доступа сотрудников.
type StaffHandler struct {
	staff *service.StaffService
}

func NewStaffHandler(staff *service.StaffService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// loginStatus: HTTP статус для причины отказа во входе.
func loginStatus(reason string) int {
	switch reason {
	case service.StaffReasonPending:
		return http.StatusForbidden
	case service.StaffReasonSuspended:
		return http.StatusLocked
	default:
		return http.StatusUnauthorized
	}
}

// accessCodeStatus: HTTP статус для причины отказа в смене кода.
func accessCodeStatus(reason string) int {
	if reason == service.AccessCodeReasonCooldown {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

// Apply обрабатывает POST /api/staff/apply.
func (h *StaffHandler) Apply(c *gin.Context) {
	var req dto.StaffApplyRequest
	if !common.BindJSON(c, &req) {
		return
	}

	staff, err := h.staff.Apply(c.Request.Context(), service.ApplyInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		OTPCode: req.OTPCode,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Flow(c, http.StatusCreated, dto.FlowResponse{
		Success: true,
		Message: "Pendaftaran terkirim. Kode akses akan dikirim ke email setelah disetujui admin.",
		Data:    staff,
	})
}

// Login обрабатывает POST /api/staff/login.
func (h *StaffHandler) Login(c *gin.Context) {
	var req dto.StaffLoginRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.staff.Login(c.Request.Context(), req.Email, req.AccessCode)
	if err != nil {
		common.Fail(c, err)
		return
	}

	if !result.Success {
		c.JSON(loginStatus(result.Reason), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Me обрабатывает GET /api/staff/me.
func (h *StaffHandler) Me(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	staff, err := h.staff.GetProfile(c.Request.Context(), claims.SubjectID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

// ChangeAccessCode обрабатывает PUT /api/staff/me/access-code.
func (h *StaffHandler) ChangeAccessCode(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	var req dto.ChangeAccessCodeRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.staff.ChangeAccessCode(c.Request.Context(), claims, claims.SubjectID, req.CurrentCode, req.NewCode)
	if err != nil {
		common.Fail(c, err)
		return
	}
	h.respondAccessCode(c, result)
}

// List обрабатывает GET /api/admin/staff?status=.
func (h *StaffHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	staff, err := h.staff.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.List(c, staff, limit, offset)
}

// Approve обрабатывает POST /api/admin/staff/:id/approve.
func (h *StaffHandler) Approve(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.staff.Approve(c.Request.Context(), claims, id)
	if err != nil {
		common.Fail(c, err)
		return
	}

	msg := "Petugas disetujui. Kode akses telah dikirim ke email."
	if !result.MailSent {
		msg = "Petugas disetujui, tetapi email kode akses gagal dikirim. Silakan reset kode akses."
	}
	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: msg, Data: result})
}

// Reject обрабатывает POST /api/admin/staff/:id/reject.
func (h *StaffHandler) Reject(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.RejectStaffRequest
	if !common.BindJSON(c, &req) {
		return
	}

	if err := h.staff.Reject(c.Request.Context(), claims, id, req.Reason); err != nil {
		common.Fail(c, err)
		return
	}
	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: "Pendaftaran ditolak."})
}

// Suspend обрабатывает POST /api/admin/staff/:id/suspend.
func (h *StaffHandler) Suspend(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.SuspendStaffRequest
	if !common.BindJSON(c, &req) {
		return
	}

	if err := h.staff.Suspend(c.Request.Context(), claims, id, req.Until, req.Reason); err != nil {
		common.Fail(c, err)
		return
	}
	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: "Petugas ditangguhkan."})
}

// Reactivate обрабатывает POST /api/admin/staff/:id/reactivate.
func (h *StaffHandler) Reactivate(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.staff.Reactivate(c.Request.Context(), claims, id); err != nil {
		common.Fail(c, err)
		return
	}
	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: "Petugas diaktifkan kembali."})
}

// ResetAccessCode обрабатывает POST /api/admin/staff/:id/reset-access-code.
func (h *StaffHandler) ResetAccessCode(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.staff.ResetAccessCode(c.Request.Context(), claims, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	h.respondAccessCode(c, result)
}

func (h *StaffHandler) respondAccessCode(c *gin.Context, result *service.AccessCodeResult) {
	if !result.Success {
		c.JSON(accessCodeStatus(result.Reason), result)
		return
	}
	c.JSON(http.StatusOK, result)
}
