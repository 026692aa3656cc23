package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/http/handlers/common"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/service"
)

// OTPFlow: операции одноразовых кодов, нужные хэндлеру.
type OTPFlow interface {
	Issue(ctx context.Context, email, otpContext string) (*models.OTPRecord, error)
	Verify(ctx context.Context, email, code, otpContext string) (*service.VerifyResult, error)
}

// OTPHandler обслуживает /api/send-otp и /api/verify-otp.
type OTPHandler struct {
	otp OTPFlow
}

func NewOTPHandler(otp OTPFlow) *OTPHandler {
	return &OTPHandler{otp: otp}
}

// SendOTP обрабатывает POST /api/send-otp.
func (h *OTPHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if !common.BindJSON(c, &req) {
		return
	}

	otpContext := req.Context
	if otpContext == "" {
		otpContext = models.OTPContextGeneric
	}

	record, err := h.otp.Issue(c.Request.Context(), req.Email, otpContext)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Flow(c, http.StatusOK, dto.FlowResponse{
		Success: true,
		Message: "Kode OTP telah dikirim ke email Anda.",
		Data:    gin.H{"expires_at": record.ExpiresAt},
	})
}

// VerifyOTP обрабатывает POST /api/verify-otp.
func (h *OTPHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.otp.Verify(c.Request.Context(), req.Email, req.Code, req.Context)
	if err != nil {
		common.Fail(c, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	common.Flow(c, status, dto.FlowResponse{
		Success: result.Success,
		Message: result.Message,
		Reason:  result.Reason,
	})
}
