package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/http/handlers/common"
	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/mail"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/service"
)

// RawMailer отправляет готовое HTML письмо.
type RawMailer interface {
	SendRaw(ctx context.Context, from, to mail.Address, subject, html string) error
}

// MailHandler обслуживает произвольную рассылку от администратора.
type MailHandler struct {
	mailer RawMailer
	audit  service.AdminActionRecorder
}

func NewMailHandler(mailer RawMailer, audit service.AdminActionRecorder) *MailHandler {
	return &MailHandler{mailer: mailer, audit: audit}
}

// SendEmail обрабатывает POST /api/send-email.
func (h *MailHandler) SendEmail(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}
	var req dto.SendEmailRequest
	if !common.BindJSON(c, &req) {
		return
	}

	to, err := mail.ParseAddress(req.To)
	if err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeValidation, "Alamat email tujuan tidak valid."))
		return
	}
	var from mail.Address
	if req.From != "" {
		if from, err = mail.ParseAddress(req.From); err != nil {
			common.Fail(c, apperror.New(apperror.ErrCodeValidation, "Alamat email pengirim tidak valid."))
			return
		}
	}

	if err := h.mailer.SendRaw(c.Request.Context(), from, to, req.Subject, req.HTML); err != nil {
		logger.Entry(logrus.Fields{"to": to, "error": err}).Error("mail handler: не удалось отправить письмо")
		common.Flow(c, http.StatusServiceUnavailable, dto.FlowResponse{Message: apperror.ErrMailUnavailable.Message})
		return
	}

	h.audit.Record(c.Request.Context(), claims.SubjectID, models.AdminActionMailSend, "email", nil,
		map[string]string{"to": to.String(), "subject": req.Subject})

	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: "Email berhasil dikirim."})
}
