package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baronda/siskamling-backend/internal/http/middleware"
	"github.com/baronda/siskamling-backend/internal/mail"
	"github.com/baronda/siskamling-backend/internal/models"
	"github.com/baronda/siskamling-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withClaims подставляет claims так же, как AuthMiddleware.
func withClaims(claims *service.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextClaimsKey, claims)
		c.Next()
	}
}

type stubOTP struct {
	issued  []string
	issue   error
	verdict *service.VerifyResult
}

func (s *stubOTP) Issue(_ context.Context, email, otpContext string) (*models.OTPRecord, error) {
	if s.issue != nil {
		return nil, s.issue
	}
	s.issued = append(s.issued, email+"|"+otpContext)
	return &models.OTPRecord{Email: email, Code: "123456", Context: otpContext, ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}

func (s *stubOTP) Verify(context.Context, string, string, string) (*service.VerifyResult, error) {
	return s.verdict, nil
}

func newOTPRouter(otp OTPFlow) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h := NewOTPHandler(otp)
	r.POST("/api/send-otp", h.SendOTP)
	r.POST("/api/verify-otp", h.VerifyOTP)
	return r
}

func TestSendOTP_MalformedJSON(t *testing.T) {
	otp := &stubOTP{}
	w := httptest.NewRecorder()
	newOTPRouter(otp).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/send-otp", `{"email":`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, otp.issued)
}

func TestSendOTP_InvalidEmail(t *testing.T) {
	otp := &stubOTP{}
	w := httptest.NewRecorder()
	newOTPRouter(otp).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/send-otp", `{"email":"not-an-email"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, otp.issued)
}

func TestSendOTP_Success(t *testing.T) {
	otp := &stubOTP{}
	w := httptest.NewRecorder()
	newOTPRouter(otp).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/send-otp", `{"email":"warga@example.com"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.NotContains(t, w.Body.String(), "123456")
	require.Len(t, otp.issued, 1)
	assert.Equal(t, "warga@example.com|"+models.OTPContextGeneric, otp.issued[0])
}

func TestSendOTP_MailFailureIsMasked(t *testing.T) {
	otp := &stubOTP{issue: errors.New("smtp: 535 bad credentials for relay")}
	w := httptest.NewRecorder()
	newOTPRouter(otp).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/send-otp", `{"email":"warga@example.com","context":"user_login"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.NotContains(t, w.Body.String(), "535")
}

func TestVerifyOTP_RefusalCarriesReason(t *testing.T) {
	otp := &stubOTP{verdict: &service.VerifyResult{Reason: service.OTPReasonExpired, Message: "Kode OTP sudah kedaluwarsa."}}
	w := httptest.NewRecorder()
	newOTPRouter(otp).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/verify-otp",
		`{"email":"warga@example.com","code":"123456","context":"user_login"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"expired"`)
}

func TestVerifyOTP_Success(t *testing.T) {
	otp := &stubOTP{verdict: &service.VerifyResult{Success: true, Message: "OK"}}
	w := httptest.NewRecorder()
	newOTPRouter(otp).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/verify-otp",
		`{"email":"warga@example.com","code":"123456"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestVerifyOTP_RejectsNonNumericCode(t *testing.T) {
	w := httptest.NewRecorder()
	newOTPRouter(&stubOTP{}).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/verify-otp",
		`{"email":"warga@example.com","code":"12ab56"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type recordingMailer struct {
	sent []mail.SentMail
	err  error
}

func (m *recordingMailer) SendRaw(_ context.Context, from, to mail.Address, subject, html string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail.SentMail{From: from, To: to, Subject: subject, HTML: html})
	return nil
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(_ context.Context, _ uuid.UUID, action, _ string, _ *uuid.UUID, _ any) {
	a.actions = append(a.actions, action)
}

func newMailRouter(mailer RawMailer, audit service.AdminActionRecorder, claims *service.Claims) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	chain := []gin.HandlerFunc{}
	if claims != nil {
		chain = append(chain, withClaims(claims))
	}
	chain = append(chain, NewMailHandler(mailer, audit).SendEmail)
	r.POST("/api/send-email", chain...)
	return r
}

func TestSendEmail_RequiresClaims(t *testing.T) {
	mailer := &recordingMailer{}
	w := httptest.NewRecorder()
	newMailRouter(mailer, &recordingAudit{}, nil).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/send-email",
		`{"to":"warga@example.com","subject":"Rapat","html":"<p>Hai</p>"}`))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, mailer.sent)
}

func TestSendEmail_SendsAndAudits(t *testing.T) {
	mailer := &recordingMailer{}
	audit := &recordingAudit{}
	admin := &service.Claims{SubjectID: uuid.New(), Role: models.StaffRoleAdmin, Kind: service.KindStaff}

	w := httptest.NewRecorder()
	newMailRouter(mailer, audit, admin).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/send-email",
		`{"to":"Warga@Example.com","subject":"Rapat RT","html":"<p>Hai</p>"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, mail.Address("warga@example.com"), mailer.sent[0].To)
	assert.Empty(t, mailer.sent[0].From)
	assert.Equal(t, []string{models.AdminActionMailSend}, audit.actions)
}

func TestSendEmail_ProviderFailureIsNotLeaked(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("dial tcp 10.0.0.5:465: i/o timeout")}
	audit := &recordingAudit{}
	admin := &service.Claims{SubjectID: uuid.New(), Role: models.StaffRoleAdmin, Kind: service.KindStaff}

	w := httptest.NewRecorder()
	newMailRouter(mailer, audit, admin).ServeHTTP(w, jsonRequest(http.MethodPost, "/api/send-email",
		`{"to":"warga@example.com","subject":"Rapat","html":"<p>Hai</p>"}`))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Empty(t, audit.actions)
}

func TestStaffLoginStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, loginStatus(service.StaffReasonInvalidCredentials))
	assert.Equal(t, http.StatusForbidden, loginStatus(service.StaffReasonPending))
	assert.Equal(t, http.StatusLocked, loginStatus(service.StaffReasonSuspended))
}

func TestAccessCodeStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, accessCodeStatus(service.AccessCodeReasonCooldown))
	assert.Equal(t, http.StatusBadRequest, accessCodeStatus(service.AccessCodeReasonWrongCode))
	assert.Equal(t, http.StatusBadRequest, accessCodeStatus(service.AccessCodeReasonSameCode))
}

func TestReportHandler_RequiresClaims(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	handler := &ReportHandler{}
	r.GET("/api/reports/mine", handler.ListMine)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/mine", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandler_InvalidID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	handler := &ReportHandler{}
	r.GET("/api/reports/:id", handler.Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
