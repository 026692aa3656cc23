package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/http/handlers/common"
	"github.com/baronda/siskamling-backend/internal/service"
)

// UserHandler обслуживает регистрацию, вход и профиль жителей.
type UserHandler struct {
	auth *service.AuthService
}

func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// Register обрабатывает POST /api/users/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterUserRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		RT:      req.RT,
		RW:      req.RW,
		OTPCode: req.OTPCode,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Flow(c, http.StatusCreated, dto.FlowResponse{
		Success: true,
		Message: "Pendaftaran berhasil.",
		Data:    result,
	})
}

// Login обрабатывает POST /api/users/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.UserLoginRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.OTPCode)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: "Berhasil masuk.", Data: result})
}

// Me обрабатывает GET /api/me.
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := common.MustClaims(c)
	if !ok {
		return
	}

	user, err := h.auth.GetProfile(c.Request.Context(), claims.SubjectID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// List обрабатывает GET /api/admin/users.
func (h *UserHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	users, err := h.auth.ListResidents(c.Request.Context(), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.List(c, users, limit, offset)
}

// SetActive обрабатывает PUT /api/admin/users/:id/active.
func (h *UserHandler) SetActive(c *gin.Context) {
	id, ok := common.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !common.BindJSON(c, &req) {
		return
	}

	if err := h.auth.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		common.Fail(c, err)
		return
	}
	common.Flow(c, http.StatusOK, dto.FlowResponse{Success: true, Message: "Status akun diperbarui."})
}
