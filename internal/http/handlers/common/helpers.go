package common

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/http/middleware"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
	"github.com/baronda/siskamling-backend/internal/repository"
	"github.com/baronda/siskamling-backend/internal/service"
)

// MsgInvalidRequest: ответ на запрос, не прошедший binding.
const MsgInvalidRequest = "Data yang dikirim tidak valid."

// CurrentClaims извлекает проверенные claims, положенные AuthMiddleware.
func CurrentClaims(c *gin.Context) (*service.Claims, error) {
	raw, exists := c.Get(middleware.ContextClaimsKey)
	if !exists {
		return nil, apperror.ErrUnauthorized
	}
	claims, ok := raw.(*service.Claims)
	if !ok || claims == nil {
		return nil, apperror.ErrUnauthorized
	}
	return claims, nil
}

// MustClaims возвращает claims или отвечает 401. При false ответ уже отправлен.
func MustClaims(c *gin.Context) (*service.Claims, bool) {
	claims, err := CurrentClaims(c)
	if err != nil {
		Fail(c, err)
		return nil, false
	}
	return claims, true
}

// Recipient: адресат уведомлений для текущего субъекта.
func Recipient(claims *service.Claims) repository.Recipient {
	return repository.Recipient{ID: claims.SubjectID, Kind: claims.Kind}
}

// ParamUUID читает UUID из пути. Маршруты защищены UUIDValidator, но проверяем и здесь.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Parameter " + name + " tidak valid."})
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON разбирает тело запроса. Ошибка binding даёт 400 без деталей валидатора.
func BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Message: MsgInvalidRequest,
			Code:    string(apperror.ErrCodeValidation),
		})
		return false
	}
	return true
}

// Fail передаёт ошибку в ErrorHandler.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Flow отвечает в формате {success, message, reason?, data?}.
func Flow(c *gin.Context, status int, resp dto.FlowResponse) {
	c.JSON(status, resp)
}

// ParseIntQuery safely reads an integer query parameter with a fallback value
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination extracts limit and offset from query parameters with defaults
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}

// List отвечает страницей списка.
func List(c *gin.Context, data any, limit, offset int) {
	c.JSON(http.StatusOK, dto.ListResponse{Data: data, Limit: limit, Offset: offset})
}
