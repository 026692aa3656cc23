package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextClaimsKey    = "claims"
	ContextSubjectIDKey = "subjectID"
	ContextRoleKey      = "role"
	ContextKindKey      = "kind"
)

// AuthMiddleware проверяет JWT access токен и кладёт проверенные claims в контекст.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			abortJSON(c, http.StatusUnauthorized, "Silakan masuk terlebih dahulu.")
			return
		}

		claims, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "Sesi tidak valid atau sudah berakhir. Silakan masuk kembali.")
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextSubjectIDKey, claims.SubjectID)
		c.Set(ContextRoleKey, claims.Role)
		c.Set(ContextKindKey, claims.Kind)
		c.Next()
	}
}

// SubjectGuard проверяет текущий статус субъекта токена.
type SubjectGuard interface {
	Active(ctx context.Context, claims *service.Claims) (bool, error)
}

// RequireActiveSubject отклоняет токены приостановленных сотрудников и отключённых жителей.
// Ставится сразу после AuthMiddleware.
func RequireActiveSubject(guard SubjectGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, _ := c.Get(ContextClaimsKey)
		claims, ok := value.(*service.Claims)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "Silakan masuk terlebih dahulu.")
			return
		}

		active, err := guard.Active(c.Request.Context(), claims)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if !active {
			abortJSON(c, http.StatusForbidden, "Akun Anda tidak aktif atau sedang ditangguhkan.")
			return
		}
		c.Next()
	}
}

// RequireKind пропускает только субъектов указанного вида (житель или сотрудник).
func RequireKind(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextKindKey) != kind {
			abortJSON(c, http.StatusForbidden, "Anda tidak memiliki akses untuk tindakan ini.")
			return
		}
		c.Next()
	}
}

// RequireRole пропускает сотрудников с одной из ролей.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextKindKey) != service.KindStaff {
			abortJSON(c, http.StatusForbidden, "Anda tidak memiliki akses untuk tindakan ini.")
			return
		}
		role := c.GetString(ContextRoleKey)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		abortJSON(c, http.StatusForbidden, "Anda tidak memiliki akses untuk tindakan ini.")
	}
}

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Success: false, Message: message})
}
