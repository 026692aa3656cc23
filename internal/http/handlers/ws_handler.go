package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/service"
	"github.com/baronda/siskamling-backend/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений.
type WSHandler struct {
	hub          *ws.Hub
	tokenManager *service.TokenManager
	sessions     SessionChecker
	upgrader     websocket.Upgrader
}

// SessionChecker проверяет текущий статус субъекта токена.
type SessionChecker interface {
	Active(ctx context.Context, claims *service.Claims) (bool, error)
}

// NewWSHandler создаёт новый хэндлер. Origin проверяется тем же списком, что и CORS.
func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager, sessions SessionChecker, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &WSHandler{
		hub:          hub,
		tokenManager: tokens,
		sessions:     sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
// Браузер не умеет ставить заголовок Authorization на WebSocket, поэтому токен в query.
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Token akses wajib diisi."})
		return
	}

	claims, err := h.tokenManager.ParseAccess(rawToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Token akses tidak valid."})
		return
	}

	active, err := h.sessions.Active(c.Request.Context(), claims)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !active {
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Message: "Akun Anda tidak aktif atau sedang ditangguhkan."})
		return
	}

	// Upgrade сам пишет ответ при ошибке.
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(conn, h.hub, ws.Subject{ID: claims.SubjectID, Kind: claims.Kind}, claims.Role)
	if err := h.hub.Register(client); err != nil {
		client.Close()
		return
	}

	client.Run(c.Request.Context())
}
