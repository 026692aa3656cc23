package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/dto"
	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/pkg/apperror"
)

// ErrorHandler отвечает на ошибки, положенные хэндлерами через c.Error.
// AppError отдаёт своё сообщение и статус, всё остальное маскируется.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		fields := logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}

		if appErr, ok := apperror.As(err); ok {
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Entry(fields).Error("request error")
			} else {
				logger.Entry(fields).Debug("request rejected")
			}
			c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
				Success: false,
				Message: appErr.Message,
				Code:    string(appErr.Code),
			})
			return
		}

		logger.Entry(fields).Error("request error")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Success: false,
			Message: apperror.ErrInternal.Message,
			Code:    string(apperror.ErrCodeInternal),
		})
	}
}
