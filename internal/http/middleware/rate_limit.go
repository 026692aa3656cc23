package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/baronda/siskamling-backend/internal/logger"
)

// NewLimiterStore возвращает общее для всех инстансов хранилище счётчиков в Redis,
// а без Redis держит счётчики в памяти процесса.
func NewLimiterStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStore(), nil
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   "baronda:limiter",
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit: не удалось создать redis store: %w", err)
	}
	return store, nil
}

// RateLimitMiddleware ограничивает число запросов с одного IP.
// name разделяет счётчики разных групп маршрутов в общем хранилище.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(store limiter.Store, name string, limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = 1 * time.Minute
	}

	instance := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := name + ":" + c.ClientIP()
		lctx, err := instance.Get(c, key)
		if err != nil {
			// Недоступный Redis не должен ронять вход: пропускаем запрос.
			logger.Entry(logrus.Fields{"error": err, "limiter": name}).Warn("rate limit: хранилище недоступно")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", lctx.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", lctx.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", lctx.Reset))

		if lctx.Reached {
			abortJSON(c, http.StatusTooManyRequests, "Terlalu banyak permintaan. Silakan coba lagi nanti.")
			return
		}

		c.Next()
	}
}
