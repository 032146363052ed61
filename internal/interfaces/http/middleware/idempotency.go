package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thanhnm3/khomypham/internal/infrastructure/logger"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the client's retry key on posting requests
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// KeyReserver is the part of an idempotency store the middleware needs
type KeyReserver interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Idempotency rejects a second request carrying the same Idempotency-Key while
// the first one is in flight or succeeded. A failed request gives its key back
// so the client can retry it. Requests without the header pass through.
func Idempotency(store KeyReserver, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", GetRequestID(c)))
			return
		}

		scoped := c.Request.Method + " " + c.FullPath() + " " + key
		ctx := c.Request.Context()
		ok, err := store.Reserve(ctx, scoped, ttl)
		if err != nil {
			logger.FromContext(ctx).Error("idempotency store unavailable", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInternal, "Request could not be registered", GetRequestID(c)))
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDuplicateRequest, "A request with this Idempotency-Key was already accepted", GetRequestID(c)))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Forget(context.WithoutCancel(ctx), scoped); err != nil {
				logger.FromContext(ctx).Warn("failed to release idempotency key", zap.Error(err))
			}
		}
	}
}
