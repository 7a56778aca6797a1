package ratelimit

import (
	"log"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatekeeper/internal/apierror"
)

// KeyFunc はリクエストから制限キーを取り出します。空文字ならクライアント IP を使います。
type KeyFunc func(c *gin.Context) string

// ByClientIP はクライアント IP 単位で制限します。
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// Middleware は rule を適用する gin ミドルウェアを返します。
// Redis に接続できない場合はリクエストを通してログだけ残します。
func (l *Limiter) Middleware(rule Rule, key KeyFunc, logger *log.Logger) gin.HandlerFunc {
	if key == nil {
		key = ByClientIP
	}
	if logger == nil {
		logger = log.Default()
	}

	return func(c *gin.Context) {
		k := key(c)
		if k == "" {
			k = c.ClientIP()
		}

		res, err := l.Allow(c.Request.Context(), rule, k)
		if err != nil {
			logger.Printf("[WARN] rate limit check skipped rule=%s: %v", rule.Name, err)
			c.Next()
			return
		}

		resetSeconds := int(math.Ceil(res.ResetAt.Sub(l.now()).Seconds()))
		if resetSeconds < 0 {
			resetSeconds = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(resetSeconds))

		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(resetSeconds))
			apierror.Abort(c, apierror.TooManyRequests())
			return
		}
		c.Next()
	}
}
