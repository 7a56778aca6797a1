package apierror

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const internalMessage = "Internal server error"

// Mapper はエラーから HTTP レスポンスへの変換を一箇所で行います。
type Mapper struct {
	logger         *log.Logger
	exposeInternal bool
}

// NewMapper は Mapper を作成します。exposeInternal が true の場合のみ
// 想定外エラーの実際のメッセージをクライアントへ返します（本番では false）。
func NewMapper(logger *log.Logger, exposeInternal bool) *Mapper {
	if logger == nil {
		logger = log.Default()
	}
	return &Mapper{logger: logger, exposeInternal: exposeInternal}
}

// Middleware は後続ハンドラーが記録したエラーをレスポンスへ変換するミドルウェアです。
func (m *Mapper) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		m.Respond(c, c.Errors.Last().Err)
	}
}

// Recovery は panic を 500 応答に変換するミドルウェアです。
func (m *Mapper) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		m.Respond(c, fmt.Errorf("panic: %v", recovered))
	})
}

// Respond は err を分類してレスポンスを書き込みます。
func (m *Mapper) Respond(c *gin.Context, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, apiErr.body())
		return
	}

	// 内部情報はログにのみ残す
	m.logger.Printf("[UNHANDLED ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)

	message := internalMessage
	if m.exposeInternal && err != nil {
		message = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": message,
	})
}

// NoRoute は未定義ルートを 404 として扱うハンドラーです。
func NoRoute(c *gin.Context) {
	Abort(c, NotFound(fmt.Sprintf("Route %s not found", c.Request.URL.Path)))
}
