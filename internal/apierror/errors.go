// Package apierror は API のエラー分類と、HTTP ステータスへの一元的な変換を提供します。
package apierror

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind はエラーの分類です。
type Kind string

const (
	KindValidation      Kind = "VALIDATION_FAILURE"
	KindConflict        Kind = "CONFLICT"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindNotFound        Kind = "NOT_FOUND"
	KindTooManyRequests Kind = "TOO_MANY_REQUESTS"
)

// FieldError はリクエストボディの項目単位の検証エラーです。
type FieldError struct {
	Code    string   `json:"code"`
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// Error はクライアントへ返すことを想定したドメインエラーです。
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap は内部原因を返します。原因はログ用でレスポンスには含めません。
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause は内部原因を付与したコピーを返します。
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.cause = err
	return &cp
}

func (e *Error) body() gin.H {
	if e.Kind == KindValidation {
		fields := e.Fields
		if fields == nil {
			fields = []FieldError{}
		}
		return gin.H{
			"message": e.Message,
			"errors":  fields,
		}
	}
	return gin.H{
		"success": false,
		"message": e.Message,
	}
}

// Validation は 400 を表す検証エラーを作成します。
func Validation(fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: "Bad Request", Fields: fields}
}

// Conflict は 409 を表すエラーを作成します。
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: message}
}

// Unauthorized は認証情報の誤り（401）を表すエラーを作成します。
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

// Unauthenticated はセッションが無い・無効な場合（401）のエラーを作成します。
// 理由を区別せず常に同じメッセージを返します。
func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Status: http.StatusUnauthorized, Message: "Unauthenticated!"}
}

// NotFound は 404 を表すエラーを作成します。
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// TooManyRequests は 429 を表すエラーを作成します。
func TooManyRequests() *Error {
	return &Error{Kind: KindTooManyRequests, Status: http.StatusTooManyRequests, Message: "Too many requests. Please try again later."}
}

// Abort はエラーをコンテキストに記録し、後続ハンドラーを中断します。
// レスポンスの書き込みは Mapper のミドルウェアが行います。
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
