package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// 検証エラーの path をJSONのキー名で返すため
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// BindJSON はリクエストボディを obj にデコードして検証します。
// 失敗した場合は項目ごとのエラーを持つ Validation エラーを返します。
func BindJSON(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		// 空ボディは {} と同じ扱いで必須項目のエラーにする
		err = binding.Validator.ValidateStruct(obj)
	}
	if err == nil {
		return nil
	}
	return Validation(fieldErrors(err)).WithCause(err)
}

func fieldErrors(err error) []FieldError {
	var (
		validationErrs validator.ValidationErrors
		typeErr        *json.UnmarshalTypeError
		syntaxErr      *json.SyntaxError
	)

	switch {
	case errors.As(err, &validationErrs):
		fields := make([]FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, fromFieldError(fe))
		}
		return fields
	case errors.As(err, &typeErr):
		return []FieldError{{
			Code:    "invalid_type",
			Path:    splitPath(typeErr.Field),
			Message: fmt.Sprintf("Expected %s, received %s", typeErr.Type.String(), typeErr.Value),
		}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return []FieldError{{Code: "invalid_json", Path: []string{}, Message: "Malformed JSON body"}}
	default:
		return []FieldError{{Code: "invalid_json", Path: []string{}, Message: err.Error()}}
	}
}

func fromFieldError(fe validator.FieldError) FieldError {
	field := FieldError{Path: []string{fe.Field()}}
	switch fe.Tag() {
	case "required":
		field.Code = "invalid_type"
		field.Message = "Required"
	case "email":
		field.Code = "invalid_string"
		field.Message = "Invalid email"
	case "min":
		field.Code = "too_small"
		field.Message = fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "max":
		field.Code = "too_big"
		field.Message = fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
	default:
		field.Code = "custom"
		field.Message = fmt.Sprintf("Failed on the '%s' rule", fe.Tag())
	}
	return field
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

func splitPath(field string) []string {
	if field == "" {
		return []string{}
	}
	return strings.Split(field, ".")
}
