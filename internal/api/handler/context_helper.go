package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/JoshH2S/tuterra-sub001/internal/auth"
	"github.com/JoshH2S/tuterra-sub001/pkg/response"
)

const msgValidationFailed = "validation failed"

// MustGetAuth 从 Gin 上下文中提取认证上下文。
// JWT 中间件未注入时写入 401 响应，调用方应在 ok=false 时直接 return。
func MustGetAuth(c *gin.Context) (*auth.AuthContext, bool) {
	v, exists := c.Get(auth.ContextKey)
	if !exists {
		response.Unauthorized(c, "unauthenticated")
		return nil, false
	}
	ac, ok := v.(*auth.AuthContext)
	if !ok || !ac.Authenticated() {
		response.Unauthorized(c, "unauthenticated")
		return nil, false
	}
	return ac, true
}

// RegisterValidatorTags 校验错误中的字段名使用 json/form 标签
func RegisterValidatorTags() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
}

// bindFailed 400，details 为逐字段明细
func bindFailed(c *gin.Context, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		response.Error(c, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		details := make([]response.FieldError, 0, len(ve))
		for _, fe := range ve {
			details = append(details, response.FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Message: fieldMessage(fe),
			})
		}
		response.BadRequest(c, msgValidationFailed, details)
		return
	}
	response.BadRequest(c, msgValidationFailed, []response.FieldError{{
		Field:   "body",
		Rule:    "format",
		Message: err.Error(),
	}})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is not a valid %s", fe.Field(), fe.Tag())
	}
}
