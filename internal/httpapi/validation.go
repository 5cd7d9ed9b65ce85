package httpapi

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var registerOnce sync.Once

// registerValidation configures gin's shared validator: json field names in
// errors, plus notblank.
func registerValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", validators.NotBlank)
	})
}

// fieldMessages overrides the generic per-tag text for known fields.
var fieldMessages = map[string]string{
	"username.required": "Username is required",
	"username.notblank": "Username is required",
	"username.min":      "Username must be between 3 and 50 characters",
	"username.max":      "Username must be between 3 and 50 characters",
	"email.required":    "Email is required",
	"email.email":       "Email should be valid",
	"password.required": "Password is required",
	"password.notblank": "Password is required",
	"password.min":      "Password must be at least 8 characters long",
	"password.max":      "Password must be at most 72 bytes",

	"refreshToken.required": "Refresh token is required",
	"refreshToken.notblank": "Refresh token is required",
}

// fieldDetails renders "field: message" lines.
func fieldDetails(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field()+": "+fieldMessage(e))
	}
	return out
}

func fieldMessage(e validator.FieldError) string {
	if msg, ok := fieldMessages[e.Field()+"."+e.Tag()]; ok {
		return msg
	}
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	default:
		return "is invalid"
	}
}
