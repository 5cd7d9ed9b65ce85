package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"account-service/internal/apperr"
	"account-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	ResultSuccess = "SUCCESS"
	ResultError   = "ERROR"
)

// Envelope is the body of every API response.
type Envelope struct {
	Result    string    `json:"result"`
	Message   string    `json:"message"`
	Data      any       `json:"data"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Details   []string  `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var errMalformedBody = apperr.Validation("Malformed request body")

// Success writes a SUCCESS envelope.
func Success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		Result:    ResultSuccess,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// RespondError is the single place failures become HTTP responses. It logs
// each failure once. Messages come from classified errors only, so causes,
// stack traces and secrets never reach the client.
func RespondError(c *gin.Context, err error) {
	ae := classify(err)
	status := ae.Kind.HTTPStatus()

	log := logger.From(c.Request.Context())
	attrs := []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"code", ae.Code,
	}
	if cause := errors.Unwrap(ae); cause != nil {
		attrs = append(attrs, "cause", cause.Error())
	}
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log.Log(c.Request.Context(), level, "request failed", attrs...)

	c.AbortWithStatusJSON(status, Envelope{
		Result:    ResultError,
		Message:   ae.Message,
		Data:      nil,
		ErrorCode: ae.Code,
		Details:   ae.Details,
		Timestamp: time.Now().UTC(),
	})
}

func classify(err error) *apperr.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperr.Validation("Validation failed", fieldDetails(verrs)...)
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errMalformedBody.WithCause(err)
	}

	if ae, ok := apperr.As(err); ok {
		return ae
	}
	return apperr.Internal(err)
}
