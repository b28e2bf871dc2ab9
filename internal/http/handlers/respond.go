package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/userhub/internal/apperr"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.JSON(status, APIError{
		Message:   message,
		Details:   details,
		Code:      code,
		RequestID: requestIDFrom(ctx),
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, apperr.KindValidation.String(), message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, apperr.KindUnauthenticated.String(), message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, apperr.KindNotFound.String(), message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, apperr.KindInternal.String(), message, nil)
}

// StatusFor maps an error kind to its HTTP status. Conflicts are reported
// as 400 like any other rejected input.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict, apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondErr renders err. Untagged errors are logged here, once, and
// answered with a generic message.
func RespondErr(ctx *gin.Context, err error, fallback string) {
	kind := apperr.KindOf(err)

	if kind == apperr.KindInternal {
		slog.Default().ErrorContext(ctx.Request.Context(), fallback,
			"err", err,
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
		)
		RespondInternal(ctx, fallback)
		return
	}

	var details any
	message := err.Error()

	var e *apperr.Error
	if errors.As(err, &e) {
		message = e.Message
		details = e.Details
	}

	RespondError(ctx, StatusFor(kind), kind.String(), message, details)
}
