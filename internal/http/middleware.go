package http

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into the generic internal-error envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(ctx *gin.Context, recovered any) {
		slog.Default().ErrorContext(ctx.Request.Context(), "panic recovered",
			"panic", recovered,
			"route", ctx.FullPath(),
			"request_id", ctx.GetString(middlewares.CtxRequestID),
			"stack", string(debug.Stack()),
		)

		handlers.RespondInternal(ctx, "An unexpected error occurred")
		ctx.Abort()
	})
}

func noRoute(ctx *gin.Context) {
	handlers.RespondNotFound(ctx, "Resource not found")
}

func noMethod(ctx *gin.Context) {
	handlers.RespondError(ctx, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
}
