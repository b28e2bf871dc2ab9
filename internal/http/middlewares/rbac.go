package middlewares

import (
	"net/http"

	"github.com/geocoder89/userhub/internal/apperr"
	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole admits only callers whose token carries exactly the required
// role. It must run after RequireAuth.
func RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := ClaimsFromContext(c)

		if err := auth.Authorize(claims, required); err != nil {
			if apperr.Is(err, apperr.KindUnauthenticated) {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
				return
			}
			abortJSON(c, http.StatusForbidden, "forbidden", "Access denied")
			return
		}

		c.Next()
	}
}
