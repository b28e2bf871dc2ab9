package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*auth.Session, error)
}

type AuthHandler struct {
	auth Authenticator
	prom *observability.Prom
	now  func() time.Time
}

func NewAuthHandler(authenticator Authenticator, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		auth: authenticator,
		prom: prom,
		now:  time.Now,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      user.Role `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type DashboardResponse struct {
	Message   string    `json:"message"`
	Username  string    `json:"username"`
	Role      user.Role `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	session, err := h.auth.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.prom.ObserveLogin("error")
		RespondErr(ctx, err, "An error occurred during login")
		return
	}

	if session == nil {
		h.prom.ObserveLogin("failure")
		RespondUnauthorized(ctx, "Invalid username or password")
		return
	}

	h.prom.ObserveLogin("success")

	ctx.JSON(http.StatusOK, LoginResponse{
		Token:     session.Token,
		Username:  session.Username,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt,
	})
}

func dashboardMessage(role user.Role) string {
	switch role {
	case user.RoleAdmin:
		return "Admin Dashboard - Full access granted"
	case user.RoleUser:
		return "User Dashboard - Welcome to your personal space"
	default:
		return "Dashboard - Access granted"
	}
}

func (h *AuthHandler) Dashboard(ctx *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	ctx.JSON(http.StatusOK, DashboardResponse{
		Message:   dashboardMessage(claims.Role),
		Username:  claims.Username,
		Role:      claims.Role,
		Timestamp: h.now().UTC(),
	})
}
