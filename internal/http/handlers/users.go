package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/geocoder89/userhub/internal/domain/page"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type UserService interface {
	Create(ctx context.Context, in user.CreateInput) (user.Response, error)
	Get(ctx context.Context, id int64) (user.Response, bool, error)
	ListAll(ctx context.Context) ([]user.Response, error)
	Update(ctx context.Context, id int64, in user.UpdateInput) (user.Response, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Search(ctx context.Context, c user.Criteria) (page.Page[user.Response], error)
	List(ctx context.Context, pageNum, pageSize int) (page.Page[user.Response], error)
}

type UsersHandler struct {
	users UserService
}

func NewUsersHandler(users UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

const msgUserNotFound = "User not found"

// PagedQuery is the query string of GET /users/paged. Missing values are
// clamped to the defaults by the service.
type PagedQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		RespondBadRequest(ctx, "Invalid user id", gin.H{"id": ctx.Param("id")})
		return 0, false
	}
	return id, true
}

func (h *UsersHandler) ListAll(ctx *gin.Context) {
	all, err := h.users.ListAll(ctx.Request.Context())
	if err != nil {
		RespondErr(ctx, err, "An error occurred while retrieving users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, all)
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	u, found, err := h.users.Get(ctx.Request.Context(), id)
	if err != nil {
		RespondErr(ctx, err, "An error occurred while retrieving the user")
		return
	}
	if !found {
		RespondNotFound(ctx, msgUserNotFound)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateInput

	if !BindJSON(ctx, &req) {
		return
	}

	created, err := h.users.Create(ctx.Request.Context(), req)
	if err != nil {
		RespondErr(ctx, err, "An error occurred while creating the user")
		return
	}

	ctx.Header("Location", "/users/"+strconv.FormatInt(created.ID, 10))
	ctx.JSON(http.StatusCreated, created)
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req user.UpdateInput

	if !BindJSON(ctx, &req) {
		return
	}

	updated, found, err := h.users.Update(ctx.Request.Context(), id, req)
	if err != nil {
		RespondErr(ctx, err, "An error occurred while updating the user")
		return
	}
	if !found {
		RespondNotFound(ctx, msgUserNotFound)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	deleted, err := h.users.Delete(ctx.Request.Context(), id)
	if err != nil {
		RespondErr(ctx, err, "An error occurred while deleting the user")
		return
	}
	if !deleted {
		RespondNotFound(ctx, msgUserNotFound)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) Paged(ctx *gin.Context) {
	var q PagedQuery

	if !BindQuery(ctx, &q) {
		return
	}

	result, err := h.users.List(ctx.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		RespondErr(ctx, err, "An error occurred while retrieving users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, result)
}

func (h *UsersHandler) Search(ctx *gin.Context) {
	var criteria user.Criteria

	// an empty body searches with every default
	if ctx.Request.ContentLength != 0 && !BindJSON(ctx, &criteria) {
		return
	}

	result, err := h.users.Search(ctx.Request.Context(), criteria)
	if err != nil {
		RespondErr(ctx, err, "An error occurred while searching users")
		return
	}

	ctx.JSON(http.StatusOK, result)
}
