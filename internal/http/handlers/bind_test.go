package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details struct {
		JSON   string                `json:"json"`
		Field  string                `json:"field"`
		Reason string                `json:"reason"`
		Fields []handlers.FieldError `json:"fields"`
	} `json:"details"`
}

type pagingRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func newBindRouter() *gin.Engine {
	r := gin.New()
	r.POST("/login", func(ctx *gin.Context) {
		var req handlers.LoginRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusOK)
	})
	r.POST("/paging", func(ctx *gin.Context) {
		var req pagingRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusOK)
	})
	r.GET("/paged", func(ctx *gin.Context) {
		var q handlers.PagedQuery
		if !handlers.BindQuery(ctx, &q) {
			return
		}
		ctx.Status(http.StatusOK)
	})
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBindError(t *testing.T, w *httptest.ResponseRecorder) bindErrorResponse {
	t.Helper()

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}
	if resp.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Code)
	}
	return resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	r := newBindRouter()

	resp := decodeBindError(t, postJSON(r, "/login", `{"username":"admin"}`))

	if len(resp.Details.Fields) != 1 {
		t.Fatalf("expected one field error, got %+v", resp.Details.Fields)
	}

	fieldErr := resp.Details.Fields[0]
	if fieldErr.Field != "password" {
		t.Fatalf("expected field password, got %q", fieldErr.Field)
	}
	if fieldErr.Rule != "required" {
		t.Fatalf("expected rule required, got %q", fieldErr.Rule)
	}
	if fieldErr.Message == "" {
		t.Fatalf("expected non-empty message")
	}
}

func TestBindJSON_TypeMismatchUsesJSONFieldNames(t *testing.T) {
	r := newBindRouter()

	resp := decodeBindError(t, postJSON(r, "/paging", `{"page":1,"pageSize":"ten"}`))

	if resp.Details.JSON != "invalid_json_type" {
		t.Fatalf("expected invalid_json_type, got %q", resp.Details.JSON)
	}
	if resp.Details.Field != "pageSize" {
		t.Fatalf("expected detail field to be pageSize, got %q", resp.Details.Field)
	}
	if len(resp.Details.Fields) == 0 || resp.Details.Fields[0].Rule != "type" {
		t.Fatalf("expected a type rule in details.fields, got %+v", resp.Details.Fields)
	}
}

func TestBindJSON_SyntaxAndEmptyBody(t *testing.T) {
	r := newBindRouter()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"truncated", `{"username":`, "invalid_json_syntax"},
		{"garbage", `{nope}`, "invalid_json_syntax"},
		{"empty", ``, "empty_body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeBindError(t, postJSON(r, "/login", tt.body))
			if resp.Details.JSON != tt.want {
				t.Fatalf("details.json got %q want %q", resp.Details.JSON, tt.want)
			}
		})
	}
}

func TestBindQuery_RejectsNonNumericPaging(t *testing.T) {
	r := newBindRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/paged?page=two", nil))

	resp := decodeBindError(t, w)
	if resp.Message != "Invalid query parameters" {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/paged?page=2&pageSize=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("valid query got %d", w.Code)
	}
}
