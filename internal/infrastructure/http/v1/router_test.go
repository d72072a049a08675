package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminnext/internal/domain/admin"
	"adminnext/internal/infrastructure/http/v1/middleware"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/testutil"
	"adminnext/pkg/logger"
)

type userForm struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name" validate:"required"`
	Email       string  `db:"email" validate:"required,email"`
	ProfileType *string `db:"profile_type" validate:"omitempty,oneof=ADMIN CUSTOMER VENDOR"`
}

type testServer struct {
	router *gin.Engine
	shop   *testutil.Shop
	audit  *sqldb.AuditService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	shop := testutil.NewShop(t)
	ann := shop.AddUser(t, "Ann", "ann@example.com", "ADMIN")
	bob := shop.AddUser(t, "Bob", "bob@example.com", "")
	shop.AddProduct(t, "Lamp", 10, ann)
	shop.AddProduct(t, "Desk", 20, bob)

	reg := admin.NewRegistry(shop.Meta)
	reg.MustRegister(shop.Users,
		admin.WithFilterFields("profile_type"),
		admin.WithSearchFields("name", "email"),
		admin.WithValidation(admin.NewStructValidator[userForm]()),
	)
	reg.MustRegister(shop.Products,
		admin.WithFilterFields("user_id"),
		admin.WithSearchFields("title"),
	)
	reg.Freeze()

	audit, err := sqldb.NewAuditService(0)
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		DB:      shop.DB,
		Service: admin.NewService(reg, admin.WithAuditor(audit)),
		Logger:  logger.NewNop(),
		Metrics: prometheus.NewRegistry(),
	})
	return &testServer{router: router, shop: shop, audit: audit}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderActor, "ops")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Header().Get("Content-Type") != "" && json.Valid(rec.Body.Bytes()) {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestRouter_IndexAndList(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/admin/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["models"], 2)

	rec, body = s.do(t, http.MethodGet, "/admin/User?q=ann", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1.0, body["total"])
	assert.Equal(t, []any{"id", "name", "email", "profile_type"}, body["columns"])

	rec, body = s.do(t, http.MethodGet, "/admin/products?price__gt=15&sort=-id&page=1&page_size=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rows := body["rows"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "Desk", rows[0].(map[string]any)["title"])
	assert.Equal(t, 5.0, body["pagination"].(map[string]any)["page_size"])
}

func TestRouter_ListErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"UnknownOperator", "/admin/Product?price__between=1", http.StatusBadRequest, "INVALID_FILTER"},
		{"BadDirection", "/admin/Product?sort=price:sideways", http.StatusBadRequest, "INVALID_FILTER"},
		{"BadPage", "/admin/Product?page=zero", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"PageOutOfRange", "/admin/Product?page=9223372036854775807", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"UnknownModel", "/admin/Ghost", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := s.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestRouter_CreateAndUpdate(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/admin/User", map[string]any{
		"name": "Cid", "email": "cid@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, body["errors"])
	row := body["row"].(map[string]any)
	assert.Equal(t, "Cid", row["name"])

	rec, body = s.do(t, http.MethodPost, "/admin/User", map[string]any{
		"name": "Dee", "email": "nope",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string]any{"email": "value is not a valid email address"}, body["errors"])

	rec, body = s.do(t, http.MethodPatch, "/admin/User/1", map[string]any{"name": "Annie"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Annie", body["row"].(map[string]any)["name"])

	rec, body = s.do(t, http.MethodPut, "/admin/User/99", map[string]any{"name": "Ghost"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"id": "Object not found"}, body["errors"])

	rec, _ = s.do(t, http.MethodPut, "/admin/User/1", map[string]any{"email": "bob@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Equal(t, 3, s.shop.Count(t, "users"))

	sess := s.shop.DB.NewSession()
	defer sess.Close()
	entries, err := s.audit.History(t.Context(), sess, "User", 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ops", entries[0].Actor)
}

func TestRouter_DetailNewAndFilters(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/admin/Product/2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Desk", body["row"].(map[string]any)["title"])
	assert.Equal(t, map[string]any{
		"user_id": []any{map[string]any{"id": 2.0, "label": "Bob (bob@example.com)"}},
	}, body["related_data"])

	rec, body = s.do(t, http.MethodGet, "/admin/Product/99", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"id": "Object not found"}, body["errors"])

	rec, body = s.do(t, http.MethodGet, "/admin/User/new", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"profile_type": []any{"ADMIN", "CUSTOMER", "VENDOR"}}, body["enum_fields"])

	rec, body = s.do(t, http.MethodGet, "/admin/Product/filters/user_id", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, body["options"], 2)

	rec, body = s.do(t, http.MethodGet, "/admin/Product/filters/colour", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = s.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "adminnext_http_requests_total")
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
}

func TestRouter_SchemaAndHistory(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/admin/products/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Product", body["name"])
	assert.Len(t, body["columns"], 4)

	rec, _ = s.do(t, http.MethodPatch, "/admin/Product/1", map[string]any{"price": 12.5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body = s.do(t, http.MethodGet, "/admin/Product/1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, "update", entry["action"])
	assert.Equal(t, "ops", entry["actor"])
	assert.Equal(t, map[string]any{"price": map[string]any{"old": 10.0, "new": 12.5}}, entry["changes"])

	rec, body = s.do(t, http.MethodGet, "/admin/Product/1/history?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	rec, _ = s.do(t, http.MethodGet, "/admin/Product/42/history", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
