package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/register"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/store"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

const cashierID = "0c8f3a6e-5b1d-4e2f-9a7c-3d2e1f0a9b8c"

type testApp struct {
	handler http.Handler
	rbac    *rbac.Service
	metrics *observability.Metrics
}

func newTestApp(t *testing.T, enforce bool) testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{AppEnv: "test", RateLimitPerMinute: 0}
	metrics := observability.NewMetrics()
	svc := rbac.NewService(store.NewMemory(), rbac.Options{Logger: logger})
	guard := rbac.Middleware{Service: svc, Logger: logger, Enforce: enforce}
	registry := register.NewRegistry(register.RegistryConfig{Logger: logger, Observer: metrics})

	return testApp{
		handler: NewRouter(RouterParams{
			Logger:          logger,
			Config:          cfg,
			RegisterHandler: register.NewHandler(logger, registry, guard),
			RBACHandler:     rbac.NewHandler(logger, svc, guard),
			RBACMiddleware:  guard,
			JobHandler:      jobs.NewHandler(nil, logger),
			Metrics:         metrics,
		}),
		rbac:    svc,
		metrics: metrics,
	}
}

func (a testApp) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(rbac.UserHeader, user)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealthAndMetrics(t *testing.T) {
	a := newTestApp(t, false)

	rr := a.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = a.do(t, http.MethodGet, "/jobs/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = a.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `odyssey_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestRouterSaleCountsTowardsMetrics(t *testing.T) {
	a := newTestApp(t, false)

	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/registers/front/cart/items", "", map[string]any{"productId": 2}).Code)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPut, "/registers/front/payment", "", map[string]any{"payment": "100"}).Code)
	rr := a.do(t, http.MethodPost, "/registers/front/checkout", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	metrics := a.do(t, http.MethodGet, "/metrics", "", nil).Body.String()
	require.Contains(t, metrics, `odyssey_register_sales_total{kind="cash"} 1`)
}

func TestRouterEnforcesPermissions(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, true)

	sales, err := a.rbac.CreatePermission(ctx, rbac.PermissionInput{Name: shared.PermSalesCreate})
	require.NoError(t, err)
	role, err := a.rbac.CreateRole(ctx, rbac.RoleInput{Name: "Cashier", PermissionIDs: []int64{sales.ID}})
	require.NoError(t, err)
	require.NoError(t, a.rbac.AssignUserRole(ctx, rbac.UserRoleInput{UserID: cashierID, RoleID: role.ID}))

	require.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/registers/front/", "", nil).Code)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/registers/front/", cashierID, nil).Code)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/registers/front/products", cashierID, nil).Code)

	// Debt needs sales.debt on top of sales.create.
	require.Equal(t, http.StatusForbidden, a.do(t, http.MethodPut, "/registers/front/debt", cashierID, map[string]any{"isDebt": true}).Code)
	require.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/rbac/roles", cashierID, nil).Code)

	rr := a.do(t, http.MethodGet, "/rbac/users/"+strings.ToUpper(cashierID)+"/permissions", cashierID, nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
}
