package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/register"
)

var _ register.Observer = (*Metrics)(nil)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesRegisterCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.SaleCompleted(false)
	metrics.SaleCompleted(true)
	metrics.SaleCompleted(true)
	metrics.CartRejected("stock_limit")
	metrics.CartRejected("")

	body := scrape(t, metrics)
	for _, want := range []string{
		`odyssey_register_sales_total{kind="cash"} 1`,
		`odyssey_register_sales_total{kind="debt"} 2`,
		`odyssey_register_cart_rejections_total{reason="stock_limit"} 1`,
		`odyssey_register_cart_rejections_total{reason="unknown"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/registers/{registerID}/cart")

	req := httptest.NewRequest(http.MethodDelete, "/registers/front/cart", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_http_requests_total{code="418",route="/registers/{registerID}/cart"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_http_request_duration_seconds_bucket{route="/registers/{registerID}/cart"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.SaleCompleted(true)
	metrics.CartRejected("stock_limit")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
