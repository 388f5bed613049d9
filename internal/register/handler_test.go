package register

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

type allowAll struct{}

func (allowAll) RequireAny(...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

func (allowAll) RequireAll(...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

type decodedState struct {
	State struct {
		Cart []struct {
			ID       int64 `json:"id"`
			Quantity int   `json:"quantity"`
		} `json:"cart"`
		Total       string `json:"total"`
		CanCheckout bool   `json:"canCheckout"`
	} `json:"state"`
	Receipt *struct {
		ID     string `json:"id"`
		Change string `json:"change"`
	} `json:"receipt"`
	Notices []shared.Notice `json:"notices"`
	Error   *struct {
		Status int `json:"status"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	registry := NewRegistry(RegistryConfig{Catalog: catalog.NewSeedSource(), Logger: discardLogger()})
	r := chi.NewRouter()
	NewHandler(discardLogger(), registry, allowAll{}).MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, decodedState) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out decodedState
	if rr.Header().Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(rr.Body.Bytes(), &out)
	}
	return rr, out
}

func TestHandlerCartFlow(t *testing.T) {
	h := newTestRouter(t)

	rr, body := do(t, h, http.MethodPost, "/registers/front/cart/items", `{"productId":1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, body.State.Cart, 1)
	require.Equal(t, "10.99", body.State.Total)
	require.Len(t, body.Notices, 1)
	require.Equal(t, shared.NoticeSuccess, body.Notices[0].Kind)

	rr, body = do(t, h, http.MethodPost, "/registers/front/checkout", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NotNil(t, body.Error)
	require.Equal(t, shared.NoticeError, body.Notices[0].Kind)

	rr, _ = do(t, h, http.MethodPut, "/registers/front/payment", `{"payment":"20"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, body = do(t, h, http.MethodPost, "/registers/front/checkout", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, body.Receipt)
	require.Equal(t, "9.01", body.Receipt.Change)
	require.Empty(t, body.State.Cart)
}

func TestHandlerRegistersAreIndependent(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/registers/front/cart/items", `{"productId":2}`)

	rr, body := do(t, h, http.MethodGet, "/registers/back/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, body.State.Cart)
}

func TestHandlerScanAndRemove(t *testing.T) {
	h := newTestRouter(t)

	rr, body := do(t, h, http.MethodPost, "/registers/front/scan", `{"code":"4"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int64(4), body.State.Cart[0].ID)

	rr, _ = do(t, h, http.MethodPost, "/registers/front/scan", `{"code":"nope"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr, body = do(t, h, http.MethodDelete, "/registers/front/cart/items/4", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, body.State.Cart)

	rr, _ = do(t, h, http.MethodDelete, "/registers/front/cart/items/x", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerValidatesInput(t *testing.T) {
	h := newTestRouter(t)

	rr, _ := do(t, h, http.MethodPost, "/registers/front/cart/items", `{"productId":0}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr, _ = do(t, h, http.MethodPost, "/registers/front/cart/items", `{`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = do(t, h, http.MethodGet, "/registers/a:b/", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerProductsReflectFilterAndStockLimit(t *testing.T) {
	h := newTestRouter(t)
	for i := 0; i < 5; i++ {
		do(t, h, http.MethodPost, "/registers/front/cart/items", `{"productId":6}`)
	}
	rr, _ := do(t, h, http.MethodPut, "/registers/front/filter", `{"category":"Snacks"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/registers/front/products", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var products []ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	for _, p := range products {
		require.Equal(t, p.ID == 6, p.AtStockLimit)
	}
}

func TestHandlerNoticesStayWithTheirRequest(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodGet, "/registers/front/", "")

	const n = 24
	got := make([][]shared.Notice, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, out := do(t, h, http.MethodPost, "/registers/front/cart/items", fmt.Sprintf(`{"productId":%d}`, 1000+i))
			got[i] = out.Notices
		}(i)
	}
	wg.Wait()

	for i, notices := range got {
		require.Len(t, notices, 1, "request %d", i)
		require.Equal(t, fmt.Sprintf("Product %d not found", 1000+i), notices[0].Message)
	}
}
