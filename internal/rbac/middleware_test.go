package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticPermissions map[string][]string

func (s staticPermissions) EffectivePermissions(_ context.Context, userID string) ([]string, error) {
	if userID == userB {
		return nil, errors.New("store down")
	}
	return s[userID], nil
}

func guarded(m Middleware, mw func(http.Handler) http.Handler) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	return m.Identify(mw(ok))
}

func serve(h http.Handler, user string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestMiddlewareRequireAnyAndAll(t *testing.T) {
	m := Middleware{
		Service: staticPermissions{userA: {"Sales.Create", "products.view"}},
		Logger:  testLogger(),
		Enforce: true,
	}

	require.Equal(t, http.StatusNoContent, serve(guarded(m, m.RequireAny("sales.create", "sales.debt")), userA))
	require.Equal(t, http.StatusForbidden, serve(guarded(m, m.RequireAll("sales.create", "sales.debt")), userA))
	require.Equal(t, http.StatusNoContent, serve(guarded(m, m.RequireAll(" SALES.CREATE ", "products.view")), userA))
	require.Equal(t, http.StatusForbidden, serve(guarded(m, m.RequireAny("sales.create")), ""))
	require.Equal(t, http.StatusForbidden, serve(guarded(m, m.RequireAny("sales.create")), "42"))
	require.Equal(t, http.StatusInternalServerError, serve(guarded(m, m.RequireAny("sales.create")), userB))
	require.Equal(t, http.StatusNoContent, serve(guarded(m, m.RequireAny()), ""))
}

func TestMiddlewarePassesEverythingWhenNotEnforced(t *testing.T) {
	m := Middleware{Service: staticPermissions{}, Enforce: false}
	require.Equal(t, http.StatusNoContent, serve(guarded(m, m.RequireAll("roles.delete")), ""))
}
