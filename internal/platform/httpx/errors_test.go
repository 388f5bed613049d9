package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("rbac: role 9: %w", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("rbac: assignment exists: %w", shared.ErrDuplicate), http.StatusConflict},
		{fmt.Errorf("rbac: permission in use: %w", shared.ErrConflict), http.StatusConflict},
		{fmt.Errorf("register: stock limit reached: %w", shared.ErrValidation), http.StatusUnprocessableEntity},
		{shared.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())
		require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		require.Equal(t, tc.status, problem.Status)
		if tc.status == http.StatusInternalServerError {
			require.Empty(t, problem.Detail)
		} else {
			require.Equal(t, tc.err.Error(), problem.Detail)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		ProductID int64 `json:"productId"`
	}
	decode := func(body string) error {
		return DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &dst)
	}

	require.NoError(t, decode(`{"productId":4}`))
	require.Equal(t, int64(4), dst.ProductID)
	require.EqualError(t, decode(""), "request body is empty")
	require.Error(t, decode(`{"productId":1}{"productId":2}`))
	require.Error(t, decode(`{"productId":"x"}`))
	require.Error(t, decode(`{"productId":1,"pad":"`+strings.Repeat("a", MaxBodyBytes)+`"}`))
}
