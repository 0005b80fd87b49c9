package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"askdata/internal/quota/service"
	"askdata/internal/quota/store"
	"askdata/pkg/domain"
	"askdata/pkg/testutil"
)

func TestHandleStatus(t *testing.T) {
	g, err := service.New(store.NewInMemoryStore(), service.WithLimits(service.Limits{Account: 5, Anonymous: 2}))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(g, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)

	t.Run("peek does not consume", func(t *testing.T) {
		for range 2 {
			req := testutil.WithAnonymous(testutil.NewRequest(t, http.MethodGet, "/api/quota"), "session-a")
			rr := testutil.DoRequest(r, req)
			testutil.AssertStatusOK(t, rr)
			resp := testutil.UnmarshalResponse[StatusResponse](t, rr)
			require.Equal(t, "anonymous", resp.Identity)
			require.Equal(t, 2, resp.Remaining)
		}
	})

	t.Run("reflects usage", func(t *testing.T) {
		id, err := domain.NewAccountIdentity("user-9")
		require.NoError(t, err)
		_, err = g.CheckAndIncrement(context.Background(), id)
		require.NoError(t, err)

		rr := testutil.DoRequest(r, testutil.WithIdentity(testutil.NewRequest(t, http.MethodGet, "/api/quota"), id))
		resp := testutil.UnmarshalResponse[StatusResponse](t, rr)
		require.Equal(t, 4, resp.Remaining)
		require.Equal(t, 1, resp.Used)
		require.Equal(t, 5, resp.Limit)
	})

	t.Run("no identity", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/api/quota"))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}
