package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/domain"
)

type staticTokens string

func (s staticTokens) AccessToken() string { return string(s) }

func TestClient_AvailableOrders_MapsAndAuths(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/delivery/orders/available/", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(listDTO{Results: []orderDTO{
			{
				ID:          "d-1",
				OrderNumber: "ORD-100",
				Status:      "pending",
				TotalAmount: 2500,
				Currency:    "AED",
				Batch:       &batchDTO{BatchID: "B1", BatchNumber: "BN-1", IsConsolidated: true},
			},
			{Status: "pending"}, // no id, dropped
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok-1"), 0)

	got, err := c.AvailableOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "d-1", got[0].ID)
	require.Equal(t, "ORD-100", got[0].Number)
	require.Equal(t, domain.StatusPending, got[0].Status)
	require.True(t, got[0].Batched())
	require.Equal(t, "B1", got[0].Batch.ID)
	require.True(t, got[0].Batch.Consolidated)
}

func TestClient_Accept_RoutesBatchEndpoint(t *testing.T) {
	t.Parallel()

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, 0)

	require.NoError(t, c.Accept(context.Background(), domain.Order{ID: "d-1"}))
	require.NoError(t, c.Accept(context.Background(), domain.Order{
		ID:    "d-2",
		Batch: &domain.BatchRef{ID: "B1"},
	}))

	require.Equal(t, []string{
		"/api/v1/delivery/orders/d-1/accept/",
		"/api/v1/delivery/batches/B1/accept/",
	}, paths)
}

func TestClient_Decline_SendsReason(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/delivery/orders/d-1/decline/", r.URL.Path)
		var body declineDTO
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "too far", body.Reason)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, 0)
	require.NoError(t, c.Decline(context.Background(), "d-1", "too far"))
}

func TestClient_UpdateStatus_PatchesStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/v1/delivery/orders/d-1/status/", r.URL.Path)
		var body statusDTO
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "delivered", body.Status)
		require.Equal(t, "photo-9", body.PhotoID)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, 0)
	require.NoError(t, c.UpdateStatus(context.Background(), "d-1", domain.StatusDelivered, "photo-9"))
}

func TestClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		code   int
		detail string
		want   error
	}{
		{"not found", http.StatusNotFound, "This delivery is already assigned to another driver.", apperr.ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, "token expired", apperr.ErrAuth},
		{"forbidden", http.StatusForbidden, "", apperr.ErrAuth},
		{"server error", http.StatusInternalServerError, "", apperr.ErrNetwork},
		{"rate limited", http.StatusTooManyRequests, "", apperr.ErrNetwork},
		{"bad request", http.StatusBadRequest, "invalid status transition", apperr.ErrInvalid},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				_ = json.NewEncoder(w).Encode(errorDTO{Detail: tc.detail})
			}))
			defer srv.Close()

			c := NewClient(srv.URL, nil, 0)
			err := c.Accept(context.Background(), domain.Order{ID: "d-1"})
			require.ErrorIs(t, err, tc.want)
			if tc.detail != "" {
				require.Contains(t, err.Error(), tc.detail)
			}
		})
	}
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, nil, 0)
	_, err := c.AvailableOrders(context.Background())
	require.ErrorIs(t, err, apperr.ErrNetwork)
}
