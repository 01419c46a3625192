package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTokenServer serves a long-lived token for client tests.
func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"test-token","expires_in":86400}`))
	}))
}

func newTestClient(t *testing.T, endpoint *httptest.Server) *Client {
	t.Helper()
	tokens := newTokenServer(t)
	t.Cleanup(tokens.Close)

	return &Client{
		Endpoint: endpoint.URL,
		Tokens: &TokenProvider{
			TokenURL: tokens.URL,
			Client:   tokens.Client(),
			Sleep:    noSleep,
		},
		Budget: &RateBudget{Sleep: noSleep},
		HTTP:   endpoint.Client(),
		Sleep:  noSleep,
	}
}

func TestQuerySuccessUpdatesBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req gqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, req.Query, "reportData")

		_, _ = w.Write([]byte(`{
			"data": {"ok": true},
			"extensions": {"rateLimitData": {"pointsSpentThisHour": 42.5, "limitPerHour": 3600, "pointsResetIn": 900}}
		}`))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	data, err := c.Query(context.Background(), fightsQuery, map[string]any{"code": "abc"})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok": true}`, string(data))

	snap := c.Budget.Snapshot()
	require.Equal(t, 42.5, snap.PointsSpent)
	require.Equal(t, 3600.0, snap.LimitPerHour)
	require.Equal(t, int64(900), snap.PointsResetIn)
}

func TestQueryGraphQLErrorIsTerminal(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{"errors": [{"message": "report not found"}]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.Query(context.Background(), fightsQuery, nil)

	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	require.Contains(t, gqlErr.Error(), "report not found")
	require.Equal(t, 1, hits)
}

func TestQueryRetriesTransientStatuses(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.Query(context.Background(), fightsQuery, nil)
	require.NoError(t, err)
	require.Equal(t, 3, hits)
}

func TestQueryThrottleMarksBudget(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	var throttleWaits []time.Duration
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, server)
	c.Budget.Clock = func() time.Time { return now }
	c.Budget.Sleep = func(ctx context.Context, d time.Duration) error {
		throttleWaits = append(throttleWaits, d)
		return nil
	}

	_, err := c.Query(context.Background(), fightsQuery, nil)
	require.NoError(t, err)
	require.Equal(t, 2, hits)
	// The second attempt honored the server's 120s hint via the budget.
	require.Equal(t, []time.Duration{120 * time.Second}, throttleWaits)
}

func TestQueryPermanentClientErrorNotRetried(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.Query(context.Background(), fightsQuery, nil)
	require.Error(t, err)
	require.Equal(t, 1, hits)
}

func TestQueryExhaustsAttempts(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	c.Retry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	_, err := c.Query(context.Background(), fightsQuery, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 3 attempts")
	require.Equal(t, 3, hits)
}

func TestQueryMalformedBodyIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.Query(context.Background(), fightsQuery, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode graphql response")
}

func TestRetryPolicyDelaySchedule(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: 4 * time.Second, MaxDelay: 120 * time.Second}
	require.Equal(t, 4*time.Second, policy.Delay(1))
	require.Equal(t, 8*time.Second, policy.Delay(2))
	require.Equal(t, 16*time.Second, policy.Delay(3))
	require.Equal(t, 120*time.Second, policy.Delay(10))
}
