package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestTokenCachedUntilSafetyMargin(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		require.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &TokenProvider{
		TokenURL:     server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Client:       server.Client(),
		Clock:        func() time.Time { return now },
		Sleep:        noSleep,
	}

	token, err := provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)

	token, err = provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)
	require.Equal(t, 1, hits)

	// Within the 60s safety margin of expiry: refresh again.
	now = now.Add(3600*time.Second - 30*time.Second)
	_, err = provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, hits)
}

func TestTokenCredentialRejectionIsPermanent(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := &TokenProvider{
		TokenURL: server.URL,
		Client:   server.Client(),
		Sleep:    noSleep,
	}

	_, err := provider.Token(context.Background())
	require.ErrorIs(t, err, ErrCredentialsRejected)
	require.Equal(t, 1, hits)
}

func TestTokenClientErrorIsPermanent(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	provider := &TokenProvider{
		TokenURL: server.URL,
		Client:   server.Client(),
		Sleep:    noSleep,
	}

	_, err := provider.Token(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "returned 400")
	require.Equal(t, 1, hits)
}

func TestTokenRetriesServerErrors(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-2","expires_in":3600}`))
	}))
	defer server.Close()

	provider := &TokenProvider{
		TokenURL: server.URL,
		Client:   server.Client(),
		Sleep:    noSleep,
	}

	token, err := provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-2", token)
	require.Equal(t, 3, hits)
}

func TestTokenExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := &TokenProvider{
		TokenURL: server.URL,
		Client:   server.Client(),
		Sleep:    noSleep,
	}

	_, err := provider.Token(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 3 attempts")
}

func TestTokenMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer server.Close()

	provider := &TokenProvider{
		TokenURL: server.URL,
		Client:   server.Client(),
		Sleep:    noSleep,
	}

	_, err := provider.Token(context.Background())
	require.Error(t, err)
}
