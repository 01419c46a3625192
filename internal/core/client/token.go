package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenSafetyMargin is how much validity must remain for a cached token to
// be reused.
const tokenSafetyMargin = 60 * time.Second

const (
	tokenMaxAttempts = 3
	tokenBaseDelay   = 2 * time.Second
)

// ErrCredentialsRejected means the client-credentials exchange returned
// 401. Retrying cannot help; the operator has to fix the credentials.
var ErrCredentialsRejected = errors.New("api credentials rejected")

// TokenProvider performs the client-credentials exchange and caches the
// resulting bearer token until it nears expiry. Safe for concurrent use;
// only one goroutine refreshes at a time.
type TokenProvider struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Client       *http.Client
	Clock        func() time.Time
	Sleep        func(ctx context.Context, d time.Duration) error

	// refreshMu serializes exchanges; mu guards only the cached fields so
	// nothing sleeps while holding it.
	refreshMu sync.Mutex
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// Token returns a valid bearer token, refreshing transparently when the
// cached one is absent or within the safety margin of expiry.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if token, ok := p.cached(); ok {
		return token, nil
	}

	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if token, ok := p.cached(); ok {
		return token, nil
	}

	token, expiresIn, err := p.exchange(ctx)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.token = token
	p.expiresAt = p.now().Add(expiresIn)
	p.mu.Unlock()

	return token, nil
}

func (p *TokenProvider) cached() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && p.expiresAt.Sub(p.now()) > tokenSafetyMargin {
		return p.token, true
	}
	return "", false
}

// exchange runs the client-credentials POST with bounded retries on 5xx
// and transport failures. 401 and other 4xx are permanent.
func (p *TokenProvider) exchange(ctx context.Context) (string, time.Duration, error) {
	var lastErr error
	for attempt := 0; attempt < tokenMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := tokenBaseDelay << (attempt - 1)
			if err := p.sleep(ctx, delay); err != nil {
				return "", 0, err
			}
		}

		token, expiresIn, retryable, err := p.exchangeOnce(ctx)
		if err == nil {
			return token, expiresIn, nil
		}
		if !retryable {
			return "", 0, err
		}
		lastErr = err
	}

	return "", 0, fmt.Errorf("token exchange failed after %d attempts: %w", tokenMaxAttempts, lastErr)
}

func (p *TokenProvider) exchangeOnce(ctx context.Context) (string, time.Duration, bool, error) {
	form := url.Values{"grant_type": []string{"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.ClientID, p.ClientSecret)

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return "", 0, retryableError(err), fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", 0, false, ErrCredentialsRejected
	case resp.StatusCode != http.StatusOK:
		err := fmt.Errorf("token endpoint returned %d", resp.StatusCode)
		return "", 0, resp.StatusCode >= http.StatusInternalServerError, err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", 0, false, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", 0, false, errors.New("token response missing access_token")
	}

	return payload.AccessToken, time.Duration(payload.ExpiresIn) * time.Second, true, nil
}

func (p *TokenProvider) httpClient() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (p *TokenProvider) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}

func (p *TokenProvider) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}
