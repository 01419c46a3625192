package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// GraphQLError is an application-level error payload returned alongside a
// 200 response. It is terminal: the request was understood and refused.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Client executes single GraphQL queries against the combat-log service,
// funnelling every request through the shared token provider and rate
// budget. Safe for concurrent use.
type Client struct {
	Endpoint string
	Tokens   *TokenProvider
	Budget   *RateBudget
	HTTP     *http.Client
	Retry    RetryPolicy
	Sleep    func(ctx context.Context, d time.Duration) error

	// OnRequest, when set, is invoked once per issued HTTP request.
	// The ingest path uses it for provenance counters.
	OnRequest func()
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Extensions struct {
		RateLimitData *rateLimitData `json:"rateLimitData"`
	} `json:"extensions"`
}

type rateLimitData struct {
	PointsSpentThisHour float64 `json:"pointsSpentThisHour"`
	LimitPerHour        float64 `json:"limitPerHour"`
	PointsResetIn       int64   `json:"pointsResetIn"`
}

// Query runs one request/response cycle with retry on transient failures.
// Transient: 429/502/503/504 and connection or timeout errors, retried with
// the policy's backoff until attempts run out. Permanent: other 4xx,
// malformed bodies, credential rejection, and application-level errors.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	policy := c.Retry
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, policy.Delay(attempt)); err != nil {
				return nil, err
			}
		}

		data, retryable, err := c.queryOnce(ctx, query, variables)
		if err == nil {
			return data, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("query failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}

func (c *Client) queryOnce(ctx context.Context, query string, variables map[string]any) (json.RawMessage, bool, error) {
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := c.Budget.WaitIfNeeded(ctx); err != nil {
		return nil, false, err
	}

	body, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	if c.OnRequest != nil {
		c.OnRequest()
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, retryableError(err), fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode == http.StatusTooManyRequests {
		c.Budget.MarkThrottled(retryAfterHeader(resp))
		return nil, true, fmt.Errorf("graphql endpoint throttled (429)")
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("graphql endpoint returned %d", resp.StatusCode)
		return nil, retryableStatus(resp.StatusCode), err
	}

	var envelope gqlEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, false, fmt.Errorf("decode graphql response: %w", err)
	}

	if rl := envelope.Extensions.RateLimitData; rl != nil {
		c.Budget.Update(rl.PointsSpentThisHour, rl.LimitPerHour, time.Duration(rl.PointsResetIn)*time.Second)
	}

	if len(envelope.Errors) > 0 {
		gqlErr := &GraphQLError{Messages: make([]string, 0, len(envelope.Errors))}
		for _, item := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, item.Message)
		}
		return nil, false, gqlErr
	}

	return envelope.Data, false, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

// retryAfterHeader parses a Retry-After value in either seconds or
// HTTP-date form; zero means the server gave no usable hint.
func retryAfterHeader(resp *http.Response) time.Duration {
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := http.ParseTime(value); err == nil {
		return time.Until(parsed)
	}

	return 0
}
