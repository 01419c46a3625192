package cmd

import (
	"testing"
	"time"

	"github.com/raidlens/raidlens/internal/config"
)

func TestBuildClient(t *testing.T) {
	cfg := &config.Config{
		API: config.APIConfig{
			Endpoint:        "https://example.test/graphql",
			TokenURL:        "https://example.test/oauth/token",
			ClientID:        "id",
			ClientSecret:    "secret",
			Timeout:         15 * time.Second,
			RateLimitMargin: 0.2,
		},
	}

	c := buildClient(cfg)
	if c.Endpoint != cfg.API.Endpoint {
		t.Fatalf("endpoint = %q", c.Endpoint)
	}
	if c.Tokens == nil || c.Tokens.TokenURL != cfg.API.TokenURL {
		t.Fatal("token provider not configured")
	}
	if c.Budget == nil || c.Budget.Margin != 0.2 {
		t.Fatal("budget margin not configured")
	}
	if c.HTTP == nil || c.HTTP.Timeout != 15*time.Second {
		t.Fatalf("http timeout = %v", c.HTTP.Timeout)
	}
	if c.Retry.MaxAttempts == 0 {
		t.Fatal("retry policy not configured")
	}
}

func TestIngestLoggerWithoutVerbose(t *testing.T) {
	prev := verbose
	verbose = false
	defer func() { verbose = prev }()

	logger := ingestLogger()
	if logger == nil {
		t.Fatal("expected a logger")
	}
}
