package core

import (
	"testing"
	"time"
)

func TestEndpointConfigTimeouts(t *testing.T) {
	cases := []struct {
		seconds     int
		wantTimeout time.Duration
		wantConnect time.Duration
	}{
		{seconds: 0, wantTimeout: 10 * time.Second, wantConnect: 5 * time.Second},
		{seconds: -3, wantTimeout: 10 * time.Second, wantConnect: 5 * time.Second},
		{seconds: 2, wantTimeout: 2 * time.Second, wantConnect: 2 * time.Second},
		{seconds: 30, wantTimeout: 30 * time.Second, wantConnect: 5 * time.Second},
	}
	for _, tc := range cases {
		cfg := EndpointConfig{TimeoutSeconds: tc.seconds}
		if got := cfg.Timeout(); got != tc.wantTimeout {
			t.Fatalf("timeout(%d): expected %s, got %s", tc.seconds, tc.wantTimeout, got)
		}
		if got := cfg.ConnectTimeout(DefaultMaxConnectTimeout); got != tc.wantConnect {
			t.Fatalf("connect timeout(%d): expected %s, got %s", tc.seconds, tc.wantConnect, got)
		}
	}
	if got := (EndpointConfig{TimeoutSeconds: 30}).ConnectTimeout(0); got != DefaultMaxConnectTimeout {
		t.Fatalf("expected zero max to fall back to default, got %s", got)
	}
}

func TestEndpointConfigHasEndpoint(t *testing.T) {
	if (EndpointConfig{Endpoint: "   "}).HasEndpoint() {
		t.Fatalf("expected blank endpoint to count as absent")
	}
	if !(EndpointConfig{Endpoint: "https://hooks.example.com"}).HasEndpoint() {
		t.Fatalf("expected endpoint to be present")
	}
}

func TestValidationResultErr(t *testing.T) {
	if err := ValidationPassed().Err(); err != nil {
		t.Fatalf("expected nil error for passed validation, got %v", err)
	}
	err := ValidationFailed(ViolationPrivateIP, "security: host resolves to private address").Err()
	if TextCode(err) != ErrorValidation {
		t.Fatalf("expected validation text code, got %q", TextCode(err))
	}
}
