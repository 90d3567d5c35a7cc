package mcpclient

import (
	"context"
	"fmt"
	"net/http"
)

// TokenSource yields a valid Bearer access token, refreshing or
// re-authenticating behind the scenes as needed.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
}

// authTransport is an http.RoundTripper that injects the Authorization
// header into every outgoing request. Tokens are fetched per request, so a
// refresh that happens mid-session is picked up automatically.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokens.GetValidToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("acquire bearer token: %w", err)
	}

	// Per-request clone: RoundTrippers must not mutate the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	if clone.Header.Get("Content-Type") == "" {
		clone.Header.Set("Content-Type", "application/json")
	}
	if clone.Header.Get("Accept") == "" {
		clone.Header.Set("Accept", "application/json, text/event-stream")
	}
	return t.base.RoundTrip(clone)
}
