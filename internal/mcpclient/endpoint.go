// Package mcpclient connects to MCP servers hosted behind Bearer-token
// endpoints, attaching a fresh access token to every HTTP request.
package mcpclient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidARN indicates a runtime ARN that cannot be turned into an
// invocation endpoint.
var ErrInvalidARN = errors.New("invalid runtime ARN")

// ErrInvalidEndpoint indicates an endpoint URL that fails validation.
var ErrInvalidEndpoint = errors.New("invalid endpoint")

// RuntimeURL derives the AgentCore invocation endpoint for a runtime ARN.
// The region comes from the ARN itself and the full ARN is percent-encoded
// into the path.
func RuntimeURL(runtimeARN string) (string, error) {
	parts := strings.Split(runtimeARN, ":")
	if len(parts) < 6 || parts[0] != "arn" {
		return "", fmt.Errorf("%w: %q", ErrInvalidARN, runtimeARN)
	}
	region := parts[3]
	if region == "" {
		return "", fmt.Errorf("%w: %q has no region", ErrInvalidARN, runtimeARN)
	}

	return fmt.Sprintf("https://bedrock-agentcore.%s.amazonaws.com/runtimes/%s/invocations?qualifier=DEFAULT",
		region, escapeARN(runtimeARN)), nil
}

// escapeARN percent-encodes an ARN for use as a single path segment. The
// service expects every reserved character encoded, including the colons
// that PathEscape would leave bare.
func escapeARN(arn string) string {
	return strings.ReplaceAll(url.PathEscape(arn), ":", "%3A")
}

// ValidateEndpoint checks that an MCP endpoint URL is safe to send Bearer
// tokens to: HTTPS only, a hostname present, and no credentials embedded in
// the URL.
func ValidateEndpoint(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("%w: scheme %q (tokens travel only over https)", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: empty hostname", ErrInvalidEndpoint)
	}
	if u.User != nil {
		return fmt.Errorf("%w: userinfo not allowed", ErrInvalidEndpoint)
	}
	return nil
}
