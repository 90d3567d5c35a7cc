package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication operations.
// These errors are part of the package's public API and should be checked
// using errors.Is().
//
// Example:
//
//	tok, err := client.GetBearerToken(ctx, poolID, clientID, user, pass)
//	if errors.Is(err, auth.ErrInvalidCredentials) {
//	    // configured identity is wrong, do not retry
//	}
var (
	// ErrInvalidCredentials indicates the username/password pair was rejected
	// or the user does not exist. Not retried automatically.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConfiguration indicates the user pool or app client identifiers are
	// invalid or malformed, or AWS credentials are unavailable. This is a
	// deployment bug, not a transient condition.
	ErrConfiguration = errors.New("invalid identity provider configuration")

	// ErrTokenExpired indicates the refresh token itself is no longer usable.
	// The token manager recovers from this internally by re-authenticating;
	// callers only observe it when that fallback also fails.
	ErrTokenExpired = errors.New("refresh token expired")

	// ErrAuthentication is the catch-all for any other provider failure or
	// unexpected error during an authentication exchange.
	ErrAuthentication = errors.New("authentication failed")

	// ErrNoToken indicates an operation that requires a current token was
	// called while none is held. It wraps ErrAuthentication, so callers
	// checking only the broad kind still catch it.
	ErrNoToken = fmt.Errorf("%w: no token available", ErrAuthentication)
)
