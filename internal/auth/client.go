// Package auth implements the OAuth bearer-token lifecycle for MCP sessions
// authenticated through AWS Cognito user pools.
//
// The package has three layers:
//   - Client performs single authentication and refresh round-trips against
//     Cognito and holds the most recently obtained Token.
//   - Manager decides when a token must be refreshed, optionally keeps it
//     fresh from a background worker, and exposes GetValidToken as the one
//     synchronous entry point.
//   - Session wraps a Manager so cleanup runs exactly once on every exit path.
//
// Error Handling:
//   - Provider error codes are translated into a small closed set of sentinel
//     errors (errors.go); check them with errors.Is().
//   - The Manager recovers from ErrTokenExpired internally by re-authenticating
//     and lets every other error kind propagate unchanged.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"
)

// Cognito authentication flow parameter names.
const (
	paramUsername     = "USERNAME"
	paramPassword     = "PASSWORD"
	paramRefreshToken = "REFRESH_TOKEN"
	paramNewPassword  = "NEW_PASSWORD"
)

// CognitoAPI is the subset of the Cognito Identity Provider API the Client
// depends on. *cognitoidentityprovider.Client satisfies it; tests substitute
// a fake.
type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, params *cognitoidentityprovider.RespondToAuthChallengeInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.RespondToAuthChallengeOutput, error)
}

// Client performs authentication exchanges against Cognito and owns the
// single most recent Token. Callers receive copies of the access-token
// string, never ownership of the Token itself.
//
// The zero value is not useful; use NewClient.
type Client struct {
	region string
	logger *slog.Logger

	// limiter paces password login attempts. Cognito throttles InitiateAuth
	// aggressively; pacing here keeps a misconfigured caller from burning
	// the quota for the whole process.
	limiter *rate.Limiter

	mu      sync.Mutex
	api     CognitoAPI // lazily constructed
	current *Token

	now func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCognitoAPI injects a pre-built Cognito API implementation, bypassing
// lazy construction. Used by tests and by callers that share an aws.Config.
func WithCognitoAPI(api CognitoAPI) ClientOption {
	return func(c *Client) { c.api = api }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithLoginLimiter overrides the default login rate limiter.
func WithLoginLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates an authentication client for the given AWS region.
func NewClient(region string, opts ...ClientOption) *Client {
	c := &Client{
		region:  region,
		logger:  slog.Default(),
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Region returns the AWS region the client authenticates against.
func (c *Client) Region() string { return c.region }

// cognito returns the Cognito API handle, constructing it on first use.
// Missing AWS credentials surface as ErrConfiguration.
func (c *Client) cognito(ctx context.Context) (CognitoAPI, error) {
	if c.api != nil {
		return c.api, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.region))
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS configuration: %v", ErrConfiguration, err)
	}
	c.api = cognitoidentityprovider.NewFromConfig(cfg)
	return c.api, nil
}

// GetBearerToken obtains a bearer token with the USER_PASSWORD_AUTH flow and
// stores the resulting Token as current.
//
// A NEW_PASSWORD_REQUIRED challenge is completed transparently by submitting
// the same password as the permanent one; any other challenge kind fails with
// ErrAuthentication. Rejected credentials surface as ErrInvalidCredentials,
// bad pool/client identifiers as ErrConfiguration.
func (c *Client) GetBearerToken(ctx context.Context, userPoolID, clientID, username, password string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: waiting for login slot: %v", ErrAuthentication, err)
	}

	api, err := c.cognito(ctx)
	if err != nil {
		return "", err
	}

	c.logger.Info("authenticating", "username", username, "user_pool_id", userPoolID)

	out, err := api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(clientID),
		AuthParameters: map[string]string{
			paramUsername: username,
			paramPassword: password,
		},
	})
	if err != nil {
		return "", c.mapLoginError(err)
	}

	switch {
	case out.AuthenticationResult != nil:
		c.storeResult(out.AuthenticationResult)
		c.logger.Info("authentication successful", "username", username)
		return c.current.AccessToken, nil

	case out.ChallengeName != "":
		if out.ChallengeName == types.ChallengeNameTypeNewPasswordRequired {
			return c.completeNewPasswordChallenge(ctx, api, clientID, username, password, out)
		}
		return "", fmt.Errorf("%w: unsupported authentication challenge %q", ErrAuthentication, out.ChallengeName)

	default:
		return "", fmt.Errorf("%w: unexpected authentication response shape", ErrAuthentication)
	}
}

// Refresh exchanges a refresh token for a new access token with the
// REFRESH_TOKEN_AUTH flow. On success the current Token's access token,
// expiry and type are updated in place; the original refresh token is kept
// unless the provider returned a new one. A rejected refresh token surfaces
// as ErrTokenExpired.
func (c *Client) Refresh(ctx context.Context, refreshToken, clientID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	api, err := c.cognito(ctx)
	if err != nil {
		return "", err
	}

	c.logger.Info("refreshing access token")

	out, err := api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(clientID),
		AuthParameters: map[string]string{
			paramRefreshToken: refreshToken,
		},
	})
	if err != nil {
		return "", c.mapRefreshError(err)
	}
	if out.AuthenticationResult == nil {
		return "", fmt.Errorf("%w: unexpected token refresh response shape", ErrAuthentication)
	}

	result := out.AuthenticationResult
	newRefresh := aws.ToString(result.RefreshToken)
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	// Build the full replacement value first, then swap: readers never see a
	// half-updated token.
	c.current = NewToken(aws.ToString(result.AccessToken), newRefresh, result.ExpiresIn, aws.ToString(result.TokenType), c.now())

	c.logger.Info("token refresh successful")
	return c.current.AccessToken, nil
}

// completeNewPasswordChallenge answers a NEW_PASSWORD_REQUIRED challenge by
// re-submitting the login password as the permanent password, echoing any
// required user attributes from the challenge parameters. Intended for demo
// and test accounts created with temporary passwords.
func (c *Client) completeNewPasswordChallenge(
	ctx context.Context,
	api CognitoAPI,
	clientID, username, password string,
	challenge *cognitoidentityprovider.InitiateAuthOutput,
) (string, error) {
	c.logger.Info("completing NEW_PASSWORD_REQUIRED challenge", "username", username)

	responses := map[string]string{
		paramUsername:    username,
		paramNewPassword: password,
	}
	for k, v := range requiredAttributeResponses(challenge.ChallengeParameters) {
		responses[k] = v
	}

	out, err := api.RespondToAuthChallenge(ctx, &cognitoidentityprovider.RespondToAuthChallengeInput{
		ChallengeName:      types.ChallengeNameTypeNewPasswordRequired,
		ClientId:           aws.String(clientID),
		Session:            challenge.Session,
		ChallengeResponses: responses,
	})
	if err != nil {
		return "", c.mapChallengeError(err)
	}
	if out.AuthenticationResult == nil {
		return "", fmt.Errorf("%w: unexpected response after password change", ErrAuthentication)
	}

	c.storeResult(out.AuthenticationResult)
	c.logger.Info("password change and authentication successful", "username", username)
	return c.current.AccessToken, nil
}

// requiredAttributeResponses maps the challenge's required attributes to
// challenge-response entries, reusing the user's existing attribute values.
// Cognito encodes both fields as JSON strings inside ChallengeParameters.
func requiredAttributeResponses(params map[string]string) map[string]string {
	required := params["requiredAttributes"]
	if required == "" {
		return nil
	}

	var names []string
	if err := json.Unmarshal([]byte(required), &names); err != nil {
		// Some pools return a plain comma-separated list.
		for _, n := range strings.Split(required, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	attrs := map[string]string{}
	if raw := params["userAttributes"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &attrs)
	}

	responses := make(map[string]string)
	for _, name := range names {
		attr := strings.TrimPrefix(name, "userAttributes.")
		if v, ok := attrs[attr]; ok {
			responses["userAttributes."+attr] = v
		}
	}
	return responses
}

// storeResult replaces the current token from a provider authentication
// result. Caller must hold c.mu.
func (c *Client) storeResult(result *types.AuthenticationResultType) {
	c.current = NewToken(
		aws.ToString(result.AccessToken),
		aws.ToString(result.RefreshToken),
		result.ExpiresIn,
		aws.ToString(result.TokenType),
		c.now(),
	)
}

// IsTokenExpired reports whether no current token exists or its expiry has
// passed.
func (c *Client) IsTokenExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == nil || c.current.ExpiredAt(c.now())
}

// CurrentToken returns a copy of the current token, or nil when none is held.
func (c *Client) CurrentToken() *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

// ClearTokens discards the current token. Used on teardown.
func (c *Client) ClearTokens() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.logger.Info("clearing stored authentication tokens")
		c.current = nil
	}
}

// ValidateToken performs an advisory structural check on a bearer token:
// three dot-separated segments, plus an expiry comparison when the string
// matches the currently held token. It does not verify the signature and
// must not be treated as a security boundary.
func (c *Client) ValidateToken(bearerToken string) bool {
	if !looksLikeJWT(bearerToken) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.AccessToken == bearerToken {
		return c.now().Before(c.current.ExpiresAt)
	}
	// Well-formed, and nothing held to compare against.
	return true
}

// Diagnostics is a point-in-time snapshot used to enrich catch-all error
// messages. It never contains credential material.
type Diagnostics struct {
	Region            string
	HasCurrentToken   bool
	ClientInitialized bool
	TokenType         string
	TokenExpired      bool
	HasRefreshToken   bool
	TokenExpiresAt    time.Time
	TokenExpiresAtSet bool
}

// Diagnose collects diagnostic state for troubleshooting authentication
// failures.
func (c *Client) Diagnose() Diagnostics {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := Diagnostics{
		Region:            c.region,
		HasCurrentToken:   c.current != nil,
		ClientInitialized: c.api != nil,
	}
	if c.current != nil {
		d.TokenType = c.current.TokenType
		d.TokenExpired = c.current.ExpiredAt(c.now())
		d.HasRefreshToken = c.current.RefreshToken != ""
		d.TokenExpiresAt = c.current.ExpiresAt
		d.TokenExpiresAtSet = true
	}
	return d
}

// mapLoginError translates a provider error from the password login flow into
// the package error taxonomy.
func (c *Client) mapLoginError(err error) error {
	var (
		notAuthorized *types.NotAuthorizedException
		userNotFound  *types.UserNotFoundException
	)
	switch {
	case errors.As(err, &notAuthorized):
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, notAuthorized.ErrorMessage())
	case errors.As(err, &userNotFound):
		return fmt.Errorf("%w: user not found: %s", ErrInvalidCredentials, userNotFound.ErrorMessage())
	}
	return c.mapCommonError(err, "authentication")
}

// mapRefreshError translates a provider error from the refresh flow. A
// rejected refresh token is the one case the Manager recovers from, so it
// gets its own sentinel.
func (c *Client) mapRefreshError(err error) error {
	var notAuthorized *types.NotAuthorizedException
	if errors.As(err, &notAuthorized) {
		return fmt.Errorf("%w: %s", ErrTokenExpired, notAuthorized.ErrorMessage())
	}
	return c.mapCommonError(err, "token refresh")
}

// mapChallengeError translates a provider error from the password-change
// challenge round-trip.
func (c *Client) mapChallengeError(err error) error {
	var (
		invalidPassword *types.InvalidPasswordException
		notAuthorized   *types.NotAuthorizedException
	)
	switch {
	case errors.As(err, &invalidPassword):
		return fmt.Errorf("%w: password does not meet the pool's password policy: %s",
			ErrAuthentication, invalidPassword.ErrorMessage())
	case errors.As(err, &notAuthorized):
		return fmt.Errorf("%w: not authorized to change password: %s",
			ErrAuthentication, notAuthorized.ErrorMessage())
	}
	return c.mapCommonError(err, "password change")
}

// mapCommonError handles the error codes shared by every flow and the
// catch-all. The catch-all message carries diagnostic context but never the
// password.
func (c *Client) mapCommonError(err error, op string) error {
	var (
		resourceNotFound *types.ResourceNotFoundException
		invalidParameter *types.InvalidParameterException
	)
	switch {
	case errors.As(err, &resourceNotFound):
		return fmt.Errorf("%w: user pool or client not found: %s", ErrConfiguration, resourceNotFound.ErrorMessage())
	case errors.As(err, &invalidParameter):
		return fmt.Errorf("%w: %s", ErrConfiguration, invalidParameter.ErrorMessage())
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s failed with %s: %s", ErrAuthentication, op, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}

	d := c.diagnoseLocked()
	return fmt.Errorf("%w: unexpected %s error: %v (region=%s has_token=%t client_initialized=%t)",
		ErrAuthentication, op, err, d.Region, d.HasCurrentToken, d.ClientInitialized)
}

// diagnoseLocked is Diagnose for callers already holding c.mu.
func (c *Client) diagnoseLocked() Diagnostics {
	return Diagnostics{
		Region:            c.region,
		HasCurrentToken:   c.current != nil,
		ClientInitialized: c.api != nil,
	}
}
