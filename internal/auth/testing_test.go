package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/praxisworks/mcpauth/internal/testutil"
)

// discardLogger keeps test construction terse.
func discardLogger() *slog.Logger { return testutil.DiscardLogger() }

// fakeClock is a manually advanced clock shared by a Client and Manager under
// test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeCognito is a counting in-memory stand-in for the Cognito API. Tokens it
// issues have a JWT-like three-segment shape so they pass structural
// validation.
type fakeCognito struct {
	mu sync.Mutex

	passwordCalls  int
	refreshCalls   int
	challengeCalls int

	passwordErr  error // returned from the password flow
	refreshErr   error // returned from the refresh flow
	challengeErr error // returned from RespondToAuthChallenge

	challenge       types.ChallengeNameType // when set, password flow returns this challenge
	challengeParams map[string]string

	expiresIn     int32
	omitRefresh   bool // do not issue refresh tokens
	rotateRefresh bool // issue a fresh refresh token on every refresh

	seq int
}

func newFakeCognito() *fakeCognito {
	return &fakeCognito{expiresIn: 3600}
}

func (f *fakeCognito) result(kind string) *types.AuthenticationResultType {
	f.seq++
	r := &types.AuthenticationResultType{
		AccessToken: aws.String(fmt.Sprintf("hdr.%s-%d.sig", kind, f.seq)),
		ExpiresIn:   f.expiresIn,
		TokenType:   aws.String("Bearer"),
	}
	if !f.omitRefresh && (kind != "refresh" || f.rotateRefresh) {
		r.RefreshToken = aws.String(fmt.Sprintf("refresh-%d", f.seq))
	}
	return r
}

func (f *fakeCognito) InitiateAuth(_ context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch in.AuthFlow {
	case types.AuthFlowTypeUserPasswordAuth:
		f.passwordCalls++
		if f.passwordErr != nil {
			return nil, f.passwordErr
		}
		if f.challenge != "" {
			return &cognitoidentityprovider.InitiateAuthOutput{
				ChallengeName:       f.challenge,
				ChallengeParameters: f.challengeParams,
				Session:             aws.String("challenge-session"),
			}, nil
		}
		return &cognitoidentityprovider.InitiateAuthOutput{
			AuthenticationResult: f.result("password"),
		}, nil

	case types.AuthFlowTypeRefreshTokenAuth:
		f.refreshCalls++
		if f.refreshErr != nil {
			return nil, f.refreshErr
		}
		return &cognitoidentityprovider.InitiateAuthOutput{
			AuthenticationResult: f.result("refresh"),
		}, nil

	default:
		return nil, fmt.Errorf("fakeCognito: unsupported auth flow %q", in.AuthFlow)
	}
}

func (f *fakeCognito) RespondToAuthChallenge(_ context.Context, in *cognitoidentityprovider.RespondToAuthChallengeInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.RespondToAuthChallengeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.challengeCalls++
	if f.challengeErr != nil {
		return nil, f.challengeErr
	}
	return &cognitoidentityprovider.RespondToAuthChallengeOutput{
		AuthenticationResult: f.result("challenge"),
	}, nil
}

func (f *fakeCognito) counts() (password, refresh, challenge int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passwordCalls, f.refreshCalls, f.challengeCalls
}

// newTestClient wires a Client to the fake provider and clock.
func newTestClient(fake *fakeCognito, clk *fakeClock) *Client {
	c := NewClient("us-east-1", WithCognitoAPI(fake), WithLogger(discardLogger()))
	c.now = clk.Now
	return c
}

// newTestManager wires a Manager (auto-refresh off unless enabled by the
// test) to the same clock as its client.
func newTestManager(c *Client, clk *fakeClock, opts ...ManagerOption) *Manager {
	base := []ManagerOption{
		WithManagerLogger(discardLogger()),
		WithAutoRefresh(false),
	}
	m := NewManager(c, "us-east-1_TestPool", "test-client-id", "test-user", "test-password",
		append(base, opts...)...)
	m.now = clk.Now
	return m
}
