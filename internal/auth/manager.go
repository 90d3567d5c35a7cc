package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultRefreshBuffer is the lead time before actual expiry at which a
	// token is proactively renewed, so callers never receive a token that
	// dies mid-use.
	DefaultRefreshBuffer = 5 * time.Minute

	// autoRefreshInterval is how often the background worker re-checks the
	// token. Also the backoff after a failed refresh attempt.
	autoRefreshInterval = 60 * time.Second

	// stopJoinTimeout bounds the wait for the background worker when
	// stopping, so process shutdown never hangs on it.
	stopJoinTimeout = 5 * time.Second
)

// Manager owns the token lifecycle: it answers "give me a token I can use
// right now", hides refresh timing and re-authentication policy from callers,
// and optionally keeps the token fresh from a background worker.
//
// Every read-decide-write of token state happens under one mutex, so N
// concurrent GetValidToken callers with a stale token trigger exactly one
// provider round-trip.
type Manager struct {
	client *Client
	logger *slog.Logger

	userPoolID string
	clientID   string
	username   string
	password   string

	autoRefresh     bool
	refreshBuffer   time.Duration
	refreshInterval time.Duration

	mu        sync.Mutex
	onRefresh func(newToken string)

	workerMu sync.Mutex
	stopCh   chan struct{}
	doneCh   chan struct{}

	now func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithRefreshBuffer overrides the proactive-refresh lead time.
func WithRefreshBuffer(d time.Duration) ManagerOption {
	return func(m *Manager) { m.refreshBuffer = d }
}

// WithAutoRefresh enables or disables the background refresh worker.
// Enabled by default.
func WithAutoRefresh(enabled bool) ManagerOption {
	return func(m *Manager) { m.autoRefresh = enabled }
}

// NewManager creates a token lifecycle manager around the given
// authentication client and identity parameters.
func NewManager(client *Client, userPoolID, clientID, username, password string, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:          client,
		logger:          slog.Default(),
		userPoolID:      userPoolID,
		clientID:        clientID,
		username:        username,
		password:        password,
		autoRefresh:     true,
		refreshBuffer:   DefaultRefreshBuffer,
		refreshInterval: autoRefreshInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetRefreshCallback registers a function invoked with the new access token
// after every successful refresh or re-authentication. Dependent transports
// holding the old token in a header use this to learn a new one exists.
func (m *Manager) SetRefreshCallback(fn func(newToken string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRefresh = fn
}

// GetValidToken returns an access token that is valid right now, performing
// a full login or a refresh as needed. The common path, a fresh token, makes
// no network call.
func (m *Manager) GetValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.client.CurrentToken()
	if current == nil {
		m.logger.Info("no current token, obtaining initial token")
		token, err := m.client.GetBearerToken(ctx, m.userPoolID, m.clientID, m.username, m.password)
		if err != nil {
			return "", err
		}
		if m.autoRefresh {
			m.startAutoRefresh()
		}
		return token, nil
	}

	if m.needsRefresh(current) {
		m.logger.Info("token needs refresh")
		return m.refreshLocked(ctx, current, true)
	}

	return current.AccessToken, nil
}

// RefreshIfNeeded refreshes the token when it is due. Calling it while the
// token is still fresh is an idempotent no-op that returns the current token
// without a network call, so callers may invoke it speculatively.
func (m *Manager) RefreshIfNeeded(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.client.CurrentToken()
	if current == nil {
		return "", fmt.Errorf("%w for refresh", ErrNoToken)
	}
	return m.refreshLocked(ctx, current, true)
}

// ForceRefresh refreshes regardless of whether the token is due, for
// externally triggered re-authentication (for example after an observed 401).
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("forcing token refresh")
	current := m.client.CurrentToken()
	if current == nil {
		return "", fmt.Errorf("%w for refresh", ErrNoToken)
	}
	return m.refreshLocked(ctx, current, false)
}

// refreshLocked drives one refresh transition. Caller must hold m.mu.
//
// Policy: refresh-token exchange when one is available, falling back to a
// full re-authentication when the refresh token itself has expired; straight
// re-authentication when no refresh token exists. The refresh callback fires
// after any successful transition.
func (m *Manager) refreshLocked(ctx context.Context, current *Token, checkDue bool) (string, error) {
	if checkDue && !m.needsRefresh(current) {
		return current.AccessToken, nil
	}

	var (
		newToken string
		err      error
	)
	if current.RefreshToken != "" {
		m.logger.Info("refreshing token using refresh token")
		newToken, err = m.client.Refresh(ctx, current.RefreshToken, m.clientID)
		if errors.Is(err, ErrTokenExpired) {
			m.logger.Warn("refresh token expired, re-authenticating")
			newToken, err = m.client.GetBearerToken(ctx, m.userPoolID, m.clientID, m.username, m.password)
		}
	} else {
		m.logger.Info("no refresh token available, re-authenticating")
		newToken, err = m.client.GetBearerToken(ctx, m.userPoolID, m.clientID, m.username, m.password)
	}
	if err != nil {
		return "", err
	}

	if m.onRefresh != nil {
		m.onRefresh(newToken)
	}
	return newToken, nil
}

// needsRefresh reports whether the token is inside the refresh buffer.
// The boundary is inclusive: a token expiring exactly buffer from now is due.
// Reads only immutable manager configuration, so the worker may call it
// without holding m.mu.
func (m *Manager) needsRefresh(t *Token) bool {
	return !m.now().Before(t.ExpiresAt.Add(-m.refreshBuffer))
}

// TokenInfo is a read-only diagnostic snapshot of the current token.
type TokenInfo struct {
	ExpiresAt    time.Time
	ExpiresIn    time.Duration
	NeedsRefresh bool
	TokenType    string
}

// GetTokenInfo returns a snapshot of the current token, or nil when none is
// held.
func (m *Manager) GetTokenInfo() *TokenInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.client.CurrentToken()
	if current == nil {
		return nil
	}
	return &TokenInfo{
		ExpiresAt:    current.ExpiresAt,
		ExpiresIn:    current.ExpiresAt.Sub(m.now()),
		NeedsRefresh: m.needsRefresh(current),
		TokenType:    current.TokenType,
	}
}

// startAutoRefresh launches the background worker if it is not already
// running. Caller must hold m.mu; the worker itself acquires m.mu only
// through the public RefreshIfNeeded.
func (m *Manager) startAutoRefresh() {
	m.workerMu.Lock()
	defer m.workerMu.Unlock()

	if m.stopCh != nil {
		return // already running
	}

	m.logger.Info("starting automatic token refresh",
		"interval", m.refreshInterval, "buffer", m.refreshBuffer)

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.autoRefreshWorker(m.stopCh, m.doneCh)
}

// autoRefreshWorker periodically refreshes the token until stopped. Any
// error is logged and the worker keeps going; the tick interval doubles as
// the retry backoff. The worker must never die silently while the manager
// is alive.
func (m *Manager) autoRefreshWorker(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			current := m.client.CurrentToken()
			if current == nil || !m.needsRefresh(current) {
				continue
			}
			m.logger.Info("auto-refreshing token")
			ctx, cancel := context.WithTimeout(context.Background(), m.refreshInterval)
			if _, err := m.RefreshIfNeeded(ctx); err != nil {
				m.logger.Error("auto-refresh failed", "error", err)
			}
			cancel()
		}
	}
}

// StopAutoRefresh signals the background worker to stop and waits for it,
// bounded by stopJoinTimeout. Safe to call when the worker was never
// started, and safe to call repeatedly.
func (m *Manager) StopAutoRefresh() {
	m.workerMu.Lock()
	defer m.workerMu.Unlock()

	if m.stopCh == nil {
		return
	}

	m.logger.Info("stopping automatic token refresh")
	close(m.stopCh)
	select {
	case <-m.doneCh:
	case <-time.After(stopJoinTimeout):
		m.logger.Warn("auto-refresh worker did not stop within timeout")
	}
	m.stopCh = nil
	m.doneCh = nil
}

// CleanupTokens stops the background worker and discards the client's token.
// Idempotent; safe to call multiple times, including from exit hooks.
func (m *Manager) CleanupTokens() {
	m.logger.Info("cleaning up authentication tokens")
	m.StopAutoRefresh()
	m.client.ClearTokens()
}
