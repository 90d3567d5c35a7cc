package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/praxisworks/mcpauth/internal/auth"
	"github.com/praxisworks/mcpauth/internal/config"
	"github.com/praxisworks/mcpauth/internal/credcache"
	"github.com/praxisworks/mcpauth/internal/log"
	"github.com/praxisworks/mcpauth/internal/mcpclient"
	"github.com/praxisworks/mcpauth/internal/secrets"
)

// app bundles the wired-up components a command needs: configuration, the
// authentication session, and the optional credential cache. Commands call
// setup, defer Close, and go.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cache   *credcache.Cache
	session *auth.Session
}

// setup loads configuration, resolves credentials, and opens an
// authentication session. No network calls happen here; the first token
// request does the initial login. The one exception is a Secrets Manager
// fetch when credentials_secret is configured.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}

	username, password := cfg.Username, cfg.Password
	if cfg.CredentialsSecret != "" {
		a.cache = credcache.New(
			credcache.WithLogger(logger),
			credcache.WithDefaultTTL(cfg.CacheTTL()))
		loader := secrets.NewLoader(cfg.Region, a.cache, secrets.WithLogger(logger))

		creds, err := loader.Load(ctx, cfg.CredentialsSecret)
		if err != nil {
			a.cache.Shutdown()
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		username, password = creds.Username, creds.Password
	}

	client := auth.NewClient(cfg.Region, auth.WithLogger(logger))
	manager := auth.NewManager(client, cfg.UserPoolID, cfg.ClientID, username, password,
		auth.WithManagerLogger(logger),
		auth.WithRefreshBuffer(cfg.RefreshBuffer()),
		auth.WithAutoRefresh(cfg.AutoRefresh))

	a.session = auth.Begin(manager, auth.WithSessionLogger(logger))
	return a, nil
}

// Close tears down the session and the credential cache. Safe to call more
// than once.
func (a *app) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.cache != nil {
		a.cache.Shutdown()
	}
}

// endpoint resolves the MCP endpoint from configuration. An explicit
// endpoint wins over a runtime ARN.
func (a *app) endpoint() (string, error) {
	if err := a.cfg.RequireTarget(); err != nil {
		return "", err
	}
	if a.cfg.Endpoint != "" {
		return a.cfg.Endpoint, nil
	}
	return mcpclient.RuntimeURL(a.cfg.RuntimeARN)
}

// connect builds and connects an authenticated MCP client against the
// configured target.
func (a *app) connect(ctx context.Context) (*mcpclient.Client, error) {
	endpoint, err := a.endpoint()
	if err != nil {
		return nil, err
	}

	client, err := mcpclient.New(endpoint, a.session.Manager(),
		mcpclient.WithClientLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}
