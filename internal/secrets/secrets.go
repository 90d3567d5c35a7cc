// Package secrets loads Cognito credentials from AWS Secrets Manager,
// fronted by an in-memory credential cache to keep repeated lookups off the
// network.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/praxisworks/mcpauth/internal/credcache"
)

// ErrSecretNotFound indicates the secret does not exist or holds no usable
// credential pair.
var ErrSecretNotFound = errors.New("secret not found")

// ErrSecretFormat indicates the secret exists but is not the expected JSON
// object with username and password fields.
var ErrSecretFormat = errors.New("invalid secret format")

// SecretsAPI is the slice of the Secrets Manager client the loader uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Credentials is a username/password pair loaded from a secret.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Loader fetches credential secrets, caching results in a credcache.Cache so
// repeated loads within the TTL skip Secrets Manager entirely.
type Loader struct {
	region string
	cache  *credcache.Cache
	logger *slog.Logger

	mu  sync.Mutex
	api SecretsAPI
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSecretsAPI injects a Secrets Manager client, mainly for tests.
func WithSecretsAPI(api SecretsAPI) LoaderOption {
	return func(l *Loader) { l.api = api }
}

// WithLogger sets the loader logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader for secrets in the given region. The cache is
// required; pass the application-wide instance.
func NewLoader(region string, cache *credcache.Cache, opts ...LoaderOption) *Loader {
	l := &Loader{
		region: region,
		cache:  cache,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the credential pair stored in the named secret, serving from
// the cache when a valid entry exists.
func (l *Loader) Load(ctx context.Context, secretName string) (*Credentials, error) {
	if user, pass, ok := l.cache.Get(secretName); ok {
		l.logger.Debug("credentials served from cache", "secret", secretName)
		return &Credentials{Username: user, Password: pass}, nil
	}

	creds, err := l.fetch(ctx, secretName)
	if err != nil {
		return nil, err
	}

	l.cache.Put(secretName, creds.Username, creds.Password)
	l.logger.Info("credentials loaded from secrets manager", "secret", secretName)
	return creds, nil
}

// Invalidate drops any cached copy of the named secret, forcing the next
// Load back to Secrets Manager.
func (l *Loader) Invalidate(secretName string) {
	l.cache.Invalidate(secretName)
}

func (l *Loader) fetch(ctx context.Context, secretName string) (*Credentials, error) {
	api, err := l.ensureAPI(ctx)
	if err != nil {
		return nil, err
	}

	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretName,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, secretName)
		}
		return nil, fmt.Errorf("get secret %s: %w", secretName, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("%w: %s holds no string value", ErrSecretFormat, secretName)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON object", ErrSecretFormat, secretName)
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: %s is missing username or password", ErrSecretFormat, secretName)
	}
	return &creds, nil
}

// ensureAPI lazily builds the Secrets Manager client so construction stays
// cheap and tests never touch the AWS credential chain.
func (l *Loader) ensureAPI(ctx context.Context) (SecretsAPI, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.api != nil {
		return l.api, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(l.region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	l.api = secretsmanager.NewFromConfig(cfg)
	return l.api, nil
}
