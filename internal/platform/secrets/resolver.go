package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultFallbackPath = ".secrets.local"

// ErrNotFound is returned when neither Secret Manager nor the fallback file
// holds the requested secret.
var ErrNotFound = errors.New("secrets: not found")

type accessClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver resolves secret://NAME[#VERSION] references against Google
// Secret Manager, caching values and falling back to a local dotenv file
// keyed by NAME.
type Resolver struct {
	client     accessClient
	ownsClient bool
	projectID  string
	logger     *zap.Logger

	fallbackPath string
	fallbackOnce sync.Once
	fallback     map[string]string

	mu    sync.RWMutex
	cache map[string]string
}

type resolverConfig struct {
	logger       *zap.Logger
	client       accessClient
	clientOpts   []option.ClientOption
	fallbackPath string
	offline      bool
}

// Option customises NewResolver.
type Option func(*resolverConfig)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *resolverConfig) { c.logger = logger }
}

// WithFallbackFile overrides the local fallback file.
func WithFallbackFile(path string) Option {
	return func(c *resolverConfig) { c.fallbackPath = strings.TrimSpace(path) }
}

// WithClientOptions forwards options to the Secret Manager client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *resolverConfig) { c.clientOpts = append(c.clientOpts, opts...) }
}

// Offline skips creating a Secret Manager client.
func Offline() Option {
	return func(c *resolverConfig) { c.offline = true }
}

func withClient(client accessClient) Option {
	return func(c *resolverConfig) { c.client = client }
}

// NewResolver builds a Resolver for projectID. An unavailable Secret Manager
// client is logged and leaves the resolver in fallback-only mode.
func NewResolver(ctx context.Context, projectID string, opts ...Option) *Resolver {
	cfg := resolverConfig{logger: zap.NewNop(), fallbackPath: defaultFallbackPath}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	r := &Resolver{
		client:       cfg.client,
		projectID:    strings.TrimSpace(projectID),
		logger:       cfg.logger,
		fallbackPath: cfg.fallbackPath,
		cache:        make(map[string]string),
	}
	if r.client == nil && !cfg.offline && r.projectID != "" {
		client, err := secretmanager.NewClient(ctx, cfg.clientOpts...)
		if err != nil {
			cfg.logger.Warn("secrets: secret manager unavailable, using fallback file", zap.Error(err))
		} else {
			r.client = client
			r.ownsClient = true
		}
	}
	return r
}

// Close releases the Secret Manager client when the resolver created it.
func (r *Resolver) Close() error {
	if r.ownsClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ResolveSecret implements config.SecretResolver.
func (r *Resolver) ResolveSecret(ctx context.Context, ref string) (string, error) {
	name, version, err := parseReference(ref)
	if err != nil {
		return "", err
	}
	key := name + "#" + version

	r.mu.RLock()
	value, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return value, nil
	}

	if r.client != nil && r.projectID != "" {
		value, err = r.access(ctx, name, version)
		switch {
		case err == nil:
			r.store(key, value)
			return value, nil
		case status.Code(err) != codes.NotFound && status.Code(err) != codes.PermissionDenied:
			return "", fmt.Errorf("secrets: access %s: %w", name, err)
		}
		r.logger.Debug("secrets: falling back to local file", zap.String("secret", name), zap.Error(err))
	}

	value, ok = r.lookupFallback(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	r.store(key, value)
	return value, nil
}

func (r *Resolver) access(ctx context.Context, name, version string) (string, error) {
	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", r.projectID, name, version)
	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("secrets: empty payload for %s", resource)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (r *Resolver) store(key, value string) {
	r.mu.Lock()
	r.cache[key] = value
	r.mu.Unlock()
}

func (r *Resolver) lookupFallback(name string) (string, bool) {
	r.fallbackOnce.Do(func() {
		if r.fallbackPath == "" {
			return
		}
		values, err := godotenv.Read(r.fallbackPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				r.logger.Warn("secrets: unable to read fallback file", zap.String("path", r.fallbackPath), zap.Error(err))
			}
			return
		}
		r.fallback = values
	})
	value, ok := r.fallback[name]
	return value, ok && value != ""
}

// parseReference splits "secret://name#version" into its parts. Version
// defaults to "latest".
func parseReference(ref string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	rest, ok := strings.CutPrefix(ref, "secret://")
	if !ok {
		rest, ok = strings.CutPrefix(ref, "sm://")
	}
	if !ok {
		return "", "", fmt.Errorf("secrets: unsupported reference %q", ref)
	}
	name, version, _ := strings.Cut(rest, "#")
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return "", "", fmt.Errorf("secrets: empty secret name in %q", ref)
	}
	name = strings.ReplaceAll(name, "/", "-")
	if version = strings.TrimSpace(version); version == "" {
		version = "latest"
	}
	return name, version, nil
}
