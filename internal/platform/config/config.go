package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultBaseURL         = "https://ciphera.net"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultSuccessDisplay  = 8 * time.Second
	defaultErrorDisplay    = 5 * time.Second
	defaultSubmitTimeout   = 15 * time.Second
	defaultFormTTL         = 30 * time.Minute
	defaultRatePerMinute   = 10
	defaultRateBurst       = 3
	defaultSimulatedDelay  = 1500 * time.Millisecond
	defaultCaptchaTimeout  = 5 * time.Second
	defaultTelemetryBuffer = 256
	defaultPulseScriptURL  = "https://pulse.ciphera.net/script.js"
	defaultLogLevel        = "info"
)

// Config holds runtime configuration grouped by concern.
type Config struct {
	Server    ServerConfig
	Site      SiteConfig
	Session   SessionConfig
	Contact   ContactConfig
	Captcha   CaptchaConfig
	Delivery  DeliveryConfig
	Telemetry TelemetryConfig
	Logging   LoggingConfig
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SiteConfig locates templates and content and sets environment flags.
type SiteConfig struct {
	Environment  string
	BaseURL      string
	DevMode      bool
	TemplatesDir string
	PublicDir    string
	ContentDir   string
	LocalesDir   string
	DefaultLang  string
	GCPProjectID string
}

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	HashKey      string
	CookieName   string
	CookieSecure bool
}

// ContactConfig tunes the contact form lifecycle.
type ContactConfig struct {
	SuccessDisplay     time.Duration
	ErrorDisplay       time.Duration
	SubmitTimeout      time.Duration
	FormTTL            time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

// CaptchaConfig points at the bot-check verification service.
type CaptchaConfig struct {
	APIURL    string
	SecretKey string
	SiteKey   string
	Timeout   time.Duration
}

// DeliveryConfig selects the submission channels.
type DeliveryConfig struct {
	PubSubTopic          string
	NewsletterTopic      string
	AttachmentsBucket    string
	RelayWebhookURL      string
	RelayToken           string
	Simulate             bool
	SimulatedDelay       time.Duration
	SimulatedFailureRate float64
}

// TelemetryConfig configures event tracking.
type TelemetryConfig struct {
	PulseDomain    string
	PulseScriptURL string
	BufferSize     int
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// SecretResolver resolves secret:// references.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret calls f.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists missing or invalid fields.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the offending field names.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// SecretError describes a failed secret reference lookup.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env path. An empty path disables .env loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects values that win over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// and sm:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// EnvironmentValues merges .env, the process environment and the explicit
// map, in increasing precedence.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)
	return options.values()
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func (o loaderOptions) values() (map[string]string, error) {
	values, err := loadDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	if o.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if ok && strings.TrimSpace(key) != "" {
				values[key] = value
			}
		}
	}
	for key, value := range o.envMap {
		values[key] = value
	}
	return values, nil
}

// Load builds the configuration from defaults, .env, the environment and
// resolved secret references, then validates it.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)
	values, err := options.values()
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		value, ok := values[key]
		return strings.TrimSpace(value), ok
	}

	env := strings.ToLower(stringWithDefault(lookup, "CIPHERA_WEB_ENV", "local"))
	port := stringWithDefault(lookup, "CIPHERA_WEB_PORT", stringWithDefault(lookup, "PORT", defaultPort))

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     durationWithDefault(lookup, "CIPHERA_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "CIPHERA_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "CIPHERA_WEB_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "CIPHERA_WEB_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Site: SiteConfig{
			Environment:  env,
			BaseURL:      strings.TrimRight(stringWithDefault(lookup, "CIPHERA_WEB_BASE_URL", defaultBaseURL), "/"),
			DevMode:      boolWithDefault(lookup, "CIPHERA_WEB_DEV", env == "local" || env == "dev"),
			TemplatesDir: stringWithDefault(lookup, "CIPHERA_WEB_TEMPLATES_DIR", "templates"),
			PublicDir:    stringWithDefault(lookup, "CIPHERA_WEB_PUBLIC_DIR", "public"),
			ContentDir:   stringWithDefault(lookup, "CIPHERA_WEB_CONTENT_DIR", "content"),
			LocalesDir:   stringWithDefault(lookup, "CIPHERA_WEB_LOCALES_DIR", "locales"),
			DefaultLang:  stringWithDefault(lookup, "CIPHERA_WEB_DEFAULT_LANG", "en"),
			GCPProjectID: stringWithDefault(lookup, "CIPHERA_WEB_GCP_PROJECT", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
		},
		Session: SessionConfig{
			HashKey:      stringWithDefault(lookup, "CIPHERA_WEB_SESSION_HASH_KEY", ""),
			CookieName:   stringWithDefault(lookup, "CIPHERA_WEB_SESSION_COOKIE", "ciphera_session"),
			CookieSecure: boolWithDefault(lookup, "CIPHERA_WEB_SESSION_SECURE", env != "local" && env != "dev"),
		},
		Contact: ContactConfig{
			SuccessDisplay:     durationWithDefault(lookup, "CIPHERA_WEB_CONTACT_SUCCESS_DISPLAY", defaultSuccessDisplay),
			ErrorDisplay:       durationWithDefault(lookup, "CIPHERA_WEB_CONTACT_ERROR_DISPLAY", defaultErrorDisplay),
			SubmitTimeout:      durationWithDefault(lookup, "CIPHERA_WEB_CONTACT_SUBMIT_TIMEOUT", defaultSubmitTimeout),
			FormTTL:            durationWithDefault(lookup, "CIPHERA_WEB_CONTACT_FORM_TTL", defaultFormTTL),
			RateLimitPerMinute: intWithDefault(lookup, "CIPHERA_WEB_CONTACT_RATE_PER_MINUTE", defaultRatePerMinute),
			RateLimitBurst:     intWithDefault(lookup, "CIPHERA_WEB_CONTACT_RATE_BURST", defaultRateBurst),
		},
		Captcha: CaptchaConfig{
			APIURL:    strings.TrimRight(stringWithDefault(lookup, "CIPHERA_WEB_CAPTCHA_API_URL", ""), "/"),
			SecretKey: stringWithDefault(lookup, "CIPHERA_WEB_CAPTCHA_SECRET", ""),
			SiteKey:   stringWithDefault(lookup, "CIPHERA_WEB_CAPTCHA_SITE_KEY", ""),
			Timeout:   durationWithDefault(lookup, "CIPHERA_WEB_CAPTCHA_TIMEOUT", defaultCaptchaTimeout),
		},
		Delivery: DeliveryConfig{
			PubSubTopic:          stringWithDefault(lookup, "CIPHERA_WEB_CONTACT_TOPIC", ""),
			NewsletterTopic:      stringWithDefault(lookup, "CIPHERA_WEB_NEWSLETTER_TOPIC", ""),
			AttachmentsBucket:    stringWithDefault(lookup, "CIPHERA_WEB_ATTACHMENTS_BUCKET", ""),
			RelayWebhookURL:      stringWithDefault(lookup, "CIPHERA_WEB_RELAY_WEBHOOK_URL", ""),
			RelayToken:           stringWithDefault(lookup, "CIPHERA_WEB_RELAY_TOKEN", ""),
			Simulate:             boolWithDefault(lookup, "CIPHERA_WEB_DELIVERY_SIMULATE", false),
			SimulatedDelay:       durationWithDefault(lookup, "CIPHERA_WEB_DELIVERY_SIMULATED_DELAY", defaultSimulatedDelay),
			SimulatedFailureRate: floatWithDefault(lookup, "CIPHERA_WEB_DELIVERY_SIMULATED_FAILURE_RATE", 0),
		},
		Telemetry: TelemetryConfig{
			PulseDomain:    stringWithDefault(lookup, "CIPHERA_WEB_PULSE_DOMAIN", ""),
			PulseScriptURL: stringWithDefault(lookup, "CIPHERA_WEB_PULSE_SCRIPT_URL", defaultPulseScriptURL),
			BufferSize:     intWithDefault(lookup, "CIPHERA_WEB_TELEMETRY_BUFFER", defaultTelemetryBuffer),
		},
		Logging: LoggingConfig{
			Level:      stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
			File:       stringWithDefault(lookup, "CIPHERA_WEB_LOG_FILE", ""),
			MaxSizeMB:  intWithDefault(lookup, "CIPHERA_WEB_LOG_MAX_SIZE_MB", 100),
			MaxBackups: intWithDefault(lookup, "CIPHERA_WEB_LOG_MAX_BACKUPS", 5),
			MaxAgeDays: intWithDefault(lookup, "CIPHERA_WEB_LOG_MAX_AGE_DAYS", 28),
		},
	}

	secretTargets := []*string{
		&cfg.Session.HashKey,
		&cfg.Captcha.SecretKey,
		&cfg.Delivery.RelayToken,
	}
	for _, target := range secretTargets {
		resolved, err := resolveSecret(ctx, *target, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target = resolved
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// HasDelivery reports whether at least one real submission channel is set.
func (c DeliveryConfig) HasDelivery() bool {
	return c.PubSubTopic != "" || c.RelayWebhookURL != ""
}

// NeedsPubSub reports whether a Pub/Sub client is required.
func (c DeliveryConfig) NeedsPubSub() bool {
	return c.PubSubTopic != "" || c.NewsletterTopic != ""
}

func validate(cfg Config) error {
	var invalid []string
	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		invalid = append(invalid, "Server.Port")
	}
	if !cfg.Site.DevMode && len(cfg.Session.HashKey) < 32 {
		invalid = append(invalid, "Session.HashKey")
	}
	if cfg.Contact.SuccessDisplay <= 0 {
		invalid = append(invalid, "Contact.SuccessDisplay")
	}
	if cfg.Contact.ErrorDisplay <= 0 {
		invalid = append(invalid, "Contact.ErrorDisplay")
	}
	if cfg.Contact.SubmitTimeout <= 0 {
		invalid = append(invalid, "Contact.SubmitTimeout")
	}
	if cfg.Contact.RateLimitPerMinute <= 0 {
		invalid = append(invalid, "Contact.RateLimitPerMinute")
	}
	if rate := cfg.Delivery.SimulatedFailureRate; rate < 0 || rate > 1 {
		invalid = append(invalid, "Delivery.SimulatedFailureRate")
	}
	if (cfg.Delivery.PubSubTopic != "" || cfg.Delivery.AttachmentsBucket != "") && cfg.Site.GCPProjectID == "" {
		invalid = append(invalid, "Site.GCPProjectID")
	}
	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

func isSecretReference(value string) bool {
	value = strings.TrimSpace(value)
	return strings.HasPrefix(value, "secret://") || strings.HasPrefix(value, "sm://")
}

func normalizeSecretReference(value string) string {
	value = strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(value, "sm://"); ok {
		return "secret://" + rest
	}
	return value
}

func loadDotEnv(path string) (map[string]string, error) {
	values := make(map[string]string)
	if path == "" {
		return values, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	parsed, err := godotenv.Read(abs)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", abs, err)
	}
	for key, value := range parsed {
		values[key] = value
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
