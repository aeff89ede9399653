package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ciphera-net/website/internal/captcha"
	"github.com/ciphera-net/website/internal/contact"
	"github.com/ciphera-net/website/internal/platform/requestctx"
)

var tracer = otel.Tracer("github.com/ciphera-net/website/internal/submission")

var (
	ErrInvalidEnvelope = errors.New("submission: invalid envelope")
	ErrNoChannels      = errors.New("submission: no delivery channel configured")
)

// Channel delivers an envelope to one backend.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, env Envelope) error
}

// Verifier checks a bot-check result server side.
type Verifier interface {
	Verify(ctx context.Context, v captcha.Verification) error
}

// AttachmentStore persists uploaded files and returns their URI.
type AttachmentStore interface {
	Put(ctx context.Context, env Envelope, a contact.Attachment) (string, error)
}

// Pipeline implements contact.Submitter: it verifies the bot-check, stores
// the attachment and hands the envelope to every channel.
type Pipeline struct {
	verifier Verifier
	store    AttachmentStore
	channels []Channel
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithVerifier sets the bot-check verifier.
func WithVerifier(v Verifier) Option {
	return func(p *Pipeline) { p.verifier = v }
}

// WithAttachmentStore sets where attachments are written.
func WithAttachmentStore(s AttachmentStore) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithChannels appends delivery channels.
func WithChannels(channels ...Channel) Option {
	return func(p *Pipeline) {
		for _, c := range channels {
			if c != nil {
				p.channels = append(p.channels, c)
			}
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides the receive timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDGenerator overrides submission id generation.
func WithIDGenerator(f func() string) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.newID = f
		}
	}
}

// NewPipeline builds a pipeline. At least one channel is required.
func NewPipeline(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.channels) == 0 {
		return nil, ErrNoChannels
	}
	return p, nil
}

// Channels returns the configured channel names.
func (p *Pipeline) Channels() []string {
	names := make([]string, 0, len(p.channels))
	for _, c := range p.channels {
		names = append(names, c.Name())
	}
	return names
}

// Submit implements contact.Submitter.
func (p *Pipeline) Submit(ctx context.Context, s contact.Submission) (err error) {
	env := ContactEnvelope(p.newID(), p.now(), s)
	ctx, span := tracer.Start(ctx, "submission.contact", trace.WithAttributes(
		attribute.String("submission.id", env.ID),
		attribute.String("submission.subject", env.Subject),
		attribute.Bool("submission.attachment", s.Attachment != nil),
	))
	defer func() { endSpan(span, err) }()
	logger := p.loggerFor(ctx).With(zap.String("submission_id", env.ID), zap.String("kind", string(env.Kind)))

	if p.verifier != nil {
		if err := p.verifier.Verify(ctx, s.BotCheck); err != nil {
			logger.Warn("bot-check verification failed", zap.Error(err))
			return fmt.Errorf("verify bot-check: %w", err)
		}
	}

	if a := s.Attachment; a != nil {
		if p.store != nil {
			uri, err := p.store.Put(ctx, env, *a)
			if err != nil {
				logger.Error("attachment upload failed", zap.String("filename", a.Filename), zap.Error(err))
				return fmt.Errorf("store attachment: %w", err)
			}
			env.Attachment.URI = uri
		} else {
			env.Attachment.Content = a.Content
		}
	}

	return p.deliver(ctx, logger, env)
}

// Publish validates and delivers a prepared envelope, filling in a missing
// id and timestamp.
func (p *Pipeline) Publish(ctx context.Context, env Envelope) (err error) {
	if env.ID == "" {
		env.ID = p.newID()
	}
	if env.ReceivedAt.IsZero() {
		env.ReceivedAt = p.now().UTC()
	}
	ctx, span := tracer.Start(ctx, "submission."+string(env.Kind), trace.WithAttributes(
		attribute.String("submission.id", env.ID),
	))
	defer func() { endSpan(span, err) }()
	logger := p.loggerFor(ctx).With(zap.String("submission_id", env.ID), zap.String("kind", string(env.Kind)))
	return p.deliver(ctx, logger, env)
}

func (p *Pipeline) deliver(ctx context.Context, logger *zap.Logger, env Envelope) error {
	if err := env.Validate(); err != nil {
		logger.Error("submission envelope rejected", zap.Error(err))
		return err
	}

	var errs []error
	for _, ch := range p.channels {
		start := time.Now()
		if err := ch.Deliver(ctx, env); err != nil {
			logger.Error("submission delivery failed",
				zap.String("channel", ch.Name()),
				zap.Duration("latency", time.Since(start)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		logger.Info("submission delivered",
			zap.String("channel", ch.Name()),
			zap.Duration("latency", time.Since(start)),
		)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) loggerFor(ctx context.Context) *zap.Logger {
	if logger := requestctx.Logger(ctx); logger != requestctx.NoopLogger() {
		return logger
	}
	return p.logger
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
