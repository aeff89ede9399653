package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ciphera-net/website/internal/captcha"
	"github.com/ciphera-net/website/internal/cms"
	"github.com/ciphera-net/website/internal/contact"
	"github.com/ciphera-net/website/internal/faq"
	handlersPkg "github.com/ciphera-net/website/internal/handlers"
	"github.com/ciphera-net/website/internal/i18n"
	mw "github.com/ciphera-net/website/internal/middleware"
	"github.com/ciphera-net/website/internal/newsletter"
	"github.com/ciphera-net/website/internal/platform/config"
	"github.com/ciphera-net/website/internal/submission"
	"github.com/ciphera-net/website/internal/telemetry"
)

const meterName = "github.com/ciphera-net/website"

var supportedLangs = []string{"en", "de"}

// app holds the wired dependencies shared by every handler.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	bundle    *i18n.Bundle
	views     *renderer
	sessions  *mw.Sessions
	limiter   *mw.RateLimiter
	events    *telemetry.Dispatcher
	pipeline  *submission.Pipeline
	signups   *newsletter.Service
	forms     *contact.Registry
	blog      *cms.Blog
	faq       *faqSource
	analytics handlersPkg.Analytics

	closers []func()
}

// faqSource guards the FAQ dataset so dev mode can reload it.
type faqSource struct {
	path string

	mu         sync.RWMutex
	categories []faq.Category
}

func newFAQSource(path string) (*faqSource, error) {
	s := &faqSource{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *faqSource) Reload() error {
	categories, err := faq.Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.categories = categories
	s.mu.Unlock()
	return nil
}

func (s *faqSource) All() []faq.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories
}

// newApp wires configuration into the running services. Clients opened here
// are released by close.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, analytics: handlersPkg.AnalyticsFromConfig(cfg)}

	bundle, err := i18n.Load(cfg.Site.LocalesDir, cfg.Site.DefaultLang, supportedLangs)
	if err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}
	a.bundle = bundle

	views, err := newRenderer(cfg.Site.TemplatesDir, cfg.Site.DevMode, templateFuncs(bundle))
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	a.views = views

	a.sessions, err = mw.NewSessions(cfg.Session.HashKey, cfg.Session.CookieName, cfg.Session.CookieSecure)
	if err != nil {
		return nil, fmt.Errorf("init sessions: %w", err)
	}
	a.limiter = mw.NewRateLimiter(cfg.Contact.RateLimitPerMinute, cfg.Contact.RateLimitBurst)

	metricSink, err := telemetry.NewMetricSink(otel.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.events = telemetry.NewDispatcher(cfg.Telemetry.BufferSize, logger,
		telemetry.LogSink{Logger: logger.Named("telemetry")},
		metricSink,
	)

	publisher, err := a.buildDelivery(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.signups, err = newsletter.NewService(publisher, a.events)
	if err != nil {
		a.close()
		return nil, err
	}

	a.forms = contact.NewRegistry(a.newContactForm, cfg.Contact.FormTTL)

	a.blog, err = cms.NewBlog(cfg.Site.ContentDir)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load blog: %w", err)
	}
	a.faq, err = newFAQSource(filepath.Join(cfg.Site.ContentDir, "faq.yaml"))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load faq: %w", err)
	}
	return a, nil
}

func (a *app) newContactForm() *contact.Controller {
	return contact.NewController(a.pipeline,
		contact.WithTracker(a.events),
		contact.WithLogger(a.logger.Named("contact")),
		contact.WithDisplayDurations(a.cfg.Contact.SuccessDisplay, a.cfg.Contact.ErrorDisplay),
		contact.WithSubmitTimeout(a.cfg.Contact.SubmitTimeout),
	)
}

// buildDelivery assembles the contact pipeline and returns the publisher
// used for newsletter sign-ups.
func (a *app) buildDelivery(ctx context.Context) (newsletter.Publisher, error) {
	cfg := a.cfg.Delivery
	var channels []submission.Channel
	var newsletterTopic *pubsub.Topic

	if cfg.NeedsPubSub() {
		if a.cfg.Site.GCPProjectID == "" {
			return nil, errors.New("pubsub delivery requires CIPHERA_WEB_GCP_PROJECT")
		}
		client, err := pubsub.NewClient(ctx, a.cfg.Site.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		if cfg.PubSubTopic != "" {
			topic := client.Topic(cfg.PubSubTopic)
			a.closers = append(a.closers, topic.Stop)
			ch, err := submission.NewPubSubChannel(topic)
			if err != nil {
				return nil, err
			}
			channels = append(channels, ch)
		}
		if cfg.NewsletterTopic != "" {
			newsletterTopic = client.Topic(cfg.NewsletterTopic)
			a.closers = append(a.closers, newsletterTopic.Stop)
		}
	}
	if cfg.RelayWebhookURL != "" {
		ch, err := submission.NewWebhookChannel(cfg.RelayWebhookURL, cfg.RelayToken, a.cfg.Contact.SubmitTimeout)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if cfg.Simulate || !cfg.HasDelivery() {
		a.logger.Warn("contact delivery is simulated",
			zap.Duration("delay", cfg.SimulatedDelay),
			zap.Float64("failure_rate", cfg.SimulatedFailureRate),
		)
		channels = append(channels, submission.NewSimulatedChannel(cfg.SimulatedDelay, cfg.SimulatedFailureRate))
	}

	opts := []submission.Option{
		submission.WithVerifier(captcha.NewClient(a.cfg.Captcha.APIURL, a.cfg.Captcha.SecretKey, a.cfg.Captcha.Timeout)),
		submission.WithChannels(channels...),
		submission.WithLogger(a.logger.Named("submission")),
	}
	if cfg.AttachmentsBucket != "" {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		store, err := submission.NewGCSAttachmentStore(client, cfg.AttachmentsBucket)
		if err != nil {
			return nil, err
		}
		opts = append(opts, submission.WithAttachmentStore(store))
	}

	pipeline, err := submission.NewPipeline(opts...)
	if err != nil {
		return nil, fmt.Errorf("build submission pipeline: %w", err)
	}
	a.pipeline = pipeline

	if newsletterTopic == nil {
		return pipeline, nil
	}
	ch, err := submission.NewPubSubChannel(newsletterTopic)
	if err != nil {
		return nil, err
	}
	signups, err := submission.NewPipeline(
		submission.WithChannels(ch),
		submission.WithLogger(a.logger.Named("newsletter")),
	)
	if err != nil {
		return nil, fmt.Errorf("build newsletter pipeline: %w", err)
	}
	return signups, nil
}

// runBackground runs the janitors and, in dev mode, the template watcher
// until ctx is done.
func (a *app) runBackground(ctx context.Context) {
	go a.forms.Run(ctx, time.Minute)
	go a.limiter.Run(ctx, time.Minute)
	if a.cfg.Site.DevMode {
		dirs := []string{a.cfg.Site.TemplatesDir, a.cfg.Site.ContentDir, filepath.Join(a.cfg.Site.ContentDir, "blog")}
		go func() {
			if err := a.views.Watch(ctx, a.logger, dirs, a.reloadContent); err != nil {
				a.logger.Warn("template watcher stopped", zap.Error(err))
			}
		}()
	}
}

func (a *app) reloadContent() {
	if err := a.blog.Reload(); err != nil {
		a.logger.Warn("blog reload failed", zap.Error(err))
	}
	if err := a.faq.Reload(); err != nil {
		a.logger.Warn("faq reload failed", zap.Error(err))
	}
}

func (a *app) close() {
	if a.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.events.Close(ctx); err != nil {
			a.logger.Warn("telemetry drain incomplete", zap.Error(err), zap.Int64("dropped", a.events.Dropped()))
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
