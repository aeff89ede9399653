package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ciphera-net/website/internal/platform/config"
	"github.com/ciphera-net/website/internal/platform/observability"
	"github.com/ciphera-net/website/internal/platform/secrets"
)

// serveOptions are flags shared by the root and serve commands.
type serveOptions struct {
	envFile     string
	secretsFile string
	addr        string
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	flags.StringVar(&o.secretsFile, "secrets-file", "", "local fallback for secret:// references")
	flags.StringVar(&o.addr, "addr", "", "listen address, overrides CIPHERA_WEB_PORT")
}

func runServe(ctx context.Context, opts serveOptions) error {
	env, err := config.EnvironmentValues(config.WithEnvFile(opts.envFile))
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	projectID := firstNonEmpty(env["CIPHERA_WEB_GCP_PROJECT"], env["GOOGLE_CLOUD_PROJECT"])
	resolverOpts := []secrets.Option{}
	if opts.secretsFile != "" {
		resolverOpts = append(resolverOpts, secrets.WithFallbackFile(opts.secretsFile))
	}
	if projectID == "" {
		resolverOpts = append(resolverOpts, secrets.Offline())
	}
	resolver := secrets.NewResolver(ctx, projectID, resolverOpts...)
	defer func() { _ = resolver.Close() }()

	cfg, err := config.Load(ctx, config.WithEnvFile(opts.envFile), config.WithSecretResolver(resolver))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(observability.LogOptions{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	addr := opts.addr
	if addr == "" {
		addr = ":" + cfg.Server.Port
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go a.runBackground(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web listening",
			zap.String("addr", addr),
			zap.String("env", cfg.Site.Environment),
			zap.Bool("dev_mode", cfg.Site.DevMode),
			zap.Strings("channels", a.pipeline.Channels()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
