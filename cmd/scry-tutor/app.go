package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/scry-tutor/internal/config"
	"github.com/phrazzld/scry-tutor/internal/events"
	"github.com/phrazzld/scry-tutor/internal/gate"
	"github.com/phrazzld/scry-tutor/internal/generation"
	"github.com/phrazzld/scry-tutor/internal/platform/gemini"
	"github.com/phrazzld/scry-tutor/internal/platform/logger"
	"github.com/phrazzld/scry-tutor/internal/prompts"
	"github.com/phrazzld/scry-tutor/internal/respcache"
	"github.com/phrazzld/scry-tutor/internal/storage"
	"github.com/phrazzld/scry-tutor/internal/tutor"
	"github.com/spf13/cobra"
)

// backendFactory builds the generation backend. Tests substitute a fake.
type backendFactory func(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (generation.Backend, error)

func defaultBackend(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (generation.Backend, error) {
	backend, err := gemini.NewBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// application holds the shared dependencies of one command invocation and
// releases them on close.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	store   storage.Store
	cache   *respcache.Cache
	session string

	newBackend backendFactory
}

// newApplication loads configuration and opens the cache store. The backend
// is built lazily by service so that commands which never generate do not
// need an API key.
func newApplication(ctx context.Context, opts *rootOptions, logOut io.Writer) (*application, error) {
	if err := validateSession(opts.session); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}

	log := logger.Setup(logOut, cfg.Log)

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}

	var cacheOpts []respcache.Option
	if opts.session != "" {
		cacheOpts = append(cacheOpts, respcache.WithNamespace(sessionNamespace(opts.session)))
	}

	log.DebugContext(ctx, "application initialized",
		"storage_driver", cfg.Storage.Driver,
		"text_model", cfg.LLM.TextModel,
		"api_key_present", cfg.LLM.GeminiAPIKey != "",
		"session", opts.session)

	return &application{
		config:     cfg,
		logger:     log,
		store:      store,
		cache:      respcache.New(store, log, cacheOpts...),
		session:    opts.session,
		newBackend: opts.newBackend,
	}, nil
}

// service builds the tutor service and its backend.
func (a *application) service(ctx context.Context) (*tutor.Service, error) {
	backend, err := a.newBackend(ctx, a.logger, a.config.LLM)
	if err != nil {
		return nil, err
	}

	set, err := prompts.Load(a.config.LLM.PromptDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(a.logger)
	emitter.RegisterHandler(events.NewLogHandler(a.logger))

	return tutor.NewService(tutor.Deps{
		Backend: backend,
		Gate: gate.New(gate.Config{
			GeneralCooldown: a.config.Gate.GeneralCooldown,
			ImageCooldown:   a.config.Gate.ImageCooldown,
		}),
		Cache:   a.cache,
		Prompts: set,
		Logger:  a.logger,
		Events:  emitter,
	})
}

// close ends the session. Without an explicit session the entries written
// by this invocation are removed; a named session keeps them for later runs.
func (a *application) close(ctx context.Context) error {
	var errs []error
	if a.session == "" {
		if err := a.cache.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear session cache: %w", err))
		}
	}
	stats := a.cache.Stats()
	a.logger.DebugContext(ctx, "cache stats",
		"hits", stats.Hits,
		"misses", stats.Misses,
		"writes", stats.Writes,
		"skipped", stats.Skipped,
		"failures", stats.Failures)
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// withApp runs fn with an application bound to cmd and closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, app *application) error) (err error) {
	ctx := cmd.Context()
	app, err := newApplication(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, app)
}

// userMessage returns the learner-facing text for err.
func userMessage(err error) string {
	var genErr *generation.Error
	if errors.As(err, &genErr) {
		if msg := generation.Classify(genErr, "").Message; msg != "" {
			return msg
		}
	}
	if tutor.IsCancelled(err) {
		return "cancelled"
	}
	return err.Error()
}

func exitCode(err error) int {
	switch {
	case tutor.IsCancelled(err):
		return 130
	case errors.Is(err, generation.ErrNotConfigured):
		return 3
	default:
		return 1
	}
}
