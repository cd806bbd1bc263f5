package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"DogDigest/internal/config"
	"DogDigest/internal/domain"
	"DogDigest/internal/infrastructure/email"
	"DogDigest/internal/infrastructure/llm"
	"DogDigest/internal/infrastructure/petfinder"
	"DogDigest/internal/infrastructure/render"
	"DogDigest/internal/infrastructure/storage"
	"DogDigest/internal/infrastructure/telegram"
	"DogDigest/internal/logging"
	"DogDigest/internal/ports"
	"DogDigest/internal/search"
	"DogDigest/internal/usecase"
)

// Options tweak a single invocation.
type Options struct {
	// DryRun skips e-mail delivery and prints the digest to Out instead.
	DryRun bool
	// Style is the glamour style of the dry-run preview.
	Style string
	Out   io.Writer
}

// Application wires configs to use cases.
type Application struct {
	cfg      config.Config
	opts     Options
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	closers  []io.Closer
	now      func() time.Time
}

// New builds a runnable application instance. Call Close when done.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	a := &Application{cfg: cfg, opts: opts, logger: baseLogger, now: time.Now}

	source := petfinder.NewClient(ctx, cfg.Petfinder, baseLogger.With("component", "petfinder"))
	collector := search.NewCollector(source, cfg.Search.Concurrency, baseLogger.With("component", "collector"))

	completion, err := newCompletionClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var ranker *usecase.Ranker
	if completion != nil {
		ranker = usecase.NewRanker(completion, usecase.RankerOptions{
			MaxPicks:         cfg.Ranking.MaxPicks,
			DescriptionChars: cfg.Ranking.DescriptionChars,
			Timeout:          cfg.Ranking.Timeout,
		}, baseLogger.With("component", "ranker"))
	}

	var delivery ports.Delivery
	if !opts.DryRun {
		delivery = email.NewSMTPDelivery(cfg.SMTP, cfg.Search.MaxAge, baseLogger.With("component", "email"))
	}

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram); tg.Enabled() {
		notifier = tg
	}

	var archive ports.ListingArchive
	if cfg.Archive.Driver != "" {
		repo, err := storage.Open(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		a.closers = append(a.closers, repo)
		archive = repo
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Collector: collector,
		Ranker:    ranker,
		Delivery:  delivery,
		Notifier:  notifier,
		Archive:   archive,
		Logger:    baseLogger.With("component", "pipeline"),
	})
	return a, nil
}

func newCompletionClient(ctx context.Context, cfg config.Config) (ports.CompletionClient, error) {
	switch cfg.Ranking.Provider {
	case config.ProviderChatGPT:
		return llm.NewChatGPTClient(cfg.ChatGPT, cfg.Ranking.Timeout), nil
	case config.ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg.Gemini, "")
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, nil
	}
}

// Queries returns the search plan for a run starting at now.
func (a *Application) Queries(now time.Time) []domain.SearchQuery {
	return search.Plan(a.cfg.Search, a.cfg.Petfinder, now)
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (usecase.Result, error) {
	now := a.now()
	var publishedAfter time.Time
	if a.cfg.Search.MaxAge > 0 {
		publishedAfter = now.Add(-a.cfg.Search.MaxAge)
	}

	result, err := a.pipeline.Run(ctx, usecase.RunOptions{
		Queries: a.Queries(now),
		Profile: domain.PreferenceProfile{
			Description:    a.cfg.Preferences.Description,
			ExcludedBreeds: a.cfg.Preferences.ExcludedBreeds,
		},
		PublishedAfter: publishedAfter,
	})
	if err != nil {
		return result, err
	}

	if a.opts.DryRun && result.Status == domain.StatusAssembled {
		preview, err := render.Preview(result.Digest, a.opts.Style, 0)
		if err != nil {
			return result, err
		}
		if _, err := io.WriteString(a.opts.Out, preview); err != nil {
			return result, fmt.Errorf("write preview: %w", err)
		}
	}
	return result, nil
}

// Close releases resources opened by New.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
