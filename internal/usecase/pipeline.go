package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"DogDigest/internal/domain"
	"DogDigest/internal/ports"
	"DogDigest/internal/search"
)

// PipelineDeps wires all driven adapters into the digest pipeline.
// Ranker, Delivery, Notifier and Archive are optional.
type PipelineDeps struct {
	Collector *search.Collector
	Ranker    *Ranker
	Delivery  ports.Delivery
	Notifier  ports.Notifier
	Archive   ports.ListingArchive
	Logger    *slog.Logger
	Now       func() time.Time
}

// RunOptions is the immutable input of one run.
type RunOptions struct {
	Queries []domain.SearchQuery
	Profile domain.PreferenceProfile
	// PublishedAfter drops listings published earlier; zero keeps everything.
	PublishedAfter time.Time
}

// Result summarizes a finished run.
type Result struct {
	RunID      string
	Status     domain.RunStatus
	Stats      AggregateStats
	Digest     domain.Digest
	RankErr    error
	Violations []*domain.InvariantViolation
}

// Pipeline implements Fetch → Aggregate → Rank → Assemble → Deliver.
type Pipeline struct {
	collector *search.Collector
	ranker    *Ranker
	delivery  ports.Delivery
	notifier  ports.Notifier
	archive   ports.ListingArchive
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		collector: deps.Collector,
		ranker:    deps.Ranker,
		delivery:  deps.Delivery,
		notifier:  deps.Notifier,
		archive:   deps.Archive,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run executes one digest run. It fails only when every zip query failed or
// delivery failed; an empty candidate set ends the run early with StatusEmpty,
// and a ranking failure degrades to a digest without top picks.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Result, error) {
	result := Result{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", result.RunID)
	startedAt := p.now()

	if p.collector == nil {
		return result, fmt.Errorf("pipeline: no collector configured")
	}

	logger.Info("fetching listings", "zips", len(opts.Queries))
	queryResults := p.collector.Collect(ctx, opts.Queries)

	set, stats, err := NewAggregator(opts.Profile, opts.PublishedAfter, logger.With("component", "aggregator")).Aggregate(queryResults)
	result.Stats = stats
	if err != nil {
		result.Status = domain.StatusFailed
		logger.Error("no listings obtainable", "failed_zips", stats.FailedZips, "error", err)
		p.notify(ctx, logger, fmt.Sprintf("Dog Digest run failed: %v (zips: %s)", err, strings.Join(stats.FailedZips, ", ")))
		return result, fmt.Errorf("aggregate: %w", err)
	}
	if len(stats.FailedZips) > 0 {
		logger.Warn("continuing with partial results", "failed_zips", stats.FailedZips)
	}

	if set.Len() == 0 {
		result.Status = domain.StatusEmpty
		logger.Info("no matches today")
		p.notify(ctx, logger, "Dog Digest: no matching dogs today.")
		return result, nil
	}

	if p.archive != nil {
		if err := p.archive.Record(ctx, result.RunID, set.Listings()); err != nil {
			logger.Warn("archive candidates failed", "error", err)
		}
	}

	var picks []domain.RankedPick
	if p.ranker != nil {
		ranking, err := p.ranker.Rank(ctx, set, opts.Profile.Description)
		if err != nil {
			result.RankErr = err
			logger.Warn("ranking failed, sending digest without top picks", "error", err)
		}
		picks = ranking.Picks
		result.Violations = ranking.Violations
	}

	result.Digest = Assemble(picks, set, startedAt)
	result.Status = domain.StatusAssembled

	if p.delivery == nil {
		logger.Info("digest assembled, delivery skipped", "listings", len(result.Digest.Listings), "top_picks", len(result.Digest.TopPicks))
		return result, nil
	}

	if err := p.delivery.Deliver(ctx, result.Digest); err != nil {
		logger.Error("delivery failed", "error", err)
		p.notify(ctx, logger, fmt.Sprintf("Dog Digest delivery failed: %v", err))
		return result, fmt.Errorf("deliver digest: %w", err)
	}
	result.Status = domain.StatusDelivered
	logger.Info("digest delivered", "listings", len(result.Digest.Listings), "top_picks", len(result.Digest.TopPicks))
	p.notify(ctx, logger, summary(result))

	return result, nil
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, message string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, message); err != nil {
		logger.Warn("notify failed", "error", err)
	}
}

func summary(r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dog Digest sent: %d dogs, %d top picks.", len(r.Digest.Listings), len(r.Digest.TopPicks))
	if len(r.Stats.FailedZips) > 0 {
		fmt.Fprintf(&b, " Zips omitted: %s.", strings.Join(r.Stats.FailedZips, ", "))
	}
	if r.RankErr != nil {
		var parseErr *domain.ParseError
		if errors.As(r.RankErr, &parseErr) {
			b.WriteString(" Ranking answer was unreadable.")
		} else {
			b.WriteString(" Ranking service unavailable.")
		}
	}
	if n := len(r.Violations); n > 0 {
		fmt.Fprintf(&b, " Dropped %d unknown picks.", n)
	}
	return b.String()
}
