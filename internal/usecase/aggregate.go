package usecase

import (
	"log/slog"
	"time"

	"DogDigest/internal/domain"
	"DogDigest/internal/search"
)

// AggregateStats counts what happened to fetched listings.
type AggregateStats struct {
	Fetched    int
	Excluded   int
	Stale      int
	Duplicates int
	Kept       int
	FailedZips []string
}

// Aggregator merges per-zip results into one candidate set.
type Aggregator struct {
	profile        domain.PreferenceProfile
	publishedAfter time.Time
	logger         *slog.Logger
}

// NewAggregator builds an aggregator. A zero publishedAfter disables the freshness filter.
func NewAggregator(profile domain.PreferenceProfile, publishedAfter time.Time, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{profile: profile, publishedAfter: publishedAfter, logger: logger}
}

// Aggregate walks results in the given order and listings in source order.
// Breed-excluded and stale listings are dropped; of several copies of the same
// identity the first one seen is kept untouched. It fails with
// domain.ErrAllQueriesFailed when no query succeeded.
func (a *Aggregator) Aggregate(results []search.QueryResult) (domain.CandidateSet, AggregateStats, error) {
	var stats AggregateStats
	builder := domain.NewCandidateSetBuilder()

	succeeded := 0
	for _, result := range results {
		if result.Failed() {
			stats.FailedZips = append(stats.FailedZips, result.Query.Zip)
			continue
		}
		succeeded++

		for _, listing := range result.Listings {
			stats.Fetched++

			if term, excluded := a.profile.ExcludedBy(listing.Breeds); excluded {
				stats.Excluded++
				a.logger.Debug("excluded breed", "listing_id", listing.ID, "breeds", listing.Breeds, "term", term)
				continue
			}
			if a.stale(listing) {
				stats.Stale++
				continue
			}
			if !builder.Add(listing) {
				stats.Duplicates++
				a.logger.Debug("duplicate listing", "listing_id", listing.ID, "zip", result.Query.Zip)
			}
		}
	}

	if succeeded == 0 {
		return domain.CandidateSet{}, stats, domain.ErrAllQueriesFailed
	}

	set := builder.Build()
	stats.Kept = set.Len()
	a.logger.Info("aggregated candidates",
		"fetched", stats.Fetched,
		"kept", stats.Kept,
		"excluded", stats.Excluded,
		"stale", stats.Stale,
		"duplicates", stats.Duplicates,
		"failed_zips", len(stats.FailedZips))
	return set, stats, nil
}

func (a *Aggregator) stale(l domain.Listing) bool {
	if a.publishedAfter.IsZero() {
		return false
	}
	return l.PublishedAt.IsZero() || l.PublishedAt.Before(a.publishedAfter)
}
