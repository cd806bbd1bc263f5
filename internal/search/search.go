package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"DogDigest/internal/config"
	"DogDigest/internal/domain"
	"DogDigest/internal/ports"
)

// QueryResult is the outcome of one zip-code query.
type QueryResult struct {
	Query    domain.SearchQuery
	Listings []domain.Listing
	// Err is set when the query failed; its listings are then discarded.
	Err error
	// Warning carries a soft stop such as *domain.ExhaustionError.
	Warning error
}

// Failed reports whether the query produced no usable result.
func (r QueryResult) Failed() bool {
	return r.Err != nil
}

// Plan builds one query per configured zip code, in configured order.
func Plan(search config.SearchConfig, petfinder config.PetfinderConfig, now time.Time) []domain.SearchQuery {
	var publishedAfter time.Time
	if search.MaxAge > 0 {
		publishedAfter = now.Add(-search.MaxAge)
	}

	queries := make([]domain.SearchQuery, 0, len(search.ZipCodes))
	for _, zip := range search.ZipCodes {
		queries = append(queries, domain.SearchQuery{
			Zip:            zip,
			DistanceMiles:  search.DistanceMiles,
			Species:        search.Species,
			Ages:           search.Ages,
			Page:           1,
			PageSize:       petfinder.PageSize,
			MaxPages:       petfinder.MaxPages,
			PublishedAfter: publishedAfter,
		})
	}
	return queries
}

// Collector runs zip-code queries against a listing source.
type Collector struct {
	source      ports.ListingSource
	concurrency int
	logger      *slog.Logger
}

// NewCollector wires a source; concurrency below one means sequential.
func NewCollector(source ports.ListingSource, concurrency int, logger *slog.Logger) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{source: source, concurrency: concurrency, logger: logger}
}

// Collect drains every query, up to the configured number at a time. Results
// are returned in query order regardless of completion order, and a failing
// query never affects the others.
func (c *Collector) Collect(ctx context.Context, queries []domain.SearchQuery) []QueryResult {
	results := make([]QueryResult, len(queries))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			results[i] = c.drain(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Collector) drain(ctx context.Context, q domain.SearchQuery) QueryResult {
	result := QueryResult{Query: q}
	for listing, err := range c.source.Search(ctx, q) {
		if err == nil {
			result.Listings = append(result.Listings, listing)
			continue
		}

		var exhausted *domain.ExhaustionError
		if errors.As(err, &exhausted) {
			result.Warning = err
			c.logger.Warn("page ceiling reached, keeping partial results", "zip", q.Zip, "pages", exhausted.Pages, "listings", len(result.Listings))
			break
		}

		result.Err = err
		result.Listings = nil
		c.logger.Warn("zip query failed, omitting it", "zip", q.Zip, "error", err)
		break
	}

	if result.Err == nil {
		c.logger.Debug("zip query done", "zip", q.Zip, "listings", len(result.Listings))
	}
	return result
}
