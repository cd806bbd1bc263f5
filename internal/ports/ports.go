package ports

import (
	"context"
	"iter"

	"DogDigest/internal/domain"
)

// ListingSource pages through the pet-search API for one query.
// The sequence ends early with a non-nil error; an *domain.ExhaustionError is a soft stop.
type ListingSource interface {
	Search(ctx context.Context, query domain.SearchQuery) iter.Seq2[domain.Listing, error]
}

// CompletionClient sends one prompt to a generation model and returns its text answer.
type CompletionClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Delivery transports an assembled digest to its recipients.
type Delivery interface {
	Deliver(ctx context.Context, digest domain.Digest) error
}

// Notifier streams short operational notices to Telegram or other channels.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// ListingArchive records the candidate listings of a run for auditing.
type ListingArchive interface {
	Record(ctx context.Context, runID string, listings []domain.Listing) error
}
