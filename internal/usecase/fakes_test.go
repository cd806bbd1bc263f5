package usecase

import (
	"context"
	"iter"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"DogDigest/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	listings map[string][]domain.Listing
	errs     map[string]error
}

func (f *fakeSource) Search(_ context.Context, q domain.SearchQuery) iter.Seq2[domain.Listing, error] {
	return func(yield func(domain.Listing, error) bool) {
		for _, l := range f.listings[q.Zip] {
			if !yield(l, nil) {
				return
			}
		}
		if err := f.errs[q.Zip]; err != nil {
			yield(domain.Listing{}, err)
		}
	}
}

type fakeCompletion struct {
	mu      sync.Mutex
	answer  string
	err     error
	calls   int
	prompts []string
}

func (f *fakeCompletion) Complete(_ context.Context, _, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

type fakeDelivery struct {
	digests []domain.Digest
	err     error
}

func (f *fakeDelivery) Deliver(_ context.Context, d domain.Digest) error {
	f.digests = append(f.digests, d)
	return f.err
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, message string) error {
	f.messages = append(f.messages, message)
	return nil
}

type fakeArchive struct {
	runID    string
	listings []domain.Listing
}

func (f *fakeArchive) Record(_ context.Context, runID string, listings []domain.Listing) error {
	f.runID = runID
	f.listings = listings
	return nil
}

func dog(id, name string, breeds ...string) domain.Listing {
	return domain.Listing{ID: id, Name: name, Breeds: breeds}
}

func queries(zips ...string) []domain.SearchQuery {
	out := make([]domain.SearchQuery, 0, len(zips))
	for _, z := range zips {
		out = append(out, domain.SearchQuery{Zip: z})
	}
	return out
}
