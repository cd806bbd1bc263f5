package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DogDigest/internal/domain"
	"DogDigest/internal/logging"
)

func candidateSet(listings ...domain.Listing) domain.CandidateSet {
	b := domain.NewCandidateSetBuilder()
	for _, l := range listings {
		b.Add(l)
	}
	return b.Build()
}

func TestRankEmptySetSkipsService(t *testing.T) {
	t.Parallel()

	client := &fakeCompletion{answer: `{"picks":[]}`}
	ranking, err := NewRanker(client, RankerOptions{MaxPicks: 3}, nil).Rank(context.Background(), domain.CandidateSet{}, "calm")

	require.NoError(t, err)
	assert.Empty(t, ranking.Picks)
	assert.Equal(t, 0, client.calls)
}

func TestRankDropsUnknownIdentities(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	client := &fakeCompletion{answer: `{"picks":[
		{"id":"PF-2","reason":"Calm and house-trained."},
		{"id":"PF-9999","reason":"Invented."},
		{"id":"PF-1","rationale":"Good with cats."}
	]}`}
	set := candidateSet(dog("PF-1", "Biscuit"), dog("PF-2", "Maple"), dog("PF-3", "Pepper"))

	ranking, err := NewRanker(client, RankerOptions{MaxPicks: 3}, logging.NewWriter(&logs, "warn")).Rank(context.Background(), set, "calm, cat friendly")

	require.NoError(t, err)
	assert.Equal(t, []domain.RankedPick{
		{ListingID: "PF-2", Rank: 1, Rationale: "Calm and house-trained."},
		{ListingID: "PF-1", Rank: 2, Rationale: "Good with cats."},
	}, ranking.Picks)
	require.Len(t, ranking.Violations, 1)
	assert.Equal(t, "PF-9999", ranking.Violations[0].ListingID)
	assert.Contains(t, logs.String(), "listing_id=PF-9999")
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestRankCapsPicksAndSkipsDuplicates(t *testing.T) {
	t.Parallel()

	client := &fakeCompletion{answer: "```json\n[{\"id\":\"PF-1\"},{\"id\":\"PF-1\"},{\"id\":\"PF-2\"},{\"id\":\"PF-3\"}]\n```"}
	set := candidateSet(dog("PF-1", "A"), dog("PF-2", "B"), dog("PF-3", "C"))

	ranking, err := NewRanker(client, RankerOptions{MaxPicks: 2}, nil).Rank(context.Background(), set, "")

	require.NoError(t, err)
	require.Len(t, ranking.Picks, 2)
	assert.Equal(t, "PF-1", ranking.Picks[0].ListingID)
	assert.Equal(t, "PF-2", ranking.Picks[1].ListingID)
	assert.Equal(t, 2, ranking.Picks[1].Rank)
}

func TestRankPromptCarriesCandidatesAndPreferences(t *testing.T) {
	t.Parallel()

	yes := true
	biscuit := dog("PF-1", "Biscuit", "Beagle")
	biscuit.Description = strings.Repeat("x", 50)
	biscuit.Flags.GoodWithCats = &yes
	client := &fakeCompletion{answer: `{"picks":[]}`}

	_, err := NewRanker(client, RankerOptions{MaxPicks: 10, DescriptionChars: 10}, nil).
		Rank(context.Background(), candidateSet(biscuit), "loves cats")
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "loves cats")
	assert.Contains(t, prompt, `"id":"PF-1"`)
	assert.Contains(t, prompt, "good with cats")
	assert.Contains(t, prompt, "at most 1 candidates")
	assert.NotContains(t, prompt, strings.Repeat("x", 11))
}

func TestRankServiceFailure(t *testing.T) {
	t.Parallel()

	client := &fakeCompletion{err: errors.New("connection refused")}
	ranking, err := NewRanker(client, RankerOptions{}, nil).Rank(context.Background(), candidateSet(dog("PF-1", "A")), "")

	var transport *domain.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Empty(t, ranking.Picks)
}

func TestRankMalformedResponse(t *testing.T) {
	t.Parallel()

	for _, answer := range []string{"", "I like Biscuit best!", `{"winner":"PF-1"}`, `{"picks":"PF-1"}`} {
		client := &fakeCompletion{answer: answer}
		_, err := NewRanker(client, RankerOptions{}, nil).Rank(context.Background(), candidateSet(dog("PF-1", "A")), "")

		var parseErr *domain.ParseError
		assert.ErrorAs(t, err, &parseErr, "answer %q", answer)
	}
}

type blockingCompletion struct{}

func (blockingCompletion) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", &domain.TransportError{Op: "ranking request", Err: ctx.Err()}
}

func TestRankTimeout(t *testing.T) {
	t.Parallel()

	_, err := NewRanker(blockingCompletion{}, RankerOptions{Timeout: 10 * time.Millisecond}, nil).
		Rank(context.Background(), candidateSet(dog("PF-1", "A")), "")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héllo…", truncate("héllo world", 5))
	assert.Equal(t, "unbounded", truncate("unbounded", 0))
}
