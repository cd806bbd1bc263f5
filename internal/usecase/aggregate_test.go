package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DogDigest/internal/domain"
	"DogDigest/internal/search"
)

func TestAggregateFirstSeenCopyWins(t *testing.T) {
	t.Parallel()

	first := dog("PF-1001", "Biscuit", "Beagle")
	first.Zip, first.Distance = "08401", 5
	second := dog("PF-1001", "Biscuit", "Beagle")
	second.Zip, second.Distance = "11211", 80

	results := []search.QueryResult{
		{Query: domain.SearchQuery{Zip: "08401"}, Listings: []domain.Listing{first, dog("PF-2", "Maple", "Poodle")}},
		{Query: domain.SearchQuery{Zip: "11211"}, Listings: []domain.Listing{second, second}},
	}

	set, stats, err := NewAggregator(domain.PreferenceProfile{}, time.Time{}, nil).Aggregate(results)
	require.NoError(t, err)

	assert.Equal(t, []string{"PF-1001", "PF-2"}, set.IDs())
	got, _ := set.Get("PF-1001")
	assert.Equal(t, "08401", got.Zip)
	assert.Equal(t, 5.0, got.Distance)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 4, stats.Fetched)
	assert.Equal(t, 2, stats.Kept)
}

func TestAggregateDropsExcludedBreeds(t *testing.T) {
	t.Parallel()

	profile := domain.PreferenceProfile{ExcludedBreeds: []string{"Pit Bull Terrier"}}
	results := []search.QueryResult{{
		Query: domain.SearchQuery{Zip: "08401"},
		Listings: []domain.Listing{
			dog("PF-1", "Tank", "Pit Bull Terrier"),
			dog("PF-2", "Rosie", "Labrador Retriever", "American Pit Bull Terrier"),
			dog("PF-3", "Scout", "Labrador Retriever"),
		},
	}}

	set, stats, err := NewAggregator(profile, time.Time{}, nil).Aggregate(results)
	require.NoError(t, err)

	assert.Equal(t, []string{"PF-3"}, set.IDs())
	assert.Equal(t, 2, stats.Excluded)
}

func TestAggregateExclusionBeatsDeduplication(t *testing.T) {
	t.Parallel()

	profile := domain.PreferenceProfile{ExcludedBreeds: []string{"husky"}}
	results := []search.QueryResult{
		{Query: domain.SearchQuery{Zip: "A"}, Listings: []domain.Listing{dog("PF-1", "Ghost", "Siberian Husky")}},
		{Query: domain.SearchQuery{Zip: "B"}, Listings: []domain.Listing{dog("PF-1", "Ghost", "Siberian Husky")}},
	}

	set, _, err := NewAggregator(profile, time.Time{}, nil).Aggregate(results)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestAggregateDropsStaleListings(t *testing.T) {
	t.Parallel()

	cutoff := time.Date(2025, 9, 17, 12, 0, 0, 0, time.UTC)
	fresh := dog("PF-1", "Fresh")
	fresh.PublishedAt = cutoff.Add(time.Hour)
	old := dog("PF-2", "Old")
	old.PublishedAt = cutoff.Add(-time.Hour)
	undated := dog("PF-3", "Undated")

	results := []search.QueryResult{{Query: domain.SearchQuery{Zip: "A"}, Listings: []domain.Listing{fresh, old, undated}}}

	set, stats, err := NewAggregator(domain.PreferenceProfile{}, cutoff, nil).Aggregate(results)
	require.NoError(t, err)
	assert.Equal(t, []string{"PF-1"}, set.IDs())
	assert.Equal(t, 2, stats.Stale)
}

func TestAggregateSkipsFailedQueries(t *testing.T) {
	t.Parallel()

	results := []search.QueryResult{
		{Query: domain.SearchQuery{Zip: "A"}, Err: errors.New("timeout")},
		{Query: domain.SearchQuery{Zip: "B"}, Listings: []domain.Listing{dog("PF-1", "Scout")}},
	}

	set, stats, err := NewAggregator(domain.PreferenceProfile{}, time.Time{}, nil).Aggregate(results)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, []string{"A"}, stats.FailedZips)
}

func TestAggregateAllQueriesFailed(t *testing.T) {
	t.Parallel()

	results := []search.QueryResult{
		{Query: domain.SearchQuery{Zip: "A"}, Err: errors.New("timeout")},
		{Query: domain.SearchQuery{Zip: "B"}, Err: errors.New("401")},
	}

	_, stats, err := NewAggregator(domain.PreferenceProfile{}, time.Time{}, nil).Aggregate(results)
	assert.ErrorIs(t, err, domain.ErrAllQueriesFailed)
	assert.Equal(t, []string{"A", "B"}, stats.FailedZips)

	_, _, err = NewAggregator(domain.PreferenceProfile{}, time.Time{}, nil).Aggregate(nil)
	assert.ErrorIs(t, err, domain.ErrAllQueriesFailed)
}

func TestAggregateSuccessfulButEmpty(t *testing.T) {
	t.Parallel()

	results := []search.QueryResult{{Query: domain.SearchQuery{Zip: "A"}}}

	set, _, err := NewAggregator(domain.PreferenceProfile{}, time.Time{}, nil).Aggregate(results)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}
