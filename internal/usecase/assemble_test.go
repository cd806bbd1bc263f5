package usecase

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DogDigest/internal/domain"
)

func TestAssembleRendersEveryListingOnce(t *testing.T) {
	t.Parallel()

	set := candidateSet(dog("PF-1", "Biscuit"), dog("PF-2", "Maple"), dog("PF-3", "Pepper"))
	picks := []domain.RankedPick{
		{ListingID: "PF-3", Rank: 2, Rationale: "Energetic."},
		{ListingID: "PF-1", Rank: 1, Rationale: "Gentle."},
	}
	at := time.Date(2025, 9, 18, 12, 0, 0, 0, time.UTC)

	digest := Assemble(picks, set, at)

	assert.Equal(t, at, digest.GeneratedAt)
	require.Len(t, digest.Listings, 3)
	assert.Equal(t, "PF-1", digest.Listings[0].ID)
	assert.Equal(t, "PF-3", digest.Listings[2].ID)

	require.Len(t, digest.TopPicks, 2)
	assert.Equal(t, 1, digest.TopPicks[0].Rank)
	assert.Equal(t, "Biscuit", digest.TopPicks[0].Listing.Name)
	assert.Equal(t, "Gentle.", digest.TopPicks[0].Rationale)
	assert.Equal(t, "Pepper", digest.TopPicks[1].Listing.Name)
}

func TestAssembleIsDeterministic(t *testing.T) {
	t.Parallel()

	set := candidateSet(dog("PF-1", "Biscuit", "Beagle"), dog("PF-2", "Maple"))
	picks := []domain.RankedPick{{ListingID: "PF-2", Rank: 1, Rationale: "Quiet."}}
	at := time.Date(2025, 9, 18, 12, 0, 0, 0, time.UTC)

	first := Assemble(picks, set, at)
	second := Assemble(picks, set, at)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("digest changed between identical calls (-first +second):\n%s", diff)
	}
}

func TestAssembleIgnoresPicksOutsideSet(t *testing.T) {
	t.Parallel()

	set := candidateSet(dog("PF-1", "Biscuit"))
	picks := []domain.RankedPick{
		{ListingID: "PF-9999", Rank: 1},
		{ListingID: "PF-1", Rank: 2},
		{ListingID: "PF-1", Rank: 3},
	}

	digest := Assemble(picks, set, time.Time{})

	require.Len(t, digest.TopPicks, 1)
	assert.Equal(t, "PF-1", digest.TopPicks[0].Listing.ID)
	assert.Len(t, digest.Listings, 1)
}

func TestAssembleWithoutPicks(t *testing.T) {
	t.Parallel()

	digest := Assemble(nil, candidateSet(dog("PF-1", "Biscuit")), time.Time{})
	assert.Empty(t, digest.TopPicks)
	assert.Len(t, digest.Listings, 1)
}
