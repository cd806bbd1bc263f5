package usecase

import (
	"sort"
	"time"

	"DogDigest/internal/domain"
)

// Assemble joins ranked picks and the full candidate set into a digest.
// Every candidate appears once in Listings; picks are ordered by rank and any
// pick not backed by the set is left out. It performs no I/O.
func Assemble(picks []domain.RankedPick, set domain.CandidateSet, at time.Time) domain.Digest {
	ordered := append([]domain.RankedPick(nil), picks...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	digest := domain.Digest{
		GeneratedAt: at,
		Listings:    set.Listings(),
	}

	seen := map[string]bool{}
	for _, p := range ordered {
		listing, ok := set.Get(p.ListingID)
		if !ok || seen[p.ListingID] {
			continue
		}
		seen[p.ListingID] = true
		digest.TopPicks = append(digest.TopPicks, domain.PickEntry{
			Rank:      p.Rank,
			Rationale: p.Rationale,
			Listing:   listing,
		})
	}
	return digest
}
