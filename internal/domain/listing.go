package domain

import (
	"encoding/json"
	"time"
)

// Listing is one adoptable animal extracted from the pet-search source.
// Zip is the query origin that surfaced the listing and Distance is measured from it.
type Listing struct {
	ID           string
	Name         string
	Breeds       []string
	Age          string
	Size         string
	Sex          string
	Zip          string
	Distance     float64
	Location     string
	Description  string
	PhotoURLs    []string
	VideoURLs    []string
	URL          string
	ContactEmail string
	ContactPhone string
	PublishedAt  time.Time
	Flags        Flags
	Raw          json.RawMessage
}

// Flags carries the boolean traits reported by the source. Nil means unknown.
type Flags struct {
	HouseTrained   *bool
	SpayedNeutered *bool
	ShotsCurrent   *bool
	SpecialNeeds   *bool
	GoodWithKids   *bool
	GoodWithDogs   *bool
	GoodWithCats   *bool
}

// SearchQuery describes one geographic query against the pet-search source.
type SearchQuery struct {
	Zip           string
	DistanceMiles int
	Species       string
	Ages          []string
	Page          int
	PageSize      int
	MaxPages      int
	// PublishedAfter stops pagination once a page ends before this instant.
	PublishedAfter time.Time
}

// PreferenceProfile is the user's free-text wish list and breed blocklist.
type PreferenceProfile struct {
	Description    string
	ExcludedBreeds []string
}
