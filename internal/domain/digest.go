package domain

import "time"

// RankedPick is one listing chosen by the ranking service.
type RankedPick struct {
	ListingID string
	Rank      int
	Rationale string
}

// PickEntry is a RankedPick joined with its listing for rendering.
type PickEntry struct {
	Rank      int
	Rationale string
	Listing   Listing
}

// Digest is the renderable document of one run.
type Digest struct {
	GeneratedAt time.Time
	TopPicks    []PickEntry
	Listings    []Listing
}

// RunStatus enumerates the terminal states of a pipeline run.
type RunStatus string

const (
	StatusDelivered RunStatus = "delivered"
	StatusAssembled RunStatus = "assembled"
	StatusEmpty     RunStatus = "empty"
	StatusFailed    RunStatus = "failed"
)
