package domain

// CandidateSet is the deduplicated, filtered listing collection of one run.
// It is read-only; build it with a CandidateSetBuilder.
type CandidateSet struct {
	order []string
	byID  map[string]Listing
}

// Len reports the number of candidates.
func (c CandidateSet) Len() int {
	return len(c.order)
}

// Get returns the listing stored under id.
func (c CandidateSet) Get(id string) (Listing, bool) {
	l, ok := c.byID[id]
	return l, ok
}

// Contains reports whether id is a member.
func (c CandidateSet) Contains(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Listings returns the candidates in first-seen order.
func (c CandidateSet) Listings() []Listing {
	out := make([]Listing, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns candidate identities in first-seen order.
func (c CandidateSet) IDs() []string {
	return append([]string(nil), c.order...)
}

// CandidateSetBuilder accumulates listings; the first copy of an identity wins.
type CandidateSetBuilder struct {
	order []string
	byID  map[string]Listing
}

// NewCandidateSetBuilder returns an empty builder.
func NewCandidateSetBuilder() *CandidateSetBuilder {
	return &CandidateSetBuilder{byID: map[string]Listing{}}
}

// Add inserts l unless its identity is already present. It reports whether l was inserted.
func (b *CandidateSetBuilder) Add(l Listing) bool {
	if _, ok := b.byID[l.ID]; ok {
		return false
	}
	b.byID[l.ID] = l
	b.order = append(b.order, l.ID)
	return true
}

// Build returns an immutable snapshot of the accumulated set.
func (b *CandidateSetBuilder) Build() CandidateSet {
	byID := make(map[string]Listing, len(b.byID))
	for k, v := range b.byID {
		byID[k] = v
	}
	return CandidateSet{order: append([]string(nil), b.order...), byID: byID}
}
