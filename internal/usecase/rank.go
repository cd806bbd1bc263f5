package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"DogDigest/internal/domain"
	"DogDigest/internal/ports"
)

const rankingSystemPrompt = "You help a family choose adoptable dogs. " +
	"Rank candidates by how well they fit the stated preferences. Answer with JSON only."

// RankerOptions bounds the ranking request.
type RankerOptions struct {
	MaxPicks         int
	DescriptionChars int
	Timeout          time.Duration
}

// Ranking is the validated answer of the ranking service.
type Ranking struct {
	Picks      []domain.RankedPick
	Violations []*domain.InvariantViolation
}

// Ranker asks a completion model to order the candidate set against free-text preferences.
type Ranker struct {
	client ports.CompletionClient
	opts   RankerOptions
	logger *slog.Logger
}

// NewRanker wires a completion client.
func NewRanker(client ports.CompletionClient, opts RankerOptions, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ranker{client: client, opts: opts, logger: logger}
}

// Rank returns at most MaxPicks picks, all referencing members of set.
// An empty set short-circuits without calling the service. Picks naming
// unknown listings are dropped and reported as violations.
func (r *Ranker) Rank(ctx context.Context, set domain.CandidateSet, preferences string) (Ranking, error) {
	if set.Len() == 0 || r.client == nil {
		return Ranking{}, nil
	}

	limit := r.opts.MaxPicks
	if limit <= 0 || limit > set.Len() {
		limit = set.Len()
	}

	prompt, err := r.buildPrompt(set, preferences, limit)
	if err != nil {
		return Ranking{}, fmt.Errorf("build ranking prompt: %w", err)
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	answer, err := r.client.Complete(ctx, rankingSystemPrompt, prompt)
	if err != nil {
		var transport *domain.TransportError
		if !errors.As(err, &transport) {
			err = &domain.TransportError{Op: "ranking request", Err: err}
		}
		return Ranking{}, err
	}

	raw, err := parsePicks(answer)
	if err != nil {
		return Ranking{}, &domain.ParseError{Op: "ranking response", Err: err}
	}

	return r.validate(raw, set, limit), nil
}

type rawPick struct {
	ID        string `json:"id"`
	Reason    string `json:"reason"`
	Rationale string `json:"rationale"`
}

func (r *Ranker) validate(raw []rawPick, set domain.CandidateSet, limit int) Ranking {
	var out Ranking
	seen := map[string]bool{}
	for _, p := range raw {
		id := strings.TrimSpace(p.ID)
		if !set.Contains(id) {
			v := &domain.InvariantViolation{ListingID: id}
			out.Violations = append(out.Violations, v)
			r.logger.Warn("dropping ranked pick", "listing_id", id, "error", v)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if len(out.Picks) == limit {
			continue
		}

		rationale := strings.TrimSpace(p.Reason)
		if rationale == "" {
			rationale = strings.TrimSpace(p.Rationale)
		}
		out.Picks = append(out.Picks, domain.RankedPick{
			ListingID: id,
			Rank:      len(out.Picks) + 1,
			Rationale: rationale,
		})
	}
	return out
}

type candidateSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Breeds      []string `json:"breeds,omitempty"`
	Age         string   `json:"age,omitempty"`
	Size        string   `json:"size,omitempty"`
	Sex         string   `json:"sex,omitempty"`
	Distance    float64  `json:"distance_miles,omitempty"`
	Traits      []string `json:"traits,omitempty"`
	Description string   `json:"description,omitempty"`
}

// buildPrompt serializes a bounded projection of each candidate plus the preferences.
func (r *Ranker) buildPrompt(set domain.CandidateSet, preferences string, limit int) (string, error) {
	summaries := make([]candidateSummary, 0, set.Len())
	for _, l := range set.Listings() {
		summaries = append(summaries, candidateSummary{
			ID:          l.ID,
			Name:        l.Name,
			Breeds:      l.Breeds,
			Age:         l.Age,
			Size:        l.Size,
			Sex:         l.Sex,
			Distance:    l.Distance,
			Traits:      traits(l.Flags),
			Description: truncate(l.Description, r.opts.DescriptionChars),
		})
	}

	candidates, err := json.Marshal(summaries)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Preferences:\n%s\n\n", strings.TrimSpace(preferences))
	fmt.Fprintf(&b, "Candidates (JSON):\n%s\n\n", candidates)
	fmt.Fprintf(&b, "Pick at most %d candidates that best match the preferences, best first. ", limit)
	b.WriteString(`Use only ids from the candidate list. Respond with {"picks":[{"id":"<id>","reason":"<one or two sentences>"}]}.`)
	return b.String(), nil
}

// parsePicks accepts {"picks":[...]} or a bare array, optionally wrapped in a code fence.
func parsePicks(answer string) ([]rawPick, error) {
	text := stripFence(strings.TrimSpace(answer))
	if text == "" {
		return nil, errors.New("empty response")
	}

	if strings.HasPrefix(text, "[") {
		var picks []rawPick
		if err := json.Unmarshal([]byte(text), &picks); err != nil {
			return nil, err
		}
		return picks, nil
	}

	var envelope struct {
		Picks *[]rawPick `json:"picks"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, err
	}
	if envelope.Picks == nil {
		return nil, errors.New(`missing "picks"`)
	}
	return *envelope.Picks, nil
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func traits(f domain.Flags) []string {
	var out []string
	add := func(v *bool, yes, no string) {
		switch {
		case v == nil:
		case *v:
			out = append(out, yes)
		case no != "":
			out = append(out, no)
		}
	}
	add(f.HouseTrained, "house-trained", "not house-trained")
	add(f.GoodWithDogs, "good with dogs", "not good with dogs")
	add(f.GoodWithCats, "good with cats", "not good with cats")
	add(f.GoodWithKids, "good with children", "not good with children")
	add(f.SpayedNeutered, "spayed/neutered", "")
	add(f.ShotsCurrent, "shots current", "")
	add(f.SpecialNeeds, "special needs", "")
	return out
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
