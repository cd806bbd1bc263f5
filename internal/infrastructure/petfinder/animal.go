package petfinder

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"DogDigest/internal/domain"
)

// IDPrefix namespaces Petfinder identities inside a candidate set.
const IDPrefix = "PF-"

var errMissingField = errors.New("missing required field")

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
}

type animalsPage struct {
	Animals    []json.RawMessage `json:"animals"`
	Pagination struct {
		CurrentPage int `json:"current_page"`
		TotalPages  int `json:"total_pages"`
	} `json:"pagination"`
}

type animalRecord struct {
	ID     int64  `json:"id"`
	URL    string `json:"url"`
	Name   string `json:"name"`
	Breeds struct {
		Primary   *string `json:"primary"`
		Secondary *string `json:"secondary"`
		Mixed     bool    `json:"mixed"`
	} `json:"breeds"`
	Age         string  `json:"age"`
	Gender      string  `json:"gender"`
	Size        string  `json:"size"`
	Description *string `json:"description"`
	Photos      []struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
		Full   string `json:"full"`
	} `json:"photos"`
	Videos []struct {
		Embed string `json:"embed"`
		URL   string `json:"url"`
	} `json:"videos"`
	Attributes struct {
		SpayedNeutered *bool `json:"spayed_neutered"`
		HouseTrained   *bool `json:"house_trained"`
		SpecialNeeds   *bool `json:"special_needs"`
		ShotsCurrent   *bool `json:"shots_current"`
	} `json:"attributes"`
	Environment struct {
		Children *bool `json:"children"`
		Dogs     *bool `json:"dogs"`
		Cats     *bool `json:"cats"`
	} `json:"environment"`
	Contact struct {
		Email   *string `json:"email"`
		Phone   *string `json:"phone"`
		Address struct {
			City     *string `json:"city"`
			State    *string `json:"state"`
			Postcode *string `json:"postcode"`
		} `json:"address"`
	} `json:"contact"`
	PublishedAt string   `json:"published_at"`
	Distance    *float64 `json:"distance"`
}

// toListing extracts a Listing field by field, rejecting records without identity or name.
func toListing(raw json.RawMessage, zip string) (domain.Listing, error) {
	var rec animalRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Listing{}, &domain.ParseError{Op: "decode animal", Err: err}
	}
	if rec.ID == 0 {
		return domain.Listing{}, fmt.Errorf("animal: id: %w", errMissingField)
	}
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return domain.Listing{}, fmt.Errorf("animal %d: name: %w", rec.ID, errMissingField)
	}

	listing := domain.Listing{
		ID:           IDPrefix + strconv.FormatInt(rec.ID, 10),
		Name:         name,
		Breeds:       breedNames(rec.Breeds.Primary, rec.Breeds.Secondary),
		Age:          strings.TrimSpace(rec.Age),
		Size:         strings.TrimSpace(rec.Size),
		Sex:          strings.TrimSpace(rec.Gender),
		Zip:          zip,
		Location:     location(deref(rec.Contact.Address.City), deref(rec.Contact.Address.State), deref(rec.Contact.Address.Postcode)),
		Description:  plainText(deref(rec.Description)),
		URL:          strings.TrimSpace(rec.URL),
		ContactEmail: strings.TrimSpace(deref(rec.Contact.Email)),
		ContactPhone: strings.TrimSpace(deref(rec.Contact.Phone)),
		PublishedAt:  parsePublished(rec.PublishedAt),
		Flags: domain.Flags{
			HouseTrained:   rec.Attributes.HouseTrained,
			SpayedNeutered: rec.Attributes.SpayedNeutered,
			ShotsCurrent:   rec.Attributes.ShotsCurrent,
			SpecialNeeds:   rec.Attributes.SpecialNeeds,
			GoodWithKids:   rec.Environment.Children,
			GoodWithDogs:   rec.Environment.Dogs,
			GoodWithCats:   rec.Environment.Cats,
		},
		Raw: append(json.RawMessage(nil), raw...),
	}
	if rec.Distance != nil {
		listing.Distance = *rec.Distance
	}

	for _, p := range rec.Photos {
		if u := firstNonEmpty(p.Full, p.Large, p.Medium, p.Small); u != "" {
			listing.PhotoURLs = append(listing.PhotoURLs, u)
		}
	}
	for _, v := range rec.Videos {
		if u := videoURL(v.URL, v.Embed); u != "" {
			listing.VideoURLs = append(listing.VideoURLs, u)
		}
	}

	return listing, nil
}

// publishedAt reads only the timestamp of a raw record; used to decide whether to keep paging.
func publishedAt(raw json.RawMessage) time.Time {
	var rec struct {
		PublishedAt string `json:"published_at"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return time.Time{}
	}
	return parsePublished(rec.PublishedAt)
}

func parsePublished(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func breedNames(values ...*string) []string {
	var names []string
	for _, v := range values {
		if name := strings.TrimSpace(deref(v)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// plainText strips markup and entities and collapses whitespace.
func plainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// videoURL prefers an explicit url, then the src of an embedded iframe.
func videoURL(direct, embed string) string {
	if direct = strings.TrimSpace(direct); direct != "" {
		return direct
	}
	embed = strings.TrimSpace(embed)
	if embed == "" {
		return ""
	}
	if strings.HasPrefix(embed, "http://") || strings.HasPrefix(embed, "https://") {
		return embed
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(embed))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("iframe").First().Attr("src")
	return strings.TrimSpace(src)
}

func location(city, state, postcode string) string {
	var parts []string
	if city = strings.TrimSpace(city); city != "" {
		parts = append(parts, city)
	}
	region := strings.TrimSpace(strings.TrimSpace(state) + " " + strings.TrimSpace(postcode))
	if region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
