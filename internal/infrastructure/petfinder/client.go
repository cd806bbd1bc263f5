package petfinder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"DogDigest/internal/config"
	"DogDigest/internal/domain"
	"DogDigest/internal/ports"
	"DogDigest/pkg/retry"
)

// Client pages through the Petfinder animals endpoint.
type Client struct {
	animalsURL string
	http       *http.Client
	retry      retry.Config
	pageDelay  time.Duration
	logger     *slog.Logger
}

var _ ports.ListingSource = (*Client)(nil)

// NewClient builds a client whose HTTP transport acquires and caches
// client-credentials tokens. ctx bounds token requests.
func NewClient(ctx context.Context, cfg config.PetfinderConfig, logger *slog.Logger) *Client {
	base := &http.Client{Timeout: cfg.Timeout}
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	httpClient := creds.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	httpClient.Timeout = cfg.Timeout

	return newClient(httpClient, cfg, logger)
}

func newClient(httpClient *http.Client, cfg config.PetfinderConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		animalsURL: cfg.AnimalsURL,
		http:       httpClient,
		pageDelay:  cfg.PageDelay,
		logger:     logger,
		retry: retry.Config{
			Attempts:  cfg.RetryAttempts,
			BaseDelay: cfg.RetryBackoff,
			Retryable: domain.IsTransient,
			Logger:    logger,
		},
	}
}

// Search lazily yields the listings of one zip code, page by page. Paging stops
// when the source runs out of pages, when a page ends before q.PublishedAfter,
// or at q.MaxPages, in which case a final *domain.ExhaustionError is yielded.
// Records missing required fields are logged and skipped.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) iter.Seq2[domain.Listing, error] {
	return func(yield func(domain.Listing, error) bool) {
		page := max(q.Page, 1)
		for fetched := 0; ; fetched++ {
			if q.MaxPages > 0 && fetched >= q.MaxPages {
				yield(domain.Listing{}, &domain.ExhaustionError{Zip: q.Zip, Pages: fetched})
				return
			}
			if fetched > 0 {
				if err := sleep(ctx, c.pageDelay); err != nil {
					yield(domain.Listing{}, err)
					return
				}
			}

			result, err := c.fetchPage(ctx, q, page)
			if err != nil {
				yield(domain.Listing{}, fmt.Errorf("zip %s page %d: %w", q.Zip, page, err))
				return
			}
			if len(result.Animals) == 0 {
				return
			}

			for _, raw := range result.Animals {
				listing, err := toListing(raw, q.Zip)
				if err != nil {
					c.logger.Warn("rejecting animal record", "zip", q.Zip, "page", page, "error", err)
					continue
				}
				if !yield(listing, nil) {
					return
				}
			}

			c.logger.Debug("page fetched", "zip", q.Zip, "page", page, "total_pages", result.Pagination.TotalPages, "animals", len(result.Animals))

			if page >= result.Pagination.TotalPages {
				return
			}
			last := publishedAt(result.Animals[len(result.Animals)-1])
			if !q.PublishedAfter.IsZero() && !last.IsZero() && last.Before(q.PublishedAfter) {
				return
			}
			page++
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, q domain.SearchQuery, page int) (animalsPage, error) {
	pageURL, err := buildPageURL(c.animalsURL, q, page)
	if err != nil {
		return animalsPage{}, err
	}

	var result animalsPage
	err = c.retry.Do(ctx, "petfinder animals", func(ctx context.Context) error {
		result = animalsPage{}
		return c.get(ctx, pageURL, &result)
	})
	return result, err
}

func (c *Client) get(ctx context.Context, pageURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "DogDigest/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.TransportError{Op: "petfinder request", Transient: transientNetErr(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.TransportError{
			Op:        "petfinder request",
			Status:    resp.StatusCode,
			Transient: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError,
			Err:       errors.New(strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &domain.ParseError{Op: "petfinder animals", Err: err}
	}
	return nil
}

// transientNetErr treats plain network failures as retryable, but not token
// rejections or a cancelled run.
func transientNetErr(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var authErr *oauth2.RetrieveError
	return !errors.As(err, &authErr)
}

func buildPageURL(base string, q domain.SearchQuery, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid animals url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("type", q.Species)
	query.Set("status", "adoptable")
	query.Set("location", q.Zip)
	if q.DistanceMiles > 0 {
		query.Set("distance", strconv.Itoa(q.DistanceMiles))
	}
	if len(q.Ages) > 0 {
		query.Set("age", strings.Join(q.Ages, ","))
	}
	query.Set("sort", "recent")
	if q.PageSize > 0 {
		query.Set("limit", strconv.Itoa(q.PageSize))
	}
	query.Set("page", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
