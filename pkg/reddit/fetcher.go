package reddit

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	apperrors "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
)

// ListingClient fetches one page of a listing
type ListingClient interface {
	GetListing(ctx context.Context, pageURL string) (*Listing, http.Header, error)
}

// QuotaGate is the limiter the fetcher consults before and updates after
// every page request.
type QuotaGate interface {
	Wait(ctx context.Context) error
	Update(header http.Header)
}

// ExhaustedPolicy decides what happens when the listing runs out of pages
// before the limit is reached.
type ExhaustedPolicy string

const (
	// ExhaustedStop returns what was fetched without an error
	ExhaustedStop ExhaustedPolicy = "stop"
	// ExhaustedError returns what was fetched together with ErrListingExhausted
	ExhaustedError ExhaustedPolicy = "error"
)

// ParseExhaustedPolicy maps a configuration value to a policy, defaulting
// to ExhaustedStop.
func ParseExhaustedPolicy(s string) ExhaustedPolicy {
	if ExhaustedPolicy(strings.ToLower(strings.TrimSpace(s))) == ExhaustedError {
		return ExhaustedError
	}
	return ExhaustedStop
}

// FetcherOptions configures a Fetcher
type FetcherOptions struct {
	BaseURL   string
	Username  string
	PageSize  int
	Limit     int
	Exhausted ExhaustedPolicy
}

// Fetcher walks a user's saved listing until Limit items were seen
type Fetcher struct {
	client  ListingClient
	limiter QuotaGate
	opts    FetcherOptions
	logger  logger.Logger
}

// NewFetcher creates a fetcher. PageSize is clamped to [1, MaxPageSize].
func NewFetcher(client ListingClient, limiter QuotaGate, opts FetcherOptions, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Exhausted == "" {
		opts.Exhausted = ExhaustedStop
	}
	opts.PageSize = ClampPageSize(opts.PageSize)

	return &Fetcher{
		client:  client,
		limiter: limiter,
		opts:    opts,
		logger:  log.WithFields(map[string]interface{}{"component": "fetcher", "username": opts.Username}),
	}
}

// FetchSaved returns up to Limit saved links in server order. Limit counts
// every listing child, comments included, so fewer records than Limit may
// come back even when the listing has more pages.
//
// A transport failure, non-2xx status or malformed page aborts the fetch and
// returns no records. Entries that fail to decode are logged and skipped.
func (f *Fetcher) FetchSaved(ctx context.Context) ([]*SavedRecord, error) {
	records := []*SavedRecord{}
	if f.opts.Limit <= 0 {
		return records, nil
	}

	fetched := 0
	cursor := ""
	for fetched < f.opts.Limit {
		requestSize := min(f.opts.PageSize, f.opts.Limit-fetched)

		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		pageURL := SavedURL(f.opts.BaseURL, f.opts.Username, requestSize, cursor)
		listing, header, err := f.client.GetListing(ctx, pageURL)
		if header != nil {
			f.limiter.Update(header)
		}
		if err != nil {
			return nil, fmt.Errorf("fetching saved page after %q: %w", cursor, err)
		}

		children := listing.Data.Children
		for _, child := range children {
			// A page larger than requested is consumed whole unless it
			// crosses Limit, which also ends the loop.
			if fetched >= f.opts.Limit {
				break
			}
			fetched++
			if child.Kind != ThingLink {
				f.logger.WithField("kind", child.Kind).Debug("Skipping non-link saved item")
				continue
			}
			rec, err := DecodeRecord(child.Data)
			if err != nil {
				f.logger.WithError(err).Warn("Failed to parse saved link")
				continue
			}
			f.logger.WithFields(map[string]interface{}{
				"record_id": rec.ID,
				"title":     rec.Title,
				"media":     string(rec.Media.Kind()),
			}).Info("Fetched saved post")
			records = append(records, rec)
		}

		logger.LogFetchProgress(f.logger, f.opts.Username, fetched, f.opts.Limit)

		cursor = listing.Data.NextCursor()
		if fetched < f.opts.Limit && (cursor == "" || len(children) == 0) {
			return f.exhausted(records, fetched)
		}
	}

	return records, nil
}

func (f *Fetcher) exhausted(records []*SavedRecord, fetched int) ([]*SavedRecord, error) {
	f.logger.WithFields(map[string]interface{}{
		"fetched": fetched,
		"limit":   f.opts.Limit,
		"policy":  string(f.opts.Exhausted),
	}).Info("Saved listing exhausted")

	if f.opts.Exhausted == ExhaustedError {
		return records, apperrors.ErrListingExhausted
	}
	return records, nil
}
