package setlist

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

// Fetcher downloads setlist pages over HTTP.
type Fetcher struct {
	client *resty.Client
	logger *log.Logger
}

// FetcherOpts configures a [Fetcher].
type FetcherOpts struct {
	UserAgent string
	Timeout   time.Duration
	Logger    *log.Logger
}

// NewFetcher returns a Fetcher with the given user agent and timeout.
func NewFetcher(opts FetcherOpts) *Fetcher {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "text/html")
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	return &Fetcher{client: client, logger: opts.Logger}
}

// FetchPage returns the body of the page at rawURL. Only http and https URLs are accepted.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", shared.ErrInvalidArgument, rawURL)
	}

	f.logger.Debug("fetching setlist page", "url", rawURL)

	resp, err := f.client.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", shared.ErrFetchFailed, shared.ErrTransport, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrFetchFailed, rawURL, resp.StatusCode())
	}

	return resp.Body(), nil
}

// Load fetches and parses the page at rawURL.
func (f *Fetcher) Load(ctx context.Context, rawURL string) (*models.SetlistPage, error) {
	body, err := f.FetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	page, err := Parse(body)
	if err != nil {
		return nil, err
	}
	page.URL = rawURL

	f.logger.Info("parsed setlist", "artist", page.Artist, "songs", len(page.RawTitles))
	return page, nil
}
