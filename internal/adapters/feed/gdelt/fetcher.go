package gdelt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	perr "driftwatch/internal/platform/errors"
)

const baseURL = "http://data.gdeltproject.org/gdeltv2"

// ErrNotPublished marks an interval whose archive the feed does not serve.
// The caller decides whether that means "not yet published" or a permanent gap
var ErrNotPublished = perr.NotFoundf("gdelt: interval not published")

// Fetcher fetches the zipped export archive for a given interval
type Fetcher interface {
	Fetch(ctx context.Context, iv IntervalRef) (io.ReadCloser, error)
}

// HTTPFetcher fetches directly from data.gdeltproject.org
type HTTPFetcher struct {
	Client *http.Client
	Base   string // override for tests, defaults to the public feed
}

// NewHTTPFetcherWithTimeout creates a new HTTPFetcher with default settings
func NewHTTPFetcherWithTimeout(d time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: d}}
}

// Fetch returns a reader for the export zip for the given interval.
// A 404 maps to ErrNotPublished; transport failures and 5xx map to a
// retryable unavailable error
func (f *HTTPFetcher) Fetch(ctx context.Context, iv IntervalRef) (io.ReadCloser, error) {
	base := f.Base
	if base == "" {
		base = baseURL
	}
	url := fmt.Sprintf("%s/%s.export.CSV.zip", base, iv.Stamp())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, perr.Unavailablef("gdelt: fetch %s: %v", url, err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound:
		closeBody(resp.Body)
		return nil, ErrNotPublished
	case resp.StatusCode >= 500:
		closeBody(resp.Body)
		return nil, perr.Unavailablef("gdelt: status %d for %s", resp.StatusCode, url)
	default:
		closeBody(resp.Body)
		return nil, perr.Newf(perr.ErrorCodeUnknown, "gdelt: unexpected status %d for %s", resp.StatusCode, url)
	}
}

func closeBody(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 4096))
	_ = rc.Close()
}
