package feed

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnreachable reports that the feed source could not be fetched.
var ErrUnreachable = errors.New("feed source unreachable")

// Fetcher downloads feed documents over HTTP
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a fetcher with a bounded timeout and response size
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads and parses the feed at url
func (f *Fetcher) Fetch(url string) (*Document, error) {
	resp, err := f.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return Parse(body)
}
