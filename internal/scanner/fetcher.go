package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Meet-BS/form-scanner-poc/internal/config"
	"github.com/Meet-BS/form-scanner-poc/internal/domain"
)

var errTooManyRedirects = errors.New("too many redirects")

// Fetcher retrieves a single URL's body over HTTP with a bounded timeout
// and redirect limit. Failures propagate to the caller, which decides
// whether they are fatal (main document) or tolerable (iframe). No retries
// happen at this layer.
type Fetcher struct {
	client      *http.Client
	maxBodySize int64
}

// browserHeaders is the fixed identifying header set sent with every fetch.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 FormScanner/1.0",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// NewFetcher creates a Fetcher from config.
func NewFetcher(cfg config.FetcherConfig) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 5
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 10 << 20
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= cfg.MaxRedirects {
					return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, cfg.MaxRedirects)
				}
				return nil
			},
		},
		maxBodySize: cfg.MaxBodySize,
	}
}

// Fetch retrieves the page at the given URL and returns its body as text.
// Non-2xx statuses return a FETCH_ERROR; an exceeded time bound returns a
// TIMEOUT_ERROR.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", domain.ErrFetch(targetURL, 0, "invalid request").WithCause(err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", domain.ErrTimeout(targetURL, err)
		}
		return "", domain.ErrFetch(targetURL, 0, "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.ErrFetch(targetURL, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	// Cap the body to guard against unbounded responses.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		if isTimeout(err) {
			return "", domain.ErrTimeout(targetURL, err)
		}
		return "", domain.ErrFetch(targetURL, resp.StatusCode, "reading body").WithCause(err)
	}

	return string(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
