// Package openlibrary is a small, rate-limited client for the Open Library
// catalogue API.
//
// Every request waits on a limiter that allows one call per configured delay,
// so a fetch run never hammers the remote service. Requests are plain GETs;
// retries are off unless RetryMax is set. Failed requests never return
// partial data.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Default client settings.
const (
	DefaultBaseURL   = "https://openlibrary.org"
	DefaultDelay     = time.Second
	DefaultTimeout   = 30 * time.Second
	DefaultPageSize  = 50
	DefaultUserAgent = "libingest/1.0"

	// maxBodySize caps a single response body.
	maxBodySize = 16 << 20
)

// Config holds client settings. Zero values fall back to the defaults.
type Config struct {
	BaseURL        string
	RateLimitDelay time.Duration // Minimum spacing between requests; negative disables limiting
	Timeout        time.Duration
	RetryMax       int
	UserAgent      string
	PageSize       int
	Logger         *slog.Logger
}

// Client talks to the Open Library API. It is safe for sequential use by a
// single run.
type Client struct {
	baseURL   string
	userAgent string
	pageSize  int
	http      *retryablehttp.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New creates a client from cfg.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	limit := rate.Every(cfg.RateLimitDelay)
	switch {
	case cfg.RateLimitDelay < 0:
		limit = rate.Inf
	case cfg.RateLimitDelay == 0:
		limit = rate.Every(DefaultDelay)
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = cfg.RetryMax
	hc.HTTPClient.Timeout = cfg.Timeout
	hc.Logger = cfg.Logger
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		pageSize:  cfg.PageSize,
		http:      hc,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    cfg.Logger,
	}
}

// SearchAuthor returns the first author matching name.
func (c *Client) SearchAuthor(ctx context.Context, name string) (Author, error) {
	var resp searchAuthorsResponse
	q := url.Values{"q": {name}}
	if _, err := c.getJSON(ctx, "search author", "/search/authors.json", q, &resp); err != nil {
		return Author{}, err
	}
	if len(resp.Docs) == 0 || resp.Docs[0].Key == "" {
		return Author{}, fmt.Errorf("author %q: %w", name, ErrNotFound)
	}
	return resp.Docs[0], nil
}

// Works returns a lazy sequence over all works of the author, fetching one
// page per step. Iteration stops after the first error.
func (c *Client) Works(ctx context.Context, authorKey string) iter.Seq2[WorkSummary, error] {
	path := "/authors/" + url.PathEscape(AuthorID(authorKey)) + "/works.json"

	return func(yield func(WorkSummary, error) bool) {
		for offset := 0; ; {
			var page worksPage
			q := url.Values{
				"limit":  {strconv.Itoa(c.pageSize)},
				"offset": {strconv.Itoa(offset)},
			}
			if _, err := c.getJSON(ctx, "list works", path, q, &page); err != nil {
				yield(WorkSummary{}, err)
				return
			}

			for _, w := range page.Entries {
				if !yield(w, nil) {
					return
				}
			}

			offset += len(page.Entries)
			if len(page.Entries) == 0 || len(page.Entries) < c.pageSize || (page.Size > 0 && offset >= page.Size) {
				return
			}
		}
	}
}

// AuthorWorks returns up to limit works of the author. A limit of zero or
// less returns every work.
func (c *Client) AuthorWorks(ctx context.Context, authorKey string, limit int) ([]WorkSummary, error) {
	var works []WorkSummary
	for w, err := range c.Works(ctx, authorKey) {
		if err != nil {
			return nil, err
		}
		works = append(works, w)
		if limit > 0 && len(works) >= limit {
			break
		}
	}
	return works, nil
}

// Work fetches the detail document of a work. workKey may be a full key
// ("/works/OL45804W") or a bare identifier.
func (c *Client) Work(ctx context.Context, workKey string) (Work, error) {
	var w Work
	raw, err := c.getJSON(ctx, "get work", "/works/"+url.PathEscape(WorkID(workKey))+".json", nil, &w)
	if err != nil {
		return Work{}, err
	}
	w.Raw = raw
	return w, nil
}

// Editions returns the first page of editions of a work in remote order.
func (c *Client) Editions(ctx context.Context, workID string) ([]Edition, error) {
	var page editionsPage
	path := "/works/" + url.PathEscape(WorkID(workID)) + "/editions.json"
	if _, err := c.getJSON(ctx, "list editions", path, nil, &page); err != nil {
		return nil, err
	}
	return page.Entries, nil
}

// getJSON performs a rate-limited GET and decodes the body into dst. The raw
// body is returned for callers that keep the payload.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, dst any) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &NetworkError{Op: op, URL: u, Err: err}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &NetworkError{Op: op, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "open library request",
		"op", op,
		"url", u,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &NetworkError{Op: op, URL: u, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{Op: op, URL: u, Err: err}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return nil, &NetworkError{Op: op, URL: u, Err: fmt.Errorf("decode response: %w", err)}
	}
	return body, nil
}
