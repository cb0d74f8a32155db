package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"fonttrack/internal/ft"
)

// HTTPError is a non-2xx response from the catalog.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// Temporary reports whether the request may succeed if sent again.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPClient talks to the catalog's REST API:
//
//	POST   /font/               create one record
//	PUT    /font/               update one record
//	DELETE /font/               delete one record (record in the body)
//	POST   /fonts-upsert/       bulk upsert
//	POST   /fonts-query/        list records matching a query (?skip=&limit=)
//
// Network errors, 429 and 5xx responses are retried with exponential backoff.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithMaxRetries sets how many times a failed request is re-sent.
func WithMaxRetries(n int) Option {
	return func(c *HTTPClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRateLimit paces requests to at most rps per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *HTTPClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithBackoff sets the first retry delay and the cap on later ones.
func WithBackoff(base, max time.Duration) Option {
	return func(c *HTTPClient) {
		c.baseDelay = base
		c.maxDelay = max
	}
}

func NewHTTPClient(baseURL string, httpClient *http.Client, opts ...Option) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	c := &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create adds one record. When an earlier attempt failed in a way that may
// have reached the catalog and a resend then gets 409, the first attempt was
// committed and Create succeeds.
func (c *HTTPClient) Create(ctx context.Context, rec ft.FontRecord) error {
	uncertain, err := c.send(ctx, http.MethodPost, "/font/", encodeRecord(rec), nil)
	var httpErr *HTTPError
	if uncertain && errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusConflict {
		return nil
	}
	return err
}

func (c *HTTPClient) Update(ctx context.Context, rec ft.FontRecord) error {
	return c.doJSON(ctx, http.MethodPut, "/font/", encodeRecord(rec), nil)
}

func (c *HTTPClient) Delete(ctx context.Context, rec ft.FontRecord) error {
	return c.doJSON(ctx, http.MethodDelete, "/font/", encodeRecord(rec), nil)
}

func (c *HTTPClient) UpsertMany(ctx context.Context, recs []ft.FontRecord) error {
	return c.doJSON(ctx, http.MethodPost, "/fonts-upsert/", encodeRecords(recs), nil)
}

// Query lists records matching q. A limit of 0 leaves paging to the server.
func (c *HTTPClient) Query(ctx context.Context, q ft.FontQuery, skip, limit int) ([]ft.FontRecord, error) {
	params := url.Values{}
	if skip > 0 {
		params.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/fonts-query/"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var raw []map[string]any
	if err := c.doJSON(ctx, http.MethodPost, path, encodeQuery(q), &raw); err != nil {
		return nil, err
	}
	recs := make([]ft.FontRecord, 0, len(raw))
	for _, r := range raw {
		recs = append(recs, decodeRecord(r))
	}
	return recs, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, requestPath string, body any, out any) error {
	_, err := c.send(ctx, method, requestPath, body, out)
	return err
}

// send performs the request with retries. uncertain is true once an attempt
// ended in a transport error or a 5xx, either of which may follow a commit.
func (c *HTTPClient) send(ctx context.Context, method, requestPath string, body any, out any) (uncertain bool, err error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encoding request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return uncertain, err
			}
		}

		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return uncertain, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() == nil && attempt < c.maxRetries {
				uncertain = true
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return uncertain, waitErr
				}
				continue
			}
			return uncertain, fmt.Errorf("%s %s: %w", method, requestPath, err)
		}
		payload, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return uncertain, fmt.Errorf("reading response: %w", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(payload) == 0 {
				return uncertain, nil
			}
			if err := json.Unmarshal(payload, out); err != nil {
				return uncertain, fmt.Errorf("decoding response: %w", err)
			}
			return uncertain, nil
		}

		httpErr := &HTTPError{StatusCode: resp.StatusCode, Detail: errorDetail(payload)}
		if httpErr.Temporary() && attempt < c.maxRetries {
			if resp.StatusCode >= 500 {
				uncertain = true
			}
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return uncertain, waitErr
			}
			continue
		}
		return uncertain, httpErr
	}
}

// errorDetail extracts {"detail": ...} from an error body. The detail may be
// a string or a list of validation errors; anything else is returned as text.
func errorDetail(payload []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(payload))
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	return string(body.Detail)
}

func (c *HTTPClient) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	maxDelay := c.maxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		return min(retryAfter, maxDelay)
	}
	delay := c.baseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return min(delay, maxDelay)
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if ts, err := http.ParseTime(header); err == nil {
		if delta := time.Until(ts); delta > 0 {
			return delta
		}
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var (
	_ ft.Catalog       = (*HTTPClient)(nil)
	_ ft.CatalogReader = (*HTTPClient)(nil)
)
