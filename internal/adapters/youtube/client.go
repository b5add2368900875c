// Package youtube is the YouTube Data API v3 content provider: a rate limited,
// retrying HTTP client plus the four lookups the session workers need
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "tubelytics/internal/platform/errors"
	"tubelytics/internal/platform/logger"
	"tubelytics/internal/platform/metrics"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

const (
	baseURLDefault   = "https://www.googleapis.com/youtube/v3"
	defaultTimeout   = 10 * time.Second
	defaultMaxRetry  = 3
	defaultRetryBase = 500 * time.Millisecond
	defaultRPS       = 5
	defaultBurst     = 10
	maxBodyBytes     = 4 << 20
)

// Options configures the Client
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RPS and Burst bound outgoing calls across every session in the process
	RPS   float64
	Burst int

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration

	// EnrichTags attaches tags to search results with one extra videos call
	EnrichTags bool

	Metrics    *metrics.Metrics
	HTTPClient *http.Client
}

// Client talks to the Data API. It is safe for concurrent use
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewClient creates a new Client with defaults filled in
func NewClient(o Options) *Client {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RPS <= 0 {
		o.RPS = defaultRPS
	}
	if o.Burst <= 0 {
		o.Burst = defaultBurst
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	return &Client{
		http:    hc,
		opts:    o,
		limiter: rate.NewLimiter(rate.Limit(o.RPS), o.Burst),
		log:     *logger.Named("youtube"),
		metrics: o.Metrics,
	}
}

// get issues GET base+path?query&key=..., retrying transient failures with
// exponential backoff, and decodes a 200 body into out
func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	if c.opts.APIKey != "" {
		q.Set("key", c.opts.APIKey)
	}
	endpoint := c.opts.BaseURL + path + "?" + q.Encode()

	start := time.Now()
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, backoff.Permanent(perr.Wrap(err, perr.ErrorCodeTooManyRequests, "youtube rate limiter"))
		}
		err := c.once(ctx, op, endpoint, attempt, out)
		var q *quotaError
		if errors.As(err, &q) {
			return struct{}{}, backoff.Permanent(q.err)
		}
		if err != nil && !perr.Retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.RetryBase
	bo.MaxInterval = 30 * time.Second

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.opts.MaxRetries)+1),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.log.Warn().Err(err).Str("op", op).Dur("retry_in", d).Int("attempt", attempt).Msg("youtube call failed, retrying")
		}),
	)
	c.metrics.ProviderCall(op, err, time.Since(start))
	if err != nil {
		if _, ok := perr.As(err); !ok {
			err = perr.Wrap(err, perr.ErrorCodeUnavailable, "youtube request failed")
		}
		return perr.WithOp(err, "youtube."+op)
	}
	return nil
}

func (c *Client) once(ctx context.Context, op, endpoint string, attempt int, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "youtube new request failed")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "youtube transport error")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("op", op).Msg("youtube close body failed")
		}
	}()

	c.log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Int("attempt", attempt).
		Dur("latency", time.Since(start)).
		Msg("youtube http response")

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "youtube read body failed")
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "youtube decode failed")
	}
	return nil
}

// quotaError marks a rate limit that waiting a few seconds will not fix
type quotaError struct{ err error }

func (q *quotaError) Error() string { return q.err.Error() }
func (q *quotaError) Unwrap() error { return q.err }

// statusError maps a non-200 response to a coded error. 429 and 5xx are
// retryable; 403 is usually an exhausted daily quota and is not
func statusError(status int, body []byte) error {
	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return perr.Newf(perr.ErrorCodeTooManyRequests, "youtube rate limited: %s", msg)
	case status == http.StatusForbidden:
		reason := apiErr.reason()
		if reason == "" {
			reason = "forbidden"
		}
		return &quotaError{perr.Newf(perr.ErrorCodeTooManyRequests, "youtube quota exhausted (%s): %s", reason, msg)}
	case status == http.StatusNotFound:
		return perr.NotFoundf("youtube: %s", msg)
	case status >= 500:
		return perr.Unavailablef("youtube server error %d: %s", status, msg)
	default:
		return perr.InvalidArgf("youtube status %d: %s", status, msg)
	}
}
