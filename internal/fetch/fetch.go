// Package fetch is the HTTP capability used by the crawlers: browser-like
// GET requests, JSON POSTs, retries, charset conversion, bot-challenge
// detection and cache-backed rate-limit blocks.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"sjsage522/clubticketworker/helpers"
	"sjsage522/clubticketworker/logger"
	pkgerrors "sjsage522/clubticketworker/pkg/errors"
	"sjsage522/clubticketworker/services/cache"
)

// StatusRateLimited is the non-standard status some edges use next to 429
const StatusRateLimited = 430

// Fetcher is what the crawlers need from the network.
type Fetcher interface {
	// Fetch returns the UTF-8 body of a page.
	Fetch(ctx context.Context, rawURL string) (string, error)
	// PostJSON sends body as JSON and decodes the JSON answer into out.
	PostJSON(ctx context.Context, rawURL string, body interface{}, out interface{}) error
}

// Options configures a Client
type Options struct {
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
	BlockTime  time.Duration
	Cache      cache.CacheService
}

// Client implements Fetcher on top of resty.
type Client struct {
	http      *resty.Client
	cache     cache.CacheService
	blockTime time.Duration
	log       *logger.Logger
}

// New creates a client. A nil cache disables rate-limit blocks.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}

	httpClient := resty.New()
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetRetryCount(opts.RetryCount)
	httpClient.SetRetryWaitTime(opts.RetryWait)
	httpClient.SetRetryMaxWaitTime(4 * opts.RetryWait)
	httpClient.AddRetryCondition(shouldRetry)

	return &Client{
		http:      httpClient,
		cache:     opts.Cache,
		blockTime: opts.BlockTime,
		log:       logger.ForFetch(),
	}
}

// Fetch implements Fetcher
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return "", err
	}
	if err := c.checkBlocked(host); err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(helpers.RandomHeaders()).
		Get(rawURL)
	if err != nil {
		return "", pkgerrors.NewNetwork(host, "request "+rawURL, err)
	}
	if err := c.checkStatus(host, rawURL, resp); err != nil {
		return "", err
	}

	body, err := helpers.ToUTF8(resp.Body(), resp.Header().Get("Content-Type"))
	if err != nil {
		return "", pkgerrors.NewParsing(host, "decode "+rawURL, err)
	}

	html := string(body)
	if LooksLikeVerification(html) {
		c.log.Warn().Str("url", rawURL).Msg("verification page served")
		return "", pkgerrors.NewVerification(host, rawURL)
	}

	c.log.Debug().Str("url", rawURL).Int("bytes", len(body)).Msg("fetched")
	return html, nil
}

// PostJSON implements Fetcher
func (c *Client) PostJSON(ctx context.Context, rawURL string, body interface{}, out interface{}) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	if err := c.checkBlocked(host); err != nil {
		return err
	}

	headers := helpers.RandomHeaders()
	headers["Accept"] = "application/json"
	headers["Content-Type"] = "application/json"

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		Post(rawURL)
	if err != nil {
		return pkgerrors.NewNetwork(host, "post "+rawURL, err)
	}
	if err := c.checkStatus(host, rawURL, resp); err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		if LooksLikeVerification(string(resp.Body())) {
			return pkgerrors.NewVerification(host, rawURL)
		}
		return pkgerrors.NewParsing(host, "decode "+rawURL, err)
	}
	return nil
}

func (c *Client) checkBlocked(host string) error {
	if c.cache == nil {
		return nil
	}
	if _, err := c.cache.Get(blockKey(host)); err == nil {
		return pkgerrors.NewRateLimit(host, c.blockTime)
	}
	return nil
}

func (c *Client) checkStatus(host, rawURL string, resp *resty.Response) error {
	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests || code == StatusRateLimited:
		c.block(host, resp.Header().Get("Retry-After"))
		return pkgerrors.NewRateLimit(host, c.blockTime)
	case code != http.StatusOK:
		return pkgerrors.NewNetwork(host, fmt.Sprintf("fetch %s unexpected status code: %d", rawURL, code), nil)
	}
	return nil
}

// shouldRetry retries transport failures and server errors. Rate limits
// are not retried: the host gets blocked instead.
func shouldRetry(resp *resty.Response, err error) bool {
	var attempt *pkgerrors.ScrapeError
	switch {
	case err != nil:
		attempt = pkgerrors.NewNetwork("", "request", err)
	case resp == nil:
		return false
	case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() == StatusRateLimited:
		attempt = pkgerrors.NewRateLimit("", 0)
	case resp.StatusCode() >= http.StatusInternalServerError:
		attempt = pkgerrors.NewNetwork("", fmt.Sprintf("status %d", resp.StatusCode()), nil)
	default:
		return false
	}
	return attempt.IsRetryable()
}

func (c *Client) block(host, retryAfter string) {
	if c.cache == nil || c.blockTime <= 0 {
		return
	}
	value := strconv.Itoa(int(c.blockTime / time.Second))
	if err := c.cache.Set(blockKey(host), []byte(value), c.blockTime); err != nil {
		c.log.Warn().Err(err).Str("host", host).Msg("failed to store rate-limit block")
		return
	}
	c.log.Warn().Str("host", host).Str("retry_after", retryAfter).Dur("block", c.blockTime).Msg("rate limited, host blocked")
}

func blockKey(host string) string {
	return "ratelimit:" + host
}

// hostOf returns the host of an absolute http(s) URL
func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", pkgerrors.NewValidation(rawURL, "not an absolute http url")
	}
	return u.Host, nil
}

var verificationMarkers = []string{
	"attention required!",
	"just a moment...",
	"hcaptcha",
	"data-sitekey",
	"cf-chl-",
	"why did this happen?",
}

// LooksLikeVerification reports whether html is a bot-challenge page.
func LooksLikeVerification(html string) bool {
	h := strings.ToLower(html)
	for _, marker := range verificationMarkers {
		if strings.Contains(h, marker) {
			return true
		}
	}
	return false
}
