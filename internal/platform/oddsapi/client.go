// Package oddsapi is a REST client for The Odds API v4 odds endpoint.
package oddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// DefaultBaseURL is the public v4 API root.
const DefaultBaseURL = "https://api.the-odds-api.com/v4"

const maxBodyBytes = 16 << 20

// Client fetches decimal-odds snapshots per sport key. Requests share one
// token-bucket limiter so concurrent competition fetches stay within the
// provider's pacing.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu    sync.RWMutex
	quota Quota
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit paces requests to rps per second with the given burst. A
// non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates an odds client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 25 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "oddsapi"))
	return c
}

// FetchOdds returns every event the provider lists for q.SportKey with
// decimal prices for the requested regions and markets.
func (c *Client) FetchOdds(ctx context.Context, q domain.OddsQuery) ([]domain.Event, error) {
	if strings.TrimSpace(q.SportKey) == "" {
		return nil, errors.New("oddsapi: sport key is required")
	}
	markets := q.Markets
	if len(markets) == 0 {
		markets = []string{"h2h"}
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", strings.Join(q.Regions, ","))
	params.Set("markets", strings.Join(markets, ","))
	params.Set("oddsFormat", "decimal")
	params.Set("dateFormat", "iso")

	path := fmt.Sprintf("/sports/%s/odds?%s", url.PathEscape(q.SportKey), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("oddsapi: fetch %s: %w", q.SportKey, err)
	}

	var apiEvents []APIEvent
	if err := json.Unmarshal(body, &apiEvents); err != nil {
		return nil, fmt.Errorf("oddsapi: decode %s: %w", q.SportKey, err)
	}

	events := make([]domain.Event, 0, len(apiEvents))
	for i := range apiEvents {
		events = append(events, apiEvents[i].ToDomainEvent())
	}
	return events, nil
}

// Quota returns the allowance reported by the most recent response.
func (c *Client) Quota() Quota {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.quota
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the API key.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.recordQuota(resp.Header)

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) recordQuota(h http.Header) {
	rem, errRem := strconv.Atoi(strings.TrimSpace(h.Get("x-requests-remaining")))
	if errRem != nil {
		return
	}
	used, _ := strconv.Atoi(strings.TrimSpace(h.Get("x-requests-used")))
	last, _ := strconv.Atoi(strings.TrimSpace(h.Get("x-requests-last")))

	c.mu.Lock()
	c.quota = Quota{Remaining: rem, Used: used, Last: last, UpdatedAt: time.Now().UTC()}
	c.mu.Unlock()

	c.logger.Debug("odds quota", slog.Int("remaining", rem), slog.Int("used", used))
}

// checkHTTPStatus maps provider status codes onto domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}

var _ domain.OddsSource = (*Client)(nil)
