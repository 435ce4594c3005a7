// Package events proxies the Ticketmaster Discovery API behind a bounded
// TTL cache, keeping upstream traffic well under the free-tier quota.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/nearbyapp/nearby-server/internal/config"
	apperrors "github.com/nearbyapp/nearby-server/internal/errors"
	"github.com/nearbyapp/nearby-server/internal/logger"
)

const defaultPageSize = 20

// Client fetches events from the Ticketmaster Discovery API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *logger.Logger

	baseURL string
	apiKey  string
	cache   *Cache
}

// NewClient builds a Ticketmaster client.
// Rate limited to 5 requests per second per Ticketmaster's published quota.
func NewClient(cfg config.EventsConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		logger:      log,
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		cache:       NewCache(cfg.CacheSize, cfg.CacheTTL),
	}
}

// Configured reports whether an API key is present. Without one the events
// endpoint degrades instead of failing at startup.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// CacheLen exposes the current cache population for health reporting.
func (c *Client) CacheLen() int {
	return c.cache.Len()
}

// Search returns events for a city and optional keyword, served from the
// cache when a fresh entry exists.
func (c *Client) Search(ctx context.Context, city, keyword string) ([]Event, error) {
	if !c.Configured() {
		return nil, apperrors.Upstream("events provider is not configured")
	}

	key := cacheKey(city, keyword)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	events, err := c.fetch(ctx, city, keyword)
	if err != nil {
		return nil, err
	}

	c.cache.Put(key, events)
	return events, nil
}

func (c *Client) fetch(ctx context.Context, city, keyword string) ([]Event, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("size", fmt.Sprintf("%d", defaultPageSize))
	if city != "" {
		params.Set("city", city)
	}
	if keyword != "" {
		params.Set("keyword", keyword)
	}

	searchURL := c.baseURL + "/events.json?" + params.Encode()

	c.logger.Debug("fetching events", "city", city, "keyword", keyword)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstream, "events request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Upstream(fmt.Sprintf("events provider returned status %d", resp.StatusCode))
	}

	var decoded discoveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstream, "parse events response")
	}

	events := make([]Event, 0, len(decoded.Embedded.Events))
	for _, e := range decoded.Embedded.Events {
		events = append(events, e.toEvent())
	}

	c.logger.Debug("events fetched", "city", city, "count", len(events))
	return events, nil
}

func cacheKey(city, keyword string) string {
	return city + "\x00" + keyword
}
