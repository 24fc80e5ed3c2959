// Package feeds provides the client for the remote story-feed API.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"newsvault/internal/config"
	"newsvault/internal/core"

	"golang.org/x/time/rate"
)

// StoryPage is one page of the remote story feed.
type StoryPage struct {
	Count    int               `json:"count"`            // Total items available in the section
	Elements []json.RawMessage `json:"content_elements"` // Raw story payloads on this page
}

// Client fetches story-feed pages. The HTTP client and rate limiter are
// explicit dependencies built once from configuration, not process globals.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	website    string
	feedSize   int
	userAgent  string
}

// NewHTTPClient builds the HTTP client used for all spider traffic,
// honoring the configured proxy and timeout.
func NewHTTPClient(cfg config.Spider) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", cfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

// NewClient creates a feed client from spider configuration.
func NewClient(cfg config.Spider) (*Client, error) {
	httpClient, err := NewHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithHTTP(cfg, httpClient), nil
}

// NewClientWithHTTP creates a feed client using a caller-supplied HTTP
// client (used by tests and by the spider to share one client).
func NewClientWithHTTP(cfg config.Spider, httpClient *http.Client) *Client {
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		baseURL:    cfg.BaseURL,
		website:    cfg.Website,
		feedSize:   cfg.FeedSize,
		userAgent:  cfg.UserAgent,
	}
}

// FetchPage fetches one page of a section's story feed starting at offset.
func (c *Client) FetchPage(ctx context.Context, section string, offset int) (*StoryPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query, err := json.Marshal(map[string]any{
		"feedOffset":      offset,
		"feedSize":        c.feedSize,
		"includeSections": section,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build feed query: %w", err)
	}

	feedURL := fmt.Sprintf("%s?query=%s&d=147&mxId=00000000&_website=%s",
		c.baseURL, url.QueryEscape(string(query)), c.website)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed page for %s: %w", section, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d for %s offset %d", resp.StatusCode, section, offset)
	}

	page := &StoryPage{}
	if err := json.NewDecoder(resp.Body).Decode(page); err != nil {
		return nil, fmt.Errorf("failed to decode feed page: %w", err)
	}
	return page, nil
}

// storyElement is the subset of a feed element the archive indexes on.
type storyElement struct {
	WebsiteURL       string `json:"website_url"`
	FirstPublishDate string `json:"first_publish_date"`
	Taxonomy         struct {
		Sections []struct {
			Path string `json:"path"`
		} `json:"sections"`
	} `json:"taxonomy"`
}

// StoryFromElement extracts the archive-relevant fields from one raw feed
// element. The payload stays opaque; the publish date is kept as the raw
// ISO-8601 string and parsed by the ingestion batcher.
func StoryFromElement(raw json.RawMessage) (core.Story, error) {
	var elem storyElement
	if err := json.Unmarshal(raw, &elem); err != nil {
		return core.Story{}, fmt.Errorf("failed to decode feed element: %w", err)
	}

	id := strings.Trim(elem.WebsiteURL, "/")
	if id == "" {
		return core.Story{}, fmt.Errorf("feed element has no website_url")
	}

	var tags []string
	for _, section := range elem.Taxonomy.Sections {
		if path := strings.Trim(section.Path, "/"); path != "" {
			tags = append(tags, path)
		}
	}

	return core.Story{
		ID:          id,
		PublishDate: elem.FirstPublishDate,
		Tags:        tags,
		Payload:     raw,
	}, nil
}
