// Package wallhaven proxies searches against the wallhaven.cc API.
package wallhaven

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const maxPerPage = 24

// APIError carries the upstream status for handler-side mapping.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wallhaven api error (status %d): %s", e.StatusCode, e.Message)
}

type SearchQuery struct {
	Query      string
	Categories string
	Purity     string
	Sorting    string
	Order      string
	Page       int
	PerPage    int
}

type Wallpaper struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Path       string `json:"path"`
	Resolution string `json:"resolution"`
	FileSize   int64  `json:"file_size"`
	Category   string `json:"category"`
	Purity     string `json:"purity"`
	Views      int    `json:"views"`
	Favorites  int    `json:"favorites"`
	Thumbs     struct {
		Large    string `json:"large"`
		Original string `json:"original"`
		Small    string `json:"small"`
	} `json:"thumbs"`
}

type SearchResult struct {
	Data []Wallpaper `json:"data"`
	Meta struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
		Total       int `json:"total"`
	} `json:"meta"`
}

type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://wallhaven.cc/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg}
}

// Search queries /search. PerPage is clamped to the API ceiling of 24
// so a caller cannot trip upstream validation.
func (c *Client) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	params := url.Values{}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Categories != "" {
		params.Set("categories", q.Categories)
	}
	if q.Purity != "" {
		params.Set("purity", q.Purity)
	}
	if q.Sorting != "" {
		params.Set("sorting", q.Sorting)
	}
	if q.Order != "" {
		params.Set("order", q.Order)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	perPage := q.PerPage
	if perPage < 1 || perPage > maxPerPage {
		perPage = maxPerPage
	}
	params.Set("per_page", strconv.Itoa(perPage))

	var result SearchResult
	if err := c.get(ctx, "/search?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Wallpaper fetches detail for a single wallpaper id.
func (c *Client) Wallpaper(ctx context.Context, id string) (*Wallpaper, error) {
	if id == "" {
		return nil, fmt.Errorf("wallpaper id is required")
	}
	var wrapped struct {
		Data Wallpaper `json:"data"`
	}
	if err := c.get(ctx, "/w/"+url.PathEscape(id), &wrapped); err != nil {
		return nil, err
	}
	return &wrapped.Data, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: apiMessage(body, resp.StatusCode)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiMessage(body []byte, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return fmt.Sprintf("request failed with status %d", status)
}
