// Package hackernews fetches story digests from the public
// Hacker News Firebase API.
package hackernews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnknownSource rejects sources outside the supported story lists.
var ErrUnknownSource = errors.New("unsupported story source")

var validSources = map[string]bool{
	"topstories":  true,
	"newstories":  true,
	"beststories": true,
}

type Story struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Score   int    `json:"score"`
	By      string `json:"by"`
	Time    int64  `json:"time"`
	Summary string `json:"summary,omitempty"`
}

type Digest struct {
	Items       []Story   `json:"items"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Summarizer fills Story.Summary for a fetched digest. The chat
// gateway backs the production implementation; failures degrade to an
// unsummarized digest rather than an error.
type Summarizer interface {
	Summarize(ctx context.Context, stories []Story) (map[int]string, error)
}

type Config struct {
	BaseURL     string
	HTTPClient  *http.Client
	CacheTTL    time.Duration
	Concurrency int
	MaxStories  int
}

type Client struct {
	cfg        Config
	logger     zerolog.Logger
	summarizer Summarizer
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	digest Digest
	expiry time.Time
}

type Option func(*Client)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithSummarizer(s Summarizer) Option {
	return func(c *Client) { c.summarizer = s }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://hacker-news.firebaseio.com/v0"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 8
	}
	if cfg.MaxStories < 1 {
		cfg.MaxStories = 30
	}
	c := &Client{
		cfg:    cfg,
		logger: zerolog.Nop(),
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Daily returns up to limit stories for one source (topstories,
// newstories, beststories), serving cached digests within the TTL.
func (c *Client) Daily(ctx context.Context, source string, limit int) (Digest, error) {
	if source == "" {
		source = "topstories"
	}
	if !validSources[source] {
		return Digest{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if limit < 1 || limit > c.cfg.MaxStories {
		limit = c.cfg.MaxStories
	}

	key := fmt.Sprintf("%s:%d", source, limit)
	c.mu.Lock()
	if entry, ok := c.cache[key]; ok && c.now().Before(entry.expiry) {
		c.mu.Unlock()
		return entry.digest, nil
	}
	c.mu.Unlock()

	ids, err := c.storyIDs(ctx, source)
	if err != nil {
		return Digest{}, err
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	stories := c.fetchStories(ctx, ids)
	if c.summarizer != nil {
		c.applySummaries(ctx, stories)
	}

	digest := Digest{Items: stories, Source: source, GeneratedAt: c.now().UTC()}
	c.mu.Lock()
	c.cache[key] = cacheEntry{digest: digest, expiry: c.now().Add(c.cfg.CacheTTL)}
	c.mu.Unlock()
	return digest, nil
}

func (c *Client) storyIDs(ctx context.Context, source string) ([]int, error) {
	var ids []int
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s.json", c.cfg.BaseURL, source), &ids); err != nil {
		return nil, fmt.Errorf("fetch story ids: %w", err)
	}
	return ids, nil
}

// fetchStories fans out over a bounded worker pool and preserves the
// source ordering of ids. Individual failures drop the story.
func (c *Client) fetchStories(ctx context.Context, ids []int) []Story {
	results := make([]*Story, len(ids))
	sem := make(chan struct{}, c.cfg.Concurrency)
	wg := sync.WaitGroup{}

	for i, id := range ids {
		wg.Add(1)
		go func(slot, storyID int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var raw struct {
				ID    int    `json:"id"`
				Title string `json:"title"`
				URL   string `json:"url"`
				Score int    `json:"score"`
				By    string `json:"by"`
				Time  int64  `json:"time"`
			}
			err := c.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", c.cfg.BaseURL, storyID), &raw)
			if err != nil || raw.ID == 0 {
				if err != nil {
					c.logger.Warn().Err(err).Int("story_id", storyID).Msg("failed to fetch story")
				}
				return
			}
			storyURL := raw.URL
			if storyURL == "" {
				storyURL = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", raw.ID)
			}
			results[slot] = &Story{
				ID:     raw.ID,
				Title:  raw.Title,
				URL:    storyURL,
				Domain: extractDomain(raw.URL),
				Score:  raw.Score,
				By:     raw.By,
				Time:   raw.Time,
			}
		}(i, id)
	}
	wg.Wait()

	out := make([]Story, 0, len(ids))
	for _, s := range results {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func (c *Client) applySummaries(ctx context.Context, stories []Story) {
	summaries, err := c.summarizer.Summarize(ctx, stories)
	if err != nil {
		c.logger.Warn().Err(err).Msg("summaries unavailable, serving raw digest")
		return
	}
	for i := range stories {
		if s, ok := summaries[stories[i].ID]; ok {
			stories[i].Summary = s
		}
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("hn api status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractDomain(rawURL string) string {
	if rawURL == "" {
		return "news.ycombinator.com"
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "news.ycombinator.com"
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
