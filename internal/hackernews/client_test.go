package hackernews

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newFakeHN(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `[101,102,103]`)
	})
	mux.HandleFunc("/item/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/item/101.json":
			fmt.Fprint(w, `{"id":101,"title":"Go 1.25 released","url":"https://go.dev/blog/go1.25","score":420,"by":"rsc","time":1756000000}`)
		case "/item/102.json":
			// Ask HN style story without a URL.
			fmt.Fprint(w, `{"id":102,"title":"Ask HN: favorite editor?","score":88,"by":"pg","time":1756000100}`)
		default:
			http.Error(w, "not found", http.StatusInternalServerError)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDaily(t *testing.T) {
	var listHits atomic.Int64
	srv := newFakeHN(t, &listHits)
	c := New(Config{BaseURL: srv.URL, Concurrency: 2})

	digest, err := c.Daily(context.Background(), "topstories", 10)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if digest.Source != "topstories" {
		t.Fatalf("unexpected source %q", digest.Source)
	}
	// 103 failed to fetch and is dropped; order of the rest is preserved.
	if len(digest.Items) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(digest.Items))
	}
	if digest.Items[0].ID != 101 || digest.Items[1].ID != 102 {
		t.Fatalf("unexpected story order: %+v", digest.Items)
	}
	if digest.Items[0].Domain != "go.dev" {
		t.Fatalf("unexpected domain %q", digest.Items[0].Domain)
	}
	if digest.Items[1].URL != "https://news.ycombinator.com/item?id=102" {
		t.Fatalf("expected HN fallback url, got %q", digest.Items[1].URL)
	}
	if digest.Items[1].Domain != "news.ycombinator.com" {
		t.Fatalf("unexpected fallback domain %q", digest.Items[1].Domain)
	}
}

func TestDailyCaches(t *testing.T) {
	var listHits atomic.Int64
	srv := newFakeHN(t, &listHits)

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	clock := base
	c := New(Config{BaseURL: srv.URL, CacheTTL: time.Hour},
		WithClock(func() time.Time { return clock }))

	if _, err := c.Daily(context.Background(), "topstories", 5); err != nil {
		t.Fatalf("daily#1: %v", err)
	}
	if _, err := c.Daily(context.Background(), "topstories", 5); err != nil {
		t.Fatalf("daily#2: %v", err)
	}
	if got := listHits.Load(); got != 1 {
		t.Fatalf("expected 1 upstream list fetch, got %d", got)
	}

	clock = base.Add(2 * time.Hour)
	if _, err := c.Daily(context.Background(), "topstories", 5); err != nil {
		t.Fatalf("daily#3: %v", err)
	}
	if got := listHits.Load(); got != 2 {
		t.Fatalf("expected cache expiry to refetch, got %d fetches", got)
	}
}

func TestDailyRejectsUnknownSource(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:0"})
	if _, err := c.Daily(context.Background(), "weirdstories", 5); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

type staticSummarizer map[int]string

func (s staticSummarizer) Summarize(_ context.Context, _ []Story) (map[int]string, error) {
	return s, nil
}

func TestDailyAppliesSummaries(t *testing.T) {
	var listHits atomic.Int64
	srv := newFakeHN(t, &listHits)
	c := New(Config{BaseURL: srv.URL},
		WithSummarizer(staticSummarizer{101: "compiler speedups and a new GC knob"}))

	digest, err := c.Daily(context.Background(), "topstories", 5)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if digest.Items[0].Summary != "compiler speedups and a new GC knob" {
		t.Fatalf("missing summary on story 101: %+v", digest.Items[0])
	}
	if digest.Items[1].Summary != "" {
		t.Fatalf("unexpected summary on story 102: %+v", digest.Items[1])
	}
}
