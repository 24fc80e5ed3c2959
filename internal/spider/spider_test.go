package spider

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"newsvault/internal/archive"
	"newsvault/internal/config"
	"newsvault/internal/feeds"
)

type fakeFetcher struct {
	pages map[string][]*feeds.StoryPage
	calls map[string]int
}

func (f *fakeFetcher) FetchPage(_ context.Context, section string, _ int) (*feeds.StoryPage, error) {
	pages := f.pages[section]
	call := f.calls[section]
	f.calls[section]++
	if call >= len(pages) {
		return &feeds.StoryPage{}, nil
	}
	return pages[call], nil
}

type fakeDownloader struct {
	fetched []string
}

func (d *fakeDownloader) Fetch(_ context.Context, url string) (string, error) {
	d.fetched = append(d.fetched, url)
	return "asset", nil
}

func element(id, date, img string) json.RawMessage {
	payload := map[string]any{
		"website_url":        "/" + id,
		"first_publish_date": date,
		"taxonomy": map[string]any{
			"sections": []any{map[string]any{"path": "/topics/test"}},
		},
	}
	if img != "" {
		payload["promo_items"] = map[string]any{"basic": map[string]any{"url": img}}
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func testConfig() config.Spider {
	return config.Spider{
		Sections:  []string{"/reads"},
		FeedSize:  2,
		CDNPrefix: "https://cdn.example.com/",
	}
}

func newTestSpider(t *testing.T, fetcher *fakeFetcher) (*Spider, *archive.Archive, *fakeDownloader) {
	t.Helper()
	arch, err := archive.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = arch.Close() })

	downloader := &fakeDownloader{}
	return New(testConfig(), fetcher, downloader, arch), arch, downloader
}

func TestRun_PagesThroughSection(t *testing.T) {
	fetcher := &fakeFetcher{
		calls: map[string]int{},
		pages: map[string][]*feeds.StoryPage{
			"/reads": {
				{Count: 3, Elements: []json.RawMessage{
					element("reads/one", "2024-01-03T00:00:00Z", "https://cdn.example.com/one.jpg"),
					element("reads/two", "2024-01-02T00:00:00Z", ""),
				}},
				{Count: 3, Elements: []json.RawMessage{
					element("reads/three", "2024-01-01T00:00:00Z", ""),
				}},
			},
		},
	}

	s, arch, downloader := newTestSpider(t, fetcher)
	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Pages != 2 {
		t.Errorf("Expected 2 pages, got %d", stats.Pages)
	}
	if stats.Seen != 3 || stats.Inserted != 3 {
		t.Errorf("Expected 3 seen and inserted, got %d/%d", stats.Seen, stats.Inserted)
	}
	if fetcher.calls["/reads"] != 2 {
		t.Errorf("Expected 2 fetches, got %d", fetcher.calls["/reads"])
	}
	if len(downloader.fetched) != 1 || downloader.fetched[0] != "https://cdn.example.com/one.jpg" {
		t.Errorf("Expected promo asset download, got %v", downloader.fetched)
	}

	stories, err := arch.ListGlobal(0)
	if err != nil {
		t.Fatalf("ListGlobal failed: %v", err)
	}
	if len(stories) != 3 || stories[0].ID != "reads/one" {
		t.Errorf("Unexpected archive contents: %d stories", len(stories))
	}
}

func TestRun_SecondRunIsNoOp(t *testing.T) {
	page := &feeds.StoryPage{Count: 1, Elements: []json.RawMessage{
		element("reads/one", "2024-01-01T00:00:00Z", ""),
	}}

	fetcher := &fakeFetcher{
		calls: map[string]int{},
		pages: map[string][]*feeds.StoryPage{"/reads": {page}},
	}
	s, _, _ := newTestSpider(t, fetcher)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	fetcher.calls = map[string]int{}
	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if stats.Inserted != 0 {
		t.Errorf("Expected 0 inserted on second run, got %d", stats.Inserted)
	}
	if stats.Seen != 1 {
		t.Errorf("Expected 1 seen on second run, got %d", stats.Seen)
	}
}

func TestRun_MalformedDateAborts(t *testing.T) {
	fetcher := &fakeFetcher{
		calls: map[string]int{},
		pages: map[string][]*feeds.StoryPage{
			"/reads": {
				{Count: 1, Elements: []json.RawMessage{
					element("reads/bad", "yesterday-ish", ""),
				}},
			},
		},
	}
	s, arch, _ := newTestSpider(t, fetcher)

	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("Expected run to fail on malformed publish date")
	}

	found, err := arch.Contains("reads/bad")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if found {
		t.Error("Expected nothing archived after aborted run")
	}
}

func TestRun_AssetFailureDoesNotAbort(t *testing.T) {
	fetcher := &fakeFetcher{
		calls: map[string]int{},
		pages: map[string][]*feeds.StoryPage{
			"/reads": {
				{Count: 1, Elements: []json.RawMessage{
					element("reads/one", "2024-01-01T00:00:00Z", "https://cdn.example.com/broken.jpg"),
				}},
			},
		},
	}

	arch, err := archive.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = arch.Close() }()

	s := New(testConfig(), fetcher, failingDownloader{}, arch)
	stats, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Inserted != 1 {
		t.Errorf("Expected story archived despite asset failure, got %d", stats.Inserted)
	}
	if stats.Assets != 0 {
		t.Errorf("Expected 0 assets, got %d", stats.Assets)
	}
}

type failingDownloader struct{}

func (failingDownloader) Fetch(context.Context, string) (string, error) {
	return "", fmt.Errorf("network down")
}
