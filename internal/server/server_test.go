package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsvault/internal/archive"
	"newsvault/internal/config"
	"newsvault/internal/core"
)

func testServerConfig() config.Server {
	return config.Server{
		Host:         "127.0.0.1",
		Port:         3334,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		TemplateDir:  "../../web/templates",
		StaticDir:    "../../web/static",
	}
}

func seededServer(t *testing.T) *Server {
	t.Helper()

	arch, err := archive.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = arch.Close() })

	stories := []core.Story{
		archivedStory("reads/story-old", "Old Story", "2024-01-01T08:00:00Z", "topics/environment"),
		archivedStory("reads/story-new", "New Story", "2024-03-01T08:00:00Z", "topics/environment"),
		archivedStory("english/other", "Other Story", "2024-02-01T08:00:00Z", "tags/china"),
	}
	if _, err := arch.Ingest(stories); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	s, err := New(arch, testServerConfig(), t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func archivedStory(id, headline, publishDate string, tag string) core.Story {
	payload := fmt.Sprintf(`{
		"website_url": "/%s",
		"first_publish_date": %q,
		"publish_date": %q,
		"headlines": {"basic": %q},
		"description": {"basic": "About %s"},
		"taxonomy": {"sections": [{"path": "/%s", "name": "Tag"}]},
		"content_elements": [
			{"type": "text", "content": "Body of %s"},
			{"type": "image", "url": "https://cdn.example.com/site/img.jpg", "caption": "A photo"}
		]
	}`, id, publishDate, publishDate, headline, headline, tag, headline)

	return core.Story{
		ID:          id,
		PublishDate: publishDate,
		Tags:        []string{tag},
		Payload:     []byte(payload),
	}
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := seededServer(t)

	rec := get(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("Invalid health JSON: %v", err)
	}
	if health.Status != "ok" || health.Stories != 3 {
		t.Errorf("Unexpected health response: %+v", health)
	}
}

func TestHandleList_NewestFirst(t *testing.T) {
	s := seededServer(t)

	rec := get(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	newIdx := strings.Index(body, "New Story")
	otherIdx := strings.Index(body, "Other Story")
	oldIdx := strings.Index(body, "Old Story")
	if newIdx < 0 || otherIdx < 0 || oldIdx < 0 {
		t.Fatalf("Expected all three stories on page 0")
	}
	if !(newIdx < otherIdx && otherIdx < oldIdx) {
		t.Errorf("Stories not in newest-first order: %d %d %d", newIdx, otherIdx, oldIdx)
	}
	if !strings.Contains(body, "2024-03-01") {
		t.Errorf("Expected formatted date in list")
	}
}

func TestHandlePage_Article(t *testing.T) {
	s := seededServer(t)

	rec := get(t, s, "/reads/story-new")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "New Story") {
		t.Error("Expected headline on article page")
	}
	if !strings.Contains(body, "Body of New Story") {
		t.Error("Expected body text on article page")
	}
	if !strings.Contains(body, "/media/img.jpg") {
		t.Error("Expected image rewritten to local media path")
	}
}

func TestHandlePage_TagList(t *testing.T) {
	s := seededServer(t)

	rec := get(t, s, "/topics/environment")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "New Story") || !strings.Contains(body, "Old Story") {
		t.Error("Expected tagged stories in tag list")
	}
	if strings.Contains(body, "Other Story") {
		t.Error("Story with different tag must not appear")
	}

	newIdx := strings.Index(body, "New Story")
	oldIdx := strings.Index(body, "Old Story")
	if !(newIdx < oldIdx) {
		t.Error("Tag list not newest-first")
	}
}

func TestHandlePage_NotFound(t *testing.T) {
	s := seededServer(t)

	rec := get(t, s, "/no/such/thing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	// Tag containing the separator byte can never exist.
	rec = get(t, s, "/bad%7Ctag")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for invalid tag, got %d", rec.Code)
	}
}

func TestHandleList_Pagination(t *testing.T) {
	arch, err := archive.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = arch.Close() }()

	stories := make([]core.Story, 25)
	for i := range stories {
		stories[i] = archivedStory(
			fmt.Sprintf("reads/story-%02d", i),
			fmt.Sprintf("Story %02d", i),
			fmt.Sprintf("2024-01-01T00:00:%02dZ", i),
			"topics/all",
		)
	}
	if _, err := arch.Ingest(stories); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	s, err := New(arch, testServerConfig(), t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	page1 := get(t, s, "/?page=1").Body.String()
	if !strings.Contains(page1, "Story 00") || !strings.Contains(page1, "Story 04") {
		t.Error("Expected oldest five stories on page 1")
	}
	if strings.Contains(page1, "Story 05") {
		t.Error("Story 05 belongs to page 0")
	}

	// Garbage page values fall back to page 0.
	page0 := get(t, s, "/?page=weird").Body.String()
	if !strings.Contains(page0, "Story 24") {
		t.Error("Expected newest story for invalid page parameter")
	}
}
