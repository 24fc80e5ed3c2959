package keys

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestChronoKeyRoundtrip(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	ids := []string{"wainao-reads/2024/03/some-story", "a", ""}

	for _, id := range ids {
		key := ChronoKey(ts, id)
		got, err := StoryIDFromChronoKey(key)
		if err != nil {
			t.Fatalf("StoryIDFromChronoKey failed for id %q: %v", id, err)
		}
		if got != id {
			t.Errorf("Expected id %q, got %q", id, got)
		}
	}
}

func TestChronoKeyOrdering(t *testing.T) {
	earlier := ChronoKey(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "b")
	later := ChronoKey(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "a")

	if bytes.Compare(earlier, later) >= 0 {
		t.Errorf("Expected earlier timestamp to sort before later one regardless of id")
	}
}

func TestStoryIDFromChronoKey_TooShort(t *testing.T) {
	_, err := StoryIDFromChronoKey([]byte{0, 1, 2})
	if !errors.Is(err, ErrMalformedKey) {
		t.Errorf("Expected ErrMalformedKey, got %v", err)
	}
}

func TestTagKeyRoundtrip(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	tag := "topics/environment"
	id := "wainao-reads/2024/03/some-story"

	key, err := TagKey(tag, ts, id)
	if err != nil {
		t.Fatalf("TagKey failed: %v", err)
	}

	prefix, err := TagPrefix(tag)
	if err != nil {
		t.Fatalf("TagPrefix failed: %v", err)
	}
	if !bytes.HasPrefix(key, prefix) {
		t.Errorf("Tag key should start with the tag prefix")
	}

	got, err := StoryIDFromTagKey(key, len(tag))
	if err != nil {
		t.Fatalf("StoryIDFromTagKey failed: %v", err)
	}
	if got != id {
		t.Errorf("Expected id %q, got %q", id, got)
	}
}

func TestTagKeyOrdering(t *testing.T) {
	tag := "topics/environment"
	earlier, err := TagKey(tag, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "z")
	if err != nil {
		t.Fatalf("TagKey failed: %v", err)
	}
	later, err := TagKey(tag, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "a")
	if err != nil {
		t.Fatalf("TagKey failed: %v", err)
	}

	if bytes.Compare(earlier, later) >= 0 {
		t.Errorf("Expected earlier tag key to sort before later one")
	}
}

func TestValidateTag(t *testing.T) {
	valid := []string{"topics/environment", "tags/china", "english"}
	for _, tag := range valid {
		if err := ValidateTag(tag); err != nil {
			t.Errorf("Expected tag %q to be valid, got %v", tag, err)
		}
	}

	invalid := []string{"topics|environment", "bad\x00tag", "|"}
	for _, tag := range invalid {
		if err := ValidateTag(tag); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("Expected ErrInvalidTag for %q, got %v", tag, err)
		}
	}
}

func TestTagKey_InvalidTag(t *testing.T) {
	_, err := TagKey("bad|tag", time.Now(), "id")
	if !errors.Is(err, ErrInvalidTag) {
		t.Errorf("Expected ErrInvalidTag, got %v", err)
	}

	_, err = TagPrefix("bad|tag")
	if !errors.Is(err, ErrInvalidTag) {
		t.Errorf("Expected ErrInvalidTag, got %v", err)
	}
}

func TestStoryIDFromTagKey_TooShort(t *testing.T) {
	key, err := TagKey("x", time.Now(), "")
	if err != nil {
		t.Fatalf("TagKey failed: %v", err)
	}

	_, err = StoryIDFromTagKey(key[:len(key)-1], 1)
	if !errors.Is(err, ErrMalformedKey) {
		t.Errorf("Expected ErrMalformedKey, got %v", err)
	}
}
