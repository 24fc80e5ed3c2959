// Package archive persists fetched stories exactly once and serves them
// back newest-first, globally or scoped to one tag.
//
// Three bbolt buckets back the archive: stories (id -> payload), chrono
// (timestamp-ordered index) and tags (per-tag timestamp-ordered index).
// Index buckets hold empty values only, so index scans never touch payload
// bytes. A story is present in the stories bucket if and only if its index
// entries are present; the triple is written in one transaction.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"newsvault/internal/core"
	"newsvault/internal/keys"

	"go.etcd.io/bbolt"
)

var (
	bucketStories = []byte("stories")
	bucketChrono  = []byte("chrono")
	bucketTags    = []byte("tags")
)

var (
	// ErrMalformedTimestamp indicates a feed item whose publish date cannot
	// be parsed. The feed contract guarantees ISO-8601, so this aborts the
	// whole ingest call instead of skipping the item.
	ErrMalformedTimestamp = errors.New("malformed publish timestamp")

	// ErrConsistency indicates an index entry whose story payload is
	// missing. Ingestion is atomic, so this should never occur.
	ErrConsistency = errors.New("index entry without stored story")
)

// Archive is the bbolt-backed story archive.
type Archive struct {
	db   *bbolt.DB
	path string
}

// Open opens (or creates) the archive database inside dataDir.
func Open(dataDir string) (*Archive, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "newsvault.db")
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketStories, bucketChrono, bucketTags} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Archive{db: db, path: dbPath}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// GetStory returns the stored payload for id, or nil if absent.
func (a *Archive) GetStory(id string) ([]byte, error) {
	var payload []byte
	err := a.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketStories).Get([]byte(id)); v != nil {
			payload = make([]byte, len(v))
			copy(payload, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read story %s: %w", id, err)
	}
	return payload, nil
}

// Contains reports whether a story with the given id is archived.
func (a *Archive) Contains(id string) (bool, error) {
	var found bool
	err := a.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketStories).Get([]byte(id)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check story %s: %w", id, err)
	}
	return found, nil
}

// PutIfAbsent stores a single fully-indexed story unless its id is already
// present. It returns true when the story was inserted.
func (a *Archive) PutIfAbsent(story core.Story) (bool, error) {
	n, err := a.Ingest([]core.Story{story})
	return n == 1, err
}

// Ingest writes every not-yet-archived story from the batch into the
// stories bucket plus both indexes, all inside one write transaction.
// Already-present ids are skipped without any index writes. A malformed
// publish date or tag aborts the whole call; the transaction rolls back
// and no story from the batch becomes visible. Because the dedup check
// runs inside the same write transaction as the inserts, concurrent
// Ingest calls cannot both insert the same id.
func (a *Archive) Ingest(stories []core.Story) (int, error) {
	inserted := 0
	err := a.db.Update(func(tx *bbolt.Tx) error {
		storyB := tx.Bucket(bucketStories)
		chronoB := tx.Bucket(bucketChrono)
		tagB := tx.Bucket(bucketTags)

		for _, story := range stories {
			id := []byte(story.ID)
			if storyB.Get(id) != nil {
				continue
			}

			ts, err := time.Parse(time.RFC3339, story.PublishDate)
			if err != nil {
				return fmt.Errorf("%w: story %s has publish date %q", ErrMalformedTimestamp, story.ID, story.PublishDate)
			}

			// Validate every tag before the first write for this story.
			tagKeys := make([][]byte, 0, len(story.Tags))
			for _, tag := range story.Tags {
				key, err := keys.TagKey(tag, ts, story.ID)
				if err != nil {
					return fmt.Errorf("story %s: %w", story.ID, err)
				}
				tagKeys = append(tagKeys, key)
			}

			if err := storyB.Put(id, story.Payload); err != nil {
				return fmt.Errorf("failed to store story %s: %w", story.ID, err)
			}
			if err := chronoB.Put(keys.ChronoKey(ts, story.ID), nil); err != nil {
				return fmt.Errorf("failed to index story %s: %w", story.ID, err)
			}
			for _, key := range tagKeys {
				if err := tagB.Put(key, nil); err != nil {
					return fmt.Errorf("failed to tag-index story %s: %w", story.ID, err)
				}
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListGlobal returns one page of stories in newest-first order across the
// whole archive. Page 0 is the newest page.
func (a *Archive) ListGlobal(page int) ([]core.Story, error) {
	if page < 0 {
		return nil, fmt.Errorf("page must be non-negative, got %d", page)
	}

	var stories []core.Story
	err := a.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketChrono).Cursor()
		skip := page * core.PageSize
		idx := 0
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			if idx < skip {
				idx++
				continue
			}
			if len(stories) >= core.PageSize {
				break
			}
			id, err := keys.StoryIDFromChronoKey(k)
			if err != nil {
				return err
			}
			story, err := resolveStory(tx, id)
			if err != nil {
				return err
			}
			stories = append(stories, story)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stories, nil
}

// ListByTag returns one page of stories carrying the given tag, newest
// first. Page 0 is the newest page.
func (a *Archive) ListByTag(tag string, page int) ([]core.Story, error) {
	if page < 0 {
		return nil, fmt.Errorf("page must be non-negative, got %d", page)
	}
	prefix, err := keys.TagPrefix(tag)
	if err != nil {
		return nil, err
	}

	var stories []core.Story
	err = a.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketTags).Cursor()
		skip := page * core.PageSize
		idx := 0
		for k := seekLastWithPrefix(c, prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Prev() {
			if idx < skip {
				idx++
				continue
			}
			if len(stories) >= core.PageSize {
				break
			}
			id, err := keys.StoryIDFromTagKey(k, len(tag))
			if err != nil {
				return err
			}
			story, err := resolveStory(tx, id)
			if err != nil {
				return err
			}
			stories = append(stories, story)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stories, nil
}

// Stats returns entry counts for the three buckets plus file metadata.
func (a *Archive) Stats() (core.ArchiveStats, error) {
	stats := core.ArchiveStats{}
	err := a.db.View(func(tx *bbolt.Tx) error {
		stats.Stories = tx.Bucket(bucketStories).Stats().KeyN
		stats.ChronoEntries = tx.Bucket(bucketChrono).Stats().KeyN
		stats.TagEntries = tx.Bucket(bucketTags).Stats().KeyN
		return nil
	})
	if err != nil {
		return core.ArchiveStats{}, fmt.Errorf("failed to read archive stats: %w", err)
	}

	if fileInfo, err := os.Stat(a.path); err == nil {
		stats.ArchiveSize = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}
	return stats, nil
}

// resolveStory loads the payload for an id found in an index. A missing
// payload means a partial write happened at some point and is fatal.
func resolveStory(tx *bbolt.Tx, id string) (core.Story, error) {
	v := tx.Bucket(bucketStories).Get([]byte(id))
	if v == nil {
		return core.Story{}, fmt.Errorf("%w: id %s", ErrConsistency, id)
	}
	payload := make([]byte, len(v))
	copy(payload, v)
	return core.Story{ID: id, Payload: payload}, nil
}

// seekLastWithPrefix positions the cursor on the last key sharing prefix.
// The prefix always ends with the tag separator, which is below 0xFF, so
// incrementing the final byte yields the exclusive upper bound of the range.
func seekLastWithPrefix(c *bbolt.Cursor, prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++

	k, _ := c.Seek(bound)
	if k == nil {
		k, _ = c.Last()
	} else {
		k, _ = c.Prev()
	}
	return k
}
