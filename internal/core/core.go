package core

import "time"

// PageSize is the number of stories served per list page.
const PageSize = 20

// Story represents one archived content item as consumed from the feed.
type Story struct {
	ID          string   `json:"id"`           // Canonical path-like identifier assigned by the feed
	PublishDate string   `json:"publish_date"` // ISO-8601 publish timestamp, as supplied by the feed
	Tags        []string `json:"tags"`         // Tag paths from the feed taxonomy (may be empty)
	Payload     []byte   `json:"payload"`      // Full serialized story, opaque to the archive
}

// Asset represents one remote binary object referenced by a story.
type Asset struct {
	URL       string `json:"url"`        // Remote asset URL
	LocalName string `json:"local_name"` // Filename under the media directory
}

// ArchiveStats represents statistics about the archive.
type ArchiveStats struct {
	Stories       int       `json:"stories"`        // Number of stored stories
	ChronoEntries int       `json:"chrono_entries"` // Number of chronological index entries
	TagEntries    int       `json:"tag_entries"`    // Number of tag index entries
	ArchiveSize   int64     `json:"archive_size"`   // Database file size in bytes
	LastUpdated   time.Time `json:"last_updated"`   // Database file modification time
}
