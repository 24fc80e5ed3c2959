// Package keys encodes and decodes the archive's persisted key layouts.
//
// Three layouts exist, and byte order matters for correctness:
//
//	stories:  raw story id
//	chrono:   be64(publish seconds) ++ id
//	tags:     tag ++ '|' ++ be64(publish seconds) ++ id
//
// Big-endian second encoding makes byte-lexicographic order equal numeric
// order, so a reverse scan over either index yields newest-first stories.
package keys

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Separator sits between the tag bytes and the timestamp in a tag key.
// Tags containing it (or NUL) cannot be indexed unambiguously and are
// rejected by ValidateTag before anything is written.
const Separator = byte('|')

const tsLen = 8

var (
	// ErrMalformedKey indicates a key too short to contain its fixed-width parts.
	ErrMalformedKey = errors.New("malformed index key")
	// ErrInvalidTag indicates a tag containing the separator or a NUL byte.
	ErrInvalidTag = errors.New("invalid tag")
)

// ChronoKey builds a chronological index key for a story.
func ChronoKey(ts time.Time, id string) []byte {
	key := make([]byte, tsLen, tsLen+len(id))
	binary.BigEndian.PutUint64(key, uint64(ts.Unix()))
	return append(key, id...)
}

// StoryIDFromChronoKey recovers the story id from a chronological index key.
func StoryIDFromChronoKey(key []byte) (string, error) {
	if len(key) < tsLen {
		return "", fmt.Errorf("%w: chrono key is %d bytes, want at least %d", ErrMalformedKey, len(key), tsLen)
	}
	return string(key[tsLen:]), nil
}

// ValidateTag checks that a tag can be embedded in a tag key without
// colliding with the separator.
func ValidateTag(tag string) error {
	if strings.IndexByte(tag, Separator) >= 0 || strings.IndexByte(tag, 0) >= 0 {
		return fmt.Errorf("%w: %q contains a reserved byte", ErrInvalidTag, tag)
	}
	return nil
}

// TagKey builds a tag index key for one (story, tag) pair.
func TagKey(tag string, ts time.Time, id string) ([]byte, error) {
	if err := ValidateTag(tag); err != nil {
		return nil, err
	}
	key := make([]byte, 0, len(tag)+1+tsLen+len(id))
	key = append(key, tag...)
	key = append(key, Separator)
	key = key[:len(key)+tsLen]
	binary.BigEndian.PutUint64(key[len(tag)+1:], uint64(ts.Unix()))
	return append(key, id...), nil
}

// TagPrefix returns the scan prefix covering every key for one tag.
func TagPrefix(tag string) ([]byte, error) {
	if err := ValidateTag(tag); err != nil {
		return nil, err
	}
	return append([]byte(tag), Separator), nil
}

// StoryIDFromTagKey recovers the story id from a tag index key, given the
// byte length of the tag the key was scanned under.
func StoryIDFromTagKey(key []byte, tagLen int) (string, error) {
	fixed := tagLen + 1 + tsLen
	if len(key) < fixed {
		return "", fmt.Errorf("%w: tag key is %d bytes, want at least %d", ErrMalformedKey, len(key), fixed)
	}
	return string(key[fixed:]), nil
}
