// Package cachepath derives filesystem-safe, content-addressed cache
// directory names for a document from its title and source path, the way
// convert/output_path.go derives output file names from a book's metadata
// (§4.4, §6.2: every section cache and progress.bin lives under one such
// directory per document).
package cachepath

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"papyrus/config"
)

// hashSuffixLen is how many hex characters of the source path's hash are
// appended to the slugified title, enough to avoid collisions between
// same-titled documents from different directories without a full hash.
const hashSuffixLen = 8

// ForDocument returns the cache directory name (not a full path — callers
// join it under their chosen cache root) for a document with the given
// display title and source path. Two documents with the same title but
// different source paths never collide; the same document always maps to
// the same name, so re-runs reuse an existing cache.
func ForDocument(title, sourcePath string) string {
	base := slug.Make(strings.TrimSpace(title))
	if base == "" {
		base = slug.Make(config.CleanFileName(filepath.Base(sourcePath)))
	}
	if base == "" {
		base = "book"
	}
	sum := sha1.Sum([]byte(sourcePath))
	return base + "-" + hex.EncodeToString(sum[:])[:hashSuffixLen]
}
