// Package storage implements the Storage collaborator (§6.3): the thin
// filesystem/archive abstraction the core uses for cache files and document
// sources. Handles are scoped to a single operation per §5 — open, use,
// close — and are never held across a suspension point; resuming a SAX
// parse reopens the source and re-seeks rather than keeping a handle live.
package storage

import "io"

// Storage is the collaborator contract consumed by the section cache and
// chapter parser driver.
type Storage interface {
	// OpenRead opens path for sequential reading from the start.
	OpenRead(path string) (io.ReadCloser, error)
	// OpenReadAt opens path for reading starting at byte offset, used to
	// resume a suspended SAX parse (§4.3.7) or a partial cache read.
	OpenReadAt(path string, offset int64) (io.ReadCloser, error)
	// OpenWrite truncates (or creates) path for writing.
	OpenWrite(path string) (io.WriteCloser, error)
	Exists(path string) (bool, error)
	Remove(path string) error
	Mkdir(path string) error
	Rename(oldPath, newPath string) error
}

// ReadChunkSize is the nominal chunk size the collaborators stream reads in
// (§6.3: "Reads stream in ~1 KB chunks").
const ReadChunkSize = 1024
