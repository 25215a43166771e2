package storage

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/hidez8891/zip"
)

var _ Storage = (*Zip)(nil)

// Zip implements read-only Storage over an EPUB-style zip archive, the way
// archive.Walk enumerates entries for FB2 conversion: every entry name is
// checked against the same Zip-Slip guard before it is ever opened.
type Zip struct {
	path string
	r    *zip.ReadCloser
}

// OpenZip opens archivePath for reading. The returned Zip must be closed
// once the section (or document) using it is done; per §5 no handle is
// held across a suspension point, so callers reopen for each Run/Resume.
func OpenZip(archivePath string) (*Zip, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	return &Zip{path: archivePath, r: r}, nil
}

func (z *Zip) Close() error {
	return z.r.Close()
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func (z *Zip) find(name string) (*zip.File, error) {
	if !isSafePath(name) {
		return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
	}
	for _, f := range z.r.File {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("zip entry %q: %w", name, errNotFound)
}

var errNotFound = errors.New("not found")

func (z *Zip) OpenRead(name string) (io.ReadCloser, error) {
	f, err := z.find(name)
	if err != nil {
		return nil, err
	}
	return f.Open()
}

// OpenReadAt reopens the entry and discards offset bytes, since DEFLATE
// streams have no random-access seek; entries the parser resumes from are
// chapter-sized, not whole-archive-sized, so this remains cheap.
func (z *Zip) OpenReadAt(name string, offset int64) (io.ReadCloser, error) {
	rc, err := z.OpenRead(name)
	if err != nil {
		return nil, err
	}
	if offset > 0 {
		if _, err := io.CopyN(io.Discard, rc, offset); err != nil {
			rc.Close()
			return nil, err
		}
	}
	return rc, nil
}

func (z *Zip) OpenWrite(name string) (io.WriteCloser, error) {
	return nil, fmt.Errorf("storage: zip archives are read-only: %s", name)
}

func (z *Zip) Exists(name string) (bool, error) {
	_, err := z.find(name)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (z *Zip) Remove(name string) error {
	return fmt.Errorf("storage: zip archives are read-only: %s", name)
}

func (z *Zip) Mkdir(name string) error {
	return fmt.Errorf("storage: zip archives are read-only: %s", name)
}

func (z *Zip) Rename(oldPath, newPath string) error {
	return fmt.Errorf("storage: zip archives are read-only: %s -> %s", oldPath, newPath)
}
