package cache

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"papyrus/common"
	"papyrus/internal/page"
	"papyrus/internal/storage"
)

// Cache is an opened, validated section cache file, ready to serve
// random-access page reads (§4.4).
type Cache struct {
	store storage.Storage
	path  string
	hdr   Header
	lut   []uint32 // absolute byte offsets of each page record
}

// partialSuffix names the sidecar marker file that records whether the
// cache's producing batch suspended before the chapter was fully laid out
// (§4.4.3). The wire format itself carries no such bit; page_count simply
// reflects however many pages were flushed.
const partialSuffix = ".partial"

// Open validates an existing cache file against cfg and, on success, reads
// its LUT so ReadPage can seek directly to any page. A version or
// configuration mismatch deletes the file and reports a cache miss
// (§4.4.2), never a hard failure — callers should treat that as "rebuild".
func Open(store storage.Storage, path string, cfg RenderConfig) (*Cache, error) {
	rc, err := store.OpenRead(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	hdr, err := readHeader(rc)
	if err != nil {
		_ = invalidate(store, path)
		return nil, err
	}
	if hdr.FileVersion != currentFileVersion {
		_ = invalidate(store, path)
		return nil, fmt.Errorf("cache: file_version %d: %w", hdr.FileVersion, common.ErrUnsupportedVersion)
	}
	if !hdr.matches(cfg) {
		_ = invalidate(store, path)
		return nil, fmt.Errorf("cache: render configuration changed: %w", common.ErrCorruptedCache)
	}

	c := &Cache{store: store, path: path, hdr: hdr}
	if hdr.PageCount > 0 {
		if err := c.loadLUT(); err != nil {
			_ = invalidate(store, path)
			return nil, err
		}
	}
	return c, nil
}

func invalidate(store storage.Storage, path string) error {
	_ = store.Remove(path + partialSuffix)
	return store.Remove(path)
}

func (c *Cache) loadLUT() error {
	rc, err := c.store.OpenReadAt(c.path, int64(c.hdr.LUTOffset))
	if err != nil {
		return fmt.Errorf("cache: open LUT: %w", common.ErrIoFailure)
	}
	defer rc.Close()

	lut := make([]uint32, c.hdr.PageCount)
	r := bufio.NewReaderSize(rc, storage.ReadChunkSize)
	for i := range lut {
		if err := binary.Read(r, binary.LittleEndian, &lut[i]); err != nil {
			return fmt.Errorf("cache: read LUT entry %d: %w", i, common.ErrCorruptedCache)
		}
		if lut[i] >= c.hdr.LUTOffset {
			return fmt.Errorf("cache: LUT entry %d (%d) not before lut_offset %d: %w", i, lut[i], c.hdr.LUTOffset, common.ErrCorruptedCache)
		}
	}
	c.lut = lut
	return nil
}

// PageCount reports how many pages this cache currently holds.
func (c *Cache) PageCount() int {
	return int(c.hdr.PageCount)
}

// Partial reports whether the cache's last producing batch suspended
// before the chapter was fully laid out, per the sidecar marker written by
// Writer.Finalize.
func (c *Cache) Partial() (bool, error) {
	ok, err := c.store.Exists(c.path + partialSuffix)
	if err != nil {
		return false, fmt.Errorf("cache: %w", common.ErrIoFailure)
	}
	return ok, nil
}

// ReadPage deserializes the page at index i, applying the guards of
// §4.4.4. A short read or unknown tag fails the whole page load.
func (c *Cache) ReadPage(i int) (page.Page, error) {
	if i < 0 || i >= len(c.lut) {
		return page.Page{}, fmt.Errorf("cache: page %d out of range [0,%d): %w", i, len(c.lut), common.ErrPageUnavailable)
	}
	rc, err := c.store.OpenReadAt(c.path, int64(c.lut[i]))
	if err != nil {
		return page.Page{}, fmt.Errorf("cache: open page %d: %w", i, common.ErrIoFailure)
	}
	defer rc.Close()
	r := bufio.NewReaderSize(rc, storage.ReadChunkSize)
	p, err := readPage(r)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return page.Page{}, fmt.Errorf("cache: short read on page %d: %w", i, common.ErrCorruptedCache)
		}
		return page.Page{}, err
	}
	return p, nil
}
