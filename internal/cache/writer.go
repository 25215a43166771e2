package cache

import (
	"bufio"
	"fmt"
	"io"

	"github.com/google/uuid"

	"papyrus/common"
	"papyrus/internal/page"
	"papyrus/internal/storage"
)

// Writer builds (or extends) a section cache file one batch at a time. Per
// §5's ordering guarantees, the LUT and header are only patched once every
// page in the current batch has been flushed to the temp file; a batch
// that aborts mid-page simply never calls Finalize, leaving any prior
// cache file on disk untouched.
type Writer struct {
	store   storage.Storage
	path    string
	tmpPath string
	cfg     RenderConfig

	w       *bufio.Writer
	wc      io.WriteCloser
	offset  int64 // next byte offset a page record will land at
	lut     []uint32
	pending bool // a temp file is open and needs Discard or Finalize
}

// Begin starts a fresh cache file for path, discarding any previous
// contents (the caller is responsible for deciding whether to Begin fresh
// or Extend an existing partial cache).
func Begin(store storage.Storage, path string, cfg RenderConfig) (*Writer, error) {
	w, err := newWriter(store, path, cfg)
	if err != nil {
		return nil, err
	}
	if err := writeHeader(w.w, headerFromConfig(cfg)); err != nil {
		w.wc.Close()
		return nil, fmt.Errorf("cache: write header: %w", common.ErrIoFailure)
	}
	w.offset = headerSize
	return w, nil
}

// Extend reopens an existing (possibly partial) cache, copies its page
// records verbatim into a new temp file, and positions the writer to
// append further pages after them (§4.4.3).
func Extend(store storage.Storage, path string, cfg RenderConfig) (*Writer, error) {
	existing, err := Open(store, path, cfg)
	if err != nil {
		return nil, err
	}

	w, err := newWriter(store, path, cfg)
	if err != nil {
		return nil, err
	}
	if err := writeHeader(w.w, headerFromConfig(cfg)); err != nil {
		w.wc.Close()
		return nil, fmt.Errorf("cache: write header: %w", common.ErrIoFailure)
	}
	w.offset = headerSize

	if existing.hdr.PageCount > 0 {
		src, err := store.OpenReadAt(path, headerSize)
		if err != nil {
			w.wc.Close()
			return nil, fmt.Errorf("cache: reopen for extend: %w", common.ErrIoFailure)
		}
		pagesLen := int64(existing.hdr.LUTOffset) - headerSize
		if _, err := io.CopyN(w.w, src, pagesLen); err != nil {
			src.Close()
			w.wc.Close()
			return nil, fmt.Errorf("cache: copy existing pages: %w", common.ErrIoFailure)
		}
		src.Close()
		w.offset += pagesLen
		w.lut = append(w.lut, existing.lut...)
	}
	return w, nil
}

func newWriter(store storage.Storage, path string, cfg RenderConfig) (*Writer, error) {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	wc, err := store.OpenWrite(tmp)
	if err != nil {
		return nil, fmt.Errorf("cache: open temp file: %w", common.ErrIoFailure)
	}
	return &Writer{
		store:   store,
		path:    path,
		tmpPath: tmp,
		cfg:     cfg,
		w:       bufio.NewWriterSize(wc, storage.ReadChunkSize),
		wc:      wc,
		pending: true,
	}, nil
}

// AppendPage serializes p as the next page record, recording its starting
// offset in the LUT being built.
func (w *Writer) AppendPage(p page.Page) error {
	w.lut = append(w.lut, uint32(w.offset))
	n, err := writePage(w.w, p)
	w.offset += n
	if err != nil {
		return fmt.Errorf("cache: write page %d: %w", len(w.lut)-1, common.ErrIoFailure)
	}
	return nil
}

// PageCount reports how many pages have been appended so far in this
// writer's lifetime (including any copied from an Extend source).
func (w *Writer) PageCount() int {
	return len(w.lut)
}

// Discard abandons the writer's temp file without touching the real cache
// path, for a batch that aborted mid-page.
func (w *Writer) Discard() error {
	if !w.pending {
		return nil
	}
	w.pending = false
	_ = w.wc.Close()
	return w.store.Remove(w.tmpPath)
}

// Finalize writes the LUT, patches the header's page_count/lut_offset, and
// atomically renames the temp file over path. suspended records whether
// the producing batch left the chapter incompletely paginated, via the
// sidecar partial marker (§4.4.3).
func (w *Writer) Finalize(suspended bool) error {
	if !w.pending {
		return fmt.Errorf("cache: Finalize called on a discarded/finalized writer")
	}
	w.pending = false

	lutOffset := w.offset
	for _, off := range w.lut {
		if err := writeUint32(w.w, off); err != nil {
			w.wc.Close()
			_ = w.store.Remove(w.tmpPath)
			return fmt.Errorf("cache: write LUT: %w", common.ErrIoFailure)
		}
	}
	if err := w.w.Flush(); err != nil {
		w.wc.Close()
		_ = w.store.Remove(w.tmpPath)
		return fmt.Errorf("cache: flush: %w", common.ErrIoFailure)
	}
	if err := w.wc.Close(); err != nil {
		_ = w.store.Remove(w.tmpPath)
		return fmt.Errorf("cache: close temp file: %w", common.ErrIoFailure)
	}

	if err := w.patchHeader(lutOffset); err != nil {
		_ = w.store.Remove(w.tmpPath)
		return err
	}

	if err := w.store.Rename(w.tmpPath, w.path); err != nil {
		_ = w.store.Remove(w.tmpPath)
		return fmt.Errorf("cache: rename into place: %w", common.ErrIoFailure)
	}

	if suspended {
		if mw, err := w.store.OpenWrite(w.path + partialSuffix); err == nil {
			mw.Close()
		}
	} else {
		_ = w.store.Remove(w.path + partialSuffix)
	}
	return nil
}

// patchHeader rewrites just the page_count/lut_offset fields of the temp
// file after it has otherwise been fully written and closed; this keeps
// the "patched atomically last" guarantee of §5 without needing a seekable
// Storage write handle for the whole file.
func (w *Writer) patchHeader(lutOffset int64) error {
	hdr := headerFromConfig(w.cfg)
	hdr.PageCount = uint16(len(w.lut))
	hdr.LUTOffset = uint32(lutOffset)

	rc, err := w.store.OpenRead(w.tmpPath)
	if err != nil {
		return fmt.Errorf("cache: reopen temp for patch: %w", common.ErrIoFailure)
	}
	rest, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("cache: read temp for patch: %w", common.ErrIoFailure)
	}

	wc, err := w.store.OpenWrite(w.tmpPath)
	if err != nil {
		return fmt.Errorf("cache: reopen temp for rewrite: %w", common.ErrIoFailure)
	}
	defer wc.Close()
	if err := writeHeader(wc, hdr); err != nil {
		return fmt.Errorf("cache: rewrite header: %w", common.ErrIoFailure)
	}
	if _, err := wc.Write(rest[headerSize:]); err != nil {
		return fmt.Errorf("cache: rewrite body: %w", common.ErrIoFailure)
	}
	return nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	_, err := w.Write(b[:])
	return err
}
