// Package progress reads and writes progress.bin (§6.2): the last
// successfully rendered reader position for one document's cache
// directory.
package progress

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"papyrus/common"
	"papyrus/internal/storage"
)

// FileName is the fixed name of the progress file within a document's
// cache directory.
const FileName = "progress.bin"

// Position is the last rendered (spine_index, section_page) pair.
type Position struct {
	SpineIndex  uint16
	SectionPage int32
}

// Load reads FileName from store, defensively handling the legacy 2-byte
// format (section_page only, spine_index defaults to 0) per §6.2.
func Load(store storage.Storage, dir string) (Position, error) {
	path := dir + "/" + FileName
	rc, err := store.OpenRead(path)
	if err != nil {
		return Position{}, err
	}
	defer rc.Close()

	r := bufio.NewReader(rc)
	var page uint16
	if err := binary.Read(r, binary.LittleEndian, &page); err != nil {
		return Position{}, fmt.Errorf("progress: read section_page: %w", common.ErrCorruptedCache)
	}

	var spine uint16
	if err := binary.Read(r, binary.LittleEndian, &spine); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// Legacy 2-byte file: spine_index absent, defaults to 0.
			return Position{SpineIndex: 0, SectionPage: int32(int16(page))}, nil
		}
		return Position{}, fmt.Errorf("progress: read spine_index: %w", common.ErrCorruptedCache)
	}
	return Position{SpineIndex: spine, SectionPage: int32(int16(page))}, nil
}

// Save writes pos to FileName, creating the cache directory if needed.
func Save(store storage.Storage, dir string, pos Position) error {
	if err := store.Mkdir(dir); err != nil {
		return fmt.Errorf("progress: mkdir cache dir: %w", common.ErrIoFailure)
	}
	path := dir + "/" + FileName
	wc, err := store.OpenWrite(path)
	if err != nil {
		return fmt.Errorf("progress: open for write: %w", common.ErrIoFailure)
	}
	defer wc.Close()

	w := bufio.NewWriter(wc)
	if err := binary.Write(w, binary.LittleEndian, uint16(int16(pos.SectionPage))); err != nil {
		return fmt.Errorf("progress: write section_page: %w", common.ErrIoFailure)
	}
	if err := binary.Write(w, binary.LittleEndian, pos.SpineIndex); err != nil {
		return fmt.Errorf("progress: write spine_index: %w", common.ErrIoFailure)
	}
	return w.Flush()
}
