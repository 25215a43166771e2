// Package cache implements the section cache (C4): one chapter's pages
// persisted to a single binary file with a page-offset lookup table for
// random access reads (§4.4).
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"papyrus/common"
	"papyrus/internal/layout"
	"papyrus/internal/page"
)

// currentFileVersion is bumped whenever the on-disk layout changes in a way
// existing files can't be read as.
const currentFileVersion = 1

// headerSize is the fixed byte width of the header (§4.4.1): one u8 + one
// i32 + one f32 + two u8 + two u16 + one u16 + one u32.
const headerSize = 1 + 4 + 4 + 1 + 1 + 2 + 2 + 2 + 4

const (
	maxElementCount = 500
	maxWordCount    = 10000
	maxImageDim     = 2000
)

const (
	tagPageLine  = 1
	tagPageImage = 2
)

// Header is the fixed prefix of a section cache file.
type Header struct {
	FileVersion           uint8
	FontID                int32
	LineCompression       float32
	ExtraParagraphSpacing bool
	ParagraphAlignment    common.BlockStyle
	ViewportWidth         uint16
	ViewportHeight        uint16
	PageCount             uint16
	LUTOffset             uint32
}

// RenderConfig is the subset of render configuration the cache validates
// against on open (§4.4.2); a mismatch on any field invalidates the cache.
type RenderConfig struct {
	FontID                int32
	LineCompression       float32
	ExtraParagraphSpacing bool
	ParagraphAlignment    common.BlockStyle
	ViewportWidth         uint16
	ViewportHeight        uint16
}

func (h Header) matches(cfg RenderConfig) bool {
	return h.FontID == cfg.FontID &&
		h.LineCompression == cfg.LineCompression &&
		h.ExtraParagraphSpacing == cfg.ExtraParagraphSpacing &&
		h.ParagraphAlignment == cfg.ParagraphAlignment &&
		h.ViewportWidth == cfg.ViewportWidth &&
		h.ViewportHeight == cfg.ViewportHeight
}

func headerFromConfig(cfg RenderConfig) Header {
	return Header{
		FileVersion:           currentFileVersion,
		FontID:                cfg.FontID,
		LineCompression:       cfg.LineCompression,
		ExtraParagraphSpacing: cfg.ExtraParagraphSpacing,
		ParagraphAlignment:    cfg.ParagraphAlignment,
		ViewportWidth:         cfg.ViewportWidth,
		ViewportHeight:        cfg.ViewportHeight,
	}
}

func writeHeader(w io.Writer, h Header) error {
	var buf bytes.Buffer
	buf.Grow(headerSize)
	if err := binary.Write(&buf, binary.LittleEndian, h.FileVersion); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, h.FontID); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, h.LineCompression); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, boolByte(h.ExtraParagraphSpacing)); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint8(h.ParagraphAlignment)); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, h.ViewportWidth); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, h.ViewportHeight); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, h.PageCount); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, h.LUTOffset); err != nil {
		return err
	}
	if buf.Len() != headerSize {
		return fmt.Errorf("cache: internal error: header encoded to %d bytes, want %d", buf.Len(), headerSize)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func readHeader(r io.Reader) (Header, error) {
	var h Header
	var extra, align uint8
	fields := []any{
		&h.FileVersion, &h.FontID, &h.LineCompression, &extra, &align,
		&h.ViewportWidth, &h.ViewportHeight, &h.PageCount, &h.LUTOffset,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return Header{}, fmt.Errorf("cache: read header: %w", common.ErrCorruptedCache)
		}
	}
	h.ExtraParagraphSpacing = extra != 0
	h.ParagraphAlignment = common.BlockStyle(align)
	return h, nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// writeString emits a u16 byte-length prefix followed by raw UTF-8 bytes.
func writeString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("cache: string of %d bytes exceeds u16 length prefix", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("cache: read string length: %w", common.ErrCorruptedCache)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("cache: read string bytes: %w", common.ErrCorruptedCache)
	}
	return string(buf), nil
}

func writeTextBlock(w io.Writer, b layout.TextBlock) error {
	if len(b.Words) > maxWordCount {
		return fmt.Errorf("cache: %d words exceeds max %d", len(b.Words), maxWordCount)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(b.Words))); err != nil {
		return err
	}
	for _, word := range b.Words {
		if err := writeString(w, word.Text); err != nil {
			return err
		}
	}
	for _, word := range b.Words {
		if err := binary.Write(w, binary.LittleEndian, uint16(word.X)); err != nil {
			return err
		}
	}
	for _, word := range b.Words {
		if err := binary.Write(w, binary.LittleEndian, uint8(word.Style)); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, uint8(b.Style))
}

func readTextBlock(r io.Reader) (layout.TextBlock, error) {
	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return layout.TextBlock{}, fmt.Errorf("cache: read word count: %w", common.ErrCorruptedCache)
	}
	if count > maxWordCount {
		return layout.TextBlock{}, fmt.Errorf("cache: word count %d exceeds max %d: %w", count, maxWordCount, common.ErrCorruptedCache)
	}
	words := make([]layout.PositionedWord, count)
	for i := range words {
		text, err := readString(r)
		if err != nil {
			return layout.TextBlock{}, err
		}
		words[i].Text = text
	}
	for i := range words {
		var x uint16
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return layout.TextBlock{}, fmt.Errorf("cache: read word x: %w", common.ErrCorruptedCache)
		}
		words[i].X = int(x)
	}
	for i := range words {
		var style uint8
		if err := binary.Read(r, binary.LittleEndian, &style); err != nil {
			return layout.TextBlock{}, fmt.Errorf("cache: read word style: %w", common.ErrCorruptedCache)
		}
		words[i].Style = common.GlyphStyle(style)
	}
	var blockStyle uint8
	if err := binary.Read(r, binary.LittleEndian, &blockStyle); err != nil {
		return layout.TextBlock{}, fmt.Errorf("cache: read block style: %w", common.ErrCorruptedCache)
	}
	return layout.TextBlock{Words: words, Style: common.BlockStyle(blockStyle)}, nil
}

func writeImageBlock(w io.Writer, img page.ImageBlock) error {
	if err := writeString(w, img.Path); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(img.Width)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint16(img.Height))
}

func readImageBlock(r io.Reader) (page.ImageBlock, error) {
	path, err := readString(r)
	if err != nil {
		return page.ImageBlock{}, err
	}
	var w, h uint16
	if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
		return page.ImageBlock{}, fmt.Errorf("cache: read image width: %w", common.ErrCorruptedCache)
	}
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return page.ImageBlock{}, fmt.Errorf("cache: read image height: %w", common.ErrCorruptedCache)
	}
	if int(w) > maxImageDim || int(h) > maxImageDim {
		return page.ImageBlock{}, fmt.Errorf("cache: image dimension %dx%d exceeds max %d: %w", w, h, maxImageDim, common.ErrCorruptedCache)
	}
	return page.ImageBlock{Path: path, Width: int(w), Height: int(h)}, nil
}

// writePage serializes one Page's element records (§4.4.1) and returns the
// byte count written, so the caller can maintain a running LUT offset.
func writePage(w io.Writer, p page.Page) (int64, error) {
	if len(p.Elements) > maxElementCount {
		return 0, fmt.Errorf("cache: %d elements exceeds max %d", len(p.Elements), maxElementCount)
	}
	cw := &countingWriter{w: w}
	if err := binary.Write(cw, binary.LittleEndian, uint16(len(p.Elements))); err != nil {
		return cw.n, err
	}
	for _, el := range p.Elements {
		switch {
		case el.Line != nil:
			if err := binary.Write(cw, binary.LittleEndian, uint8(tagPageLine)); err != nil {
				return cw.n, err
			}
			if err := binary.Write(cw, binary.LittleEndian, int16(el.Line.X)); err != nil {
				return cw.n, err
			}
			if err := binary.Write(cw, binary.LittleEndian, int16(el.Line.Y)); err != nil {
				return cw.n, err
			}
			if err := writeTextBlock(cw, el.Line.Line); err != nil {
				return cw.n, err
			}
		case el.Image != nil:
			if err := binary.Write(cw, binary.LittleEndian, uint8(tagPageImage)); err != nil {
				return cw.n, err
			}
			if err := binary.Write(cw, binary.LittleEndian, int16(el.Image.X)); err != nil {
				return cw.n, err
			}
			if err := binary.Write(cw, binary.LittleEndian, int16(el.Image.Y)); err != nil {
				return cw.n, err
			}
			if err := writeImageBlock(cw, el.Image.Image); err != nil {
				return cw.n, err
			}
		default:
			return cw.n, fmt.Errorf("cache: page element has neither Line nor Image")
		}
	}
	return cw.n, nil
}

func readPage(r io.Reader) (page.Page, error) {
	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return page.Page{}, fmt.Errorf("cache: read element count: %w", common.ErrCorruptedCache)
	}
	if count > maxElementCount {
		return page.Page{}, fmt.Errorf("cache: element count %d exceeds max %d: %w", count, maxElementCount, common.ErrCorruptedCache)
	}
	p := page.Page{Elements: make([]page.Element, count)}
	for i := range p.Elements {
		var tag uint8
		if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
			return page.Page{}, fmt.Errorf("cache: read element tag: %w", common.ErrCorruptedCache)
		}
		var x, y int16
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return page.Page{}, fmt.Errorf("cache: read element x: %w", common.ErrCorruptedCache)
		}
		if err := binary.Read(r, binary.LittleEndian, &y); err != nil {
			return page.Page{}, fmt.Errorf("cache: read element y: %w", common.ErrCorruptedCache)
		}
		switch tag {
		case tagPageLine:
			tb, err := readTextBlock(r)
			if err != nil {
				return page.Page{}, err
			}
			p.Elements[i].Line = &page.PageLine{Line: tb, X: int(x), Y: int(y)}
		case tagPageImage:
			img, err := readImageBlock(r)
			if err != nil {
				return page.Page{}, err
			}
			p.Elements[i].Image = &page.PageImage{Image: img, X: int(x), Y: int(y)}
		default:
			return page.Page{}, fmt.Errorf("cache: unknown element tag %d: %w", tag, common.ErrCorruptedCache)
		}
	}
	return p, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
