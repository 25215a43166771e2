// Package common holds small value types shared across the pagination
// pipeline (C1-C5) that would otherwise create import cycles between them.
package common

import "fmt"

// GlyphStyle is the style tag carried by a glyph run / word (§3 Glyph run).
type GlyphStyle int

const (
	StyleRegular GlyphStyle = iota
	StyleBold
	StyleItalic
	StyleBoldItalic
)

func (s GlyphStyle) String() string {
	switch s {
	case StyleRegular:
		return "regular"
	case StyleBold:
		return "bold"
	case StyleItalic:
		return "italic"
	case StyleBoldItalic:
		return "bold-italic"
	default:
		return fmt.Sprintf("GlyphStyle(%d)", int(s))
	}
}

// CombineEmphasis merges two independently-tracked bold/italic flags into a
// single style tag, as C3 does when both an HTML tag (<b>/<i>) and a CSS
// declaration (font-weight/font-style) may each request emphasis.
func CombineEmphasis(bold, italic bool) GlyphStyle {
	switch {
	case bold && italic:
		return StyleBoldItalic
	case bold:
		return StyleBold
	case italic:
		return StyleItalic
	default:
		return StyleRegular
	}
}

// BlockStyle is the paragraph-level alignment of a TextBlock (§3 TextBlock).
type BlockStyle int

const (
	BlockJustified BlockStyle = iota
	BlockLeft
	BlockCenter
	BlockRight
)

func (b BlockStyle) String() string {
	switch b {
	case BlockJustified:
		return "justified"
	case BlockLeft:
		return "left"
	case BlockCenter:
		return "center"
	case BlockRight:
		return "right"
	default:
		return fmt.Sprintf("BlockStyle(%d)", int(b))
	}
}

// Direction is the paragraph writing direction, as resolved by the CSS
// resolver collaborator or an explicit dir="" attribute (§4.3.1).
type Direction int

const (
	DirLTR Direction = iota
	DirRTL
)

func (d Direction) String() string {
	if d == DirRTL {
		return "rtl"
	}
	return "ltr"
}
