// Package layout implements the line composer: justified/aligned text
// layout over a word stream, with a Knuth-Plass optimal breaker and a greedy
// fallback bounded by a fixed memory budget.
package layout

import (
	"strings"

	"papyrus/common"
)

const softHyphen = "­"

// TextMetrics is the collaborator that measures glyph runs on the target
// panel. Widths and heights are in panel pixels.
type TextMetrics interface {
	Width(fontID int, style common.GlyphStyle, s string) int
	LineHeight(fontID int) int
	SpaceWidth(fontID int) int
	SupportsGrayscale(fontID int) bool
}

// HyphenBreak is one candidate break point inside a word, as returned by a
// Hyphenator, ordered left to right.
type HyphenBreak struct {
	ByteOffset             int
	RequiresInsertedHyphen bool
}

// Hyphenator is the dictionary-driven hyphenation collaborator.
type Hyphenator interface {
	BreakOffsets(word string, strict bool) []HyphenBreak
}

// PositionedWord is one word placed on a line, relative to the line's
// origin.
type PositionedWord struct {
	Text  string
	X     int
	Style common.GlyphStyle
}

// TextBlock is an immutable, laid-out line (§3 TextBlock).
type TextBlock struct {
	Words []PositionedWord
	Style common.BlockStyle
}

// Params bundles the per-call layout parameters threaded through the
// composer (§4.1.1).
type Params struct {
	FontID          int
	Width           int // W, viewport width in pixels
	UseGreedy       bool
	IncludeLastLine bool
	IndentLevel     int
	ParagraphStart  bool // true only for the first layout call of a paragraph
	RTL             bool
	HyphenEnabled   bool
	BlockStyle      common.BlockStyle
	ShouldAbort     func() bool
	ProcessLine     func(TextBlock)
}

// Composer owns the collaborators needed to lay out words into lines. It is
// stateless between calls other than through the WordList the caller passes
// in — all per-document state lives in the caller (C3).
type Composer struct {
	Metrics    TextMetrics
	Hyphenator Hyphenator
}

func NewComposer(metrics TextMetrics, hyph Hyphenator) *Composer {
	return &Composer{Metrics: metrics, Hyphenator: hyph}
}

func isAttachingPunctuation(s string) bool {
	if s == "" {
		return false
	}
	const set = ".,!?;:\"'’”"
	for _, r := range s {
		found := false
		for _, a := range set {
			if r == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func stripSoftHyphens(s string) string {
	if !strings.Contains(s, softHyphen) {
		return s
	}
	return strings.ReplaceAll(s, softHyphen, "")
}
