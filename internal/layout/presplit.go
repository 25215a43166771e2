package layout

import (
	"strings"

	"papyrus/common"
)

// maxPresplitIterations bounds the rightmost-soft-hyphen search loop of
// §4.1.4 so a pathological word (thousands of soft hyphens, none of which
// ever fit) cannot spin forever.
const maxPresplitIterations = 100

// presplitOversizedWords walks the word list once and splits any word whose
// stripped width exceeds W into hyphen-joined pieces that each fit, per
// §4.1.4. It must run before width measurement (§4.1.5) and only when
// hyphenation is enabled. It yields to shouldAbort every 50 words; on abort
// the list is left in a resumable state — split pieces still carry soft
// hyphen markers rather than a literal '-', so a later RejoinSplitMarkers
// pass can undo the split exactly.
func (c *Composer) presplitOversizedWords(wl *WordList, fontID, width int, shouldAbort func() bool) bool {
	for i := 0; i < wl.Len(); i++ {
		if shouldAbort != nil && i%50 == 0 && shouldAbort() {
			return false
		}
		text, style := wl.Get(i)
		if c.Metrics.Width(fontID, style, stripSoftHyphens(text)) <= width {
			continue
		}
		c.splitOneWord(wl, i, fontID, style, width)
	}
	return true
}

// splitOneWord repeatedly peels a fitting prefix off the word at index i
// until the remainder fits, inserting each prefix as its own list entry
// ahead of the shrinking remainder.
func (c *Composer) splitOneWord(wl *WordList, i, fontID int, style common.GlyphStyle, width int) {
	text, _ := wl.Get(i)
	for iter := 0; iter < maxPresplitIterations; iter++ {
		if c.Metrics.Width(fontID, style, stripSoftHyphens(text)) <= width {
			wl.Set(i, text, style)
			return
		}
		prefix, suffix, ok := c.splitOnce(text, fontID, style, width)
		if !ok {
			// Pathological: no prefix fits. Emit verbatim.
			wl.Set(i, text, style)
			return
		}
		wl.InsertAt(i, prefix, style)
		i++
		text = suffix
	}
	wl.Set(i, text, style)
}

// splitOnce finds a single fitting split point in text, preferring the
// rightmost existing soft hyphen; falling back to the hyphenation
// collaborator when text carries none. The returned prefix always ends in
// U+00AD (never a literal '-') so the list stays in the soft-marker form
// required for lossless cancellation; extraction (§4.1.7) is responsible for
// turning a trailing U+00AD into a visible '-' at emission time.
func (c *Composer) splitOnce(text string, fontID int, style common.GlyphStyle, width int) (prefix, suffix string, ok bool) {
	if strings.Contains(text, softHyphen) {
		return c.splitAtRightmostSoftHyphen(text, fontID, style, width)
	}
	if c.Hyphenator == nil {
		return "", "", false
	}
	breaks := c.Hyphenator.BreakOffsets(text, true)
	for k := len(breaks) - 1; k >= 0; k-- {
		b := breaks[k]
		candidate := text[:b.ByteOffset]
		measured := candidate
		if b.RequiresInsertedHyphen {
			measured = candidate + "-"
		}
		if c.Metrics.Width(fontID, style, measured) <= width {
			return candidate + softHyphen, text[b.ByteOffset:], true
		}
	}
	return "", "", false
}

// splitAtRightmostSoftHyphen scans the soft-hyphen positions already present
// in text from right to left and returns the first prefix (with its visible
// '-' accounted for) that fits width.
func (c *Composer) splitAtRightmostSoftHyphen(text string, fontID int, style common.GlyphStyle, width int) (prefix, suffix string, ok bool) {
	positions := softHyphenOffsets(text)
	for k := len(positions) - 1; k >= 0; k-- {
		off := positions[k]
		candidate := stripSoftHyphens(text[:off])
		if c.Metrics.Width(fontID, style, candidate+"-") <= width {
			return candidate + softHyphen, text[off+len(softHyphen):], true
		}
	}
	return "", "", false
}

// softHyphenOffsets returns the byte offsets of every U+00AD in s, in
// left-to-right order.
func softHyphenOffsets(s string) []int {
	var out []int
	for i := 0; i+len(softHyphen) <= len(s); {
		if s[i:i+len(softHyphen)] == softHyphen {
			out = append(out, i)
			i += len(softHyphen)
			continue
		}
		i++
	}
	return out
}
