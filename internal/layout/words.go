package layout

import (
	"strings"
	"unicode/utf8"

	"papyrus/common"
)

// word is one entry in a WordList: a run of text carrying a single style. A
// prefix split off an original token by hyphenation (§4.1.4) ends in a soft
// hyphen marker; extraction renders a trailing marker as a literal '-'.
type word struct {
	text  string
	style common.GlyphStyle
}

// WordList is the ordered, mutable sequence of words a paragraph (or
// continuation thereof) is laid out from. It is implemented as a slice with a
// head index so PopFront/DropFront are O(1) amortized, while InsertAt/RemoveAt
// (needed for hyphenation splits and rejoin passes) remain O(n) like any
// array-backed deque; paragraphs rarely exceed a few hundred words so this is
// not a bottleneck.
type WordList struct {
	runs []word
	head int
}

// NewWordList returns an empty word list.
func NewWordList() *WordList {
	return &WordList{}
}

// Len reports the number of words currently in the list.
func (wl *WordList) Len() int {
	return len(wl.runs) - wl.head
}

// Get returns the word at index i (0 is the front of the list).
func (wl *WordList) Get(i int) (string, common.GlyphStyle) {
	w := wl.runs[wl.head+i]
	return w.text, w.style
}

// Set replaces the word at index i in place.
func (wl *WordList) Set(i int, text string, style common.GlyphStyle) {
	wl.runs[wl.head+i] = word{text: text, style: style}
}

// PopFront removes and returns the first word in the list.
func (wl *WordList) PopFront() (string, common.GlyphStyle) {
	w := wl.runs[wl.head]
	wl.runs[wl.head] = word{}
	wl.head++
	wl.compact()
	return w.text, w.style
}

// DropFront discards the first n words without returning them.
func (wl *WordList) DropFront(n int) {
	for i := 0; i < n && wl.Len() > 0; i++ {
		wl.PopFront()
	}
}

// compact reclaims the dead prefix once it dominates the live slice, so a
// long-running paragraph doesn't grow its backing array without bound.
func (wl *WordList) compact() {
	if wl.head > 64 && wl.head*2 > len(wl.runs) {
		wl.runs = append([]word(nil), wl.runs[wl.head:]...)
		wl.head = 0
	}
}

// PushBack appends a word to the end of the list.
func (wl *WordList) PushBack(text string, style common.GlyphStyle) {
	wl.runs = append(wl.runs, word{text: text, style: style})
}

// InsertAt inserts a word so that it becomes index i, shifting the
// remainder right.
func (wl *WordList) InsertAt(i int, text string, style common.GlyphStyle) {
	pos := wl.head + i
	wl.runs = append(wl.runs, word{})
	copy(wl.runs[pos+1:], wl.runs[pos:])
	wl.runs[pos] = word{text: text, style: style}
}

// RemoveAt deletes the word at index i.
func (wl *WordList) RemoveAt(i int) {
	pos := wl.head + i
	copy(wl.runs[pos:], wl.runs[pos+1:])
	wl.runs = wl.runs[:len(wl.runs)-1]
}

// cjkRanges are the glyph-cluster boundaries of §4.1.2: scripts whose words
// are not space-delimited are segmented one rune at a time so the composer
// can break a line between any two of their glyphs.
var cjkRanges = [][2]rune{
	{0x3040, 0x309F}, // Hiragana
	{0x30A0, 0x30FF}, // Katakana
	{0x3400, 0x4DBF}, // CJK Extension A
	{0x4E00, 0x9FFF}, // CJK Unified Ideographs
	{0xAC00, 0xD7AF}, // Hangul Syllables
	{0xF900, 0xFAFF}, // CJK Compatibility Ideographs
	{0xFF00, 0xFFEF}, // Halfwidth and Fullwidth Forms
	{0x20000, 0x2A6DF}, // CJK Extension B
}

func isCJK(r rune) bool {
	for _, rg := range cjkRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// AddWord appends s to the list, first splitting it into individual
// glyph-cluster runs wherever it contains a CJK codepoint (§4.1.2), since
// those scripts carry no space delimiters for the composer to break on.
// Runs of non-CJK text within s are kept whole.
func (wl *WordList) AddWord(s string, style common.GlyphStyle) {
	if s == "" {
		return
	}
	if !strings.ContainsFunc(s, isCJK) {
		wl.PushBack(s, style)
		return
	}
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			wl.PushBack(buf.String(), style)
			buf.Reset()
		}
	}
	for _, r := range s {
		if isCJK(r) {
			flush()
			wl.PushBack(string(r), style)
			continue
		}
		buf.WriteRune(r)
	}
	flush()
}

// RejoinSplitMarkers reverses pre-splitting (§4.1.3): any run still ending in
// a soft hyphen, followed immediately by a run of the same style, is merged
// back into its successor. This runs once per incoming line of un-laid-out
// words before a fresh Layout() pass, so a word that was split to fit an
// earlier, narrower viewport is re-measured whole against the new one.
func (wl *WordList) RejoinSplitMarkers() {
	for i := 0; i < wl.Len()-1; {
		text, style := wl.Get(i)
		if !strings.HasSuffix(text, softHyphen) {
			i++
			continue
		}
		nextText, nextStyle := wl.Get(i + 1)
		if nextStyle != style {
			i++
			continue
		}
		merged := strings.TrimSuffix(text, softHyphen) + nextText
		wl.Set(i, merged, style)
		wl.RemoveAt(i + 1)
		// Re-examine the merged run: it may itself now end in a soft
		// hyphen if more than two pieces were split from one word.
	}
}

// runeLen counts the runes of s rather than its bytes; nothing in the package
// calls it at present.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
