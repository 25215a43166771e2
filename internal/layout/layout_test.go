package layout

import (
	"strings"
	"testing"

	"papyrus/common"
)

// fakeMetrics measures every rune as a fixed width and ignores style/font,
// which is enough to make line-break arithmetic exact and predictable.
type fakeMetrics struct {
	charWidth int
	space     int
	lineH     int
}

func (m *fakeMetrics) Width(fontID int, style common.GlyphStyle, s string) int {
	return m.charWidth * len([]rune(s))
}

func (m *fakeMetrics) LineHeight(fontID int) int { return m.lineH }
func (m *fakeMetrics) SpaceWidth(fontID int) int { return m.space }
func (m *fakeMetrics) SupportsGrayscale(fontID int) bool { return true }

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{charWidth: 10, space: 10, lineH: 20}
}

// fakeHyphenator offers one break exactly in the middle of any word of six
// or more runes, with a visible hyphen required.
type fakeHyphenator struct{}

func (fakeHyphenator) BreakOffsets(word string, strict bool) []HyphenBreak {
	runes := []rune(word)
	if len(runes) < 6 {
		return nil
	}
	mid := len(runes) / 2
	off := len(string(runes[:mid]))
	return []HyphenBreak{{ByteOffset: off, RequiresInsertedHyphen: true}}
}

func wordsFrom(wl *WordList) []string {
	out := make([]string, wl.Len())
	for i := range out {
		out[i], _ = wl.Get(i)
	}
	return out
}

func fillWords(wl *WordList, words ...string) {
	for _, w := range words {
		wl.AddWord(w, common.StyleRegular)
	}
}

func TestLayoutGreedyBasicWrap(t *testing.T) {
	m := newFakeMetrics()
	c := NewComposer(m, fakeHyphenator{})
	wl := NewWordList()
	fillWords(wl, "aaa", "bbb", "ccc", "ddd")

	var got []TextBlock
	err := c.Layout(wl, Params{
		FontID:          0,
		Width:           70, // fits "aaa bbb" (30+10+30=70) but not a third word
		UseGreedy:       true,
		IncludeLastLine: true,
		BlockStyle:      common.BlockLeft,
		ProcessLine:     func(b TextBlock) { got = append(got, b) },
	})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(got), got)
	}
	if len(got[0].Words) != 2 || got[0].Words[0].Text != "aaa" || got[0].Words[1].Text != "bbb" {
		t.Errorf("line 0 = %+v", got[0])
	}
	if len(got[1].Words) != 2 || got[1].Words[0].Text != "ccc" || got[1].Words[1].Text != "ddd" {
		t.Errorf("line 1 = %+v", got[1])
	}
	if wl.Len() != 0 {
		t.Errorf("expected word list drained, got %d remaining", wl.Len())
	}
}

func TestLayoutIncludeLastLineFalseRetainsTrailing(t *testing.T) {
	m := newFakeMetrics()
	c := NewComposer(m, fakeHyphenator{})
	wl := NewWordList()
	fillWords(wl, "aaa", "bbb", "ccc")

	var got []TextBlock
	err := c.Layout(wl, Params{
		Width:           1000,
		UseGreedy:       true,
		IncludeLastLine: false,
		BlockStyle:      common.BlockLeft,
		ProcessLine:     func(b TextBlock) { got = append(got, b) },
	})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no emitted lines (only trailing line exists), got %d", len(got))
	}
	if wl.Len() != 3 {
		t.Fatalf("expected all 3 words retained for next call, got %d", wl.Len())
	}
}

func TestLayoutInvalidViewport(t *testing.T) {
	m := newFakeMetrics()
	c := NewComposer(m, fakeHyphenator{})
	wl := NewWordList()
	fillWords(wl, "a")
	err := c.Layout(wl, Params{Width: 0, UseGreedy: true})
	if err == nil || !strings.Contains(err.Error(), "invalid viewport") {
		t.Fatalf("expected invalid viewport error, got %v", err)
	}
}

func TestLayoutCancellationIsLossless(t *testing.T) {
	m := newFakeMetrics()
	c := NewComposer(m, fakeHyphenator{})
	wl := NewWordList()
	fillWords(wl, "aaa", "bbb", "ccc", "ddd", "eee")

	calls := 0
	err := c.Layout(wl, Params{
		Width:           40,
		UseGreedy:       true,
		IncludeLastLine: true,
		BlockStyle:      common.BlockLeft,
		ShouldAbort:     func() bool { calls++; return true },
		ProcessLine:     func(b TextBlock) {},
	})
	if err != common.ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if wl.Len() != 5 {
		t.Fatalf("expected all words retained on abort, got %d", wl.Len())
	}
}

func TestWordListCJKSegmentation(t *testing.T) {
	wl := NewWordList()
	wl.AddWord("hi中文ok", common.StyleRegular)
	got := wordsFrom(wl)
	want := []string{"hi", "中", "文", "ok"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("run %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestWordListRejoinSplitMarkers(t *testing.T) {
	wl := NewWordList()
	wl.PushBack("hyphen"+softHyphen, common.StyleRegular)
	wl.PushBack("ated", common.StyleRegular)
	wl.PushBack("word", common.StyleRegular)

	wl.RejoinSplitMarkers()

	if wl.Len() != 2 {
		t.Fatalf("expected 2 words after rejoin, got %d: %v", wl.Len(), wordsFrom(wl))
	}
	first, _ := wl.Get(0)
	if first != "hyphenated" {
		t.Errorf("expected rejoined word 'hyphenated', got %q", first)
	}
}

func TestWordListRejoinNestedSplits(t *testing.T) {
	wl := NewWordList()
	wl.PushBack("super"+softHyphen, common.StyleRegular)
	wl.PushBack("cali"+softHyphen, common.StyleRegular)
	wl.PushBack("fragilistic", common.StyleRegular)

	wl.RejoinSplitMarkers()

	if wl.Len() != 1 {
		t.Fatalf("expected full rejoin to 1 word, got %d: %v", wl.Len(), wordsFrom(wl))
	}
	first, _ := wl.Get(0)
	if first != "supercalifragilistic" {
		t.Errorf("got %q", first)
	}
}

func TestAttachingPunctuation(t *testing.T) {
	cases := map[string]bool{
		".":    true,
		"...":  true,
		",\"":  true,
		"hi":   false,
		"":     false,
		"’”": true,
	}
	for s, want := range cases {
		if got := isAttachingPunctuation(s); got != want {
			t.Errorf("isAttachingPunctuation(%q) = %v, want %v", s, got, want)
		}
	}
}
