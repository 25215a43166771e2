package layout

import (
	"testing"

	"papyrus/common"
)

// TestGreedyTailHyphenationResetsLineWidth covers a regression where the
// accumulator for the line started by a tail-hyphenation suffix was left
// holding the just-completed prefix's width instead of resetting to the
// loop's initial sentinel. With charWidth=10/space=10/width=100, "alphabet"
// (80) cannot follow "one" (30) on a single line and is tail-hyphenated into
// "alph-"/"abet"; the suffix "abet" (40) must then combine with "two" (30)
// on the next line (40+10+30=80 <= 100) rather than being pushed onto a
// line of its own.
func TestGreedyTailHyphenationResetsLineWidth(t *testing.T) {
	m := newFakeMetrics()
	c := NewComposer(m, fakeHyphenator{})
	wl := NewWordList()
	fillWords(wl, "one", "alphabet", "two")

	var got []TextBlock
	err := c.Layout(wl, Params{
		Width:           100,
		UseGreedy:       true,
		HyphenEnabled:   true,
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

	line0 := got[0].Words
	if len(line0) != 2 || line0[0].Text != "one" || line0[1].Text != "alph-" {
		t.Fatalf("line 0 = %+v", line0)
	}

	line1 := got[1].Words
	if len(line1) != 2 || line1[0].Text != "abet" || line1[1].Text != "two" {
		t.Fatalf("line 1 = %+v, expected hyphenation suffix to combine with the following word", line1)
	}

	if wl.Len() != 0 {
		t.Errorf("expected word list drained, got %d remaining", wl.Len())
	}
}
