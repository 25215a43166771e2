package layout

import "testing"

func TestKnuthPlassEvenSplit(t *testing.T) {
	c := NewComposer(newFakeMetrics(), fakeHyphenator{})
	words := []string{"aaa", "bbb", "ccc", "ddd"}
	widths := []int{30, 30, 30, 30}
	breaks, ok := c.knuthPlassBreaks(words, widths, 70, 10, nil)
	if !ok {
		t.Fatal("DP aborted unexpectedly")
	}
	if len(breaks) != 2 || breaks[0] != 2 || breaks[1] != 4 {
		t.Fatalf("unexpected breaks: %v", breaks)
	}
}

func TestKnuthPlassOversizedWordForcedAlone(t *testing.T) {
	c := NewComposer(newFakeMetrics(), fakeHyphenator{})
	words := []string{"short", "waaaaaaaaaaaaaaaaaaaaaaaaaaay-too-long-for-the-line", "end"}
	widths := []int{30, 500, 30}
	breaks, ok := c.knuthPlassBreaks(words, widths, 70, 10, nil)
	if !ok {
		t.Fatal("DP aborted unexpectedly")
	}
	if len(breaks) != 3 {
		t.Fatalf("expected 3 lines (oversized word isolated), got %v", breaks)
	}
	if breaks[0] != 1 || breaks[1] != 2 || breaks[2] != 3 {
		t.Fatalf("expected one word per line, got %v", breaks)
	}
}

func TestKnuthPlassAbortReturnsFalse(t *testing.T) {
	c := NewComposer(newFakeMetrics(), fakeHyphenator{})
	words := make([]string, 150)
	widths := make([]int, 150)
	for i := range words {
		words[i] = "x"
		widths[i] = 10
	}
	_, ok := c.knuthPlassBreaks(words, widths, 70, 10, func() bool { return true })
	if ok {
		t.Fatal("expected abort to short-circuit DP")
	}
}
