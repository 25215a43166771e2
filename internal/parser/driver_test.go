package parser

import (
	"testing"

	"papyrus/common"
	"papyrus/internal/layout"
)

// fakeMetrics measures every rune as a fixed width, making line-break
// arithmetic exact and predictable.
type fakeMetrics struct{}

func (fakeMetrics) Width(fontID int, style common.GlyphStyle, s string) int {
	return 10 * len([]rune(s))
}
func (fakeMetrics) LineHeight(fontID int) int      { return 20 }
func (fakeMetrics) SpaceWidth(fontID int) int      { return 10 }
func (fakeMetrics) SupportsGrayscale(int) bool     { return true }

type noopHyphenator struct{}

func (noopHyphenator) BreakOffsets(word string, strict bool) []layout.HyphenBreak { return nil }

// fakeCSS resolves no styles at all; every element keeps its built-in
// dispatch style.
type fakeCSS struct{}

func (fakeCSS) CombinedStyle(tag, classAttr string) Style { return Style{} }
func (fakeCSS) ParseInlineStyle(styleAttr string) Style   { return Style{} }

type fakeImages struct{}

func (fakeImages) Cache(src, basePath string) (string, int, int, bool) { return "", 0, 0, false }

type noTinyPolicy struct{}

func (noTinyPolicy) Skips(w, h int) bool { return false }

// scriptedSAX replays a fixed event sequence through the handler in one
// Run call, ignoring shouldAbort (the driver tests below exercise the
// makePages/assembler wiring, not mid-document suspension).
type scriptedSAX struct {
	events []func(SAXHandler)
}

func (s *scriptedSAX) Run(h SAXHandler, shouldAbort func() bool) (int64, bool, error) {
	for _, ev := range s.events {
		ev(h)
	}
	return int64(len(s.events)), false, nil
}

func (s *scriptedSAX) Resume(offset int64, h SAXHandler, shouldAbort func() bool) (int64, bool, error) {
	return s.Run(h, shouldAbort)
}

func (s *scriptedSAX) Close() error { return nil }

func start(tag string, attrs Attrs, depth int) func(SAXHandler) {
	return func(h SAXHandler) { h.OnElementStart(tag, attrs, depth) }
}

func end(tag string, depth int) func(SAXHandler) {
	return func(h SAXHandler) { h.OnElementEnd(tag, depth) }
}

func text(s string) func(SAXHandler) {
	return func(h SAXHandler) { h.OnCharacterData([]byte(s)) }
}

func baseConfig() Config {
	return Config{
		FontID:          0,
		ViewportWidth:   100,
		ViewportHeight:  60,
		LineCompression: 1,
		ParagraphAlign:  common.BlockJustified,
		UseGreedy:       true,
		TinyImagePolicy: noTinyPolicy{},
		Metrics:         fakeMetrics{},
		Hyphenator:      noopHyphenator{},
		CSS:             fakeCSS{},
		Images:          fakeImages{},
	}
}

func TestDriverSingleParagraphProducesPage(t *testing.T) {
	sax := &scriptedSAX{events: []func(SAXHandler){
		start("p", Attrs{}, 1),
		text("hi there"),
		end("p", 1),
	}}
	d := NewDriver(baseConfig(), sax, 0)
	res, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(res.Pages))
	}
	if len(res.Pages[0].Elements) == 0 {
		t.Fatal("expected page to hold at least one line")
	}
}

func TestDriverRecordsAnchor(t *testing.T) {
	sax := &scriptedSAX{events: []func(SAXHandler){
		start("p", Attrs{"id": "ch1"}, 1),
		text("hello"),
		end("p", 1),
	}}
	d := NewDriver(baseConfig(), sax, 5)
	res, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Anchors) != 1 || res.Anchors[0].Name != "ch1" {
		t.Fatalf("expected anchor ch1, got %+v", res.Anchors)
	}
	if res.Anchors[0].Page != 5 {
		t.Fatalf("expected anchor page 5 (flat base + 0 completed pages), got %d", res.Anchors[0].Page)
	}
}

func TestDriverHeadingIsBoldAndCentered(t *testing.T) {
	sax := &scriptedSAX{events: []func(SAXHandler){
		start("h1", Attrs{}, 1),
		text("Title"),
		end("h1", 1),
	}}
	d := NewDriver(baseConfig(), sax, 0)
	res, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.blockStyle != common.BlockCenter {
		t.Fatalf("expected trailing block style center, got %v", d.blockStyle)
	}
	if len(res.Pages) == 0 || len(res.Pages[0].Elements) == 0 || res.Pages[0].Elements[0].Line == nil {
		t.Fatalf("expected the heading line on the first page, got %+v", res.Pages)
	}
	if words := res.Pages[0].Elements[0].Line.Line.Words; len(words) != 1 || words[0].Style != common.StyleBold {
		t.Fatalf("expected one bold heading word, got %+v", words)
	}
}

func TestDriverTableIsSkippedButNoted(t *testing.T) {
	sax := &scriptedSAX{events: []func(SAXHandler){
		start("p", Attrs{}, 1),
		start("table", Attrs{}, 2),
		text("cell data should be skipped"),
		end("table", 2),
		end("p", 1),
	}}
	d := NewDriver(baseConfig(), sax, 0)
	res, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(res.Pages))
	}
	for _, el := range res.Pages[0].Elements {
		if el.Line == nil {
			continue
		}
		for _, w := range el.Line.Line.Words {
			if w.Text == "cell" || w.Text == "data" {
				t.Fatalf("expected table contents to be skipped, found word %q", w.Text)
			}
		}
	}
}

func TestDriverEntityResolution(t *testing.T) {
	sax := &scriptedSAX{events: []func(SAXHandler){
		start("p", Attrs{}, 1),
		text("Tom &amp; Jerry"),
		end("p", 1),
	}}
	d := NewDriver(baseConfig(), sax, 0)
	res, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, el := range res.Pages[0].Elements {
		if el.Line == nil {
			continue
		}
		for _, w := range el.Line.Line.Words {
			if w.Text == "&" {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected &amp; to resolve to a literal & word")
	}
}
