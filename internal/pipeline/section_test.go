package pipeline

import (
	"context"
	"testing"

	"golang.org/x/text/language"

	"papyrus/common"
	"papyrus/internal/cache"
	"papyrus/internal/cssresolve"
	"papyrus/internal/hyphen"
	"papyrus/internal/imagecache"
	"papyrus/internal/metrics"
	"papyrus/internal/parser"
	"papyrus/internal/storage"
)

func testParserConfig(store storage.Storage) parser.Config {
	m := metrics.New(18)
	return parser.Config{
		FontID:          1,
		ViewportWidth:   600,
		ViewportHeight:  800,
		LineCompression: 1.0,
		ParagraphAlign:  common.BlockJustified,
		HyphenEnabled:   false,
		ImagesEnabled:   false,
		Metrics:         m,
		Hyphenator:      hyphen.New(language.English, nil),
		CSS:             cssresolve.New(nil, nil),
		Images:          imagecache.New(store, "", "images", 600, 800, nil),
	}
}

func testRenderConfig() cache.RenderConfig {
	return cache.RenderConfig{
		FontID:             1,
		ParagraphAlignment: common.BlockJustified,
		ViewportWidth:      600,
		ViewportHeight:     800,
	}
}

func TestSectionExtenderBuildsFreshCache(t *testing.T) {
	store := storage.NewDir(t.TempDir())
	wc, err := store.OpenWrite("ch0.html")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = wc.Write([]byte("<p>Hello, world. This is a short paragraph of sample text for pagination.</p>"))
	wc.Close()

	ext := NewSectionExtender(store, store, []string{"ch0.html"}, []string{"ch0.cache"},
		testParserConfig(store), testRenderConfig(), "hash1", nil, nil)

	cc, err := ext.Extend(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if cc.PageCount() < 1 {
		t.Fatalf("expected at least one page, got %d", cc.PageCount())
	}
}

func TestSectionExtenderReusesCompleteCache(t *testing.T) {
	store := storage.NewDir(t.TempDir())
	wc, err := store.OpenWrite("ch0.html")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = wc.Write([]byte("<p>Hello, world.</p>"))
	wc.Close()

	ext := NewSectionExtender(store, store, []string{"ch0.html"}, []string{"ch0.cache"},
		testParserConfig(store), testRenderConfig(), "hash1", nil, nil)

	first, err := ext.Extend(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	second, err := ext.Extend(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("Extend (reuse): %v", err)
	}
	if first.PageCount() != second.PageCount() {
		t.Fatalf("expected stable page count across calls, got %d then %d", first.PageCount(), second.PageCount())
	}
}

func TestSectionExtenderRejectsOutOfRangeSpine(t *testing.T) {
	store := storage.NewDir(t.TempDir())
	ext := NewSectionExtender(store, store, []string{"ch0.html"}, []string{"ch0.cache"},
		testParserConfig(store), testRenderConfig(), "hash1", nil, nil)

	if _, err := ext.Extend(context.Background(), 5, 1); err == nil {
		t.Fatal("expected error for out-of-range spine index")
	}
}
