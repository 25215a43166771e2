package cache

import (
	"errors"
	"testing"

	"papyrus/common"
	"papyrus/internal/layout"
	"papyrus/internal/page"
	"papyrus/internal/storage"
)

func samplePages() []page.Page {
	line := func(text string, x int) page.Page {
		return page.Page{Elements: []page.Element{{Line: &page.PageLine{
			X: 0, Y: 0,
			Line: layout.TextBlock{
				Style: common.BlockJustified,
				Words: []layout.PositionedWord{{Text: text, X: x, Style: common.StyleRegular}},
			},
		}}}}
	}
	img := page.Page{Elements: []page.Element{{Image: &page.PageImage{
		X: 10, Y: 20,
		Image: page.ImageBlock{Path: "cover.bmp", Width: 300, Height: 400},
	}}}}
	return []page.Page{line("hello", 0), img, line("world", 5)}
}

func sampleConfig() RenderConfig {
	return RenderConfig{
		FontID:                1,
		LineCompression:       1.0,
		ExtraParagraphSpacing: false,
		ParagraphAlignment:    common.BlockJustified,
		ViewportWidth:         600,
		ViewportHeight:        800,
	}
}

func buildCache(t *testing.T, store storage.Storage, path string, cfg RenderConfig, pages []page.Page, suspended bool) {
	t.Helper()
	w, err := Begin(store, path, cfg)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, p := range pages {
		if err := w.AppendPage(p); err != nil {
			t.Fatalf("AppendPage: %v", err)
		}
	}
	if err := w.Finalize(suspended); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	dir := storage.NewDir(t.TempDir())
	cfg := sampleConfig()
	pages := samplePages()
	buildCache(t, dir, "ch1.bin", cfg, pages, false)

	c, err := Open(dir, "ch1.bin", cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.PageCount() != len(pages) {
		t.Fatalf("expected %d pages, got %d", len(pages), c.PageCount())
	}
	for i, want := range pages {
		got, err := c.ReadPage(i)
		if err != nil {
			t.Fatalf("ReadPage(%d): %v", i, err)
		}
		assertPagesEqual(t, i, want, got)
	}
	if partial, _ := c.Partial(); partial {
		t.Fatal("expected non-suspended build to not be marked partial")
	}
}

func TestCachePartialMarker(t *testing.T) {
	dir := storage.NewDir(t.TempDir())
	cfg := sampleConfig()
	buildCache(t, dir, "ch1.bin", cfg, samplePages()[:1], true)

	c, err := Open(dir, "ch1.bin", cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	partial, err := c.Partial()
	if err != nil {
		t.Fatalf("Partial: %v", err)
	}
	if !partial {
		t.Fatal("expected suspended build to be marked partial")
	}
}

func TestCacheInvalidatesOnConfigChange(t *testing.T) {
	dir := storage.NewDir(t.TempDir())
	cfg := sampleConfig()
	buildCache(t, dir, "ch1.bin", cfg, samplePages(), false)

	changed := cfg
	changed.ViewportWidth = 601
	_, err := Open(dir, "ch1.bin", changed)
	if err == nil {
		t.Fatal("expected Open to fail after render configuration changed")
	}
	if !errors.Is(err, common.ErrCorruptedCache) {
		t.Fatalf("expected ErrCorruptedCache, got %v", err)
	}
	if ok, _ := dir.Exists("ch1.bin"); ok {
		t.Fatal("expected invalidated cache file to be removed")
	}
}

func TestCacheExtendAppendsPages(t *testing.T) {
	dir := storage.NewDir(t.TempDir())
	cfg := sampleConfig()
	all := samplePages()
	buildCache(t, dir, "ch1.bin", cfg, all[:1], true)

	w, err := Extend(dir, "ch1.bin", cfg)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	for _, p := range all[1:] {
		if err := w.AppendPage(p); err != nil {
			t.Fatalf("AppendPage: %v", err)
		}
	}
	if err := w.Finalize(false); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	c, err := Open(dir, "ch1.bin", cfg)
	if err != nil {
		t.Fatalf("Open after extend: %v", err)
	}
	if c.PageCount() != len(all) {
		t.Fatalf("expected %d pages after extend, got %d", len(all), c.PageCount())
	}
	for i, want := range all {
		got, err := c.ReadPage(i)
		if err != nil {
			t.Fatalf("ReadPage(%d): %v", i, err)
		}
		assertPagesEqual(t, i, want, got)
	}
}

func assertPagesEqual(t *testing.T, i int, want, got page.Page) {
	t.Helper()
	if len(want.Elements) != len(got.Elements) {
		t.Fatalf("page %d: element count mismatch: want %d got %d", i, len(want.Elements), len(got.Elements))
	}
	for j := range want.Elements {
		we, ge := want.Elements[j], got.Elements[j]
		switch {
		case we.Line != nil:
			if ge.Line == nil {
				t.Fatalf("page %d element %d: expected line", i, j)
			}
			if we.Line.X != ge.Line.X || we.Line.Y != ge.Line.Y {
				t.Fatalf("page %d element %d: position mismatch", i, j)
			}
			if we.Line.Line.Style != ge.Line.Line.Style {
				t.Fatalf("page %d element %d: block style mismatch", i, j)
			}
			if len(we.Line.Line.Words) != len(ge.Line.Line.Words) {
				t.Fatalf("page %d element %d: word count mismatch", i, j)
			}
			for k := range we.Line.Line.Words {
				ww, gw := we.Line.Line.Words[k], ge.Line.Line.Words[k]
				if ww.Text != gw.Text || ww.X != gw.X || ww.Style != gw.Style {
					t.Fatalf("page %d element %d word %d: mismatch want %+v got %+v", i, j, k, ww, gw)
				}
			}
		case we.Image != nil:
			if ge.Image == nil {
				t.Fatalf("page %d element %d: expected image", i, j)
			}
			if *we.Image != *ge.Image {
				t.Fatalf("page %d element %d: image mismatch want %+v got %+v", i, j, *we.Image, *ge.Image)
			}
		}
	}
}
