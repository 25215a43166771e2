package imagecache

import (
	"testing"

	"papyrus/internal/storage"
)

// tinyPNG is the smallest valid 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

const tinySVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><rect width="10" height="10"/></svg>`

func writeSource(t *testing.T, store *storage.Dir, name string, data []byte) {
	t.Helper()
	wc, err := store.OpenWrite(name)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if _, err := wc.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := wc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCacheDecodesAndResizesPNG(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewDir(dir)
	writeSource(t, store, "images/pic.png", tinyPNG)

	c := New(store, "", "cache", 600, 800, nil)
	p, w, h, ok := c.Cache("images/pic.png", "")
	if !ok {
		t.Fatal("expected Cache to succeed")
	}
	if w != 1 || h != 1 {
		t.Fatalf("expected 1x1 image, got %dx%d", w, h)
	}
	if exists, _ := store.Exists("cache/" + p); !exists {
		t.Fatalf("expected converted bitmap at cache/%s", p)
	}
}

func TestCacheMemoizesRepeatedSource(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewDir(dir)
	writeSource(t, store, "images/pic.png", tinyPNG)

	c := New(store, "", "cache", 600, 800, nil)
	p1, _, _, ok1 := c.Cache("images/pic.png", "")
	p2, _, _, ok2 := c.Cache("images/pic.png", "")
	if !ok1 || !ok2 || p1 != p2 {
		t.Fatalf("expected memoized repeat call to return same path, got %q/%q", p1, p2)
	}
}

func TestCacheMissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewDir(dir)
	c := New(store, "", "cache", 600, 800, nil)

	_, _, _, ok := c.Cache("nope.png", "")
	if ok {
		t.Fatal("expected Cache to fail for missing source")
	}
}

func TestCacheRasterizesSVG(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewDir(dir)
	writeSource(t, store, "images/pic.svg", []byte(tinySVG))

	c := New(store, "", "cache", 600, 800, nil)
	_, w, h, ok := c.Cache("images/pic.svg", "")
	if !ok {
		t.Fatal("expected SVG rasterization to succeed")
	}
	if w != 10 || h != 10 {
		t.Fatalf("expected 10x10 rasterized image, got %dx%d", w, h)
	}
}

func TestCacheResolvesRelativeToBasePath(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewDir(dir)
	writeSource(t, store, "chapters/images/pic.png", tinyPNG)

	c := New(store, "", "cache", 600, 800, nil)
	_, _, _, ok := c.Cache("images/pic.png", "chapters/ch1.html")
	if !ok {
		t.Fatal("expected Cache to resolve src relative to basePath's directory")
	}
}

func TestCoverForUnregisteredFails(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewDir(dir)
	c := New(store, "", "cache", 600, 800, nil)

	_, _, _, err := c.CoverFor("book-1")
	if err == nil {
		t.Fatal("expected error for unregistered cover")
	}
}

func TestCoverForRegistered(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewDir(dir)
	writeSource(t, store, "cover.png", tinyPNG)

	c := New(store, "", "cache", 600, 800, nil)
	c.RegisterCover("book-1", "cover.png", "")

	p, w, h, err := c.CoverFor("book-1")
	if err != nil {
		t.Fatalf("CoverFor: %v", err)
	}
	if p == "" || w != 1 || h != 1 {
		t.Fatalf("unexpected cover result: path=%q w=%d h=%d", p, w, h)
	}
}
