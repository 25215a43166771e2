// Package imagecache implements the Image cache collaborator (§6.3): given
// a document-relative image reference, it decodes, resizes to fit the
// viewport, and persists a device-ready BMP, returning its path and pixel
// dimensions so the C3 driver can apply the tall-image and tiny-image rules
// of §4.2/§4.3.2 without touching image bytes itself.
package imagecache

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	"path"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"

	"papyrus/common"
	"papyrus/internal/storage"
	"papyrus/utils/images"
)

// CacheDir is the subdirectory, relative to a document's cache directory,
// that converted bitmaps are written under.
const CacheDir = "images"

type entry struct {
	path          string
	width, height int
}

// Cache is the default Image cache collaborator: a content-addressed bitmap
// store layered over a storage.Storage (§6.3). Safe for concurrent Cache
// calls from the foreground renderer and background fill worker (§5) since
// every mutation is guarded by mu and conversions never share state.
type Cache struct {
	store      storage.Storage
	sourceRoot string // where src/basePath references are read from (the document root)
	cacheRoot  string // where converted bitmaps are written (document's cache dir)
	viewportW  int
	viewportH  int
	log        *zap.Logger

	mu     sync.Mutex
	seen   map[string]entry // full source path -> converted result
	broken map[string]bool  // full source path -> previously failed, don't retry
	covers map[string]string
}

// New creates a Cache reading document-relative images under sourceRoot and
// writing converted bitmaps under cacheRoot/CacheDir, fitting them within
// viewportW x viewportH.
func New(store storage.Storage, sourceRoot, cacheRoot string, viewportW, viewportH int, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		store:      store,
		sourceRoot: sourceRoot,
		cacheRoot:  cacheRoot,
		viewportW:  viewportW,
		viewportH:  viewportH,
		log:        log.Named("image-cache"),
		seen:       map[string]entry{},
		broken:     map[string]bool{},
		covers:     map[string]string{},
	}
}

// RegisterCover associates bookID with the cover image's document-relative
// source and base path, so a later CoverFor(bookID) can resolve it without
// the Reader Cursor needing to know about source layout (supplemented
// feature 3, §4.5 cover pseudo-page).
func (c *Cache) RegisterCover(bookID, src, basePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.covers[bookID] = fullSourcePath(src, basePath)
}

// CoverFor converts and returns the cover image registered for bookID.
func (c *Cache) CoverFor(bookID string) (path string, width, height int, err error) {
	c.mu.Lock()
	full, ok := c.covers[bookID]
	c.mu.Unlock()
	if !ok {
		return "", 0, 0, fmt.Errorf("imagecache: no cover registered for %q: %w", bookID, common.ErrPageUnavailable)
	}
	p, w, h, ok := c.convert(full)
	if !ok {
		return "", 0, 0, fmt.Errorf("imagecache: cover conversion failed for %q: %w", bookID, common.ErrPageUnavailable)
	}
	return p, w, h, nil
}

// Cache implements parser.ImageCache: convert src (resolved against
// basePath) to a viewport-fitted BMP, memoizing by resolved source path so
// a repeated <img> reference across a chapter only decodes once.
func (c *Cache) Cache(src, basePath string) (p string, width, height int, ok bool) {
	if strings.TrimSpace(src) == "" {
		return "", 0, 0, false
	}
	return c.convert(fullSourcePath(src, basePath))
}

func fullSourcePath(src, basePath string) string {
	if basePath == "" {
		return src
	}
	return path.Join(path.Dir(basePath), src)
}

func (c *Cache) convert(full string) (string, int, int, bool) {
	c.mu.Lock()
	if e, ok := c.seen[full]; ok {
		c.mu.Unlock()
		return e.path, e.width, e.height, true
	}
	if c.broken[full] {
		c.mu.Unlock()
		return "", 0, 0, false
	}
	c.mu.Unlock()

	data, err := c.readAll(full)
	if err != nil {
		c.markBroken(full, "read", err)
		return "", 0, 0, false
	}

	img, err := decode(data)
	if err != nil {
		c.markBroken(full, "decode", err)
		return "", 0, 0, false
	}
	img = fitToViewport(img, c.viewportW, c.viewportH)
	if images.IsGrayscale(img) {
		img = toGray(img)
	}

	cachePath := path.Join(CacheDir, contentName(full)+".bmp")
	if err := c.writeBMP(cachePath, img); err != nil {
		c.markBroken(full, "encode", err)
		return "", 0, 0, false
	}

	b := img.Bounds()
	e := entry{path: cachePath, width: b.Dx(), height: b.Dy()}
	c.mu.Lock()
	c.seen[full] = e
	c.mu.Unlock()
	return e.path, e.width, e.height, true
}

func (c *Cache) markBroken(full, op string, err error) {
	c.log.Warn("unable to "+op+" image", zap.String("src", full), zap.Error(err))
	c.mu.Lock()
	c.broken[full] = true
	c.mu.Unlock()
}

func (c *Cache) readAll(full string) ([]byte, error) {
	rc, err := c.store.OpenRead(path.Join(c.sourceRoot, full))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Cache) writeBMP(cachePath string, img image.Image) error {
	wc, err := c.store.OpenWrite(path.Join(c.cacheRoot, cachePath))
	if err != nil {
		return err
	}
	defer wc.Close()
	return bmp.Encode(wc, img)
}

// decode dispatches on the sniffed container kind: SVG is rasterized via
// oksvg/rasterx at its own viewBox size (fitToViewport then shrinks it like
// any other image), everything else goes through imaging.Decode (which covers
// jpeg/png/gif plus bmp/tiff/webp once their packages are blank-imported).
func decode(data []byte) (image.Image, error) {
	kind, _ := filetype.Match(data)
	if kind.MIME.Value == "image/svg+xml" || looksLikeSVG(data) {
		return images.RasterizeSVGToImage(data, 0, 0, 0)
	}
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}

func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	return bytes.Contains(head, []byte("<svg"))
}

// fitToViewport resizes img down to fit within w x h, preserving aspect
// ratio, per §4.2's tall-image handling; images already smaller than the
// viewport are left untouched.
func fitToViewport(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if w <= 0 || h <= 0 || (b.Dx() <= w && b.Dy() <= h) {
		return img
	}
	return imaging.Fit(img, w, h, imaging.Lanczos)
}

func contentName(full string) string {
	sum := sha1.Sum([]byte(full))
	return hex.EncodeToString(sum[:])
}

// toGray converts an already-grayscale image to image.Gray so the BMP
// encoder writes 8bpp instead of 24bpp, since most viewport devices this
// cache serves have no color to display anyway.
func toGray(img image.Image) image.Image {
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}
