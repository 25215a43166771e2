// Package reader implements the Reader Cursor (C5): a flat, bidirectional
// navigation model over many section caches, with optional background
// cache-fill (§4.5).
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"papyrus/common"
	"papyrus/internal/cache"
	"papyrus/internal/page"
	"papyrus/internal/progress"
	"papyrus/internal/storage"
)

// Position is a flat reader position: which spine item and which page
// within its section cache. SectionPage == -1 denotes the cover
// pseudo-page, valid only when Spine == 0.
type Position struct {
	Spine       int
	SectionPage int
}

// Extender builds and grows section caches on demand. Cursor never drives
// C3 itself; it delegates that to whatever owns the document (in cmd/papyrus,
// a pipeline.SectionExtender running a parser.Driver over an internal/sax
// Parser per spine item).
type Extender interface {
	// Extend ensures the cache for spineIndex has at least minPages pages,
	// building from scratch if no cache exists yet and extending a partial
	// one otherwise. It returns the (possibly unchanged) opened cache; if
	// the section's source is exhausted before minPages is reached, it
	// returns the cache with whatever page count was achievable and no
	// error — callers detect insufficient coverage by comparing PageCount.
	Extend(ctx context.Context, spineIndex, minPages int) (*cache.Cache, error)
}

// Cursor is the reader's navigation state machine.
type Cursor struct {
	store       storage.Storage
	progressDir string
	log         *zap.Logger

	spineCount int
	hasCover   bool
	showImages bool
	extender   Extender

	mu     sync.Mutex // guards caches + pos, the one shared mutable resource (§5)
	caches map[int]*cache.Cache
	pos    Position

	bgCancel context.CancelFunc
	bgDone   chan struct{}

	// coverProvider renders the cover pseudo-page on demand (supplemented
	// feature: internal/imagecache's CoverFor(bookID)). Left unset, the
	// cover pseudo-page still navigates correctly but renders as an empty
	// page.
	coverProvider func() (page.Page, error)
}

// SetCoverProvider wires the cover pseudo-page's content, typically to
// internal/imagecache's CoverFor(bookID) result wrapped in a single-image
// Page.
func (c *Cursor) SetCoverProvider(fn func() (page.Page, error)) {
	c.coverProvider = fn
}

// NewCursor constructs a cursor over a document with spineCount sections.
func NewCursor(store storage.Storage, progressDir string, spineCount int, hasCover, showImages bool, extender Extender, log *zap.Logger) *Cursor {
	return &Cursor{
		store:       store,
		progressDir: progressDir,
		log:         log,
		spineCount:  spineCount,
		hasCover:    hasCover,
		showImages:  showImages,
		extender:    extender,
		caches:      map[int]*cache.Cache{},
		pos:         Position{Spine: 0, SectionPage: 0},
	}
}

// Restore loads progress.bin and sets the cursor's starting position,
// falling back to (0, 0) if no progress file exists.
func (c *Cursor) Restore() error {
	p, err := progress.Load(c.store, c.progressDir)
	if err != nil {
		c.pos = Position{Spine: 0, SectionPage: 0}
		return nil
	}
	c.mu.Lock()
	c.pos = Position{Spine: int(p.SpineIndex), SectionPage: int(p.SectionPage)}
	c.mu.Unlock()
	return nil
}

// Position returns the cursor's current, last-successfully-rendered
// position.
func (c *Cursor) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// CurrentPage reads the page at the cursor's current position.
func (c *Cursor) CurrentPage(ctx context.Context) (page.Page, error) {
	return c.GetPage(ctx, c.Position())
}

// GetPage ensures pos is cached and returns its contents.
func (c *Cursor) GetPage(ctx context.Context, pos Position) (page.Page, error) {
	if pos.SectionPage == -1 {
		return c.coverPage()
	}
	cc, err := c.ensureCached(ctx, pos.Spine, pos.SectionPage)
	if err != nil {
		return page.Page{}, err
	}
	return cc.ReadPage(pos.SectionPage)
}

func (c *Cursor) coverPage() (page.Page, error) {
	if !c.hasCover || !c.showImages {
		return page.Page{}, fmt.Errorf("reader: no cover page available: %w", common.ErrPageUnavailable)
	}
	if c.coverProvider != nil {
		return c.coverProvider()
	}
	return page.Page{}, nil
}

// ensureCached implements §4.5 ensure_cached: if page p exceeds the
// section's current page count, ask the Extender for at least one more
// batch; if it still falls short, PageUnavailable.
func (c *Cursor) ensureCached(ctx context.Context, spine, p int) (*cache.Cache, error) {
	if spine < 0 || spine >= c.spineCount {
		return nil, fmt.Errorf("reader: spine %d out of range [0,%d): %w", spine, c.spineCount, common.ErrPageUnavailable)
	}

	c.mu.Lock()
	cc := c.caches[spine]
	c.mu.Unlock()

	if cc != nil && p < cc.PageCount() {
		return cc, nil
	}

	grown, err := c.extender.Extend(ctx, spine, p+1)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.caches[spine] = grown
	c.mu.Unlock()

	if p >= grown.PageCount() {
		return nil, common.ErrPageUnavailable
	}
	return grown, nil
}

// NextPage advances the cursor by one page, crossing into the next spine
// item when the current section is exhausted (§4.5).
func (c *Cursor) NextPage(ctx context.Context) error {
	cur := c.Position()

	if cur.SectionPage == -1 {
		return c.moveTo(ctx, Position{Spine: 0, SectionPage: 0})
	}

	_, err := c.ensureCached(ctx, cur.Spine, cur.SectionPage+1)
	if err == nil {
		return c.moveTo(ctx, Position{Spine: cur.Spine, SectionPage: cur.SectionPage + 1})
	}
	if !errors.Is(err, common.ErrPageUnavailable) {
		return err
	}
	if cur.Spine+1 >= c.spineCount {
		return err
	}
	if _, err := c.ensureCached(ctx, cur.Spine+1, 0); err != nil {
		return err
	}
	return c.moveTo(ctx, Position{Spine: cur.Spine + 1, SectionPage: 0})
}

// PrevPage retreats the cursor by one page, crossing into the previous
// spine item's last cached page, or to the cover pseudo-page at the very
// start of the document (§4.5).
func (c *Cursor) PrevPage(ctx context.Context) error {
	cur := c.Position()

	if cur.SectionPage == -1 {
		return common.ErrPageUnavailable
	}
	if cur.SectionPage > 0 {
		return c.moveTo(ctx, Position{Spine: cur.Spine, SectionPage: cur.SectionPage - 1})
	}
	if cur.Spine == 0 {
		if c.hasCover && c.showImages {
			return c.moveTo(ctx, Position{Spine: 0, SectionPage: -1})
		}
		return common.ErrPageUnavailable
	}

	prevSpine := cur.Spine - 1
	cc, err := c.ensureCached(ctx, prevSpine, 0)
	if err != nil {
		return err
	}
	return c.moveTo(ctx, Position{Spine: prevSpine, SectionPage: cc.PageCount() - 1})
}

// moveTo updates the cursor position and persists progress immediately
// (§4.5 "progress save: ... whenever the cursor moves or exits").
func (c *Cursor) moveTo(ctx context.Context, pos Position) error {
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
	return c.saveProgress()
}

func (c *Cursor) saveProgress() error {
	pos := c.Position()
	sectionPage := pos.SectionPage
	if sectionPage == -1 {
		sectionPage = 0 // "the cover pseudo-page maps to (0, 0)" per §4.5
	}
	return progress.Save(c.store, c.progressDir, progress.Position{
		SpineIndex:  uint16(pos.Spine),
		SectionPage: int32(sectionPage),
	})
}

// StartBackgroundFill launches the single long-lived background worker
// that extends the current section's cache ahead of the reader, yielding
// to any foreground request via ctx cancellation (§4.5, §5).
func (c *Cursor) StartBackgroundFill(parent context.Context) {
	c.StopBackgroundFill()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	c.bgCancel = cancel
	c.bgDone = done

	go func() {
		defer close(done)
		c.backgroundFillLoop(ctx)
	}()
}

func (c *Cursor) backgroundFillLoop(ctx context.Context) {
	lastSpine := -1
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Re-read the current spine every iteration: the foreground reader
		// may have crossed into a new section since the last pass, and the
		// worker must always be extending the section the user is actually
		// viewing (§4.5), not the one current when StartBackgroundFill was
		// called.
		spine := c.Position().Spine

		c.mu.Lock()
		cc := c.caches[spine]
		c.mu.Unlock()
		next := 1
		if spine == lastSpine && cc != nil {
			next = cc.PageCount() + 1
		}
		lastSpine = spine

		grown, err := c.extender.Extend(ctx, spine, next)
		if err != nil {
			if c.log != nil {
				c.log.Debug("background fill stopped", zap.Int("spine", spine), zap.Error(err))
			}
			return
		}

		c.mu.Lock()
		prevCount := 0
		if c.caches[spine] != nil {
			prevCount = c.caches[spine].PageCount()
		}
		c.caches[spine] = grown
		c.mu.Unlock()

		if grown.PageCount() <= prevCount {
			// This section's source is exhausted; keep the worker alive so
			// it picks up whatever section the user navigates to next,
			// instead of exiting for the rest of the session.
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// StopBackgroundFill preempts and tears down the background worker, if
// any, blocking until it has actually stopped.
func (c *Cursor) StopBackgroundFill() {
	if c.bgCancel == nil {
		return
	}
	c.bgCancel()
	<-c.bgDone
	c.bgCancel = nil
	c.bgDone = nil
}
