// Package pipeline wires the streaming parser driver (C3) to the on-disk
// section cache (§4.4) behind the reader.Extender interface (§5, §9 Design
// notes), so the cursor (C5) can ask "give me at least N pages for spine
// item I" without knowing anything about SAX parsing, CSS resolution or
// text layout.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"papyrus/internal/anchors"
	"papyrus/internal/cache"
	"papyrus/internal/parser"
	"papyrus/internal/sax"
	"papyrus/internal/storage"
)

// SectionExtender is the production internal/reader.Extender: each call
// either opens an already-sufficient cache, or runs/resumes the driver for
// exactly one batch and appends whatever pages that batch produced.
type SectionExtender struct {
	sourceStore storage.Storage // where chapter source documents live
	cacheStore  storage.Storage // where section cache files live
	spinePaths  []string        // source document paths, one per spine index
	cachePaths  []string        // section cache file paths, one per spine index
	cfg         parser.Config
	renderCfg   cache.RenderConfig
	renderHash  string
	anchorIdx   *anchors.Index
	log         *zap.Logger

	mu      sync.Mutex
	offsets map[int]int64 // resume offset per spine index, valid for this process's lifetime only
}

// NewSectionExtender constructs an extender over a fixed spine. spinePaths
// and cachePaths must be parallel slices, one entry per spine index, each
// resolved against sourceStore and cacheStore respectively.
func NewSectionExtender(
	sourceStore, cacheStore storage.Storage,
	spinePaths, cachePaths []string,
	cfg parser.Config,
	renderCfg cache.RenderConfig,
	renderHash string,
	anchorIdx *anchors.Index,
	log *zap.Logger,
) *SectionExtender {
	return &SectionExtender{
		sourceStore: sourceStore,
		cacheStore:  cacheStore,
		spinePaths:  spinePaths,
		cachePaths:  cachePaths,
		cfg:         cfg,
		renderCfg:   renderCfg,
		renderHash:  renderHash,
		anchorIdx:   anchorIdx,
		log:         log,
		offsets:     make(map[int]int64),
	}
}

// Extend implements internal/reader.Extender.
func (e *SectionExtender) Extend(ctx context.Context, spineIndex, minPages int) (*cache.Cache, error) {
	if spineIndex < 0 || spineIndex >= len(e.cachePaths) {
		return nil, fmt.Errorf("pipeline: spine %d out of range [0,%d)", spineIndex, len(e.cachePaths))
	}
	path := e.cachePaths[spineIndex]

	exists, err := e.cacheStore.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: probe cache %s: %w", path, err)
	}

	var (
		w    *cache.Writer
		base int
	)
	if exists {
		existing, err := cache.Open(e.cacheStore, path, e.renderCfg)
		if err != nil {
			return nil, err
		}
		if existing.PageCount() >= minPages {
			return existing, nil
		}
		partial, err := existing.Partial()
		if err != nil {
			return nil, err
		}
		if !partial {
			// Section is fully rendered already and simply has fewer pages
			// than minPages asked for; nothing more can be produced.
			return existing, nil
		}
		e.mu.Lock()
		_, resumable := e.offsets[spineIndex]
		e.mu.Unlock()
		if !resumable {
			// No resume offset from this process: parse the section again
			// from its start and replace the partial cache.
			if w, err = cache.Begin(e.cacheStore, path, e.renderCfg); err != nil {
				return nil, err
			}
		} else {
			base = existing.PageCount()
			if w, err = cache.Extend(e.cacheStore, path, e.renderCfg); err != nil {
				return nil, err
			}
		}
	} else {
		if w, err = cache.Begin(e.cacheStore, path, e.renderCfg); err != nil {
			return nil, err
		}
	}

	saxp := sax.New(e.sourceStore, e.spinePaths[spineIndex])
	defer saxp.Close()

	driver := parser.NewDriver(e.cfg, saxp, base)

	e.mu.Lock()
	offset := e.offsets[spineIndex]
	e.mu.Unlock()

	var result parser.Result
	if offset > 0 {
		result, err = driver.Resume(offset)
	} else {
		result, err = driver.Run()
	}
	if err != nil {
		_ = w.Discard()
		return nil, fmt.Errorf("pipeline: parse spine %d: %w", spineIndex, err)
	}

	for _, p := range result.Pages {
		if err := w.AppendPage(p); err != nil {
			_ = w.Discard()
			return nil, err
		}
	}
	if err := w.Finalize(result.Suspended); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if result.Suspended {
		e.offsets[spineIndex] = result.Offset
	} else {
		delete(e.offsets, spineIndex)
	}
	e.mu.Unlock()

	if e.anchorIdx != nil && len(result.Anchors) > 0 {
		if err := e.anchorIdx.Replace(e.renderHash, spineIndex, result.Anchors); err != nil && e.log != nil {
			e.log.Warn("failed to persist anchor index", zap.Int("spine", spineIndex), zap.Error(err))
		}
	}

	return cache.Open(e.cacheStore, path, e.renderCfg)
}
