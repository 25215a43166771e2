// Package parser implements the chapter parser driver (C3): the SAX-event
// state machine that turns one section's markup into a sequence of pages by
// driving the line composer (C1) and page assembler (C2).
package parser

import (
	"strings"
	"time"

	"papyrus/common"
	"papyrus/internal/entities"
	"papyrus/internal/layout"
	"papyrus/internal/page"
)

// wordBufferCap is the 200-byte character-data accumulation buffer of
// §4.3.3.
const wordBufferCap = 200

// emergencySplitWords is the per-text-block word count that arms the
// deferred emergency split of §4.3.5.
const emergencySplitWords = 750

// depthThreshold tracks one style/skip region using the depth-threshold
// idiom of §9 (no tag-node graph): active while depth > value, cleared once
// depth falls back to value or below.
type depthThreshold struct {
	value int
	set   bool
}

func (d *depthThreshold) activate(newDepth int) {
	if !d.set {
		d.value = newDepth - 1
		d.set = true
	}
}

func (d *depthThreshold) deactivateIfClosed(depth int) {
	if d.set && depth <= d.value {
		d.set = false
	}
}

func (d *depthThreshold) active() bool {
	return d.set
}

// Driver is the chapter parser driver. One Driver handles exactly one
// section; its SAXParser collaborator is reopened per Run/Resume.
type Driver struct {
	cfg      Config
	composer *layout.Composer

	sax SAXParser

	depth int

	skip       depthThreshold
	bold       depthThreshold
	italic     depthThreshold
	cssBold    depthThreshold
	cssItalic  depthThreshold
	rtl        depthThreshold

	words          *layout.WordList
	wordBuf        strings.Builder
	blockStyle     common.BlockStyle
	paragraphStart bool
	blockOpen      bool
	pendingSplit   bool

	assembler        *page.Assembler
	result           Result
	batchDeadline    time.Time
	stopRequested    bool
	interruptedLine  bool

	anchors []AnchorRecord
	flatPageBase int
}

var _ SAXHandler = (*Driver)(nil)

// NewDriver constructs a driver for one section, wired to the given SAX
// collaborator (already positioned at the section's source).
func NewDriver(cfg Config, sax SAXParser, flatPageBase int) *Driver {
	d := &Driver{
		cfg:          cfg,
		composer:     layout.NewComposer(cfg.Metrics, cfg.Hyphenator),
		sax:          sax,
		words:        layout.NewWordList(),
		blockStyle:   cfg.ParagraphAlign,
		flatPageBase: flatPageBase,
	}
	d.assembler = page.NewAssembler(cfg.ViewportWidth, cfg.ViewportHeight, cfg.lineHeight(), d.onPageComplete)
	return d
}

func (d *Driver) onPageComplete(p page.Page) bool {
	d.result.Pages = append(d.result.Pages, p)
	return !d.shouldAbort()
}

// shouldAbort implements §4.3.6: external callback not modeled at this
// layer (the caller can wrap Config.Memory / deadlines however it likes),
// elapsed wall time, or memory pressure.
func (d *Driver) shouldAbort() bool {
	if !d.batchDeadline.IsZero() && time.Now().After(d.batchDeadline) {
		return true
	}
	if d.cfg.Memory != nil && d.cfg.Memory() < d.cfg.MinFreeHeap {
		return true
	}
	return false
}

// Run drives the section from the start to EOF or the first batch
// suspension.
func (d *Driver) Run() (Result, error) {
	d.batchDeadline = deadline(d.cfg.MaxParseTime)
	offset, suspended, err := d.sax.Run(d, d.shouldAbort)
	return d.finish(offset, suspended, err)
}

// Resume continues a previously suspended Run from its saved offset,
// re-laying-out any surviving word buffer before the SAX parser itself
// resumes (§4.3.7).
func (d *Driver) Resume(offset int64) (Result, error) {
	d.result = Result{}
	d.batchDeadline = deadline(d.cfg.MaxParseTime)
	d.stopRequested = false

	// Lay out whatever survived the previous suspension before consuming
	// any new SAX events, so words after the break point are never lost.
	if d.words.Len() > 0 {
		d.layoutCurrentBlock(true)
	}

	newOffset, suspended, err := d.sax.Resume(offset, d, d.shouldAbort)
	return d.finish(newOffset, suspended, err)
}

func (d *Driver) finish(offset int64, suspended bool, err error) (Result, error) {
	if err != nil {
		return d.result, err
	}
	if !suspended {
		// Input exhausted: flush the trailing text block and page.
		d.flushBuffer()
		if d.words.Len() > 0 {
			d.layoutCurrentBlock(true)
		}
		d.assembler.FlushFinal()
	}
	d.result.Suspended = suspended || d.stopRequested
	d.result.Offset = offset
	d.result.Anchors = d.anchors
	return d.result, nil
}

func deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

// --- SAXHandler ---

func (d *Driver) OnElementStart(tag string, attrs Attrs, depth int) {
	d.depth = depth
	tag = strings.ToLower(tag)

	if name, ok := attrs["id"]; ok && name != "" {
		d.anchors = append(d.anchors, AnchorRecord{Name: name, Page: d.flatPageBase + len(d.result.Pages)})
	}

	if d.skip.active() {
		return
	}

	style := d.cfg.CSS.CombinedStyle(tag, attrs["class"])
	if inline, ok := attrs["style"]; ok && inline != "" {
		override := d.cfg.CSS.ParseInlineStyle(inline)
		mergeStyle(&style, override)
	}

	// dir="" overrides whatever direction the CSS resolver returned.
	if dirAttr, ok := attrs["dir"]; ok {
		switch strings.ToLower(dirAttr) {
		case "rtl":
			rtl := common.DirRTL
			style.Direction = &rtl
		case "ltr":
			ltr := common.DirLTR
			style.Direction = &ltr
		}
	}
	if style.Direction != nil && *style.Direction == common.DirRTL {
		d.rtl.activate(depth)
	}

	if style.FontWeight != nil && *style.FontWeight {
		d.cssBold.activate(depth)
	}
	if style.FontStyle != nil && *style.FontStyle {
		d.cssItalic.activate(depth)
	}

	switch tag {
	case "img":
		d.handleImage(attrs)
		return
	case "table":
		d.addWord("[Table omitted]", common.StyleItalic)
		d.skip.activate(depth)
		return
	case "head":
		d.skip.activate(depth)
		return
	case "h1", "h2", "h3", "h4", "h5", "h6":
		d.startBlock(common.BlockCenter)
		d.bold.activate(depth)
	case "p", "li", "div", "blockquote", "question", "answer", "quotation":
		align := d.cfg.ParagraphAlign
		if style.TextAlign != nil {
			align = *style.TextAlign
		}
		d.startBlock(align)
	case "br":
		d.flushBuffer()
		d.startBlock(d.blockStyle)
	case "b", "strong":
		d.bold.activate(depth)
	case "i", "em":
		d.italic.activate(depth)
	}

	if class, ok := attrs["aria-hidden"]; ok && strings.EqualFold(class, "true") {
		d.skip.activate(depth)
	}
	if pb, ok := attrs["epub:type"]; ok && strings.Contains(pb, "pagebreak") {
		d.skip.activate(depth)
	}
}

func mergeStyle(base *Style, override Style) {
	if override.TextAlign != nil {
		base.TextAlign = override.TextAlign
	}
	if override.Direction != nil {
		base.Direction = override.Direction
	}
	if override.FontWeight != nil {
		base.FontWeight = override.FontWeight
	}
	if override.FontStyle != nil {
		base.FontStyle = override.FontStyle
	}
}

func (d *Driver) OnElementEnd(tag string, depth int) {
	// depth is this element's own depth (the same value its matching
	// OnElementStart received); the depth the document returns to once it
	// closes is one less.
	closed := depth - 1
	before := d.currentGlyphStyle()
	d.skip.deactivateIfClosed(closed)
	d.bold.deactivateIfClosed(closed)
	d.italic.deactivateIfClosed(closed)
	d.cssBold.deactivateIfClosed(closed)
	d.cssItalic.deactivateIfClosed(closed)
	d.rtl.deactivateIfClosed(closed)
	// Text still in the word buffer was collected inside this element; it
	// keeps the element's emphasis even though that emphasis now ends.
	if d.wordBuf.Len() > 0 && d.currentGlyphStyle() != before {
		d.addWord(d.wordBuf.String(), before)
		d.wordBuf.Reset()
	}
	d.depth = closed
}

func (d *Driver) OnCharacterData(data []byte) {
	if d.skip.active() {
		return
	}
	for i := 0; i < len(data); i++ {
		b := data[i]
		// UTF-8 BOM.
		if b == 0xEF && i+2 < len(data) && data[i+1] == 0xBB && data[i+2] == 0xBF {
			i += 2
			continue
		}
		if isSpace(b) {
			d.flushBuffer()
			continue
		}
		if b == '&' {
			if consumed := d.tryResolveEntity(data[i:]); consumed > 0 {
				i += consumed - 1
				continue
			}
		}
		d.wordBuf.WriteByte(b)
		if d.wordBuf.Len() >= wordBufferCap {
			d.flushBuffer()
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// tryResolveEntity looks for "&name;" starting at rest[0]=='&' and, if
// found and known, appends its expansion to the word buffer, returning the
// number of source bytes consumed. An unknown entity is dropped silently
// per §4.3.3 but its bytes are still consumed so they are not re-emitted as
// literal text.
func (d *Driver) tryResolveEntity(rest []byte) int {
	semi := -1
	for i := 1; i < len(rest) && i < 32; i++ {
		if rest[i] == ';' {
			semi = i
			break
		}
		if !isEntityNameByte(rest[i]) {
			break
		}
	}
	if semi < 0 {
		return 0
	}
	name := string(rest[1:semi])
	if expansion, ok := entities.Resolve(name); ok {
		d.wordBuf.WriteString(expansion)
	}
	return semi + 1
}

func isEntityNameByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '#'
}

func (d *Driver) OnEntity(name string) {
	if expansion, ok := entities.Resolve(name); ok {
		d.wordBuf.WriteString(expansion)
	}
}

// --- internal helpers ---

func (d *Driver) currentGlyphStyle() common.GlyphStyle {
	return common.CombineEmphasis(d.bold.active() || d.cssBold.active(), d.italic.active() || d.cssItalic.active())
}

func (d *Driver) addWord(s string, style common.GlyphStyle) {
	d.words.AddWord(s, style)
	if d.words.Len() > emergencySplitWords {
		d.pendingSplit = true
	}
}

func (d *Driver) flushBuffer() {
	if d.wordBuf.Len() == 0 {
		return
	}
	d.addWord(d.wordBuf.String(), d.currentGlyphStyle())
	d.wordBuf.Reset()
}

// startBlock opens a new text block, first flushing (via makePages) any
// preceding non-empty block (§4.3.4 case a).
func (d *Driver) startBlock(style common.BlockStyle) {
	d.flushBuffer()
	if d.blockOpen && d.words.Len() > 0 {
		d.makePages()
	}
	d.blockStyle = style
	d.paragraphStart = true
	d.blockOpen = true
}

func (d *Driver) handleImage(attrs Attrs) {
	src := attrs["src"]
	if !d.cfg.ImagesEnabled || strings.HasPrefix(src, "data:") || src == "#" {
		d.addWord(altText(attrs), common.StyleItalic)
		return
	}
	path, w, h, ok := d.cfg.Images.Cache(src, "")
	if !ok || d.cfg.TinyImagePolicy.Skips(w, h) {
		d.addWord(altText(attrs), common.StyleItalic)
		return
	}

	d.flushBuffer()
	if d.words.Len() > 0 {
		d.makePages()
	}
	d.assembler.AddImage(page.ImageBlock{Path: path, Width: w, Height: h})
}

func altText(attrs Attrs) string {
	if alt := attrs["alt"]; alt != "" {
		return "[Image: " + alt + "]"
	}
	return "[Image]"
}

// makePages implements §4.3.4: flush the word buffer, check memory, lay out
// the current text block, and suspend on a batch-limit signal from C2.
func (d *Driver) makePages() {
	d.flushBuffer()

	if d.cfg.Memory != nil && d.cfg.Memory() < 2*d.cfg.MinFreeHeap {
		d.words = layout.NewWordList()
		d.stopRequested = true
		return
	}

	interrupted := false
	err := d.composer.Layout(d.words, layout.Params{
		FontID:          d.cfg.FontID,
		Width:           d.cfg.ViewportWidth,
		UseGreedy:       d.cfg.UseGreedy,
		IncludeLastLine: true,
		IndentLevel:     d.cfg.IndentLevel,
		ParagraphStart:  d.paragraphStart,
		RTL:             d.rtl.active(),
		HyphenEnabled:   d.cfg.HyphenEnabled,
		BlockStyle:      d.blockStyle,
		ShouldAbort:     d.shouldAbort,
		ProcessLine: func(b layout.TextBlock) {
			d.assembler.AddLine(b)
		},
	})
	d.paragraphStart = false
	if err != nil {
		interrupted = true
	}
	if d.assembler.Stopped() {
		d.stopRequested = true
		interrupted = true
	}

	d.assembler.EndOfParagraph(d.cfg.ParaSpacing, interrupted)
	d.interruptedLine = interrupted
}

// layoutCurrentBlock is used on Resume (§4.3.7) to flush a surviving word
// list before new SAX events are processed.
func (d *Driver) layoutCurrentBlock(includeLastLine bool) {
	_ = d.composer.Layout(d.words, layout.Params{
		FontID:          d.cfg.FontID,
		Width:           d.cfg.ViewportWidth,
		UseGreedy:       true,
		IncludeLastLine: includeLastLine,
		BlockStyle:      d.blockStyle,
		RTL:             d.rtl.active(),
		HyphenEnabled:   d.cfg.HyphenEnabled,
		ShouldAbort:     d.shouldAbort,
		ProcessLine: func(b layout.TextBlock) {
			d.assembler.AddLine(b)
		},
	})
}

// EmergencySplit implements §4.3.5 for a caller running between SAX buffer
// reads (never from inside a callback): it switches to greedy mode and lays
// out everything but the tail, bounding per-paragraph memory use. No code in
// this module calls it; internal/sax's Parser does not, so an armed split
// stays pending and a long block is laid out only by makePages.
func (d *Driver) EmergencySplit() {
	if !d.pendingSplit || d.words.Len() == 0 {
		return
	}
	d.pendingSplit = false
	if d.cfg.Memory != nil && d.cfg.Memory() < 2*d.cfg.MinFreeHeap {
		d.stopRequested = true
		return
	}
	_ = d.composer.Layout(d.words, layout.Params{
		FontID:          d.cfg.FontID,
		Width:           d.cfg.ViewportWidth,
		UseGreedy:       true,
		IncludeLastLine: false,
		BlockStyle:      d.blockStyle,
		RTL:             d.rtl.active(),
		HyphenEnabled:   d.cfg.HyphenEnabled,
		ShouldAbort:     d.shouldAbort,
		ProcessLine: func(b layout.TextBlock) {
			d.assembler.AddLine(b)
		},
	})
}
