package parser

import (
	"time"

	"papyrus/common"
	"papyrus/internal/layout"
	"papyrus/internal/page"
)

// Style is the resolved presentation of an element, as returned by the CSS
// resolver collaborator (§6.3).
type Style struct {
	TextAlign  *common.BlockStyle
	Direction  *common.Direction
	FontWeight *bool // true = bold
	FontStyle  *bool // true = italic
}

// CSSResolver is the style-resolution collaborator queried per element.
type CSSResolver interface {
	CombinedStyle(tag, classAttr string) Style
	ParseInlineStyle(styleAttr string) Style
}

// ImageCache converts and caches a document-relative image reference,
// returning the path to a decoded, ready-to-render bitmap along with its
// pixel dimensions so the driver can apply the tall-image and tiny-image
// rules of §4.2/§4.3.2 without opening the file itself.
type ImageCache interface {
	Cache(src, basePath string) (path string, width, height int, ok bool)
}

// MemoryProbe reports the size, in bytes, of the largest contiguous free
// block available — the abstraction the embedded source used to decide
// when to abort rather than risk an allocator failure mid-batch (§4.3.4,
// §4.3.6). Hosted Go has no equivalent primitive; callers typically wire a
// probe backed by a fixed budget or runtime.MemStats, and production
// deployments that don't need the guard can supply a probe that always
// reports a large constant.
type MemoryProbe func() int64

// Config bundles the render configuration and abort thresholds the driver
// needs, threaded through rather than read from globals (§9 Design notes).
type Config struct {
	FontID          int
	ViewportWidth   int
	ViewportHeight  int
	LineCompression float32
	ParagraphAlign  common.BlockStyle
	UseGreedy       bool
	HyphenEnabled   bool
	IndentLevel     int
	ParaSpacing     page.SpacingLevel
	ImagesEnabled   bool
	TinyImagePolicy interface{ Skips(w, h int) bool }

	MaxParseTime time.Duration
	MinFreeHeap  int64

	Metrics    layout.TextMetrics
	Hyphenator layout.Hyphenator
	CSS        CSSResolver
	Images     ImageCache
	Memory     MemoryProbe
}

// lineHeight returns the effective, compression-adjusted line height for
// the configured font (§4.2).
func (c Config) lineHeight() int {
	return int(float32(c.Metrics.LineHeight(c.FontID)) * c.LineCompression)
}

// AnchorRecord is one id="..." cross-reference recorded during parsing
// (§4.3.2), mapping an anchor name to the flat page index it landed on.
type AnchorRecord struct {
	Name string
	Page int
}

// Result is what a single Run/Resume of the driver produces: the pages
// completed so far, any anchors recorded, and whether the batch suspended.
type Result struct {
	Pages     []page.Page
	Anchors   []AnchorRecord
	Suspended bool
	Offset    int64
}
