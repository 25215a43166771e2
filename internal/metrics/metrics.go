// Package metrics implements the text-metrics collaborator (§3, §7 "Text
// metrics") on top of real SFNT font data: each registered font family
// supplies up to four faces (regular/bold/italic/bold-italic), and widths
// are measured by summing each rune's advance width at a fixed device
// resolution, with a small LRU-free per-string cache since the same word
// is measured repeatedly across line-breaking trials.
package metrics

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"papyrus/common"
)

// face pairs a parsed font program with the device-pixel buffer sfnt needs
// to rasterize/measure against.
type face struct {
	font    *sfnt.Font
	buf     sfnt.Buffer
	ppem    fixed.Int26_6
	advance int // cached line height in pixels
	space   int // cached space-glyph advance in pixels
}

// Family is one logical font (e.g. "serif-body"): up to four faces, one per
// GlyphStyle. A nil entry falls back to StyleRegular.
type Family struct {
	mu     sync.Mutex
	faces  [4]*face
	gray   bool
	widths map[string]int // string -> measured width, cleared never (bounded by document vocabulary)
}

// Metrics implements layout.TextMetrics over a set of registered font
// families, keyed by an integer font id the CSS resolver assigns.
type Metrics struct {
	mu        sync.RWMutex
	families  map[int]*Family
	sizePx    float64 // nominal font size in device pixels, shared by all families
}

// New creates an empty Metrics at the given nominal font size in device
// pixels (the panel's base text size).
func New(sizePx float64) *Metrics {
	return &Metrics{families: map[int]*Family{}, sizePx: sizePx}
}

// Register parses the given SFNT font program bytes (TrueType or OpenType,
// as produced by golang.org/x/image/font/sfnt) and assigns them to fontID
// under style. grayscale reports whether this family should be rendered
// with anti-aliasing (some e-ink panels only do 1-bit text at small sizes).
func (m *Metrics) Register(fontID int, style common.GlyphStyle, data []byte, grayscale bool) error {
	f, err := sfnt.Parse(data)
	if err != nil {
		return fmt.Errorf("metrics: parse font %d style %s: %w", fontID, style, err)
	}

	m.mu.Lock()
	fam, ok := m.families[fontID]
	if !ok {
		fam = &Family{widths: map[string]int{}}
		m.families[fontID] = fam
	}
	m.mu.Unlock()

	fam.mu.Lock()
	defer fam.mu.Unlock()
	fam.gray = fam.gray || grayscale
	fam.faces[style] = &face{font: f, ppem: fixed.I(int(m.sizePx))}
	return nil
}

func (m *Metrics) family(fontID int) *Family {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.families[fontID]
}

func (fam *Family) faceFor(style common.GlyphStyle) *face {
	if f := fam.faces[style]; f != nil {
		return f
	}
	return fam.faces[common.StyleRegular]
}

// Width measures s (already stripped of soft hyphens by the caller, per
// §4.2.2) in panel pixels under the given font id and style.
func (m *Metrics) Width(fontID int, style common.GlyphStyle, s string) int {
	fam := m.family(fontID)
	if fam == nil {
		return len([]rune(s)) * int(m.sizePx*0.6) // no registered font: crude fallback so layout still proceeds
	}

	key := string(rune(style)) + s
	fam.mu.Lock()
	if w, ok := fam.widths[key]; ok {
		fam.mu.Unlock()
		return w
	}
	fam.mu.Unlock()

	f := fam.faceFor(style)
	if f == nil {
		return len([]rune(s)) * int(m.sizePx*0.6)
	}

	w := measure(f, s)

	fam.mu.Lock()
	fam.widths[key] = w
	fam.mu.Unlock()
	return w
}

func measure(f *face, s string) int {
	total := fixed.Int26_6(0)
	for _, r := range s {
		idx, err := f.font.GlyphIndex(&f.buf, r)
		if err != nil || idx == 0 {
			continue
		}
		adv, err := f.font.GlyphAdvance(&f.buf, idx, f.ppem, font.HintingNone)
		if err != nil {
			continue
		}
		total += adv
	}
	return total.Round()
}

// LineHeight reports the single-line advance in panel pixels for fontID,
// derived from the face's hhea/OS2 metrics.
func (m *Metrics) LineHeight(fontID int) int {
	fam := m.family(fontID)
	if fam == nil {
		return int(m.sizePx * 1.2)
	}
	f := fam.faceFor(common.StyleRegular)
	if f == nil {
		return int(m.sizePx * 1.2)
	}
	if f.advance != 0 {
		return f.advance
	}
	met, err := f.font.Metrics(&f.buf, f.ppem, font.HintingNone)
	if err != nil || met.Height <= 0 {
		return int(m.sizePx * 1.2)
	}
	f.advance = met.Height.Round()
	return f.advance
}

// SpaceWidth reports the width of a single space glyph, queried once per
// layout call per §3.
func (m *Metrics) SpaceWidth(fontID int) int {
	fam := m.family(fontID)
	if fam == nil {
		return int(m.sizePx * 0.3)
	}
	f := fam.faceFor(common.StyleRegular)
	if f == nil {
		return int(m.sizePx * 0.3)
	}
	if f.space != 0 {
		return f.space
	}
	f.space = measure(f, " ")
	if f.space == 0 {
		f.space = int(m.sizePx * 0.3)
	}
	return f.space
}

// SupportsGrayscale reports whether fontID's registered faces were flagged
// for anti-aliased (grayscale) rendering rather than 1-bit.
func (m *Metrics) SupportsGrayscale(fontID int) bool {
	fam := m.family(fontID)
	return fam != nil && fam.gray
}
