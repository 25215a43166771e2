package page

import (
	"papyrus/internal/layout"
)

// SpacingLevel names the end-of-paragraph spacing rule of §4.2.
type SpacingLevel int

const (
	SpacingNone SpacingLevel = iota
	SpacingHalf              // line_height / 4, "level 1"
	SpacingFull              // line_height, "level 3"
)

// Assembler accumulates lines and images into fixed-height pages, calling
// onPageComplete whenever cursor_y would overflow the viewport or a tall
// image forces a dedicated page. onPageComplete's bool return signals
// whether the caller should keep going; false means the current batch limit
// has been reached and the assembler must stop accepting new content.
type Assembler struct {
	Height          int
	Width           int
	LineHeight      int
	OnPageComplete  func(Page) bool

	current  Page
	cursorY  int
	stopped  bool
}

// NewAssembler constructs an assembler for a viewport of the given size.
// lineHeight is the font's base line height already multiplied by the
// render configuration's line_compression.
func NewAssembler(width, height, lineHeight int, onPageComplete func(Page) bool) *Assembler {
	return &Assembler{Width: width, Height: height, LineHeight: lineHeight, OnPageComplete: onPageComplete}
}

// Stopped reports whether a previous call caused the page-complete callback
// to return false; once set, the caller (C3) must suspend rather than keep
// feeding the assembler.
func (a *Assembler) Stopped() bool {
	return a.stopped
}

// CursorY exposes the current page's fill position, used by C3 when it must
// re-prepend an interrupted line to the next page on resume (§4.3.4).
func (a *Assembler) CursorY() int {
	return a.cursorY
}

func (a *Assembler) flush() {
	if !a.OnPageComplete(a.current) {
		a.stopped = true
	}
	a.current = Page{}
	a.cursorY = 0
}

// AddLine places a composed line on the current page, flushing to a new
// page first if it would overflow the viewport (§4.2 add_line).
func (a *Assembler) AddLine(line layout.TextBlock) {
	if a.cursorY+a.LineHeight > a.Height {
		a.flush()
	}
	a.current.Elements = append(a.current.Elements, Element{Line: &PageLine{Line: line, X: 0, Y: a.cursorY}})
	a.cursorY += a.LineHeight
}

// EndOfParagraph applies the spacing bump of §4.2 after the last line of a
// text block. interrupted suppresses the bump entirely, per the source's
// behavior of not applying trailing spacing when the paragraph was cut off
// by an abort (§9 Open Questions).
func (a *Assembler) EndOfParagraph(level SpacingLevel, interrupted bool) {
	if interrupted {
		return
	}
	switch level {
	case SpacingHalf:
		a.cursorY += a.LineHeight / 4
	case SpacingFull:
		a.cursorY += a.LineHeight
	}
}

// AddImage places an already-sized image on the page per §4.2 add_image.
func (a *Assembler) AddImage(img ImageBlock) {
	tall := img.Height > a.Height/2

	if tall && a.cursorY > 0 {
		a.flush()
	}
	if a.cursorY+img.Height > a.Height {
		a.flush()
	}

	x := (a.Width - img.Width) / 2
	if x < 0 {
		x = 0
	}

	y := a.cursorY
	if tall && a.cursorY == 0 && img.Height < a.Height {
		y = (a.Height - img.Height) / 2
	}

	a.current.Elements = append(a.current.Elements, Element{Image: &PageImage{Image: img, X: x, Y: y}})
	a.cursorY = y + img.Height + a.LineHeight

	if tall {
		a.flush()
	}
}

// FlushFinal emits whatever remains on the current page once the source is
// exhausted (§4.3.4 case c); an empty current page is not emitted.
func (a *Assembler) FlushFinal() {
	if len(a.current.Elements) > 0 {
		a.flush()
	}
}

// HasContent reports whether the current, not-yet-flushed page holds any
// elements.
func (a *Assembler) HasContent() bool {
	return len(a.current.Elements) > 0
}
