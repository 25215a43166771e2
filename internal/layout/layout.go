package layout

import (
	"fmt"
	"strings"

	"papyrus/common"
)

// indentPrefix returns the leading space run prepended to a paragraph's
// first word when it starts at a positive indent level (§4.1.3).
func indentPrefix(level int) string {
	switch level {
	case 2:
		return " "
	case 3:
		return "  "
	default:
		return " "
	}
}

// Layout consumes words from the front of wl and emits TextBlocks via
// p.ProcessLine, per §4.1. It may be called repeatedly on the same WordList
// across suspend/resume boundaries; anything left unconsumed when it returns
// remains valid input for the next call (§4.1.8).
func (c *Composer) Layout(wl *WordList, p Params) error {
	if p.Width <= 0 {
		return fmt.Errorf("layout: width %d: %w", p.Width, common.ErrInvalidViewport)
	}

	wl.RejoinSplitMarkers()

	if p.ParagraphStart && p.IndentLevel > 0 && p.BlockStyle != common.BlockCenter && wl.Len() > 0 {
		text, style := wl.Get(0)
		wl.Set(0, indentPrefix(p.IndentLevel)+text, style)
	}

	spaceWidth := c.Metrics.SpaceWidth(p.FontID)

	if p.HyphenEnabled {
		if ok := c.presplitOversizedWords(wl, p.FontID, p.Width, p.ShouldAbort); !ok {
			return common.ErrCancelled
		}
	}

	n := wl.Len()
	words := make([]string, n)
	widths := make([]int, n)
	styles := make([]common.GlyphStyle, n)
	for i := 0; i < n; i++ {
		raw, style := wl.Get(i)
		stripped := stripSoftHyphens(raw)
		words[i] = stripped
		styles[i] = style
		widths[i] = c.Metrics.Width(p.FontID, style, stripped)
	}

	var breaks []int
	if p.UseGreedy {
		res := c.greedyBreaks(wl, words, widths, p.FontID, p.Width, spaceWidth, p.ShouldAbort)
		if !res.completed {
			return common.ErrCancelled
		}
		breaks = res.breaks
		// tailHyphenate may have split words in the backing word list;
		// rebuild the views from it so extraction sees the split. A split
		// prefix keeps its trailing soft hyphen, which extraction renders
		// as '-', and is measured with that '-'.
		if wl.Len() != n {
			words, widths, styles = nil, nil, nil
			for i := 0; i < wl.Len(); i++ {
				raw, style := wl.Get(i)
				stripped, shown := stripSoftHyphens(raw), stripSoftHyphens(raw)
				if strings.HasSuffix(raw, softHyphen) {
					stripped, shown = stripped+softHyphen, shown+"-"
				}
				words = append(words, stripped)
				styles = append(styles, style)
				widths = append(widths, c.Metrics.Width(p.FontID, style, shown))
			}
			n = wl.Len()
		}
	} else {
		bs, ok := c.knuthPlassBreaks(words, widths, p.Width, spaceWidth, p.ShouldAbort)
		if !ok {
			return common.ErrCancelled
		}
		breaks = bs
	}

	consumed, completed := extractLines(words, widths, styles, breaks, p.Width, spaceWidth, p.BlockStyle, p.RTL, p.IncludeLastLine, p.ProcessLine, p.ShouldAbort)
	wl.DropFront(consumed)
	if !completed {
		return common.ErrCancelled
	}
	return nil
}
