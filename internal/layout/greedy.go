package layout

// greedyBreaks computes line breaks with the single-pass greedy algorithm of
// §4.1.6: a running line width is accumulated word by word; whenever the next
// word would overflow W, a tail-hyphenation attempt is made before falling
// back to a plain break. widths and words must be the same length and already
// reflect any pre-splitting and soft-hyphen stripping (§4.1.4/§4.1.5).
//
// Returns the list of breaks (each the exclusive end index of a line) and
// false if shouldAbort fired before reaching n — in which case breaks holds
// only the lines completed so far and the caller must leave the remainder in
// the word list untouched.
type greedyResult struct {
	breaks    []int
	completed bool
}

func (c *Composer) greedyBreaks(wl *WordList, words []string, widths []int, fontID, width, spaceWidth int, shouldAbort func() bool) greedyResult {
	res := greedyResult{}
	lineWidth := -spaceWidth
	for i := 0; i < len(words); i++ {
		if shouldAbort != nil && i%200 == 0 && shouldAbort() {
			return res
		}
		w := widths[i]
		if lineWidth+w+spaceWidth > width && lineWidth > 0 {
			if brk, ok := c.tailHyphenate(wl, &words, &widths, i, fontID, width, lineWidth, spaceWidth); ok {
				res.breaks = append(res.breaks, brk)
				// The suffix inserted by tailHyphenate becomes the first
				// word of the next line; reset the accumulator the same way
				// it starts at the top of the function so the next
				// iteration's lineWidth += w[i+1] + spaceWidth measures only
				// the inserted suffix, not the prefix that just completed.
				lineWidth = -spaceWidth
				continue
			}
			res.breaks = append(res.breaks, i)
			lineWidth = w
			continue
		}
		lineWidth += w + spaceWidth
	}
	res.breaks = append(res.breaks, len(words))
	res.completed = true
	return res
}

// tailHyphenate attempts to split (*words)[i] so a hyphenated prefix still
// fits on the current line. On success it grows *words/*widths by one entry
// (and the backing WordList identically) and returns the break index for the
// line that now ends with the inserted prefix. Slices are passed by pointer
// because insertion may reallocate the backing array.
func (c *Composer) tailHyphenate(wl *WordList, words *[]string, widths *[]int, i, fontID, width, lineWidth, spaceWidth int) (int, bool) {
	if c.Hyphenator == nil {
		return 0, false
	}
	remaining := width - lineWidth - spaceWidth
	if remaining <= 0 {
		return 0, false
	}
	_, style := wl.Get(i)
	text := (*words)[i]
	breaks := c.Hyphenator.BreakOffsets(text, false)
	for k := len(breaks) - 1; k >= 0; k-- {
		b := breaks[k]
		candidate := text[:b.ByteOffset]
		measured := candidate
		if b.RequiresInsertedHyphen {
			measured = candidate + "-"
		}
		if c.Metrics.Width(fontID, style, measured) > remaining {
			continue
		}
		suffix := text[b.ByteOffset:]
		prefixMarked := candidate + softHyphen
		prefixWidth := c.Metrics.Width(fontID, style, measured)
		suffixWidth := c.Metrics.Width(fontID, style, suffix)

		wl.Set(i, prefixMarked, style)
		wl.InsertAt(i+1, suffix, style)

		ws := append((*words)[:i:i], prefixMarked)
		ws = append(ws, suffix)
		ws = append(ws, (*words)[i+1:]...)
		*words = ws

		ds := append((*widths)[:i:i], prefixWidth)
		ds = append(ds, suffixWidth)
		ds = append(ds, (*widths)[i+1:]...)
		*widths = ds

		return i + 1, true
	}
	return 0, false
}
