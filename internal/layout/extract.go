package layout

import (
	"strings"

	"papyrus/common"
)

// extractLines turns a set of break indices into TextBlocks per §4.1.7,
// invoking processLine for each and yielding to shouldAbort at least every
// 50 lines. Returns the index of the first word not yet consumed (so the
// caller can drop exactly that many words from the backing WordList) and
// whether extraction completed without aborting.
func extractLines(
	words []string,
	widths []int,
	styles []common.GlyphStyle,
	breaks []int,
	width, spaceWidth int,
	blockStyle common.BlockStyle,
	rtl bool,
	includeLastLine bool,
	processLine func(TextBlock),
	shouldAbort func() bool,
) (consumed int, completed bool) {
	start := 0
	for li, end := range breaks {
		isLastLine := li == len(breaks)-1
		if isLastLine && !includeLastLine {
			break
		}
		if shouldAbort != nil && li%50 == 0 && shouldAbort() {
			return start, false
		}

		lineWords := words[start:end]
		lineWidths := widths[start:end]
		lineStyles := styles[start:end]

		sum := 0
		for _, w := range lineWidths {
			sum += w
		}
		gaps := countGaps(lineWords)
		spare := width - sum

		effStyle := blockStyle
		if rtl && blockStyle == common.BlockLeft {
			effStyle = common.BlockRight
		}

		spacing := spaceWidth
		if effStyle == common.BlockJustified && !isLastLine && gaps >= 1 {
			spacing = spare / gaps
		}

		block := TextBlock{Style: effStyle}
		if rtl {
			placeRTL(&block, lineWords, lineWidths, lineStyles, width, spare, gaps, spacing, effStyle)
		} else {
			placeLTR(&block, lineWords, lineWidths, lineStyles, spare, gaps, spacing, effStyle)
		}

		if processLine != nil {
			processLine(block)
		}
		start = end
	}
	return start, true
}

// countGaps counts words after the first that are not pure attaching
// punctuation (§4.1.7).
func countGaps(lineWords []string) int {
	gaps := 0
	for i := 1; i < len(lineWords); i++ {
		if !isAttachingPunctuation(lineWords[i]) {
			gaps++
		}
	}
	return gaps
}

func resolveHyphen(s string) string {
	if strings.HasSuffix(s, softHyphen) {
		return strings.TrimSuffix(s, softHyphen) + "-"
	}
	return s
}

func placeLTR(block *TextBlock, lineWords []string, lineWidths []int, lineStyles []common.GlyphStyle, spare, gaps, spacing int, style common.BlockStyle) {
	var x int
	switch style {
	case common.BlockRight:
		x = spare - gaps*spacing
	case common.BlockCenter:
		x = (spare - gaps*spacing) / 2
	default:
		x = 0
	}
	for i, w := range lineWords {
		text := resolveHyphen(w)
		block.Words = append(block.Words, PositionedWord{Text: text, X: x, Style: lineStyles[i]})
		nextAttaches := i+1 < len(lineWords) && isAttachingPunctuation(lineWords[i+1])
		x += lineWidths[i]
		if !nextAttaches {
			x += spacing
		}
	}
}

func placeRTL(block *TextBlock, lineWords []string, lineWidths []int, lineStyles []common.GlyphStyle, width, spare, gaps, spacing int, style common.BlockStyle) {
	var x int
	switch style {
	case common.BlockCenter:
		x = width - (spare-gaps*spacing)/2
	default:
		x = width
	}
	for i, w := range lineWords {
		text := resolveHyphen(w)
		x -= lineWidths[i]
		block.Words = append(block.Words, PositionedWord{Text: text, X: x, Style: lineStyles[i]})
		nextAttaches := i+1 < len(lineWords) && isAttachingPunctuation(lineWords[i+1])
		if !nextAttaches {
			x -= spacing
		}
	}
}
