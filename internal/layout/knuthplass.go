package layout

const (
	linePenalty  = 50
	infinityGuard = 10000.0
)

// knuthPlassBreaks computes optimal line breaks with the Knuth-Plass forward
// DP of §4.1.6. words/widths must already reflect pre-splitting and
// soft-hyphen stripping. Returns the reconstructed break indices (exclusive
// line ends) and false if shouldAbort fired mid-DP, in which case the caller
// must leave the word list untouched and retry the whole call later — DP,
// unlike greedy, has no meaningful partial result since later positions
// depend on earlier ones only through already-computed demerits, not through
// any output the caller could safely keep.
func (c *Composer) knuthPlassBreaks(words []string, widths []int, width, spaceWidth int, shouldAbort func() bool) ([]int, bool) {
	n := len(words)
	const inf = infinityGuard * 2

	demerits := make([]float64, n+1)
	prev := make([]int, n+1)
	for i := 1; i <= n; i++ {
		demerits[i] = inf
		prev[i] = -1
	}

	for i := 0; i <= n; i++ {
		if shouldAbort != nil && i%100 == 0 && shouldAbort() {
			return nil, false
		}
		if demerits[i] >= inf {
			continue
		}
		if i == n {
			break
		}
		lineWidth := -spaceWidth
		for j := i + 1; j <= n; j++ {
			lineWidth += widths[j-1] + spaceWidth

			if j == i+1 && widths[i] > width {
				// Oversized single word, forced onto its own line.
				d := demerits[i] + 100 + linePenalty
				if d < demerits[j] {
					demerits[j] = d
					prev[j] = i
				}
				continue
			}
			if lineWidth > width {
				break
			}

			isLast := j == n
			badness := lineBadness(lineWidth, width)
			var lineDemerits float64
			switch {
			case isLast && badness < infinityGuard:
				lineDemerits = 0
			case badness >= infinityGuard:
				lineDemerits = inf
			default:
				lineDemerits = (1+badness)*(1+badness) + linePenalty
			}
			if lineDemerits >= inf {
				continue
			}
			d := demerits[i] + lineDemerits
			if d < demerits[j] {
				demerits[j] = d
				prev[j] = i
			}
		}
	}

	if demerits[n] >= inf || prev[n] == -1 {
		return oneWordPerLine(n), true
	}

	var breaks []int
	at := n
	for at > 0 {
		breaks = append(breaks, at)
		p := prev[at]
		if p < 0 || p >= at {
			return oneWordPerLine(n), true
		}
		at = p
	}
	for l, r := 0, len(breaks)-1; l < r; l, r = l+1, r-1 {
		breaks[l], breaks[r] = breaks[r], breaks[l]
	}
	return breaks, true
}

func lineBadness(lineWidth, targetWidth int) float64 {
	if targetWidth <= 0 || lineWidth > targetWidth {
		return infinityGuard
	}
	if lineWidth == targetWidth {
		return 0
	}
	ratio := float64(targetWidth-lineWidth) / float64(targetWidth)
	return ratio * ratio * ratio * 100
}

func oneWordPerLine(n int) []int {
	breaks := make([]int, n)
	for i := range breaks {
		breaks[i] = i + 1
	}
	return breaks
}
