package hyphen

import (
	"bufio"
	"embed"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"papyrus/internal/layout"
)

// dictionaryFiles bundles a reduced, public-domain-pattern English
// hyphenation dictionary. The teacher's dictionaries/*.gz payloads (one per
// language, covering dozens of locales) were not available to copy into
// this build, so only en-us ships, uncompressed, and with far fewer
// patterns. The loader's shape
// — trie of interleaved-digit patterns plus a small exceptions map — is
// otherwise unchanged from the original.
//
//go:embed dictionaries/*.txt
var dictionaryFiles embed.FS

// langMap mirrors the teacher's additional-specification table for
// languages whose default dictionary name does not match their BCP-47 tag.
var langMap = map[string]string{
	"de":    "de-1901",
	"en":    "en-us",
	"el":    "el-monoton",
	"mn":    "mn-cyrl",
	"sh":    "sh-latn",
	"sr":    "sr-cyrl",
	"zh":    "zh-latn-pinyin",
}

// Hyphenator implements layout.Hyphenator over a TeX pattern dictionary. It
// is safe for concurrent use for reads (BreakOffsets takes no lock) since
// the trie and exceptions map are built once at construction and never
// mutated afterward.
type Hyphenator struct {
	patterns   *trie
	exceptions map[string]string
	language   string
	mu         sync.Mutex // not locked anywhere; BreakOffsets is read-only
}

var _ layout.Hyphenator = (*Hyphenator)(nil)

// New loads the hyphenation dictionary for lang, falling back through the
// same tag → mapped-tag → base-tag → mapped-base-tag chain as the teacher's
// NewHyphenator. Returns nil (not an error) when no dictionary is available
// for the language, matching the teacher's "turn off hyphenation" behavior.
func New(lang language.Tag, log *zap.Logger) *Hyphenator {
	var name string

	try := func(n string) bool {
		if _, err := dictionaryFiles.ReadFile("dictionaries/" + n + ".pat.txt"); err == nil {
			name = n
			return true
		}
		return false
	}

	tag := strings.ToLower(lang.String())
	switch {
	case try(tag):
	case func() bool { m, ok := langMap[tag]; return ok && try(m) }():
	default:
		if base, confidence := lang.Base(); confidence != language.No {
			baseTag := strings.ToLower(base.String())
			switch {
			case try(baseTag):
			case func() bool { m, ok := langMap[baseTag]; return ok && try(m) }():
			}
		}
	}

	if name == "" {
		if log != nil {
			log.Warn("no hyphenation dictionary available, hyphenation disabled", zap.Stringer("language", lang))
		}
		return nil
	}

	h := &Hyphenator{language: name}
	if err := h.load(name); err != nil {
		if log != nil {
			log.Warn("failed to load hyphenation dictionary", zap.String("name", name), zap.Error(err))
		}
		return nil
	}
	return h
}

func (h *Hyphenator) load(name string) error {
	patData, err := dictionaryFiles.ReadFile("dictionaries/" + name + ".pat.txt")
	if err != nil {
		return err
	}
	h.patterns = newTrie()
	sc := bufio.NewScanner(strings.NewReader(string(patData)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		h.patterns.addPatternString(line)
	}

	h.exceptions = make(map[string]string)
	if excData, err := dictionaryFiles.ReadFile("dictionaries/" + name + ".hyp.txt"); err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(excData)))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			h.exceptions[strings.ReplaceAll(line, "-", "")] = line
		}
	}
	return nil
}

// BreakOffsets implements layout.Hyphenator. strict is accepted for
// interface parity with the spec's contract but the pattern algorithm does
// not distinguish strict/loose modes — both draw from the same dictionary.
func (h *Hyphenator) BreakOffsets(word string, strict bool) []layout.HyphenBreak {
	if h == nil || len(word) == 0 {
		return nil
	}
	if exc, ok := h.exceptions[word]; ok {
		return breaksFromHyphenatedForm(word, exc)
	}
	return h.patternBreaks(word)
}

// patternBreaks runs the classic Liang algorithm, ported from the teacher's
// hyph.hyphenateWord: score every position in '.'+word+'.' against all
// matching trie patterns, keep the max score per position, then call a
// position breakable when its (trimmed) score is odd. Unlike the teacher's
// version, which builds an already-hyphenated string, this returns byte
// offsets into word so the layout composer can decide for itself where a
// break is worth taking.
func (h *Hyphenator) patternBreaks(word string) []layout.HyphenBreak {
	test := "." + word + "."
	v := make([]int, utf8.RuneCountInString(test))

	vIndex := 0
	for pos := range test {
		t := test[pos:]
		strs, values := h.patterns.allSubstringsAndValues(t)
		for i, val := range values {
			str := strs[i]
			diff := len(val) - utf8.RuneCountInString(str)
			start := vIndex - diff
			if start < 0 {
				continue
			}
			for j, pv := range val {
				if start+j >= len(v) {
					break
				}
				if pv > v[start+j] {
					v[start+j] = pv
				}
			}
		}
		vIndex++
	}

	// Trim the leading/trailing dot markers, as the teacher does.
	markers := v[1 : len(v)-1]

	var breaks []layout.HyphenBreak
	byteOffset := 0
	runeIdx := 0
	for _, r := range word {
		byteOffset += utf8.RuneLen(r)
		// Don't hyphenate between (or after) the first two and last two
		// characters of the word — markers indices line up 1:1 with runes
		// of word, and a break after rune i is represented by markers[i].
		if runeIdx >= 1 && runeIdx < len(markers)-2 && markers[runeIdx]%2 != 0 {
			breaks = append(breaks, layout.HyphenBreak{ByteOffset: byteOffset, RequiresInsertedHyphen: true})
		}
		runeIdx++
	}
	return breaks
}

// breaksFromHyphenatedForm converts an exception-dictionary entry like
// "as-so-ciate" into break offsets against the unhyphenated word.
func breaksFromHyphenatedForm(word, hyphenated string) []layout.HyphenBreak {
	var breaks []layout.HyphenBreak
	byteOffset := 0
	for _, seg := range strings.Split(hyphenated, "-") {
		byteOffset += len(seg)
		if byteOffset < len(word) {
			breaks = append(breaks, layout.HyphenBreak{ByteOffset: byteOffset, RequiresInsertedHyphen: true})
		}
	}
	return breaks
}
