// Package hyphen implements the dictionary-driven Hyphenator collaborator
// (§6.3) using the same TeX pattern-trie approach the teacher's content/text
// package uses for FB2 hyphenation, generalized here to serve break offsets
// directly rather than an already-hyphenated string.
package hyphen

import (
	"io"
	"sort"
	"strings"
	"unicode/utf8"
)

// trie indexes TeX hyphenation patterns by rune, exactly as the teacher's
// content/text.trie does; each leaf's value is the pattern's interleaved
// priority digits.
type trie struct {
	leaf     bool
	value    []int
	children map[rune]*trie
}

func newTrie() *trie {
	return &trie{children: make(map[rune]*trie)}
}

func (p *trie) addRunes(r io.RuneReader) *trie {
	sym, _, err := r.ReadRune()
	if err != nil {
		p.leaf = true
		return p
	}
	n := p.children[sym]
	if n == nil {
		n = newTrie()
		p.children[sym] = n
	}
	return n.addRunes(r)
}

func (p *trie) size() int {
	sz := len(p.children)
	for _, c := range p.children {
		sz += c.size()
	}
	return sz
}

// allSubstringsAndValues returns, for every prefix of s anchored at the
// trie's root, the matched substring and its pattern value, in the order
// encountered (shortest first).
func (p *trie) allSubstringsAndValues(s string) ([]string, [][]int) {
	var strs []string
	var values [][]int
	for pos, r := range s {
		child, ok := p.children[r]
		if !ok {
			break
		}
		if child.leaf {
			strs = append(strs, s[:pos+utf8.RuneLen(r)])
			values = append(values, child.value)
		}
		p = child
	}
	return strs, values
}

func (p *trie) members() []string {
	members := p.buildMembers("")
	sort.Strings(members)
	return members
}

func (p *trie) buildMembers(prefix string) []string {
	var out []string
	if p.leaf {
		out = append(out, prefix)
	}
	for sym, child := range p.children {
		out = append(out, child.buildMembers(prefix+string(sym))...)
	}
	return out
}

// addPatternString stores one TeX-style pattern ('.hy2p') in the trie,
// exactly mirroring content/text/hyphen_trie.go's addPatternString.
func (p *trie) addPatternString(s string) {
	var v []int
	const zero = '0'
	runes := []rune(s)

	for i, sym := range runes {
		if isDigit(sym) {
			if i == 0 {
				v = append(v, int(sym-zero))
			}
			continue
		}
		if i < len(runes)-1 && isDigit(runes[i+1]) {
			v = append(v, int(runes[i+1]-zero))
		} else {
			v = append(v, 0)
		}
	}

	pure := strings.Map(func(sym rune) rune {
		if isDigit(sym) {
			return -1
		}
		return sym
	}, s)

	leaf := p.addRunes(strings.NewReader(pure))
	if leaf == nil {
		return
	}
	leaf.value = v
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
