// Package cssresolve implements the CSS resolver collaborator (§4.3.1,
// §6.3): a reduced stylesheet cascade limited to the handful of properties
// the pagination engine cares about (text-align, direction, font-weight,
// font-style), resolved over simple element/class/element.class selectors.
package cssresolve

import (
	"bytes"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	tdcss "github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"papyrus/common"
	"papyrus/internal/parser"
)

// rule is one parsed selector/declaration pair, kept in source order so
// later rules win ties at equal specificity, matching normal cascade
// behavior for same-weight selectors.
type rule struct {
	element    string // "" if class-only
	class      string // "" if element-only
	properties map[string]string
}

// specificity ranks element-only below class-only below element.class,
// mirroring the three concrete Selector shapes this resolver understands.
func (r rule) specificity() int {
	switch {
	case r.element != "" && r.class != "":
		return 2
	case r.class != "":
		return 1
	default:
		return 0
	}
}

// Resolver parses a stylesheet once at construction and answers per-element
// CombinedStyle/ParseInlineStyle queries against it (§6.3). It carries no
// per-element mutable state and is safe for concurrent use by the
// foreground renderer and background fill worker alike (§5).
type Resolver struct {
	log   *zap.Logger
	rules []rule
}

var _ parser.CSSResolver = (*Resolver)(nil)

// New parses stylesheet CSS text (typically the book's embedded or default
// stylesheet) into a Resolver. A parse error never aborts pagination: rules
// before the error are kept and the rest of the sheet is dropped, logged at
// Warn.
func New(stylesheet []byte, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{log: log.Named("css-resolver")}
	r.parse(stylesheet)
	return r
}

func (r *Resolver) parse(data []byte) {
	input := parse.NewInput(bytes.NewReader(data))
	p := tdcss.NewParser(input, false)

	var selectors []string
	for {
		gt, _, tok := p.Next()
		switch gt {
		case tdcss.ErrorGrammar:
			if err := p.Err(); err != nil && err.Error() != "EOF" {
				r.log.Warn("css: stopping at parse error", zap.Error(err))
			}
			return

		case tdcss.BeginRulesetGrammar, tdcss.QualifiedRuleGrammar:
			selectors = parseSelectorList(tok, p.Values())
			props := parseDeclarations(p)
			for _, sel := range selectors {
				if rl, ok := newRule(sel, props); ok {
					r.rules = append(r.rules, rl)
				}
			}

		case tdcss.BeginAtRuleGrammar:
			skipAtRuleBlock(p)

		default:
			// @import, bare declarations, custom properties: not relevant to
			// the properties this resolver extracts.
		}
	}
}

func parseSelectorList(data []byte, values []tdcss.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	var out []string
	for _, s := range strings.Split(sb.String(), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// newRule accepts only the three selector shapes this resolver cascades
// over: "tag", ".class", and "tag.class". Anything more elaborate
// (descendant combinators, attribute selectors, pseudo-classes) is dropped.
func newRule(selector string, props map[string]string) (rule, bool) {
	selector = strings.ToLower(strings.TrimSpace(selector))
	if selector == "" || strings.ContainsAny(selector, " >+~:[") {
		return rule{}, false
	}
	dot := strings.IndexByte(selector, '.')
	switch {
	case dot < 0:
		return rule{element: selector, properties: props}, true
	case dot == 0:
		return rule{class: selector[1:], properties: props}, true
	default:
		return rule{element: selector[:dot], class: selector[dot+1:], properties: props}, true
	}
}

func parseDeclarations(p *tdcss.Parser) map[string]string {
	props := map[string]string{}
	for {
		gt, _, data := p.Next()
		switch gt {
		case tdcss.ErrorGrammar, tdcss.EndRulesetGrammar:
			return props
		case tdcss.DeclarationGrammar:
			props[strings.ToLower(string(data))] = tokenText(p.Values())
		}
	}
}

func skipAtRuleBlock(p *tdcss.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := p.Next()
		switch gt {
		case tdcss.ErrorGrammar:
			return
		case tdcss.BeginAtRuleGrammar, tdcss.BeginRulesetGrammar:
			depth++
		case tdcss.EndAtRuleGrammar, tdcss.EndRulesetGrammar:
			depth--
		}
	}
}

func tokenText(tokens []tdcss.Token) string {
	var parts []string
	for _, t := range tokens {
		if t.TokenType == tdcss.WhitespaceToken {
			continue
		}
		parts = append(parts, strings.ToLower(string(t.Data)))
	}
	return strings.Join(parts, " ")
}

// CombinedStyle resolves the cascade of every rule matching tag and any of
// classAttr's space-separated classes, applied in increasing specificity
// order so element.class beats class beats element (§6.3).
func (r *Resolver) CombinedStyle(tag, classAttr string) parser.Style {
	tag = strings.ToLower(tag)
	classes := strings.Fields(classAttr)

	var matched []rule
	for _, rl := range r.rules {
		if !rl.matches(tag, classes) {
			continue
		}
		matched = append(matched, rl)
	}
	sortBySpecificity(matched)

	var out parser.Style
	for _, rl := range matched {
		applyProperties(&out, rl.properties)
	}
	return out
}

func (r rule) matches(tag string, classes []string) bool {
	switch {
	case r.element != "" && r.class != "":
		return r.element == tag && hasClass(classes, r.class)
	case r.class != "":
		return hasClass(classes, r.class)
	default:
		return r.element == tag
	}
}

func hasClass(classes []string, want string) bool {
	for _, c := range classes {
		if c == want {
			return true
		}
	}
	return false
}

// sortBySpecificity is a small stable insertion sort: rule counts here are
// tiny (a handful of matches per element), and stability preserves
// source-order tie-breaking within a specificity tier.
func sortBySpecificity(rules []rule) {
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0 && rules[j-1].specificity() > rules[j].specificity(); j-- {
			rules[j-1], rules[j] = rules[j], rules[j-1]
		}
	}
}

// ParseInlineStyle parses a style="" attribute's declaration list in
// isolation, with no selector (§4.3.1 "inline style override").
func (r *Resolver) ParseInlineStyle(styleAttr string) parser.Style {
	var out parser.Style
	if strings.TrimSpace(styleAttr) == "" {
		return out
	}
	input := parse.NewInput(bytes.NewReader([]byte(styleAttr + ";")))
	p := tdcss.NewParser(input, true)
	props := map[string]string{}
	for {
		gt, _, data := p.Next()
		switch gt {
		case tdcss.ErrorGrammar:
			applyProperties(&out, props)
			return out
		case tdcss.DeclarationGrammar:
			props[strings.ToLower(string(data))] = tokenText(p.Values())
		}
	}
}

func applyProperties(out *parser.Style, props map[string]string) {
	if v, ok := props["text-align"]; ok {
		if a, ok := parseAlign(v); ok {
			out.TextAlign = &a
		}
	}
	if v, ok := props["direction"]; ok {
		if d, ok := parseDirection(v); ok {
			out.Direction = &d
		}
	}
	if v, ok := props["font-weight"]; ok {
		if b, ok := parseWeight(v); ok {
			out.FontWeight = &b
		}
	}
	if v, ok := props["font-style"]; ok {
		if i, ok := parseFontStyle(v); ok {
			out.FontStyle = &i
		}
	}
}

func parseAlign(v string) (common.BlockStyle, bool) {
	switch strings.TrimSpace(v) {
	case "left", "start":
		return common.BlockLeft, true
	case "right", "end":
		return common.BlockRight, true
	case "center":
		return common.BlockCenter, true
	case "justify":
		return common.BlockJustified, true
	default:
		return 0, false
	}
}

func parseDirection(v string) (common.Direction, bool) {
	switch strings.TrimSpace(v) {
	case "rtl":
		return common.DirRTL, true
	case "ltr":
		return common.DirLTR, true
	default:
		return 0, false
	}
}

func parseWeight(v string) (bool, bool) {
	v = strings.TrimSpace(v)
	switch v {
	case "bold", "bolder":
		return true, true
	case "normal", "lighter":
		return false, true
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n >= 700, true
	}
	return false, false
}

func parseFontStyle(v string) (bool, bool) {
	switch strings.TrimSpace(v) {
	case "italic", "oblique":
		return true, true
	case "normal":
		return false, true
	default:
		return false, false
	}
}
