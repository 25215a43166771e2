// Package sax implements the default SAX parser collaborator (§6.3) on top
// of golang.org/x/net/html's streaming tokenizer, plus the DataURIStripper
// that shields it from embedded base64 images (§4.3.1).
package sax

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"papyrus/internal/parser"
	"papyrus/internal/storage"
)

// maxDepth mirrors §4.3.1's cap: exceeding it aborts the parse as malformed.
const maxDepth = 100

// Parser implements parser.SAXParser over an HTML/XHTML byte stream read
// from a Storage collaborator. It preserves just enough state (the open-tag
// depth) across a suspend to resume tokenizing correctly; golang.org/x/net/
// html itself is not resumed mid-token, only re-opened at a saved byte
// offset, so resume always starts at a tag boundary the driver has already
// flushed through makePages.
type Parser struct {
	store storage.Storage
	path  string

	tok   *html.Tokenizer
	rc    io.ReadCloser
	depth int
}

var _ parser.SAXParser = (*Parser)(nil)

// New constructs a parser over path, read through store.
func New(store storage.Storage, path string) *Parser {
	return &Parser{store: store, path: path}
}

func (p *Parser) open(offset int64) error {
	rc, err := p.store.OpenReadAt(p.path, offset)
	if err != nil {
		return err
	}
	utf8Reader, err := charset.NewReader(rc, "")
	if err != nil {
		rc.Close()
		return err
	}
	p.rc = rc
	p.tok = html.NewTokenizer(NewDataURIStripper(utf8Reader))
	return nil
}

func (p *Parser) Close() error {
	if p.rc == nil {
		return nil
	}
	err := p.rc.Close()
	p.rc = nil
	p.tok = nil
	return err
}

func (p *Parser) Run(handler parser.SAXHandler, shouldAbort func() bool) (int64, bool, error) {
	p.depth = 0
	if err := p.open(0); err != nil {
		return 0, false, err
	}
	defer p.Close()
	return p.drive(handler, shouldAbort, 0)
}

func (p *Parser) Resume(offset int64, handler parser.SAXHandler, shouldAbort func() bool) (int64, bool, error) {
	if err := p.open(offset); err != nil {
		return offset, false, err
	}
	defer p.Close()
	return p.drive(handler, shouldAbort, offset)
}

// drive pumps tokens into handler until EOF, a malformed-document condition,
// or shouldAbort fires. baseOffset is added to the tokenizer's own
// InputOffset so the returned value is relative to the start of the whole
// document, not just this Run/Resume call's reopened stream.
func (p *Parser) drive(handler parser.SAXHandler, shouldAbort func() bool, baseOffset int64) (int64, bool, error) {
	reads := 0
	for {
		reads++
		if reads%8 == 0 && shouldAbort != nil && shouldAbort() {
			return baseOffset + int64(p.tok.InputOffset()), true, nil
		}

		tt := p.tok.Next()
		switch tt {
		case html.ErrorToken:
			if err := p.tok.Err(); err == io.EOF {
				return baseOffset + int64(p.tok.InputOffset()), false, nil
			}
			return baseOffset + int64(p.tok.InputOffset()), false, fmt.Errorf("sax: tokenize: %w", p.tok.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			tag, attrs := p.readTag()
			if tt == html.StartTagToken {
				p.depth++
				if p.depth > maxDepth {
					return baseOffset + int64(p.tok.InputOffset()), false, fmt.Errorf("sax: element depth exceeded %d", maxDepth)
				}
				handler.OnElementStart(tag, attrs, p.depth)
			} else {
				// A self-closing tag pushes and pops its own depth level in
				// the same instant, so any depth threshold it activates is
				// cleared before the next sibling event, never leaking into
				// content that follows it.
				handler.OnElementStart(tag, attrs, p.depth+1)
				handler.OnElementEnd(tag, p.depth+1)
			}

		case html.EndTagToken:
			name, _ := p.tok.TagName()
			handler.OnElementEnd(string(name), p.depth)
			if p.depth > 0 {
				p.depth--
			}

		case html.TextToken:
			handler.OnCharacterData(p.tok.Text())

		case html.DoctypeToken, html.CommentToken:
			// Not meaningful to the chapter parser driver.
		}
	}
}

func (p *Parser) readTag() (string, parser.Attrs) {
	name, hasAttr := p.tok.TagName()
	attrs := parser.Attrs{}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = p.tok.TagAttr()
		attrs[string(key)] = string(val)
	}
	return string(name), attrs
}
