package sax

import (
	"bufio"
	"io"
)

// dataURIPattern is the attribute prefix the stripper watches for; the quote
// and "data:" that follow it are checked separately by peekForDataURI.
var dataURIPattern = []byte(`src=`)

// DataURIStripper rewrites `src="data:...` / `src='data:...` attribute
// values to `src="#"` as the byte stream is read, so an embedded base64
// image never reaches the tokenizer's attribute buffer whole (§4.3.1). It
// operates as a single pass over the underlying reader with O(1) extra
// memory: once a data URI value is recognized, its bytes are discarded one
// at a time rather than buffered.
type DataURIStripper struct {
	src   *bufio.Reader
	state stripState
	// pending holds bytes already consumed from src that must still be
	// emitted to the caller (a prefix match that turned out not to lead to
	// a data URI, or the literal replacement text).
	pending []byte
	quote   byte
}

type stripState int

const (
	stateScan stripState = iota
	stateEmitPending
	stateSkipValue
)

// NewDataURIStripper wraps r.
func NewDataURIStripper(r io.Reader) *DataURIStripper {
	return &DataURIStripper{src: bufio.NewReaderSize(r, 4096)}
}

func (s *DataURIStripper) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if s.state == stateEmitPending {
			if len(s.pending) == 0 {
				s.state = stateScan
				continue
			}
			c := copy(p[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}

		if s.state == stateSkipValue {
			b, err := s.src.ReadByte()
			if err != nil {
				return n, err
			}
			if b == s.quote {
				p[n] = s.quote
				n++
				s.state = stateScan
			}
			continue
		}

		// stateScan: look for the literal "src=" prefix.
		matched, err := s.tryMatchPrefix()
		if matched {
			// Next byte must be a quote, followed by "data:".
			quote, dataURI, lookErr := s.peekForDataURI()
			if dataURI {
				s.quote = quote
				s.pending = append([]byte(nil), dataURIPattern...)
				s.pending = append(s.pending, quote, '#')
				s.state = stateEmitPending
				continue
			}
			// Not a data URI: emit "src=" verbatim and whatever we already
			// consumed while peeking (quote byte, if any).
			s.pending = append([]byte(nil), dataURIPattern...)
			if quote != 0 {
				s.pending = append(s.pending, quote)
			}
			s.state = stateEmitPending
			if lookErr != nil && lookErr != io.EOF {
				return n, lookErr
			}
			continue
		}
		if err != nil {
			return n, err
		}
		b, rerr := s.src.ReadByte()
		if rerr != nil {
			return n, rerr
		}
		p[n] = b
		n++
	}
	return n, nil
}

// tryMatchPrefix consumes bytes from src attempting to match "src="
// literally; on a full match it returns true having consumed exactly those
// bytes. On mismatch it consumes nothing and returns false; the caller then
// passes one byte through and scans again.
func (s *DataURIStripper) tryMatchPrefix() (bool, error) {
	peeked, err := s.src.Peek(len(dataURIPattern))
	if err == io.EOF {
		// Fewer bytes than the prefix remain; the caller passes them through.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if string(peeked) != string(dataURIPattern) {
		return false, nil
	}
	if _, err := s.src.Discard(len(dataURIPattern)); err != nil {
		return false, err
	}
	return true, nil
}

// peekForDataURI checks whether the next bytes are a quote character
// followed by "data:". It consumes the quote byte (and "data:" when
// matched) from src; quote is 0 if no quote character followed at all.
func (s *DataURIStripper) peekForDataURI() (quote byte, isDataURI bool, err error) {
	b, err := s.src.ReadByte()
	if err != nil {
		return 0, false, err
	}
	if b != '"' && b != '\'' {
		// Not a quoted attribute at all; this byte must still be re-scanned
		// by the caller as ordinary content, but simplicity wins here: push
		// it back if the underlying reader supports it.
		_ = s.src.UnreadByte()
		return 0, false, nil
	}
	peeked, perr := s.src.Peek(5)
	if perr != nil || string(peeked) != "data:" {
		return b, false, nil
	}
	if _, derr := s.src.Discard(5); derr != nil {
		return b, false, derr
	}
	return b, true, nil
}
