// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Reading of PDF tokens, objects and lines from a raw byte stream.

package pdfdoc

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tdewolff/parse/v2/strconv"
)

// A token is a PDF token in the input stream, one of the following Go types:
//
//	bool, a PDF boolean
//	int64, a PDF integer
//	float64, a PDF real
//	string, a PDF string literal
//	keyword, a PDF keyword
//	name, a PDF name without the leading slash
//
// io.EOF is returned as a token once the input is exhausted.
type token interface{}

// A name is a PDF name, without the leading slash.
type name string

// A keyword is a PDF keyword.
// Delimiter tokens used in higher-level syntax,
// such as "<<", ">>", "[", "]", "{", "}", are also treated as keywords.
type keyword string

// An object is a PDF syntax object, one of the following Go types:
//
//	bool, a PDF boolean
//	int64, a PDF integer
//	float64, a PDF real
//	string, a PDF string literal
//	name, a PDF name without the leading slash
//	dict, a PDF dictionary
//	array, a PDF array
//	stream, a PDF stream
//	objptr, a PDF object reference
//	objdef, a PDF object definition
//
// An object may also be nil, to represent the PDF null.
type object interface{}

type dict map[name]object

type array []object

// A stream is a stream header plus the raw (still encoded) bytes once loaded.
type stream struct {
	hdr    dict
	ptr    objptr
	offset int64
	raw    []byte
	loaded bool
}

type objptr struct {
	id  uint32
	gen uint16
}

type objdef struct {
	ptr objptr
	obj object
}

// lexError carries a syntax failure out of the lexer. It never leaves the package:
// every parse entry point recovers it with catchLexError.
type lexError struct {
	err error
}

func (e lexError) Error() string { return e.err.Error() }

// catchLexError converts a lexer panic into an ErrSyntax error stored in *err.
func catchLexError(err *error) {
	if r := recover(); r != nil {
		le, ok := r.(lexError)
		if !ok {
			panic(r)
		}
		*err = fmt.Errorf("%w: %v", ErrSyntax, le.err)
	}
}

// A buffer holds buffered input bytes from the PDF file.
type buffer struct {
	r           io.Reader // source of data
	buf         []byte    // buffered data
	pos         int       // read index in buf
	offset      int64     // offset at end of buf; aka offset of next read
	tmp         []byte    // scratch space for accumulating token
	unread      []token   // queue of read but then unread tokens
	allowObjptr bool
	allowStream bool
	eof         bool
	objptr      objptr
}

// newBuffer returns a new buffer reading from r at the given offset.
func newBuffer(r io.Reader, offset int64) *buffer {
	return &buffer{
		r:           r,
		offset:      offset,
		buf:         make([]byte, 0, 4096),
		allowObjptr: true,
		allowStream: true,
	}
}

// newBufferAt returns a buffer reading f from off up to size.
func newBufferAt(f io.ReaderAt, off, size int64) *buffer {
	return newBuffer(io.NewSectionReader(f, off, size-off), off)
}

func (b *buffer) errorf(format string, args ...interface{}) {
	panic(lexError{fmt.Errorf(format, args...)})
}

func (b *buffer) readByte() byte {
	if b.pos >= len(b.buf) {
		b.reload()
		if b.pos >= len(b.buf) {
			return '\n'
		}
	}
	c := b.buf[b.pos]
	b.pos++
	return c
}

func (b *buffer) reload() bool {
	if b.eof {
		return false
	}
	n, err := b.r.Read(b.buf[:cap(b.buf)])
	if n == 0 && err != nil {
		b.buf = b.buf[:0]
		b.pos = 0
		if err == io.EOF {
			b.eof = true
			return false
		}
		b.errorf("reading at offset %d: %v", b.offset, err)
		return false
	}
	b.offset += int64(n)
	b.buf = b.buf[:n]
	b.pos = 0
	return true
}

// readOffset returns the file offset of the next unread byte.
func (b *buffer) readOffset() int64 {
	return b.offset - int64(len(b.buf)) + int64(b.pos)
}

func (b *buffer) unreadByte() {
	if b.pos > 0 {
		b.pos--
	}
}

func (b *buffer) unreadToken(t token) {
	b.unread = append(b.unread, t)
}

func (b *buffer) readToken() token {
	if n := len(b.unread); n > 0 {
		t := b.unread[n-1]
		b.unread = b.unread[:n-1]
		return t
	}

	// Find first non-space, non-comment byte.
	c := b.readByte()
	for {
		if isSpace(c) {
			if b.eof {
				return io.EOF
			}
			c = b.readByte()
		} else if c == '%' {
			for c != '\r' && c != '\n' {
				c = b.readByte()
			}
		} else {
			break
		}
	}

	switch c {
	case '<':
		if b.readByte() == '<' {
			return keyword("<<")
		}
		b.unreadByte()
		return b.readHexString()

	case '(':
		return b.readLiteralString()

	case '[', ']', '{', '}':
		return keyword(string(c))

	case '/':
		return b.readName()

	case '>':
		if b.readByte() == '>' {
			return keyword(">>")
		}
		b.unreadByte()
		fallthrough

	default:
		if isDelim(c) {
			b.errorf("unexpected delimiter %#q", rune(c))
			return nil
		}
		b.unreadByte()
		return b.readKeyword()
	}
}

func (b *buffer) readHexString() token {
	tmp := b.tmp[:0]
	hi := -1
	for {
		c := b.readByte()
		if b.eof {
			b.errorf("unexpected EOF in hex string")
		}
		if c == '>' {
			break
		}
		if isSpace(c) {
			continue
		}
		x := unhex(c)
		if x < 0 {
			b.errorf("malformed hex string %q", c)
		}
		if hi < 0 {
			hi = x
			continue
		}
		tmp = append(tmp, byte(hi<<4|x))
		hi = -1
	}
	if hi >= 0 {
		// odd digit count: the final digit is followed by an implied 0
		tmp = append(tmp, byte(hi<<4))
	}
	b.tmp = tmp
	return string(tmp)
}

func unhex(b byte) int {
	switch {
	case '0' <= b && b <= '9':
		return int(b) - '0'
	case 'a' <= b && b <= 'f':
		return int(b) - 'a' + 10
	case 'A' <= b && b <= 'F':
		return int(b) - 'A' + 10
	}
	return -1
}

func (b *buffer) readLiteralString() token {
	tmp := b.tmp[:0]
	depth := 1
Loop:
	for {
		c := b.readByte()
		if b.eof {
			b.errorf("unexpected EOF in literal string")
		}
		switch c {
		default:
			tmp = append(tmp, c)
		case '(':
			depth++
			tmp = append(tmp, c)
		case ')':
			if depth--; depth == 0 {
				break Loop
			}
			tmp = append(tmp, c)
		case '\\':
			switch c = b.readByte(); c {
			default:
				// unknown escapes drop the backslash
				tmp = append(tmp, c)
			case 'n':
				tmp = append(tmp, '\n')
			case 'r':
				tmp = append(tmp, '\r')
			case 'b':
				tmp = append(tmp, '\b')
			case 't':
				tmp = append(tmp, '\t')
			case 'f':
				tmp = append(tmp, '\f')
			case '(', ')', '\\':
				tmp = append(tmp, c)
			case '\r':
				if b.readByte() != '\n' {
					b.unreadByte()
				}
				fallthrough
			case '\n':
				// line continuation
			case '0', '1', '2', '3', '4', '5', '6', '7':
				x := int(c - '0')
				for i := 0; i < 2; i++ {
					c = b.readByte()
					if c < '0' || c > '7' {
						b.unreadByte()
						break
					}
					x = x*8 + int(c-'0')
				}
				tmp = append(tmp, byte(x))
			}
		}
	}
	b.tmp = tmp
	return string(tmp)
}

func (b *buffer) readName() token {
	tmp := b.tmp[:0]
	for {
		c := b.readByte()
		if isDelim(c) || isSpace(c) {
			b.unreadByte()
			break
		}
		if c == '#' {
			x := unhex(b.readByte())<<4 | unhex(b.readByte())
			if x < 0 {
				b.errorf("malformed name")
			}
			tmp = append(tmp, byte(x))
			continue
		}
		tmp = append(tmp, c)
	}
	b.tmp = tmp
	return name(string(tmp))
}

func (b *buffer) readKeyword() token {
	tmp := b.tmp[:0]
	for {
		c := b.readByte()
		if isDelim(c) || isSpace(c) {
			b.unreadByte()
			break
		}
		tmp = append(tmp, c)
	}
	b.tmp = tmp
	switch {
	case bytes.Equal(tmp, []byte("true")):
		return true
	case bytes.Equal(tmp, []byte("false")):
		return false
	case isInteger(tmp):
		x, n := strconv.ParseInt(tmp)
		if n != len(tmp) {
			b.errorf("invalid integer %s", tmp)
		}
		return x
	case isReal(tmp):
		x, n := strconv.ParseFloat(tmp)
		if n != len(tmp) {
			b.errorf("invalid real %s", tmp)
		}
		return x
	}
	return keyword(string(tmp))
}

func isInteger(s []byte) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if c < '0' || '9' < c {
			return false
		}
	}
	return true
}

func isReal(s []byte) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	ndot := 0
	for _, c := range s {
		if c == '.' {
			ndot++
			continue
		}
		if c < '0' || '9' < c {
			return false
		}
	}
	return ndot == 1 && len(s) > 1
}

func (b *buffer) readObject() object {
	tok := b.readToken()
	if tok == io.EOF {
		b.errorf("unexpected EOF parsing object")
	}
	if kw, ok := tok.(keyword); ok {
		switch kw {
		case "null":
			return nil
		case "<<":
			return b.readDict()
		case "[":
			return b.readArray()
		}
		b.errorf("unexpected keyword %q parsing object", kw)
		return nil
	}

	if !b.allowObjptr {
		return tok
	}

	if t1, ok := tok.(int64); ok && int64(uint32(t1)) == t1 {
		tok2 := b.readToken()
		if t2, ok := tok2.(int64); ok && int64(uint16(t2)) == t2 {
			tok3 := b.readToken()
			switch tok3 {
			case keyword("R"):
				return objptr{uint32(t1), uint16(t2)}
			case keyword("obj"):
				old := b.objptr
				b.objptr = objptr{uint32(t1), uint16(t2)}
				obj := b.readObject()
				if _, ok := obj.(stream); !ok {
					if tok4 := b.readToken(); tok4 != keyword("endobj") {
						b.unreadToken(tok4)
					}
				}
				b.objptr = old
				return objdef{objptr{uint32(t1), uint16(t2)}, obj}
			}
			b.unreadToken(tok3)
		}
		b.unreadToken(tok2)
	}
	return tok
}

func (b *buffer) readArray() object {
	var x array
	for {
		tok := b.readToken()
		if tok == io.EOF {
			b.errorf("unexpected EOF in array")
		}
		if tok == keyword("]") {
			break
		}
		b.unreadToken(tok)
		x = append(x, b.readObject())
	}
	return x
}

func (b *buffer) readDict() object {
	x := make(dict)
	for {
		tok := b.readToken()
		if tok == io.EOF {
			b.errorf("unexpected EOF in dictionary")
		}
		if tok == keyword(">>") {
			break
		}
		n, ok := tok.(name)
		if !ok {
			b.errorf("unexpected non-name key %T(%v) parsing dictionary", tok, tok)
		}
		x[n] = b.readObject()
	}

	if !b.allowStream {
		return x
	}

	tok := b.readToken()
	if tok != keyword("stream") {
		b.unreadToken(tok)
		return x
	}

	switch b.readByte() {
	case '\r':
		if b.readByte() != '\n' {
			b.unreadByte()
		}
	case '\n':
		// ok
	default:
		b.unreadByte()
	}

	return stream{hdr: x, ptr: b.objptr, offset: b.readOffset()}
}

// readLine returns the file offset of the next line and its content without the
// end-of-line marker. CR, LF and CRLF all end a line. ok is false at end of input.
// Any unread tokens are discarded.
func (b *buffer) readLine() (pos int64, line string, ok bool) {
	b.unread = b.unread[:0]
	pos = b.readOffset()
	tmp := b.tmp[:0]
	for {
		if b.pos >= len(b.buf) && !b.reload() {
			if len(tmp) == 0 {
				return pos, "", false
			}
			break
		}
		c := b.buf[b.pos]
		b.pos++
		if c == '\n' {
			break
		}
		if c == '\r' {
			if b.pos >= len(b.buf) {
				b.reload()
			}
			if b.pos < len(b.buf) && b.buf[b.pos] == '\n' {
				b.pos++
			}
			break
		}
		tmp = append(tmp, c)
	}
	b.tmp = tmp
	return pos, string(tmp), true
}

func isSpace(b byte) bool {
	switch b {
	case '\x00', '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '<', '>', '(', ')', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

const reverseChunk = 1024

// reverseLineReader yields the lines of a file from the end towards the start.
// Blank lines are skipped.
type reverseLineReader struct {
	f       io.ReaderAt
	start   int64 // file offset of pending[0]
	pending []byte
}

func newReverseLineReader(f io.ReaderAt, size int64) *reverseLineReader {
	return &reverseLineReader{f: f, start: size}
}

// next returns the previous non-empty line. ok is false once the start of the file is reached.
func (r *reverseLineReader) next() (line string, ok bool, err error) {
	for {
		r.pending = bytes.TrimRight(r.pending, "\r\n")
		if i := bytes.LastIndexAny(r.pending, "\r\n"); i >= 0 {
			line = string(r.pending[i+1:])
			r.pending = r.pending[:i+1]
			return line, true, nil
		}
		if r.start == 0 {
			if len(r.pending) == 0 {
				return "", false, nil
			}
			line = string(r.pending)
			r.pending = nil
			return line, true, nil
		}
		n := int64(reverseChunk)
		if n > r.start {
			n = r.start
		}
		chunk := make([]byte, n+int64(len(r.pending)))
		if m, err := r.f.ReadAt(chunk[:n], r.start-n); int64(m) < n {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return "", false, err
		}
		copy(chunk[n:], r.pending)
		r.pending = chunk
		r.start -= n
	}
}
