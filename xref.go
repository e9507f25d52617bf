// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/sassoftware/viya-pdf-doc/logger"
	"github.com/tdewolff/parse/v2/strconv"
)

// XRefKind identifies how a cross-reference section was obtained.
type XRefKind int

const (
	XRefTable XRefKind = iota
	XRefStream
	XRefReconstructed
)

func (k XRefKind) String() string {
	switch k {
	case XRefTable:
		return "table"
	case XRefStream:
		return "stream"
	case XRefReconstructed:
		return "reconstructed"
	}
	return fmt.Sprintf("XRefKind(%d)", int(k))
}

// EntryKind tags an XRefEntry.
type EntryKind int

const (
	EntryFree EntryKind = iota
	EntryDirect
	EntryCompressed
)

// An XRefEntry locates one indirect object.
// Direct entries use Generation and Offset; compressed entries use Container and Index.
type XRefEntry struct {
	Kind       EntryKind
	Generation uint16
	Offset     int64
	Container  uint32
	Index      int
}

// xrefSource is one cross-reference section of the update chain.
type xrefSource interface {
	Kind() XRefKind
	Trailer() dict
	// ObjectIDs yields every object ID the section covers.
	ObjectIDs() iter.Seq[uint32]
	// Locate fails with ErrLookup for unknown or free IDs.
	Locate(id uint32) (XRefEntry, error)
}

// xrefTable backs both the classic table and the reconstructed index.
type xrefTable struct {
	kind    XRefKind
	offsets map[uint32]XRefEntry
	trailer dict
}

func (x *xrefTable) Kind() XRefKind { return x.kind }

func (x *xrefTable) Trailer() dict { return x.trailer }

func (x *xrefTable) ObjectIDs() iter.Seq[uint32] {
	return slices.Values(slices.Sorted(maps.Keys(x.offsets)))
}

func (x *xrefTable) Locate(id uint32) (XRefEntry, error) {
	e, ok := x.offsets[id]
	if !ok {
		return XRefEntry{}, fmt.Errorf("%w: object %d not in %v index", ErrLookup, id, x.kind)
	}
	return e, nil
}

// parseUintField parses a whole field of decimal digits.
func parseUintField(s string) (uint64, bool) {
	v, n := strconv.ParseUint([]byte(s))
	return v, n > 0 && n == len(s)
}

// loadXRefTable reads the subsections following the xref keyword and the trailer after them.
// b must be positioned right after the keyword; f and size are used to re-read the trailer.
func loadXRefTable(b *buffer, f io.ReaderAt, size int64) (*xrefTable, error) {
	x := &xrefTable{kind: XRefTable, offsets: make(map[uint32]XRefEntry)}
	b.readLine() // rest of the xref line

	var trailerPos int64
	for {
		pos, line, ok := b.readLine()
		if !ok {
			logger.Error("xref table: unexpected EOF before trailer")
			return nil, fmt.Errorf("%w: unexpected EOF in xref table", ErrIndexCorrupt)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "trailer") {
			trailerPos = pos
			break
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			logger.Error(fmt.Sprintf("xref table: invalid subsection header %q", line))
			return nil, fmt.Errorf("%w: invalid subsection header %q", ErrIndexCorrupt, line)
		}
		start, ok1 := parseUintField(fields[0])
		count, ok2 := parseUintField(fields[1])
		if !ok1 || !ok2 {
			logger.Error(fmt.Sprintf("xref table: invalid subsection header %q", line))
			return nil, fmt.Errorf("%w: invalid subsection header %q", ErrIndexCorrupt, line)
		}
		for i := uint64(0); i < count; i++ {
			_, entry, ok := b.readLine()
			if !ok {
				return nil, fmt.Errorf("%w: unexpected EOF in subsection %d %d", ErrIndexCorrupt, start, count)
			}
			fs := strings.Fields(entry)
			if len(fs) != 3 {
				return nil, fmt.Errorf("%w: invalid entry %q", ErrIndexCorrupt, entry)
			}
			off, ok1 := parseUintField(fs[0])
			gen, ok2 := parseUintField(fs[1])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: invalid entry %q", ErrIndexCorrupt, entry)
			}
			if fs[2] != "n" {
				continue
			}
			x.offsets[uint32(start+i)] = XRefEntry{Kind: EntryDirect, Generation: uint16(gen), Offset: int64(off)}
		}
	}

	trailer, err := readTrailerAt(f, trailerPos, size)
	if err != nil {
		return nil, err
	}
	x.trailer = trailer
	logger.Debug(fmt.Sprintf("xref: table with %d in-use entries", len(x.offsets)), true)
	return x, nil
}

// readTrailerAt reads "trailer << ... >>" at pos. When the keyword is not where
// it is expected, the pushed-back token is retried as the dictionary itself.
func readTrailerAt(f io.ReaderAt, pos, size int64) (trailer dict, err error) {
	defer func() {
		if err != nil && !isIndexError(err) {
			err = fmt.Errorf("%w: trailer at %d: %v", ErrIndexCorrupt, pos, err)
		}
	}()
	defer catchLexError(&err)
	b := newBufferAt(f, pos, size)
	b.allowStream = false
	if tok := b.readToken(); tok != keyword("trailer") {
		logger.Warn(fmt.Sprintf("xref: expected trailer keyword at %d, found %v", pos, tok))
		b.unreadToken(tok)
	}
	d, ok := b.readObject().(dict)
	if !ok {
		return nil, fmt.Errorf("%w: trailer at %d is not a dictionary", ErrIndexCorrupt, pos)
	}
	return d, nil
}

var objectHeaderRE = regexp.MustCompile(`^(\d+)\s+(\d+)\s+obj\b`)

// loadXRefFallback rebuilds an index by scanning every line of the file for
// "id gen obj" headers. Later headers for the same ID replace earlier ones.
func loadXRefFallback(f io.ReaderAt, size int64) (*xrefTable, error) {
	logger.Debug("xref: reconstructing index by scanning the body", true)
	x := &xrefTable{kind: XRefReconstructed, offsets: make(map[uint32]XRefEntry), trailer: dict{}}
	b := newBufferAt(f, 0, size)
	for {
		pos, line, ok := b.readLine()
		if !ok {
			break
		}
		if strings.HasPrefix(line, "trailer") {
			trailer, err := readTrailerAt(f, pos, size)
			if err != nil {
				logger.Warn(fmt.Sprintf("xref: ignoring unreadable trailer at %d: %v", pos, err))
			} else {
				x.trailer = trailer
			}
			break
		}
		m := objectHeaderRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, ok := parseUintField(m[1])
		if !ok || id > 1<<32-1 {
			continue
		}
		x.offsets[uint32(id)] = XRefEntry{Kind: EntryDirect, Offset: pos}
	}
	logger.Debug(fmt.Sprintf("xref: reconstructed %d objects", len(x.offsets)), true)
	return x, nil
}
