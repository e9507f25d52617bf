// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"fmt"
	"io"
	"iter"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// idRange is a contiguous block of object IDs covered by an xref stream.
type idRange struct {
	start uint32
	count uint32
}

// xrefStream is a cross-reference stream: fixed-width binary records, one per ID
// of its declared ranges, in range order.
type xrefStream struct {
	ranges  []idRange
	w       [3]int
	data    []byte
	trailer dict
}

func (x *xrefStream) Kind() XRefKind { return XRefStream }

// Trailer returns the stream dictionary, which doubles as the section's trailer.
func (x *xrefStream) Trailer() dict { return x.trailer }

func (x *xrefStream) ObjectIDs() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for _, r := range x.ranges {
			for i := uint32(0); i < r.count; i++ {
				if !yield(r.start + i) {
					return
				}
			}
		}
	}
}

// record decodes the i'th record as its (type, field2, field3) triple.
// A zero-width type field defaults to 1.
func (x *xrefStream) record(i int) (typ, f2, f3 int64, ok bool) {
	width := x.w[0] + x.w[1] + x.w[2]
	off := i * width
	if i < 0 || off+width > len(x.data) {
		return 0, 0, 0, false
	}
	rec := x.data[off : off+width]
	typ = 1
	if x.w[0] > 0 {
		typ = decodeInt(rec[:x.w[0]])
	}
	f2 = decodeInt(rec[x.w[0] : x.w[0]+x.w[1]])
	f3 = decodeInt(rec[x.w[0]+x.w[1]:])
	return typ, f2, f3, true
}

func (x *xrefStream) Locate(id uint32) (XRefEntry, error) {
	index := 0
	for _, r := range x.ranges {
		if id >= r.start && uint64(id) < uint64(r.start)+uint64(r.count) {
			index += int(id - r.start)
			typ, f2, f3, ok := x.record(index)
			if !ok {
				return XRefEntry{}, fmt.Errorf("%w: object %d: xref stream record %d out of data", ErrLookup, id, index)
			}
			switch typ {
			case 1:
				return XRefEntry{Kind: EntryDirect, Generation: uint16(f3), Offset: f2}, nil
			case 2:
				return XRefEntry{Kind: EntryCompressed, Container: uint32(f2), Index: int(f3)}, nil
			}
			return XRefEntry{}, fmt.Errorf("%w: object %d is free", ErrLookup, id)
		}
		index += int(r.count)
	}
	return XRefEntry{}, fmt.Errorf("%w: object %d not in xref stream", ErrLookup, id)
}

// decodeInt reads a big-endian unsigned integer of any width up to 8 bytes.
func decodeInt(b []byte) int64 {
	var x int64
	for _, c := range b {
		x = x<<8 | int64(c)
	}
	return x
}

// loadXRefStream reads an "id gen obj << /Type /XRef ... >> stream" at the buffer position.
func loadXRefStream(b *buffer, f io.ReaderAt, size int64) (x *xrefStream, err error) {
	defer func() {
		if err != nil && !isIndexError(err) {
			err = fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
		}
	}()
	start := b.readOffset()
	strm, err := parseXRefStreamObject(b)
	if err != nil {
		return nil, err
	}

	sz, ok := strm.hdr[name("Size")].(int64)
	if !ok || sz < 0 {
		logger.Error("xref stream: missing or invalid Size")
		return nil, fmt.Errorf("%w: xref stream at %d: missing Size", ErrIndexCorrupt, start)
	}

	x = &xrefStream{trailer: strm.hdr}
	index := array{int64(0), sz}
	if v, ok := strm.hdr[name("Index")]; ok {
		if index, ok = v.(array); !ok {
			return nil, fmt.Errorf("%w: xref stream at %d: Index is %T", ErrIndexCorrupt, start, v)
		}
	}
	if len(index)%2 != 0 {
		logger.Error(fmt.Sprintf("xref stream: invalid Index array %v", objfmt(index)))
		return nil, fmt.Errorf("%w: xref stream at %d: odd Index length %d", ErrIndexCorrupt, start, len(index))
	}
	for i := 0; i < len(index); i += 2 {
		first, ok1 := index[i].(int64)
		n, ok2 := index[i+1].(int64)
		if !ok1 || !ok2 || first < 0 || n < 0 || first > 1<<32-1 || n > 1<<32-1 {
			return nil, fmt.Errorf("%w: xref stream at %d: malformed Index pair %v %v",
				ErrIndexCorrupt, start, objfmt(index[i]), objfmt(index[i+1]))
		}
		x.ranges = append(x.ranges, idRange{uint32(first), uint32(n)})
	}

	ww, ok := strm.hdr[name("W")].(array)
	if !ok || len(ww) != 3 {
		logger.Error("xref stream: missing or invalid W array")
		return nil, fmt.Errorf("%w: xref stream at %d: invalid W", ErrIndexCorrupt, start)
	}
	for i, v := range ww {
		w, ok := v.(int64)
		if !ok || w < 0 || w > 8 {
			return nil, fmt.Errorf("%w: xref stream at %d: invalid W %v", ErrIndexCorrupt, start, objfmt(ww))
		}
		x.w[i] = int(w)
	}
	if x.w[0]+x.w[1]+x.w[2] == 0 {
		return nil, fmt.Errorf("%w: xref stream at %d: zero record width", ErrIndexCorrupt, start)
	}

	length := int64(-1)
	if l, ok := strm.hdr[name("Length")].(int64); ok {
		length = l
	}
	raw, err := readStreamBytes(f, size, strm.offset, length)
	if err != nil {
		return nil, err
	}
	x.data, err = decodedBytes(strm.hdr, raw, nil)
	if err != nil {
		return nil, err
	}
	logger.Debug(fmt.Sprintf("xref: stream at %d with W=%v ranges=%d (%d bytes)", start, x.w, len(x.ranges), len(x.data)), true)
	return x, nil
}

// parseXRefStreamObject reads one object definition and checks that it is an /XRef stream.
func parseXRefStreamObject(b *buffer) (strm stream, err error) {
	defer catchLexError(&err)
	obj := b.readObject()
	def, ok := obj.(objdef)
	if !ok {
		logger.Error(fmt.Sprintf("xref stream: objdef not found: %v", objfmt(obj)))
		return stream{}, fmt.Errorf("%w: expected xref stream object, found %v", ErrIndexCorrupt, objfmt(obj))
	}
	strm, ok = def.obj.(stream)
	if !ok {
		logger.Error(fmt.Sprintf("xref stream: cross-reference stream not found: %v", objfmt(def)))
		return stream{}, fmt.Errorf("%w: object %d is not a stream", ErrIndexCorrupt, def.ptr.id)
	}
	if !hasType(strm.hdr, TypeXRef) {
		logger.Error("xref stream: stream does not have type XRef")
		return stream{}, fmt.Errorf("%w: object %d has /Type %q", ErrIndexCorrupt, def.ptr.id, typeOf(strm.hdr))
	}
	return strm, nil
}
