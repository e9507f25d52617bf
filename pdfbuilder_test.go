// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// pdfBuilder writes small PDF files and keeps track of the byte offset of every object.
type pdfBuilder struct {
	buf     bytes.Buffer
	offsets map[uint32]int64
	gens    map[uint32]uint16
}

func newPDF(version string) *pdfBuilder {
	b := &pdfBuilder{offsets: make(map[uint32]int64), gens: make(map[uint32]uint16)}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", version)
	return b
}

func (b *pdfBuilder) pos() int64 {
	return int64(b.buf.Len())
}

func (b *pdfBuilder) raw(s string) *pdfBuilder {
	b.buf.WriteString(s)
	return b
}

func (b *pdfBuilder) obj(id uint32, body string) *pdfBuilder {
	return b.objGen(id, 0, body)
}

func (b *pdfBuilder) objGen(id uint32, gen uint16, body string) *pdfBuilder {
	b.offsets[id] = b.pos()
	b.gens[id] = gen
	fmt.Fprintf(&b.buf, "%d %d obj\n%s\nendobj\n", id, gen, body)
	return b
}

// stream writes a stream object. entries are the dictionary entries besides /Length.
func (b *pdfBuilder) stream(id uint32, entries string, data []byte) *pdfBuilder {
	b.offsets[id] = b.pos()
	b.gens[id] = 0
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", id, entries, len(data))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	return b
}

type member struct {
	id   uint32
	body string
}

// objStm writes an object stream holding members; member i is stored at index i.
func (b *pdfBuilder) objStm(id uint32, members ...member) *pdfBuilder {
	var hdr, body strings.Builder
	for _, m := range members {
		fmt.Fprintf(&hdr, "%d %d ", m.id, body.Len())
		body.WriteString(m.body)
		body.WriteString("\n")
	}
	entries := fmt.Sprintf("/Type /ObjStm /N %d /First %d /Filter /FlateDecode", len(members), hdr.Len())
	return b.stream(id, entries, deflate([]byte(hdr.String()+body.String())))
}

// xref writes a classic table with one subsection per ID and returns its offset.
// Without ids, every object written so far is listed.
func (b *pdfBuilder) xref(trailer string, ids ...uint32) int64 {
	if len(ids) == 0 {
		ids = slices.Sorted(maps.Keys(b.offsets))
	}
	pos := b.pos()
	b.buf.WriteString("xref\n0 1\n0000000000 65535 f \n")
	for _, id := range ids {
		fmt.Fprintf(&b.buf, "%d 1\n%010d %05d n \n", id, b.offsets[id], b.gens[id])
	}
	fmt.Fprintf(&b.buf, "trailer\n%s\n", trailer)
	return pos
}

type xrefRow struct {
	typ, f2, f3 int64
}

// direct returns the xref stream row of an object written by b.
func (b *pdfBuilder) direct(id uint32) xrefRow {
	return xrefRow{1, b.offsets[id], int64(b.gens[id])}
}

// xrefStream writes object id as a cross-reference stream with W [1 4 2] and
// returns its offset. extra holds trailer entries such as /Root.
func (b *pdfBuilder) xrefStream(id uint32, extra string, rows map[uint32]xrefRow) int64 {
	ids := slices.Sorted(maps.Keys(rows))
	var index []string
	var data []byte
	for _, i := range ids {
		r := rows[i]
		index = append(index, fmt.Sprintf("%d 1", i))
		data = append(data, byte(r.typ))
		data = binary.BigEndian.AppendUint32(data, uint32(r.f2))
		data = binary.BigEndian.AppendUint16(data, uint16(r.f3))
	}
	pos := b.pos()
	entries := fmt.Sprintf("/Type /XRef /Size %d /W [1 4 2] /Index [%s] /Filter /FlateDecode %s",
		ids[len(ids)-1]+1, strings.Join(index, " "), extra)
	b.stream(id, entries, deflate(data))
	return pos
}

// finish writes the startxref pointer and the EOF marker.
func (b *pdfBuilder) finish(xrefPos int64) []byte {
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", xrefPos)
	return bytes.Clone(b.buf.Bytes())
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func testConfig(opts ...func(*Config)) *Config {
	cfg := NewDefaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

func strictMode(cfg *Config) { cfg.ParsingMode = Strict }

// loadDoc reads the index of data without authenticating.
func loadDoc(t *testing.T, data []byte, cfg *Config) *Document {
	t.Helper()
	d, err := Load(bytes.NewReader(data), int64(len(data)), cfg)
	require.NoError(t, err)
	return d
}

func openDoc(t *testing.T, data []byte, cfg *Config) *Document {
	t.Helper()
	d, err := NewDocument(bytes.NewReader(data), int64(len(data)), cfg)
	require.NoError(t, err)
	return d
}

// basicPDF has two pages: 3 directly under the root and 7 under an intermediate node.
func basicPDF() []byte {
	b := newPDF("1.7")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 /Resources << /Font << /F1 5 0 R >> >> /MediaBox [0 0 612 792] /Rotate 450 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R /Contents 6 0 R >>")
	b.obj(4, "<< /Type /Pages /Parent 2 0 R /Kids [7 0 R] /Count 1 /MediaBox [0 0 100 100] >>")
	b.obj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	b.stream(6, "", []byte("BT ET"))
	b.obj(7, "<< /Type /Page /Parent 4 0 R /Rotate -90 /CropBox [10 10 90 90] /Contents [6 0 R 8 0 R] >>")
	b.stream(8, "", []byte("q Q"))
	pos := b.xref("<< /Size 9 /Root 1 0 R >>")
	return b.finish(pos)
}
