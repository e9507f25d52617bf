// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTable(t *testing.T, src string) (*xrefTable, error) {
	t.Helper()
	r := strings.NewReader(src)
	b := newBufferAt(r, 0, int64(len(src)))
	require.Equal(t, keyword("xref"), b.readToken())
	return loadXRefTable(b, r, int64(len(src)))
}

func TestLoadXRefTable(t *testing.T) {
	src := "xref\n" +
		"0 3\n" +
		"0000000000 65535 f \n" +
		"0000000015 00000 n \n" +
		"0000000042 00002 n \n" +
		"7 2\r\n" +
		"0000000100 00000 f\r\n" +
		"0000000200 00001 n\r\n" +
		"trailer\n<< /Size 9 /Root 1 0 R >>\n"
	x, err := readTable(t, src)
	require.NoError(t, err)

	assert.Equal(t, XRefTable, x.Kind())
	assert.Equal(t, []uint32{1, 2, 8}, slices.Collect(x.ObjectIDs()))
	assert.Equal(t, objptr{1, 0}, x.Trailer()[name("Root")])

	tests := []struct {
		id   uint32
		want XRefEntry
	}{
		{1, XRefEntry{Kind: EntryDirect, Offset: 15}},
		{2, XRefEntry{Kind: EntryDirect, Generation: 2, Offset: 42}},
		{8, XRefEntry{Kind: EntryDirect, Generation: 1, Offset: 200}},
	}
	for _, tt := range tests {
		got, err := x.Locate(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	for _, id := range []uint32{0, 7, 3, 99} {
		_, err := x.Locate(id)
		assert.ErrorIs(t, err, ErrLookup, "object %d", id)
	}
}

func TestLoadXRefTable_Corrupt(t *testing.T) {
	tests := map[string]string{
		"bad subsection header": "xref\n0 x\ntrailer\n<< >>\n",
		"short entry":           "xref\n0 1\n0000000000 65535\ntrailer\n<< >>\n",
		"missing trailer":       "xref\n0 1\n0000000000 65535 f \n",
		"trailer not a dict":    "xref\n0 1\n0000000000 65535 f \ntrailer\n[1 2]\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := readTable(t, src)
			assert.ErrorIs(t, err, ErrIndexCorrupt)
		})
	}
}

func TestLoadXRefTable_OffsetsMatchDocument(t *testing.T) {
	b := newPDF("1.4")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.objGen(2, 3, "<< /Type /Pages /Kids [] /Count 0 >>")
	b.obj(5, "(five)")
	data := b.finish(b.xref("<< /Size 6 /Root 1 0 R >>"))

	d := loadDoc(t, data, nil)
	require.Len(t, d.xrefs, 1)
	for id, off := range b.offsets {
		e, err := d.Locate(id)
		require.NoError(t, err)
		assert.Equal(t, off, e.Offset, "object %d", id)
		assert.Equal(t, b.gens[id], e.Generation, "object %d", id)
	}
	_, err := d.Locate(3)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLoadXRefFallback_LastOccurrenceWins(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	first := sb.Len()
	sb.WriteString("5 0 obj\n(old)\nendobj\n")
	sb.WriteString(strings.Repeat("% padding\n", 100))
	second := sb.Len()
	sb.WriteString("5 0 obj\n(new)\nendobj\n")
	sb.WriteString("trailer\n<< /Root 1 0 R >>\n%%EOF\n")
	src := sb.String()

	x, err := loadXRefFallback(strings.NewReader(src), int64(len(src)))
	require.NoError(t, err)
	assert.Equal(t, XRefReconstructed, x.Kind())

	e, err := x.Locate(5)
	require.NoError(t, err)
	assert.NotEqual(t, int64(first), e.Offset)
	assert.Equal(t, XRefEntry{Kind: EntryDirect, Offset: int64(second)}, e)
	assert.Equal(t, objptr{1, 0}, x.Trailer()[name("Root")])
}

func TestLoadXRefFallback_NoTrailer(t *testing.T) {
	src := "%PDF-1.4\n3 0 obj\n(x)\nendobj\n"
	x, err := loadXRefFallback(strings.NewReader(src), int64(len(src)))
	require.NoError(t, err)
	assert.Empty(t, x.Trailer())
	assert.Equal(t, []uint32{3}, slices.Collect(x.ObjectIDs()))
}

func TestXRefStream_Locate(t *testing.T) {
	// ranges [0 1] and [5 2]; W [1 2 1]
	x := &xrefStream{
		ranges: []idRange{{0, 1}, {5, 2}},
		w:      [3]int{1, 2, 1},
		data: []byte{
			0, 0x00, 0x00, 0xff, // 0: free
			2, 0x00, 0x07, 0x01, // 5: in container 7 at index 1
			1, 0x01, 0x02, 0x03, // 6: offset 258 gen 3
		},
	}
	assert.Equal(t, []uint32{0, 5, 6}, slices.Collect(x.ObjectIDs()))

	e, err := x.Locate(5)
	require.NoError(t, err)
	assert.Equal(t, XRefEntry{Kind: EntryCompressed, Container: 7, Index: 1}, e)

	e, err = x.Locate(6)
	require.NoError(t, err)
	assert.Equal(t, XRefEntry{Kind: EntryDirect, Generation: 3, Offset: 258}, e)

	for _, id := range []uint32{0, 1, 4, 7} {
		_, err := x.Locate(id)
		assert.ErrorIs(t, err, ErrLookup, "object %d", id)
	}
}

func TestXRefStream_RecordsMatchManualDecoding(t *testing.T) {
	w := [3]int{0, 2, 1}
	data := []byte{0, 100, 0, 1, 0, 3, 0xff, 0xff, 9}
	x := &xrefStream{ranges: []idRange{{10, 3}}, w: w, data: data}
	width := w[0] + w[1] + w[2]
	for i := 0; i < 3; i++ {
		rec := data[i*width : (i+1)*width]
		typ, f2, f3, ok := x.record(i)
		require.True(t, ok)
		assert.Equal(t, int64(1), typ, "a zero-width type field defaults to 1")
		assert.Equal(t, int64(rec[0])<<8|int64(rec[1]), f2)
		assert.Equal(t, int64(rec[2]), f3)
	}
	_, _, _, ok := x.record(3)
	assert.False(t, ok)

	e, err := x.Locate(11)
	require.NoError(t, err)
	assert.Equal(t, XRefEntry{Kind: EntryDirect, Generation: 3, Offset: 256}, e)
}

func TestLoadXRefStream_FromDocument(t *testing.T) {
	b := newPDF("1.5")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	b.objStm(3, member{4, "(four)"})
	pos := b.xrefStream(5, "/Root 1 0 R", map[uint32]xrefRow{
		0: {0, 0, 65535},
		1: b.direct(1),
		2: b.direct(2),
		3: b.direct(3),
		4: {2, 3, 0},
	})
	d := loadDoc(t, b.finish(pos), nil)

	assert.Equal(t, []XRefKind{XRefStream}, d.XRefKinds())
	e, err := d.Locate(4)
	require.NoError(t, err)
	assert.Equal(t, XRefEntry{Kind: EntryCompressed, Container: 3}, e)
	e, err = d.Locate(2)
	require.NoError(t, err)
	assert.Equal(t, b.offsets[2], e.Offset)
	_, err = d.Locate(0)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLoadXRefStream_Corrupt(t *testing.T) {
	tests := map[string]string{
		"odd Index":  "<< /Type /XRef /Size 2 /W [1 1 1] /Index [0] /Length 0 >>",
		"missing W":  "<< /Type /XRef /Size 2 /Length 0 >>",
		"wide field": "<< /Type /XRef /Size 2 /W [1 9 1] /Length 0 >>",
		"no Size":    "<< /Type /XRef /W [1 1 1] /Length 0 >>",
		"not XRef":   "<< /Type /ObjStm /Size 2 /W [1 1 1] /Length 0 >>",
	}
	for name, hdr := range tests {
		t.Run(name, func(t *testing.T) {
			src := "9 0 obj\n" + hdr + "\nstream\n\nendstream\nendobj\n"
			r := strings.NewReader(src)
			_, err := loadXRefStream(newBufferAt(r, 0, int64(len(src))), r, int64(len(src)))
			assert.ErrorIs(t, err, ErrIndexCorrupt)
		})
	}
}
