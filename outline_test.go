// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// navPDF has a three entry outline, a two leaf Dests name tree and a legacy
// /Dests dictionary. lastNext is appended to the last outline entry.
func navPDF(lastNext string) []byte {
	b := newPDF("1.7")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R /Outlines 10 0 R /Names << /Dests 20 0 R >> /Dests 30 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R >>")
	b.obj(10, "<< /Type /Outlines /First 11 0 R /Last 13 0 R /Count 3 >>")
	b.obj(11, "<< /Title (Chapter 1) /Parent 10 0 R /Next 13 0 R /First 12 0 R /Last 12 0 R /Count 1 /Dest [3 0 R /Fit] >>")
	b.obj(12, "<< /Title (Section 1.1) /Parent 11 0 R /A << /S /GoTo /D (sec11) >> >>")
	b.obj(13, "<< /Title <FEFF00C9007400E9> /Parent 10 0 R /Prev 11 0 R /Dest (beta) "+lastNext+" >>")
	b.obj(20, "<< /Kids [21 0 R 22 0 R] >>")
	b.obj(21, "<< /Limits [(alpha) (beta)] /Names [(alpha) [3 0 R /XYZ 0 0 0] (beta) 40 0 R] >>")
	b.obj(22, "<< /Limits [(nu) (omega)] /Names [(nu) [3 0 R /Fit] (omega) [3 0 R /FitB]] >>")
	b.obj(30, "<< /legacy [3 0 R /FitH 700] >>")
	b.obj(40, "<< /D [3 0 R /Fit] >>")
	return b.finish(b.xref("<< /Size 41 /Root 1 0 R >>"))
}

func TestOutlines(t *testing.T) {
	d := openDoc(t, navPDF(""), nil)
	seq, err := d.Outlines()
	require.NoError(t, err)

	var items []OutlineItem
	for item, err := range seq {
		require.NoError(t, err)
		items = append(items, item)
	}
	require.Len(t, items, 3)

	type entry struct {
		level int
		title string
	}
	var got []entry
	for _, it := range items {
		got = append(got, entry{it.Level, it.Title})
	}
	assert.Equal(t, []entry{{1, "Chapter 1"}, {2, "Section 1.1"}, {1, "Été"}}, got)

	id, _ := items[0].Dest.Index(0).Ref()
	assert.Equal(t, uint32(3), id)
	assert.Equal(t, "Fit", items[0].Dest.Index(1).Name())
	assert.True(t, items[0].Action.IsNull())

	assert.True(t, items[1].Dest.IsNull())
	assert.Equal(t, "GoTo", items[1].Action.Key("S").Name())

	assert.Equal(t, "beta", items[2].Dest.RawString())
}

func TestOutlineTree(t *testing.T) {
	d := openDoc(t, navPDF(""), nil)
	tree, err := d.OutlineTree()
	require.NoError(t, err)

	assert.Empty(t, tree.Title)
	require.Len(t, tree.Child, 2)
	ch1 := tree.Child[0]
	assert.Equal(t, "Chapter 1", ch1.Title)
	assert.Equal(t, Array, ch1.Dest.Kind())
	require.Len(t, ch1.Child, 1)
	assert.Equal(t, "Section 1.1", ch1.Child[0].Title)
	assert.Equal(t, "sec11", ch1.Child[0].Dest.Text(), "falls back to the action's /D")
	assert.Equal(t, "Été", tree.Child[1].Title)
	assert.Empty(t, tree.Child[1].Child)
}

func TestOutlines_Cycle(t *testing.T) {
	d := openDoc(t, navPDF("/Next 11 0 R"), nil)
	seq, err := d.Outlines()
	require.NoError(t, err)

	var titles []string
	var last error
	for item, err := range seq {
		if err != nil {
			last = err
			break
		}
		titles = append(titles, item.Title)
	}
	assert.Equal(t, []string{"Chapter 1", "Section 1.1", "Été"}, titles)
	assert.ErrorIs(t, last, ErrCycle)

	_, err = d.OutlineTree()
	assert.ErrorIs(t, err, ErrCycle)
}

func TestOutlines_Missing(t *testing.T) {
	d := openDoc(t, basicPDF(), nil)
	_, err := d.Outlines()
	assert.ErrorIs(t, err, ErrNoOutlines)
	_, err = d.OutlineTree()
	assert.ErrorIs(t, err, ErrNoOutlines)

	d = loadDoc(t, basicPDF(), nil)
	_, err = d.Outlines()
	assert.ErrorIs(t, err, ErrNotInitialized)
}
