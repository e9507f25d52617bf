// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupName(t *testing.T) {
	d := openDoc(t, navPDF(""), nil)

	tests := []struct {
		key  string
		kind ValueKind
		view string // second element of the destination array
	}{
		{"alpha", Array, "XYZ"},
		{"beta", Dict, "Fit"},
		{"nu", Array, "Fit"},
		{"omega", Array, "FitB"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v, err := d.LookupName("Dests", tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			arr := v
			if v.Kind() == Dict {
				arr = v.Key("D")
			}
			assert.Equal(t, tt.view, arr.Index(1).Name())
		})
	}

	for _, key := range []string{"gamma", "mu", "zeta", ""} {
		_, err := d.LookupName("Dests", key)
		assert.ErrorIs(t, err, ErrLookup, "key %q", key)
	}
	_, err := d.LookupName("EmbeddedFiles", "alpha")
	assert.ErrorIs(t, err, ErrLookup)
}

func TestLookupName_SharedAndCyclicKids(t *testing.T) {
	build := func(kids string) *Document {
		b := newPDF("1.7")
		b.obj(1, "<< /Type /Catalog /Pages 2 0 R /Names << /Dests 20 0 R >> >>")
		b.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
		b.obj(20, "<< /Kids "+kids+" >>")
		b.obj(21, "<< /Limits [(a) (m)] /Kids [22 0 R] >>")
		b.obj(22, "<< /Names [(a) 1 (b) 2] >>")
		b.obj(23, "<< /Names [(x) 3] >>")
		return openDoc(t, b.finish(b.xref("<< /Size 24 /Root 1 0 R >>")), nil)
	}

	d := build("[21 0 R 21 0 R 23 0 R]")
	v, err := d.LookupName("Dests", "x")
	require.NoError(t, err, "a kid listed twice is searched twice, not reported as a cycle")
	assert.Equal(t, int64(3), v.Int64())

	d = build("[21 0 R 20 0 R]")
	_, err = d.LookupName("Dests", "z")
	assert.ErrorIs(t, err, ErrCycle)
}

func TestLookupName_NoNamesDictionary(t *testing.T) {
	d := openDoc(t, basicPDF(), nil)
	_, err := d.LookupName("Dests", "alpha")
	assert.ErrorIs(t, err, ErrLookup)
	_, err = d.Destination("alpha")
	assert.ErrorIs(t, err, ErrDestinationNotFound)
}

func TestDestination(t *testing.T) {
	d := openDoc(t, navPDF(""), nil)

	v, err := d.Destination("omega")
	require.NoError(t, err)
	assert.Equal(t, "FitB", v.Index(1).Name())

	v, err = d.Destination("legacy")
	require.NoError(t, err, "catalog /Dests is consulted after the name tree")
	assert.Equal(t, "FitH", v.Index(1).Name())
	assert.Equal(t, int64(700), v.Index(2).Int64())

	_, err = d.Destination("missing")
	assert.ErrorIs(t, err, ErrDestinationNotFound)

	d = loadDoc(t, navPDF(""), nil)
	_, err = d.Destination("omega")
	assert.ErrorIs(t, err, ErrNotInitialized)
}
