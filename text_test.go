// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "Hello", "Hello"},
		{"bullet", "\x80", "•"},
		{"latin-1 range", "caf\xe9", "café"},
		{"euro", "\xa0", "€"},
		{"breve", "\x18", "˘"},
		{"utf-16 with BOM", "\xfe\xff\x00\xc9\x00t\x00\xe9", "Été"},
		{"utf-16 surrogate pair", "\xfe\xff\xd8\x3d\xde\x00", "😀"},
		{"unassigned byte left alone", "a\x7fb", "a\x7fb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeText(tt.in))
		})
	}
}

func TestIsUTF16(t *testing.T) {
	assert.True(t, isUTF16("\xfe\xff"))
	assert.True(t, isUTF16("\xfe\xff\x00A"))
	assert.False(t, isUTF16("\xfe\xff\x00"), "odd length")
	assert.False(t, isUTF16("\xff\xfe\x00A"), "little endian BOM")
	assert.False(t, isUTF16("ab"))
}

func TestUTF16Decode(t *testing.T) {
	assert.Equal(t, "AB", utf16Decode("\x00A\x00B"))
	assert.Equal(t, "A", utf16Decode("\xfe\xff\x00A"))
}

func TestIsPDFDocEncoded(t *testing.T) {
	assert.True(t, isPDFDocEncoded("plain text\r\n"))
	assert.False(t, isPDFDocEncoded("\x00"))
	assert.False(t, isPDFDocEncoded("\xad"))
	assert.False(t, isPDFDocEncoded("\xfe\xff\x00A"))
}
