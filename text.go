// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const noRune = '\ufffd'

// pdfDocEncoding maps PDFDocEncoding bytes to runes. Unassigned bytes hold noRune.
var pdfDocEncoding [256]rune

func init() {
	for i := range pdfDocEncoding {
		pdfDocEncoding[i] = noRune
	}
	for _, c := range []byte{'\t', '\n', '\r'} {
		pdfDocEncoding[c] = rune(c)
	}
	for c := 0x20; c < 0x7f; c++ {
		pdfDocEncoding[c] = rune(c)
	}
	for c := 0xa1; c <= 0xff; c++ {
		pdfDocEncoding[c] = rune(c)
	}
	pdfDocEncoding[0xad] = noRune
	copy(pdfDocEncoding[0x18:], []rune{
		0x02d8, 0x02c7, 0x02c6, 0x02d9, 0x02dd, 0x02db, 0x02da, 0x02dc,
	})
	copy(pdfDocEncoding[0x80:], []rune{
		0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044,
		0x2039, 0x203a, 0x2212, 0x2030, 0x201e, 0x201c, 0x201d, 0x2018,
		0x2019, 0x201a, 0x2122, 0xfb01, 0xfb02, 0x0141, 0x0152, 0x0160,
		0x0178, 0x017d, 0x0131, 0x0142, 0x0153, 0x0161, 0x017e,
	})
	pdfDocEncoding[0xa0] = 0x20ac
}

func isPDFDocEncoded(s string) bool {
	if isUTF16(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if pdfDocEncoding[s[i]] == noRune {
			return false
		}
	}
	return true
}

func pdfDocDecode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b.WriteRune(pdfDocEncoding[s[i]])
	}
	return b.String()
}

// isUTF16 reports whether s starts with the big-endian byte order mark.
func isUTF16(s string) bool {
	return len(s) >= 2 && s[0] == 0xfe && s[1] == 0xff && len(s)%2 == 0
}

// utf16Decode converts big-endian UTF-16 to UTF-8. A leading BOM is honoured
// and dropped.
func utf16Decode(s string) string {
	dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	if !isUTF16(s) {
		dec = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	}
	out, _, err := transform.String(dec, s)
	if err != nil {
		return ""
	}
	return out
}

// decodeText interprets s as a PDF text string.
func decodeText(s string) string {
	switch {
	case isUTF16(s):
		return utf16Decode(s)
	case isPDFDocEncoded(s):
		return pdfDocDecode(s)
	}
	return s
}
