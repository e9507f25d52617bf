// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXMP = `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about="" xmlns:dc="http://purl.org/dc/elements/1.1/">
   <dc:title><rdf:Alt><rdf:li xml:lang="x-default"> XMP Title </rdf:li></rdf:Alt></dc:title>
   <dc:creator><rdf:Seq><rdf:li>Jane Roe</rdf:li><rdf:li>John Doe</rdf:li></rdf:Seq></dc:creator>
  </rdf:Description>
  <rdf:Description rdf:about="" xmlns:pdf="http://ns.adobe.com/pdf/1.3/" xmlns:xmp="http://ns.adobe.com/xap/1.0/">
   <pdf:Producer>Producer 1.0</pdf:Producer>
   <xmp:CreateDate>2024-01-02T03:04:05Z</xmp:CreateDate>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`

func TestParseXMP(t *testing.T) {
	m, ok := parseXMP(sampleXMP)
	require.True(t, ok)
	assert.Equal(t, Meta{
		Title:        "XMP Title",
		Author:       "Jane Roe",
		Producer:     "Producer 1.0",
		CreationDate: "2024-01-02T03:04:05Z",
	}, m)

	_, ok = parseXMP("")
	assert.False(t, ok)
	_, ok = parseXMP("not xml at all")
	assert.False(t, ok)
}

func metadataPDF() []byte {
	b := newPDF("1.7")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R /Version /2.0 /Lang (en-US) /Metadata 4 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R >>")
	b.stream(4, "/Type /Metadata /Subtype /XML", []byte(sampleXMP))
	b.obj(5, "<< /Title (Info Title) /Subject (Info Subject) /Author (Info Author) >>")
	return b.finish(b.xref("<< /Size 6 /Root 1 0 R /Info 5 0 R >>"))
}

func TestMetadata_XMPOverridesInfo(t *testing.T) {
	d := openDoc(t, metadataPDF(), nil)
	m, err := d.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "XMP Title", m.Title)
	assert.Equal(t, "Jane Roe", m.Author)
	assert.Equal(t, "Info Subject", m.Subject, "Info fills fields XMP lacks")
	assert.Equal(t, "Producer 1.0", m.Producer)
}

func TestMetadataFull(t *testing.T) {
	d := openDoc(t, metadataPDF(), nil)
	mf, err := d.MetadataFull()
	require.NoError(t, err)

	assert.Equal(t, "2.0", mf.PDFVersion, "catalog /Version is newer than the header")
	assert.True(t, mf.HasXMP)
	assert.False(t, mf.HasOutlines)
	assert.False(t, mf.HasCollection)
	assert.False(t, mf.Encrypted)
	assert.Zero(t, mf.EncryptionRev)
	assert.Equal(t, 1, mf.NPages)
	assert.Equal(t, "en-US", mf.Language)
	assert.Equal(t, []string{"table"}, mf.XRefKinds)
	assert.Equal(t, 1, mf.Revisions)
	assert.Equal(t, allowAll, mf.AccessPermission)

	d = openDoc(t, basicPDF(), testConfig(func(c *Config) { c.Fallback = FallbackAlways }))
	mf, err = d.MetadataFull()
	require.NoError(t, err)
	assert.Equal(t, "1.7", mf.PDFVersion)
	assert.Equal(t, []string{"table", "reconstructed"}, mf.XRefKinds)
	assert.Equal(t, 1, mf.Revisions, "the rebuilt index is not a revision")
	assert.Equal(t, 2, mf.NPages)
}

func TestMetadataFull_Encrypted(t *testing.T) {
	d := loadDoc(t, encryptedPDF(rc4Vectors[0]), nil)
	require.NoError(t, d.Initialize("user"))
	mf, err := d.MetadataFull()
	require.NoError(t, err)
	assert.True(t, mf.Encrypted)
	assert.Equal(t, 2, mf.EncryptionRev)
	assert.Equal(t, permissionsFromP(-44), mf.AccessPermission)
	assert.Equal(t, vecTitle, mf.Title)
}

func TestMetadataJSON(t *testing.T) {
	d := openDoc(t, metadataPDF(), nil)
	var buf bytes.Buffer
	require.NoError(t, d.MetadataJSON(&buf))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "XMP Title", got["title"])
	assert.Equal(t, "2.0", got["pdf:PDFVersion"])
	assert.Equal(t, []any{"table"}, got["xref_kinds"])
	assert.Equal(t, float64(1), got["xmpTPg:NPages"])
	require.Contains(t, got, "access_permission")
	assert.Equal(t, true, got["access_permission"].(map[string]any)["can_print"])

	assert.Error(t, d.MetadataJSON(nil))

	_, err := loadDoc(t, metadataPDF(), nil).Metadata()
	assert.ErrorIs(t, err, ErrNotInitialized)
}
