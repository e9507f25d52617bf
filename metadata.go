// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// Meta is the unified metadata model (Info + XMP fields).
type Meta struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
}

// Minimal XML models to pull common XMP fields in a namespace
type xmpPacket struct {
	XMLName xml.Name `xml:"xmpmeta"`
	RDF     rdfRDF   `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
}

type rdfRDF struct {
	Descriptions []rdfDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
}

type rdfDescription struct {
	Title       rdfList `xml:"http://purl.org/dc/elements/1.1/ title"`
	Description rdfList `xml:"http://purl.org/dc/elements/1.1/ description"`
	Creator     rdfList `xml:"http://purl.org/dc/elements/1.1/ creator"`

	PDFProducer string `xml:"http://ns.adobe.com/pdf/1.3/ Producer"`
	PDFKeywords string `xml:"http://ns.adobe.com/pdf/1.3/ Keywords"`

	XMPCreatorTool string `xml:"http://ns.adobe.com/xap/1.0/ CreatorTool"`
	XMPCreateDate  string `xml:"http://ns.adobe.com/xap/1.0/ CreateDate"`
	XMPModifyDate  string `xml:"http://ns.adobe.com/xap/1.0/ ModifyDate"`
}

// rdfList reads the items of an rdf:Alt, rdf:Seq or rdf:Bag container.
type rdfList struct {
	Alt []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Alt>li"`
	Seq []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Seq>li"`
	Bag []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Bag>li"`
}

func (l rdfList) First() string {
	for _, items := range [][]string{l.Alt, l.Seq, l.Bag} {
		if len(items) > 0 {
			return strings.TrimSpace(items[0])
		}
	}
	return ""
}

// MetadataFull is a report on the document: descriptive metadata plus the
// structure the resolver found.
type MetadataFull struct {
	Meta

	PDFVersion    string   `json:"pdf:PDFVersion,omitempty"`
	HasXMP        bool     `json:"pdf:hasXMP"`
	HasCollection bool     `json:"pdf:hasCollection"`
	HasOutlines   bool     `json:"pdf:hasOutlines"`
	Encrypted     bool     `json:"pdf:encrypted"`
	EncryptionRev int      `json:"pdf:encryptionRevision,omitempty"`
	NPages        int      `json:"xmpTPg:NPages,omitempty"`
	Language      string   `json:"language,omitempty"`
	XRefKinds     []string `json:"xref_kinds"`
	Revisions     int      `json:"revisions"`

	AccessPermission Permissions `json:"access_permission"`
}

// prefer returns a if non-empty after trimming, otherwise b.
func prefer(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// readInfo merges the /Info dictionaries of the update chain; newer values win.
func (d *Document) readInfo() Meta {
	logger.Debug("reading Info dictionaries")
	var m Meta
	for _, info := range d.InfoList() {
		m.Title = prefer(m.Title, info.Key("Title").Text())
		m.Author = prefer(m.Author, info.Key("Author").Text())
		m.Subject = prefer(m.Subject, info.Key("Subject").Text())
		m.Keywords = prefer(m.Keywords, info.Key("Keywords").Text())
		m.Creator = prefer(m.Creator, info.Key("Creator").Text())
		m.Producer = prefer(m.Producer, info.Key("Producer").Text())
		m.CreationDate = prefer(m.CreationDate, info.Key("CreationDate").Text())
		m.ModDate = prefer(m.ModDate, info.Key("ModDate").Text())
	}
	return m
}

// readXMP returns the raw XMP XML from /Root/Metadata (empty string if absent).
func (d *Document) readXMP() (string, error) {
	md := d.Catalog().Key("Metadata")
	if md.Kind() != Stream {
		logger.Debug("readXMP: no XMP stream present")
		return "", nil
	}
	logger.Debug("found XMP Stream", true)
	b, err := md.Data()
	if err != nil {
		logger.Error("readXMP: failed to read XMP stream")
		return "", err
	}
	return string(b), nil
}

// parseXMP reads the common fields of an XMP packet. Later descriptions override earlier ones.
func parseXMP(x string) (Meta, bool) {
	var pkt xmpPacket
	dec := xml.NewDecoder(strings.NewReader(x))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	if err := dec.Decode(&pkt); err != nil {
		logger.Debug("parseXMP: " + err.Error())
		return Meta{}, false
	}

	var m Meta
	for _, desc := range pkt.RDF.Descriptions {
		m.Title = prefer(desc.Title.First(), m.Title)
		m.Author = prefer(desc.Creator.First(), m.Author)
		m.Subject = prefer(desc.Description.First(), m.Subject)
		m.Keywords = prefer(strings.TrimSpace(desc.PDFKeywords), m.Keywords)
		m.Producer = prefer(strings.TrimSpace(desc.PDFProducer), m.Producer)
		m.Creator = prefer(strings.TrimSpace(desc.XMPCreatorTool), m.Creator)
		m.CreationDate = prefer(strings.TrimSpace(desc.XMPCreateDate), m.CreationDate)
		m.ModDate = prefer(strings.TrimSpace(desc.XMPModifyDate), m.ModDate)
	}
	return m, true
}

// Metadata returns unified metadata with XMP taking precedence over /Info.
func (d *Document) Metadata() (Meta, error) {
	if !d.initialized {
		return Meta{}, ErrNotInitialized
	}
	info := d.readInfo()
	raw, err := d.readXMP()
	if err != nil {
		return Meta{}, err
	}
	xmp, ok := parseXMP(raw)
	if raw != "" && !ok {
		logger.Warn("metadata: XMP packet does not parse, using /Info only", true)
	}
	return Meta{
		Title:        prefer(xmp.Title, info.Title),
		Author:       prefer(xmp.Author, info.Author),
		Subject:      prefer(xmp.Subject, info.Subject),
		Keywords:     prefer(xmp.Keywords, info.Keywords),
		Creator:      prefer(xmp.Creator, info.Creator),
		Producer:     prefer(xmp.Producer, info.Producer),
		CreationDate: prefer(xmp.CreationDate, info.CreationDate),
		ModDate:      prefer(xmp.ModDate, info.ModDate),
	}, nil
}

// MetadataFull returns a comprehensive metadata report for the PDF.
func (d *Document) MetadataFull() (MetadataFull, error) {
	var out MetadataFull
	md, err := d.Metadata()
	if err != nil {
		return out, err
	}
	out.Meta = md

	cat := d.Catalog()
	out.PDFVersion = d.Version()
	if v := cat.Key("Version").Name(); v > out.PDFVersion {
		// a catalog /Version newer than the header takes precedence
		out.PDFVersion = v
	}
	out.HasXMP = cat.Key("Metadata").Kind() == Stream
	out.HasCollection = !cat.Key("Collection").IsNull()
	out.HasOutlines = !cat.Key("Outlines").IsNull()
	out.Language = cat.Key("Lang").Text()
	out.Encrypted = d.sec.Encrypted()
	out.EncryptionRev = d.sec.Revision()
	out.AccessPermission = d.sec.Permissions()
	out.NPages = d.NumPage()

	for _, k := range d.XRefKinds() {
		out.XRefKinds = append(out.XRefKinds, k.String())
		if k != XRefReconstructed {
			out.Revisions++
		}
	}
	logger.Debug("metadata extracted", true)
	return out, nil
}

// MetadataJSON writes the full metadata as pretty JSON to the provided writer.
func (d *Document) MetadataJSON(w io.Writer) error {
	if w == nil {
		return errors.New("pdf: nil writer")
	}
	mf, err := d.MetadataFull()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(mf)
}
