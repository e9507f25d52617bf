// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package pdfdoc resolves the object graph of PDF files.
//
// A PDF body is a graph of indirect objects located through a cross-reference
// index. A Document discovers that index from the startxref pointer, following
// incremental updates through Prev and XRefStm, or rebuilds it by scanning the
// body when the pointer chain is damaged. Objects are resolved lazily, including
// objects packed into object streams, and decrypted when the file is protected
// with the RC4 standard security handler (revisions 2 and 3).
//
// On top of the object store, the Document exposes the logical structure:
// pages with inherited attributes, the outline, the name tree and named
// destinations.
//
// Opening is a two step affair. Load reads the index and trailers;
// Initialize authenticates with a password and reads the catalog. NewDocument
// and Open do both. Objects cannot be read before authentication.
//
// A Document is not safe for concurrent use: resolution fills shared caches.
package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// A Document is a single PDF file open for reading.
type Document struct {
	f       io.ReaderAt
	end     int64
	cfg     *Config
	version string

	xrefs      []xrefSource // newest first
	trailer    dict         // merged, newest key wins
	rootRef    object
	infoRefs   []object
	encryptRef object
	docIDRef   object

	sec         *SecurityHandler
	catalog     dict
	initialized bool

	cache      map[uint32]cachedObject
	containers map[uint32]array
	resolving  map[uint32]bool
	plain      map[uint32]bool // objects stored in the clear
}

// Open opens the named file with cfg and authenticates with cfg.Password.
// A nil cfg selects NewDefaultConfig.
func Open(file string, cfg *Config) (*os.File, *Document, error) {
	logger.Debug("Open file", true)
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	logger.Debug(fmt.Sprintf("document: file:%s -- opened (size=%d)", file, fi.Size()), true)
	doc, err := NewDocument(f, fi.Size(), cfg)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, doc, nil
}

// NewDocument loads the document in f and authenticates with cfg.Password.
func NewDocument(f io.ReaderAt, size int64, cfg *Config) (*Document, error) {
	d, err := Load(f, size, cfg)
	if err != nil {
		return nil, err
	}
	if err := d.Initialize(d.cfg.Password); err != nil {
		return nil, err
	}
	return d, nil
}

// Load reads the cross-reference chain and trailers of the document in f.
// The returned Document must be initialized before objects can be read.
func Load(f io.ReaderAt, size int64, cfg *Config) (*Document, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		logger.Error(fmt.Sprintf("invalid config: %v", err))
		return nil, err
	}
	d := &Document{
		f:          f,
		end:        size,
		cfg:        cfg,
		sec:        newSecurityHandler(),
		cache:      make(map[uint32]cachedObject),
		containers: make(map[uint32]array),
		resolving:  make(map[uint32]bool),
		plain:      make(map[uint32]bool),
	}

	logger.Debug("Checking Header", true)
	version, err := readHeader(f)
	if err != nil {
		if d.strict() {
			return nil, err
		}
		logger.Warn(err.Error(), true)
	}
	d.version = version

	logger.Debug("Checking End of file Marker", true)
	if err := ValidateEOFMarker(f, size); err != nil {
		if d.strict() {
			return nil, err
		}
		logger.Warn(err.Error(), true)
	}

	logger.Debug("Checking xref chain + trailers", true)
	if err := d.bootstrap(); err != nil {
		return nil, err
	}
	return d, nil
}

// Initialize authenticates with password and reads the catalog. It may be
// called again after ErrIncorrectPassword; any other failure is final.
func (d *Document) Initialize(password string) error {
	if d.initialized {
		return nil
	}
	var params *encryptionParams
	if d.encryptRef != nil {
		p, err := d.encryptionParams()
		if err != nil {
			return err
		}
		params = p
	}
	if err := d.sec.initialize(params, password); err != nil {
		return err
	}

	catalog, err := d.dictValue(d.rootRef, "trailer /Root")
	if err != nil {
		return err
	}
	if catalog == nil {
		logger.Error("catalog: /Root is not a dictionary")
		return fmt.Errorf("%w: /Root %v is not a dictionary", ErrMissingRoot, objfmt(d.rootRef))
	}
	if t := typeOf(catalog); t != "" && t != TypeCatalog {
		if d.strict() {
			return fmt.Errorf("%w: catalog has /Type %q", ErrTypeMismatch, t)
		}
		logger.Warn(fmt.Sprintf("catalog: /Type is %q", t), true)
	}
	d.catalog = catalog
	d.initialized = true
	logger.Debug("document: initialized", true)
	return nil
}

// encryptionParams resolves the /Encrypt dictionary and the first document ID.
func (d *Document) encryptionParams() (*encryptionParams, error) {
	if ptr, ok := d.encryptRef.(objptr); ok {
		d.plain[ptr.id] = true
	}
	enc, err := d.dictValue(d.encryptRef, "trailer /Encrypt")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryption, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: /Encrypt is not a dictionary", ErrEncryption)
	}

	var p encryptionParams
	filter, err := d.nameValue(enc[name("Filter")], "Encrypt /Filter")
	if err != nil {
		return nil, err
	}
	p.Filter = string(filter)
	ints := []struct {
		key string
		dst *int
	}{{"V", &p.V}, {"R", &p.R}, {"Length", &p.Length}}
	for _, e := range ints {
		v, err := d.intValue(enc[name(e.key)], "Encrypt /"+e.key)
		if err != nil {
			return nil, err
		}
		*e.dst = int(v)
	}
	perm, err := d.intValue(enc[name("P")], "Encrypt /P")
	if err != nil {
		return nil, err
	}
	p.P = int32(perm)
	o, err := d.stringValue(enc[name("O")], "Encrypt /O")
	if err != nil {
		return nil, err
	}
	u, err := d.stringValue(enc[name("U")], "Encrypt /U")
	if err != nil {
		return nil, err
	}
	p.O, p.U = []byte(o), []byte(u)

	ids, err := d.arrayValue(d.docIDRef, "trailer /ID")
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		id0, err := d.stringValue(ids[0], "trailer /ID[0]")
		if err != nil {
			return nil, err
		}
		p.DocID = []byte(id0)
	} else {
		logger.Warn("encrypt: trailer has no /ID, deriving key with an empty document ID", true)
	}
	return &p, nil
}

func (d *Document) strict() bool {
	return d.cfg.ParsingMode == Strict
}

// Get resolves the indirect object id.
func (d *Document) Get(id uint32) (Value, error) {
	if !d.initialized {
		return Value{}, ErrNotInitialized
	}
	ptr, x, err := d.getRef(id)
	if err != nil {
		return Value{}, err
	}
	return Value{d, objptr{id, ptr.gen}, x}, nil
}

// Locate reports where object id is stored, consulting the newest section first.
func (d *Document) Locate(id uint32) (XRefEntry, error) {
	return d.locate(id)
}

// ObjectIDs yields every object ID known to any section, once, in section order.
func (d *Document) ObjectIDs() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		seen := make(map[uint32]bool)
		for _, x := range d.xrefs {
			for id := range x.ObjectIDs() {
				if seen[id] {
					continue
				}
				seen[id] = true
				if !yield(id) {
					return
				}
			}
		}
	}
}

// XRefKinds lists the kind of every loaded section, newest first.
func (d *Document) XRefKinds() []XRefKind {
	kinds := make([]XRefKind, 0, len(d.xrefs))
	for _, x := range d.xrefs {
		kinds = append(kinds, x.Kind())
	}
	return kinds
}

// Trailer returns the merged trailer. Its values resolve once the document is initialized.
func (d *Document) Trailer() Value {
	return Value{d, objptr{}, d.trailer}
}

// Catalog returns the document catalog, or a null Value before Initialize.
func (d *Document) Catalog() Value {
	if !d.initialized {
		return Value{}
	}
	return Value{d, ptrOf(d.rootRef), d.catalog}
}

// Info returns the newest /Info dictionary, or a null Value.
func (d *Document) Info() Value {
	list := d.InfoList()
	if len(list) == 0 {
		return Value{}
	}
	return list[0]
}

// InfoList returns every /Info dictionary of the update chain, newest first.
func (d *Document) InfoList() []Value {
	if !d.initialized {
		return nil
	}
	var out []Value
	for _, ref := range d.infoRefs {
		v := d.value(objptr{}, ref)
		if v.Kind() != Dict {
			logger.Warn(fmt.Sprintf("info: %v is not a dictionary", objfmt(ref)))
			continue
		}
		out = append(out, v)
	}
	return out
}

// Security returns the document's security handler.
func (d *Document) Security() *SecurityHandler {
	return d.sec
}

// Version returns the version from the %PDF- header, or "" when it is unreadable.
func (d *Document) Version() string {
	return d.version
}

// Config returns the configuration the document was loaded with.
func (d *Document) Config() *Config {
	return d.cfg
}

func ptrOf(x object) objptr {
	p, _ := x.(objptr)
	return p
}

var supportedVersions = []string{"1.0", "1.1", "1.2", "1.3", "1.4", "1.5", "1.6", "1.7", "2.0"}

// CheckHeader validates the PDF header at the beginning of the file.
// It ensures the file starts with "%PDF-x.y" and the version is within 1.0–1.7 or 2.0.
func CheckHeader(f io.ReaderAt) error {
	_, err := readHeader(f)
	return err
}

// readHeader returns the version of the %PDF- header. Leading garbage before
// the header is tolerated.
func readHeader(f io.ReaderAt) (string, error) {
	buf := make([]byte, 1024)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		logger.Error(fmt.Sprintf("Failed to read initial bytes for header check: %v", err))
		return "", err
	}
	if n == 0 {
		logger.Error("not a PDF file: empty")
		return "", fmt.Errorf("%w: not a PDF file: empty", ErrSyntax)
	}
	buf = buf[:n]
	p := bytes.Index(buf, []byte("%PDF-"))
	if p < 0 {
		logger.Error("not a PDF file: invalid header (missing %PDF-)")
		return "", fmt.Errorf("%w: not a PDF file: missing %%PDF- header", ErrSyntax)
	}
	line := buf[p+len("%PDF-"):]
	if i := bytes.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	version := string(bytes.TrimRight(line, " \t\x00"))
	if !slices.Contains(supportedVersions, version) {
		logger.Error(fmt.Sprintf("unsupported PDF version %q", version))
		return version, fmt.Errorf("%w: unsupported PDF version %q", ErrSyntax, version)
	}
	logger.Debug(fmt.Sprintf("header: PDF-%s", version), true)
	return version, nil
}

// ValidateEOFMarker checks the last chunk of the file for the "%%EOF" marker.
func ValidateEOFMarker(f io.ReaderAt, size int64) error {
	logger.Debug("checking for EOF")
	const endChunk = 1024
	start := size - endChunk
	if start < 0 {
		start = 0
	}
	buf := make([]byte, size-start)
	n, err := f.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return err
	}
	buf = bytes.TrimRight(buf[:n], "\r\n\t \x00")
	if !bytes.HasSuffix(buf, []byte("%%EOF")) {
		logger.Error("not a PDF file: missing %EOF marker")
		return fmt.Errorf("%w: missing %%%%EOF marker", ErrSyntax)
	}
	return nil
}
