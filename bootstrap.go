// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"fmt"
	"io"
	"strings"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// findStartOffset scans the file backwards for the startxref keyword and returns
// the offset written on the line after it.
func findStartOffset(f io.ReaderAt, size int64) (int64, error) {
	r := newReverseLineReader(f, size)
	prev := ""
	for {
		line, ok, err := r.next()
		if err != nil {
			logger.Error(fmt.Sprintf("startxref: reading backwards: %v", err))
			return 0, fmt.Errorf("%w: %v", ErrIndexNotFound, err)
		}
		if !ok {
			logger.Error("malformed PDF file: missing final startxref")
			return 0, fmt.Errorf("%w: no startxref keyword", ErrIndexNotFound)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "startxref" {
			if len(fields) > 1 {
				prev = fields[1]
			}
			break
		}
		prev = strings.TrimSpace(line)
	}
	off, ok := parseUintField(prev)
	if !ok || int64(off) >= size {
		logger.Error(fmt.Sprintf("malformed PDF file: startxref not followed by an offset, found %q", prev))
		return 0, fmt.Errorf("%w: startxref offset %q", ErrIndexNotFound, prev)
	}
	logger.Debug(fmt.Sprintf("xref: startxref=%d", off), true)
	return int64(off), nil
}

// peekToken reads the first token of a section.
func peekToken(b *buffer) (tok token, err error) {
	defer catchLexError(&err)
	return b.readToken(), nil
}

// loadSource reads the cross-reference section at off: a stream when it starts
// with an object number, a table when it starts with the xref keyword.
func (d *Document) loadSource(off int64) (xrefSource, error) {
	if off < 0 || off >= d.end {
		return nil, fmt.Errorf("%w: section offset %d outside file", ErrIndexCorrupt, off)
	}
	b := newBufferAt(d.f, off, d.end)
	tok, err := peekToken(b)
	if err != nil {
		return nil, fmt.Errorf("%w: section at %d: %v", ErrIndexCorrupt, off, err)
	}
	switch tok := tok.(type) {
	case int64:
		return loadXRefStream(newBufferAt(d.f, off, d.end), d.f, d.end)
	case keyword:
		if tok == "xref" {
			return loadXRefTable(b, d.f, d.end)
		}
	}
	logger.Error(fmt.Sprintf("xref: unexpected %v at %d", objfmt(tok), off))
	return nil, fmt.Errorf("%w: section at %d starts with %v", ErrIndexCorrupt, off, objfmt(tok))
}

// loadChain follows XRefStm and Prev from start. Sources are returned newest first;
// on failure the sources read so far are returned with the error.
func (d *Document) loadChain(start int64) ([]xrefSource, error) {
	var sources []xrefSource
	visited := make(map[int64]bool)
	err := d.loadFrom(start, visited, &sources)
	return sources, err
}

func (d *Document) loadFrom(off int64, visited map[int64]bool, sources *[]xrefSource) error {
	if d.cfg.CycleGuard {
		if visited[off] {
			logger.Error(fmt.Sprintf("xref: section at %d already loaded", off))
			return fmt.Errorf("%w: %w: section at %d reached twice", ErrIndexCorrupt, ErrCycle, off)
		}
		visited[off] = true
	}
	src, err := d.loadSource(off)
	if err != nil {
		return err
	}
	*sources = append(*sources, src)
	logger.Debug(fmt.Sprintf("xref: loaded %v section at %d", src.Kind(), off), true)

	trailer := src.Trailer()
	for _, key := range []string{"XRefStm", "Prev"} {
		v, ok := trailer[name(key)]
		if !ok {
			continue
		}
		pos, ok := v.(int64)
		if !ok {
			return fmt.Errorf("%w: trailer /%s is %v", ErrIndexCorrupt, key, objfmt(v))
		}
		if err := d.loadFrom(pos, visited, sources); err != nil {
			return err
		}
	}
	return nil
}

// bootstrap builds the source list according to the fallback mode.
func (d *Document) bootstrap() error {
	var sources []xrefSource
	start, err := findStartOffset(d.f, d.end)
	if err == nil {
		sources, err = d.loadChain(start)
	}
	if err != nil {
		if !isIndexError(err) || d.cfg.Fallback == FallbackNever {
			return err
		}
		logger.Warn(fmt.Sprintf("xref: %v; reconstructing index", err), true)
	}
	if err != nil || d.cfg.Fallback == FallbackAlways {
		fb, ferr := loadXRefFallback(d.f, d.end)
		if ferr != nil {
			if err != nil {
				return err
			}
			return ferr
		}
		sources = append(sources, fb)
	}
	d.xrefs = sources
	return d.resolveTrailers()
}

// stream dictionary entries that are not trailer keys.
var streamOnlyKeys = map[name]bool{
	"Type": true, "W": true, "Index": true, "Length": true, "Filter": true, "DecodeParms": true,
}

// resolveTrailers merges the trailers newest first and picks Root, Info and Encrypt.
func (d *Document) resolveTrailers() error {
	d.trailer = make(dict)
	encryptSeen := false
	for _, src := range d.xrefs {
		t := src.Trailer()
		for k, v := range t {
			if src.Kind() == XRefStream && streamOnlyKeys[k] {
				continue
			}
			if _, ok := d.trailer[k]; !ok {
				d.trailer[k] = v
			}
		}
		if v, ok := t[name("Encrypt")]; ok && !encryptSeen {
			encryptSeen = true
			d.encryptRef = v
			d.docIDRef = t[name("ID")]
		}
		if v, ok := t[name("Info")]; ok {
			d.infoRefs = append(d.infoRefs, v)
		}
		if v, ok := t[name("Root")]; ok && d.rootRef == nil {
			d.rootRef = v
		}
	}
	if d.rootRef == nil {
		logger.Error("trailer: no /Root in any section")
		return ErrMissingRoot
	}
	logger.Debug(fmt.Sprintf("trailer: Root=%v Info=%d Encrypt=%v", objfmt(d.rootRef), len(d.infoRefs), encryptSeen), true)
	return nil
}
