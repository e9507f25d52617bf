// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// errHeaderMismatch marks a direct object whose header names another object.
var errHeaderMismatch = errors.New("object header mismatch")

// locate returns the entry of the first source that knows id.
func (d *Document) locate(id uint32) (XRefEntry, error) {
	for _, x := range d.xrefs {
		e, err := x.Locate(id)
		if err == nil {
			return e, nil
		}
	}
	return XRefEntry{}, fmt.Errorf("%w: object %d", ErrObjectNotFound, id)
}

// cachedObject is a resolved object with the header it was read under.
type cachedObject struct {
	ptr objptr
	x   object
}

// get resolves the indirect object id, from the cache when possible.
func (d *Document) get(id uint32) (object, error) {
	_, x, err := d.getRef(id)
	return x, err
}

// getRef is get that also reports the object's header. Compressed objects
// have generation 0.
func (d *Document) getRef(id uint32) (objptr, object, error) {
	if d.cfg.Caching {
		if c, ok := d.cache[id]; ok {
			return c.ptr, c.x, nil
		}
	}
	if d.cfg.CycleGuard {
		if d.resolving[id] {
			logger.Error(fmt.Sprintf("object %d: reference cycle", id))
			return objptr{}, nil, fmt.Errorf("%w: object %d refers back to itself", ErrCycle, id)
		}
		d.resolving[id] = true
		defer delete(d.resolving, id)
	}

	e, err := d.locate(id)
	if err != nil {
		return objptr{}, nil, err
	}
	ptr := objptr{id: id}
	var x object
	switch e.Kind {
	case EntryCompressed:
		x, err = d.getCompressed(id, e)
	case EntryDirect:
		ptr, x, err = d.getDirect(id, e)
	default:
		err = fmt.Errorf("%w: object %d is free", ErrObjectNotFound, id)
	}
	if err != nil {
		return objptr{}, nil, err
	}
	if d.cfg.Caching {
		d.cache[id] = cachedObject{ptr, x}
	}
	return ptr, x, nil
}

// getCompressed selects element N*2+index of the container's flat object sequence.
// Members are not decrypted on their own: the container stream already was.
func (d *Document) getCompressed(id uint32, e XRefEntry) (object, error) {
	objs, n, err := d.container(e.Container)
	if err != nil {
		return nil, fmt.Errorf("object %d in container %d: %w", id, e.Container, err)
	}
	i := n*2 + e.Index
	if i < 0 || i >= len(objs) {
		logger.Error(fmt.Sprintf("object %d: element %d outside container %d (%d elements)", id, i, e.Container, len(objs)))
		return nil, fmt.Errorf("%w: object %d: element %d of container %d out of range", ErrObjectNotFound, id, i, e.Container)
	}
	x := objs[i]
	if s, ok := x.(stream); ok {
		s.ptr = objptr{id, 0}
		x = s
	}
	return x, nil
}

// container returns the decoded object sequence of an object stream and its N.
func (d *Document) container(cid uint32) (array, int, error) {
	x, err := d.get(cid)
	if err != nil {
		return nil, 0, err
	}
	strm, ok := x.(stream)
	if !ok {
		if d.strict() {
			return nil, 0, fmt.Errorf("%w: container %d is %T, not a stream", ErrTypeMismatch, cid, x)
		}
		return nil, 0, fmt.Errorf("%w: container %d is not a stream", ErrObjectNotFound, cid)
	}
	if !hasType(strm.hdr, TypeObjStm) {
		if d.strict() {
			return nil, 0, fmt.Errorf("%w: container %d has /Type %q", ErrTypeMismatch, cid, typeOf(strm.hdr))
		}
		logger.Warn(fmt.Sprintf("container %d: /Type is %q, not ObjStm", cid, typeOf(strm.hdr)), true)
	}
	var n int64
	if v, ok := strm.hdr[name("N")]; ok {
		if n, err = d.intValue(v, "ObjStm /N"); err != nil {
			return nil, 0, err
		}
	} else {
		if d.strict() {
			return nil, 0, fmt.Errorf("%w: container %d has no /N", ErrSyntax, cid)
		}
		logger.Warn(fmt.Sprintf("container %d: /N missing, assuming 0", cid), true)
	}

	if objs, ok := d.containers[cid]; ok {
		return objs, int(n), nil
	}
	data, err := d.streamData(strm)
	if err != nil {
		return nil, 0, err
	}
	objs, err := parseObjectSequence(data)
	if err != nil {
		return nil, 0, fmt.Errorf("container %d: %w", cid, err)
	}
	logger.Debug(fmt.Sprintf("container %d: N=%d, %d elements", cid, n, len(objs)), true)
	if d.cfg.Caching {
		d.containers[cid] = objs
	}
	return objs, int(n), nil
}

// parseObjectSequence reads every object in data, header integers included.
func parseObjectSequence(data []byte) (objs array, err error) {
	defer catchLexError(&err)
	b := newBuffer(bytes.NewReader(data), 0)
	b.allowStream = false
	for {
		tok := b.readToken()
		if tok == io.EOF {
			return objs, nil
		}
		b.unreadToken(tok)
		objs = append(objs, b.readObject())
	}
}

// getDirect parses "id gen obj value" at e.Offset and returns the header it
// read. After header recovery that header may name another object; its pair
// is the one used for decryption.
func (d *Document) getDirect(id uint32, e XRefEntry) (objptr, object, error) {
	if e.Offset < 0 || e.Offset >= d.end {
		return objptr{}, nil, fmt.Errorf("%w: object %d: offset %d outside file", ErrObjectNotFound, id, e.Offset)
	}
	b := newBufferAt(d.f, e.Offset, d.end)
	ptr, err := parseObjectHeader(b, id)
	if errors.Is(err, errHeaderMismatch) {
		logger.Warn(fmt.Sprintf("object %d at %d: %v, scanning for obj keyword", id, e.Offset, err), true)
		b = newBufferAt(d.f, e.Offset, d.end)
		ptr, err = recoverObjectHeader(b)
		if err == nil && ptr.id != id {
			logger.Warn(fmt.Sprintf("object %d at %d: recovered header names object %d %d", id, e.Offset, ptr.id, ptr.gen), true)
		}
	}
	if err != nil {
		logger.Error(fmt.Sprintf("object %d at %d: %v", id, e.Offset, err))
		return objptr{}, nil, err
	}

	x, err := readObjectValue(b, ptr)
	if err != nil {
		return objptr{}, nil, fmt.Errorf("object %d at %d: %w", id, e.Offset, err)
	}
	if s, ok := x.(stream); ok {
		if s, err = d.loadStreamRaw(s); err != nil {
			return objptr{}, nil, fmt.Errorf("object %d: %w", id, err)
		}
		x = s
	}
	if d.shouldDecrypt(id, x) {
		x = d.sec.decryptObject(ptr.id, ptr.gen, x)
	}
	return ptr, x, nil
}

// parseObjectHeader reads the strict "id gen obj" header. A header for another
// object yields errHeaderMismatch; a right ID without the keyword is ErrSyntax.
func parseObjectHeader(b *buffer, id uint32) (ptr objptr, err error) {
	defer catchLexError(&err)
	t1 := b.readToken()
	i1, ok := t1.(int64)
	if !ok || i1 != int64(id) {
		return objptr{}, fmt.Errorf("%w: found %v", errHeaderMismatch, t1)
	}
	t2 := b.readToken()
	gen, ok := t2.(int64)
	if !ok || gen < 0 || gen > 0xffff {
		return objptr{}, fmt.Errorf("%w: object %d: invalid generation %v", ErrSyntax, id, t2)
	}
	if t3 := b.readToken(); t3 != keyword("obj") {
		return objptr{}, fmt.Errorf("%w: object %d: expected obj keyword, found %v", ErrSyntax, id, t3)
	}
	return objptr{id, uint16(gen)}, nil
}

// recoverObjectHeader scans forward to the next obj keyword and takes the two
// tokens before it as the object ID and generation.
func recoverObjectHeader(b *buffer) (ptr objptr, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(lexError); !ok {
				panic(r)
			}
			err = fmt.Errorf("%w: header recovery: %v", ErrObjectNotFound, r)
		}
	}()
	var prev [2]token
	for {
		tok := b.readToken()
		if tok == io.EOF {
			return objptr{}, fmt.Errorf("%w: no obj keyword before end of file", ErrObjectNotFound)
		}
		if tok == keyword("obj") {
			id, ok1 := prev[0].(int64)
			gen, ok2 := prev[1].(int64)
			if ok1 && ok2 && id >= 0 && id <= 1<<32-1 && gen >= 0 && gen <= 0xffff {
				return objptr{uint32(id), uint16(gen)}, nil
			}
		}
		prev[0], prev[1] = prev[1], tok
	}
}

// readObjectValue reads the value following a parsed header.
func readObjectValue(b *buffer, ptr objptr) (x object, err error) {
	defer catchLexError(&err)
	b.objptr = ptr
	x = b.readObject()
	if _, ok := x.(stream); !ok {
		if tok := b.readToken(); tok != keyword("endobj") {
			b.unreadToken(tok)
		}
	}
	return x, nil
}

// loadStreamRaw reads the raw bytes of s using its Length, which may be indirect.
func (d *Document) loadStreamRaw(s stream) (stream, error) {
	if s.loaded {
		return s, nil
	}
	length := int64(-1)
	switch l := s.hdr[name("Length")].(type) {
	case int64:
		length = l
	case objptr:
		v, err := d.get(l.id)
		if n, ok := v.(int64); err == nil && ok {
			length = n
		} else {
			logger.Warn(fmt.Sprintf("stream %d: unresolved Length %v", s.ptr.id, objfmt(l)))
		}
	}
	raw, err := readStreamBytes(d.f, d.end, s.offset, length)
	if err != nil {
		return s, err
	}
	s.raw = raw
	s.loaded = true
	return s, nil
}

// shouldDecrypt reports whether object id is subject to the document key.
// The /Encrypt dictionary and cross-reference streams are stored in the clear.
func (d *Document) shouldDecrypt(id uint32, x object) bool {
	if d.sec == nil || !d.sec.Encrypted() || d.plain[id] {
		return false
	}
	if s, ok := x.(stream); ok && hasType(s.hdr, TypeXRef) {
		return false
	}
	return true
}

// streamData returns the decoded bytes of s.
func (d *Document) streamData(s stream) ([]byte, error) {
	s, err := d.loadStreamRaw(s)
	if err != nil {
		return nil, err
	}
	return decodedBytes(s.hdr, s.raw, d.resolveQuiet)
}
