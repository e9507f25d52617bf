// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// inheritable page attributes, taken from the nearest ancestor that has them.
var inheritable = []name{"Resources", "MediaBox", "CropBox", "Rotate"}

// A Page represent a single page in a PDF file.
// V holds the page dictionary merged with its inherited attributes.
type Page struct {
	V            Value
	Resources    Value
	MediaBox     Value
	CropBox      Value // MediaBox when absent
	Rotate       int   // normalized to [0, 360)
	Annots       Value
	Beads        Value
	LastModified Value
	Contents     []Value
}

// ID returns the object number of the page dictionary.
func (p Page) ID() uint32 {
	return p.V.ptr.id
}

func (d *Document) newPage(ptr objptr, attrs dict) Page {
	v := Value{d, ptr, attrs}
	p := Page{
		V:            v,
		Resources:    v.Key("Resources"),
		MediaBox:     v.Key("MediaBox"),
		CropBox:      v.Key("CropBox"),
		Annots:       v.Key("Annots"),
		Beads:        v.Key("B"),
		LastModified: v.Key("LastModified"),
	}
	if p.CropBox.IsNull() {
		p.CropBox = p.MediaBox
	}
	r := int(v.Key("Rotate").Float64())
	p.Rotate = ((r % 360) + 360) % 360

	switch c := v.Key("Contents"); c.Kind() {
	case Null:
		p.Contents = []Value{}
	case Array:
		for i := 0; i < c.Len(); i++ {
			p.Contents = append(p.Contents, c.Index(i))
		}
	default:
		p.Contents = []Value{c}
	}
	logger.Debug(fmt.Sprintf("page: obj %d %d -- /Resources %v /Contents %d streams",
		ptr.id, ptr.gen, p.Resources, len(p.Contents)), true)
	return p
}

// ContentData returns the decoded content streams of p, separated by newlines.
func (p Page) ContentData() ([]byte, error) {
	var buf bytes.Buffer
	for i, c := range p.Contents {
		data, err := c.Data()
		if err != nil {
			return nil, fmt.Errorf("page %d: content stream %d: %w", p.ID(), i, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// Fonts returns a list of the fonts associated with the page.
func (p Page) Fonts() []string {
	return p.Resources.Key("Font").Keys()
}

// ancestry is the route of indirect objects that led a walk to a node. A node
// shared by two routes is not a cycle; a node on its own route is.
type ancestry struct {
	id uint32
	up *ancestry
}

func (a *ancestry) contains(id uint32) bool {
	for ; a != nil; a = a.up {
		if a.id == id {
			return true
		}
	}
	return false
}

// push returns the route extended by x when x is a reference.
func (a *ancestry) push(x object) *ancestry {
	if ptr, ok := x.(objptr); ok {
		return &ancestry{ptr.id, a}
	}
	return a
}

type pageFrame struct {
	ref    object
	parent dict
	route  *ancestry
}

// Pages yields the leaf pages of the page tree in document order. Each page
// carries the inheritable attributes of its ancestors. When the tree yields no
// page at all, every indexed object is scanned for /Type /Page instead.
func (d *Document) Pages() iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		if !d.initialized {
			yield(Page{}, ErrNotInitialized)
			return
		}
		found := false
		if root, ok := d.catalog[name("Pages")]; ok {
			var stop bool
			found, stop = d.walkPageTree(root, yield)
			if stop {
				return
			}
		}
		if !found {
			logger.Warn("pages: page tree yielded no page, scanning all objects", true)
			d.scanPages(yield)
		}
	}
}

// walkPageTree reports whether any page was produced and whether the walk was stopped.
func (d *Document) walkPageTree(root object, yield func(Page, error) bool) (found, stop bool) {
	stack := []pageFrame{{root, d.catalog, nil}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		ptr, isRef := fr.ref.(objptr)
		if isRef && d.cfg.CycleGuard && fr.route.contains(ptr.id) {
			logger.Error(fmt.Sprintf("pages: node %d is its own ancestor", ptr.id))
			yield(Page{}, fmt.Errorf("%w: page tree node %d is its own ancestor", ErrCycle, ptr.id))
			return found, true
		}
		node, err := d.dictValue(fr.ref, "page tree node")
		if err != nil || node == nil {
			if err == nil {
				err = fmt.Errorf("%w: page tree node %v is not a dictionary", ErrTypeMismatch, objfmt(fr.ref))
			}
			if d.strict() || errors.Is(err, ErrCycle) {
				yield(Page{}, err)
				return found, true
			}
			logger.Warn(fmt.Sprintf("pages: skipping node %v: %v", objfmt(fr.ref), err), true)
			continue
		}

		tree := maps.Clone(node)
		for _, k := range inheritable {
			if _, ok := tree[k]; ok {
				continue
			}
			if v, ok := fr.parent[k]; ok {
				tree[k] = v
			}
		}

		switch typeOf(tree) {
		case TypePages:
			kids, err := d.arrayValue(tree[name("Kids")], "Pages /Kids")
			if err != nil {
				if d.strict() {
					yield(Page{}, err)
					return found, true
				}
				logger.Warn(fmt.Sprintf("pages: node %d: %v", ptr.id, err))
				continue
			}
			logger.Debug(fmt.Sprintf("object: %d %d (Pages) -- Kids=%d", ptr.id, ptr.gen, len(kids)), true)
			route := fr.route.push(fr.ref)
			for _, kid := range slices.Backward(kids) {
				stack = append(stack, pageFrame{kid, tree, route})
			}
		case TypePage:
			found = true
			if !yield(d.newPage(ptr, tree), nil) {
				return found, true
			}
		default:
			logger.Debug(fmt.Sprintf("pages: ignoring node %v with /Type %q", objfmt(fr.ref), typeOf(tree)))
		}
	}
	return found, false
}

// scanPages yields every indexed /Type /Page dictionary, with inheritable
// attributes looked up through /Parent.
func (d *Document) scanPages(yield func(Page, error) bool) {
	for id := range d.ObjectIDs() {
		hdr, x, err := d.getRef(id)
		if err != nil {
			if errors.Is(err, ErrObjectNotFound) || !d.strict() {
				logger.Debug(fmt.Sprintf("pages: scan skips object %d: %v", id, err))
				continue
			}
			yield(Page{}, err)
			return
		}
		attrs, ok := x.(dict)
		if !ok || !hasType(attrs, TypePage) {
			continue
		}
		if !yield(d.newPage(objptr{id, hdr.gen}, d.inheritFromParents(attrs)), nil) {
			return
		}
	}
}

// inheritFromParents fills missing inheritable attributes from the /Parent chain.
func (d *Document) inheritFromParents(attrs dict) dict {
	out := maps.Clone(attrs)
	visited := make(map[uint32]bool)
	ref := attrs[name("Parent")]
	for ref != nil {
		if ptr, ok := ref.(objptr); ok {
			if visited[ptr.id] {
				logger.Warn(fmt.Sprintf("pages: /Parent chain loops at %d", ptr.id))
				break
			}
			visited[ptr.id] = true
		}
		parent, err := d.dictValue(ref, "page /Parent")
		if err != nil || parent == nil {
			break
		}
		for _, k := range inheritable {
			if _, ok := out[k]; ok {
				continue
			}
			if v, ok := parent[k]; ok {
				out[k] = v
			}
		}
		ref = parent[name("Parent")]
	}
	return out
}

// Page returns the page for the given page number.
// Page numbers are indexed starting at 1, not 0.
// If the page is not found, Page returns a Page with p.V.IsNull().
func (d *Document) Page(num int) Page {
	logger.Debug(fmt.Sprintf("Reading Page %d", num), true)
	i := 0
	for p, err := range d.Pages() {
		if err != nil {
			logger.Error(fmt.Sprintf("page %d: %v", num, err))
			return Page{}
		}
		if i++; i == num {
			return p
		}
	}
	return Page{}
}

// NumPage returns the number of pages Pages yields before any error.
func (d *Document) NumPage() int {
	n := 0
	for _, err := range d.Pages() {
		if err != nil {
			break
		}
		n++
	}
	return n
}
