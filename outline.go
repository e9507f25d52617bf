// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"fmt"
	"iter"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// An OutlineItem is one outline entry that leads somewhere.
// Level is the nesting depth: the outline dictionary itself is 0, top-level entries are 1.
type OutlineItem struct {
	Level     int
	Title     string
	Dest      Value
	Action    Value
	Structure Value // /SE
}

type outlineFrame struct {
	ref   object
	level int
	route *ancestry
}

// Outlines walks the outline depth first and yields the entries that have a
// /Title and an /A or /Dest. It fails with ErrNoOutlines when the catalog has none.
func (d *Document) Outlines() (iter.Seq2[OutlineItem, error], error) {
	if !d.initialized {
		return nil, ErrNotInitialized
	}
	root, ok := d.catalog[name("Outlines")]
	if !ok {
		return nil, ErrNoOutlines
	}
	return func(yield func(OutlineItem, error) bool) {
		stack := []outlineFrame{{root, 0, nil}}
		for len(stack) > 0 {
			fr := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			ptr, isRef := fr.ref.(objptr)
			if isRef && d.cfg.CycleGuard && fr.route.contains(ptr.id) {
				logger.Error(fmt.Sprintf("outlines: entry %d loops back on its route", ptr.id))
				yield(OutlineItem{}, fmt.Errorf("%w: outline entry %d loops back on its route", ErrCycle, ptr.id))
				return
			}
			entry, err := d.dictValue(fr.ref, "outline entry")
			if err == nil && entry == nil {
				err = fmt.Errorf("%w: outline entry %v is not a dictionary", ErrTypeMismatch, objfmt(fr.ref))
			}
			if err != nil {
				if d.strict() {
					yield(OutlineItem{}, err)
					return
				}
				logger.Warn(fmt.Sprintf("outlines: skipping %v: %v", objfmt(fr.ref), err), true)
				continue
			}

			_, hasA := entry[name("A")]
			_, hasDest := entry[name("Dest")]
			if t, ok := entry[name("Title")]; ok && (hasA || hasDest) {
				title, err := d.stringValue(t, "outline /Title")
				if err != nil {
					yield(OutlineItem{}, err)
					return
				}
				v := Value{d, ptr, entry}
				item := OutlineItem{
					Level:     fr.level,
					Title:     decodeText(title),
					Dest:      v.Key("Dest"),
					Action:    v.Key("A"),
					Structure: v.Key("SE"),
				}
				if !yield(item, nil) {
					return
				}
			}

			route := fr.route.push(fr.ref)
			if next, ok := entry[name("Next")]; ok {
				stack = append(stack, outlineFrame{next, fr.level, route})
			}
			first, hasFirst := entry[name("First")]
			if _, hasLast := entry[name("Last")]; hasFirst && hasLast {
				stack = append(stack, outlineFrame{first, fr.level + 1, route})
			}
		}
	}, nil
}

// An Outline is a tree describing the outline (also known as the table of contents)
// of a document.
type Outline struct {
	Title string    // title for this element
	Dest  Value     // destination or action target, may be null
	Child []Outline // child elements
}

// OutlineTree returns the document outline.
// The Outline returned is the root of the outline tree and typically has no Title itself.
// That is, the children of the returned root are the top-level entries in the outline.
func (d *Document) OutlineTree() (Outline, error) {
	if !d.initialized {
		return Outline{}, ErrNotInitialized
	}
	if _, ok := d.catalog[name("Outlines")]; !ok {
		return Outline{}, ErrNoOutlines
	}
	return d.buildOutline(d.Catalog().Key("Outlines"), nil)
}

// buildOutline reads entry and its children. route holds the entries that led
// to entry through /First and /Next.
func (d *Document) buildOutline(entry Value, route *ancestry) (Outline, error) {
	var x Outline
	x.Title = entry.Key("Title").Text()
	x.Dest = entry.Key("Dest")
	if x.Dest.IsNull() {
		x.Dest = entry.Key("A").Key("D")
	}
	ref := entry.dict()[name("First")]
	for ref != nil {
		if ptr, ok := ref.(objptr); ok && d.cfg.CycleGuard && route.contains(ptr.id) {
			return x, fmt.Errorf("%w: outline entry %d loops back on its route", ErrCycle, ptr.id)
		}
		route = route.push(ref)
		child := d.value(entry.ptr, ref)
		if child.Kind() != Dict {
			break
		}
		c, err := d.buildOutline(child, route)
		if err != nil {
			return x, err
		}
		x.Child = append(x.Child, c)
		ref = child.dict()[name("Next")]
	}
	return x, nil
}
