// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"fmt"
	"slices"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// LookupName searches the name tree of category (Dests, EmbeddedFiles, ...) in
// the catalog's /Names dictionary. Kids are searched in order and nodes whose
// /Limits exclude key are skipped. A miss fails with ErrLookup.
func (d *Document) LookupName(category, key string) (Value, error) {
	if !d.initialized {
		return Value{}, ErrNotInitialized
	}
	names, err := d.dictValue(d.catalog[name("Names")], "catalog /Names")
	if err != nil {
		return Value{}, err
	}
	root, ok := names[name(category)]
	if !ok {
		return Value{}, fmt.Errorf("%w: no %s name tree", ErrLookup, category)
	}

	type nameFrame struct {
		ref   object
		route *ancestry
	}
	stack := []nameFrame{{root, nil}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ref := fr.ref

		ptr, isRef := ref.(objptr)
		if isRef && d.cfg.CycleGuard && fr.route.contains(ptr.id) {
			logger.Error(fmt.Sprintf("name tree %s: node %d is its own ancestor", category, ptr.id))
			return Value{}, fmt.Errorf("%w: name tree node %d is its own ancestor", ErrCycle, ptr.id)
		}
		node, err := d.dictValue(ref, "name tree node")
		if err != nil {
			return Value{}, err
		}
		if node == nil {
			continue
		}

		if lim, ok := node[name("Limits")]; ok {
			limits, err := d.arrayValue(lim, "name tree /Limits")
			if err != nil {
				return Value{}, err
			}
			if len(limits) == 2 {
				lo, err1 := d.stringValue(limits[0], "name tree /Limits")
				hi, err2 := d.stringValue(limits[1], "name tree /Limits")
				if err1 == nil && err2 == nil && (key < lo || hi < key) {
					continue
				}
			}
		}

		if kv, ok := node[name("Names")]; ok {
			pairs, err := d.arrayValue(kv, "name tree /Names")
			if err != nil {
				return Value{}, err
			}
			for i := 0; i+1 < len(pairs); i += 2 {
				k, err := d.stringValue(pairs[i], "name tree key")
				if err != nil {
					return Value{}, err
				}
				if k == key {
					return d.value(ptr, pairs[i+1]), nil
				}
			}
		}

		if kids, ok := node[name("Kids")]; ok {
			list, err := d.arrayValue(kids, "name tree /Kids")
			if err != nil {
				return Value{}, err
			}
			route := fr.route.push(ref)
			for _, kid := range slices.Backward(list) {
				stack = append(stack, nameFrame{kid, route})
			}
		}
	}
	return Value{}, fmt.Errorf("%w: %s %q", ErrLookup, category, key)
}

// Destination resolves a named destination through the Dests name tree, then
// through the catalog's legacy /Dests dictionary.
func (d *Document) Destination(dest string) (Value, error) {
	v, err := d.LookupName("Dests", dest)
	if err == nil {
		return v, nil
	}
	if err == ErrNotInitialized {
		return Value{}, err
	}
	logger.Debug(fmt.Sprintf("dest %q: name tree: %v, trying /Dests", dest, err))

	dests, err := d.dictValue(d.catalog[name("Dests")], "catalog /Dests")
	if err != nil || dests == nil {
		return Value{}, fmt.Errorf("%w: %q", ErrDestinationNotFound, dest)
	}
	x, ok := dests[name(dest)]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrDestinationNotFound, dest)
	}
	return d.value(ptrOf(d.catalog[name("Dests")]), x), nil
}
