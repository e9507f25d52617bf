// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"fmt"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// resolve follows x when it is a reference. Other values are returned as is.
func (d *Document) resolve(x object) (object, error) {
	ptr, ok := x.(objptr)
	if !ok {
		return x, nil
	}
	return d.get(ptr.id)
}

// resolveQuiet is resolve with failures mapped to null, for the filter chain.
func (d *Document) resolveQuiet(x object) object {
	v, err := d.resolve(x)
	if err != nil {
		logger.Debug(fmt.Sprintf("resolve %v: %v", objfmt(x), err))
		return nil
	}
	return v
}

// coerce resolves x and checks that it holds a T. A null value yields the zero T.
// A value of another type is an ErrTypeMismatch in strict mode and the zero T otherwise.
func coerce[T any](d *Document, x object, what string) (T, error) {
	var zero T
	v, err := d.resolve(x)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		if d.strict() {
			return zero, fmt.Errorf("%w: %s is %T, want %T", ErrTypeMismatch, what, v, zero)
		}
		logger.Warn(fmt.Sprintf("%s: expected %T, found %v", what, zero, objfmt(v)))
		return zero, nil
	}
	return t, nil
}

func (d *Document) dictValue(x object, what string) (dict, error) {
	if s, ok := x.(stream); ok {
		return s.hdr, nil
	}
	v, err := d.resolve(x)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(stream); ok {
		return s.hdr, nil
	}
	return coerce[dict](d, v, what)
}

func (d *Document) arrayValue(x object, what string) (array, error) {
	return coerce[array](d, x, what)
}

func (d *Document) streamValue(x object, what string) (stream, error) {
	return coerce[stream](d, x, what)
}

func (d *Document) nameValue(x object, what string) (name, error) {
	return coerce[name](d, x, what)
}

func (d *Document) stringValue(x object, what string) (string, error) {
	return coerce[string](d, x, what)
}

// intValue accepts integral reals outside strict mode.
func (d *Document) intValue(x object, what string) (int64, error) {
	v, err := d.resolve(x)
	if err != nil {
		return 0, err
	}
	if f, ok := v.(float64); ok && !d.strict() && f == float64(int64(f)) {
		return int64(f), nil
	}
	return coerce[int64](d, v, what)
}
