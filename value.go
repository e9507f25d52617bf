// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// A Value is a single PDF value, such as an integer, dictionary, or array.
// The zero Value is a PDF null (Kind() == Null, IsNull() = true).
//
// The accessors on Value return the zero value of their result type when the
// underlying data has another kind, and references are resolved as they are
// reached. Failures along the way turn into null Values; Document.Get reports
// them as errors instead.
type Value struct {
	d    *Document
	ptr  objptr
	data object
}

// IsNull reports whether the value is a null. It is equivalent to Kind() == Null.
func (v Value) IsNull() bool {
	return v.data == nil
}

// A ValueKind specifies the kind of data underlying a Value.
type ValueKind int

// The PDF value kinds.
const (
	Null ValueKind = iota
	Bool
	Integer
	Real
	String
	Name
	Dict
	Array
	Stream
)

var kindNames = [...]string{"null", "bool", "integer", "real", "string", "name", "dict", "array", "stream"}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Kind reports the kind of value underlying v.
func (v Value) Kind() ValueKind {
	switch v.data.(type) {
	default:
		return Null
	case bool:
		return Bool
	case int64:
		return Integer
	case float64:
		return Real
	case string:
		return String
	case name:
		return Name
	case dict:
		return Dict
	case array:
		return Array
	case stream:
		return Stream
	}
}

// String returns a textual representation of the value v.
// Note that String is not the accessor for values with Kind() == String.
// To access such values, see RawString and Text.
func (v Value) String() string {
	return objfmt(v.data)
}

func objfmt(x interface{}) string {
	switch x := x.(type) {
	default:
		return fmt.Sprint(x)
	case nil:
		return "null"
	case string:
		return strconv.Quote(decodeText(x))
	case name:
		return "/" + string(x)
	case dict:
		var keys []string
		for k := range x {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteString("<<")
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString("/")
			buf.WriteString(k)
			buf.WriteString(" ")
			buf.WriteString(objfmt(x[name(k)]))
		}
		buf.WriteString(">>")
		return buf.String()

	case array:
		var buf bytes.Buffer
		buf.WriteString("[")
		for i, elem := range x {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(objfmt(elem))
		}
		buf.WriteString("]")
		return buf.String()

	case stream:
		return fmt.Sprintf("%v@%d", objfmt(x.hdr), x.offset)

	case objptr:
		return fmt.Sprintf("%d %d R", x.id, x.gen)

	case objdef:
		return fmt.Sprintf("{%d %d obj}%v", x.ptr.id, x.ptr.gen, objfmt(x.obj))
	}
}

// Ref returns the object number and generation v was loaded from.
// Direct values report the enclosing indirect object, or 0 0 for the trailer.
func (v Value) Ref() (id uint32, gen uint16) {
	return v.ptr.id, v.ptr.gen
}

// Bool returns v's boolean value.
// If v.Kind() != Bool, Bool returns false.
func (v Value) Bool() bool {
	x, _ := v.data.(bool)
	return x
}

// Int64 returns v's int64 value.
// If v.Kind() != Int64, Int64 returns 0.
func (v Value) Int64() int64 {
	x, _ := v.data.(int64)
	return x
}

// Float64 returns v's float64 value, converting from integer if necessary.
// If v.Kind() != Float64 and v.Kind() != Int64, Float64 returns 0.
func (v Value) Float64() float64 {
	switch x := v.data.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	}
	return 0
}

// RawString returns v's string value.
// If v.Kind() != String, RawString returns the empty string.
func (v Value) RawString() string {
	x, _ := v.data.(string)
	return x
}

// Text returns v's string value interpreted as a “text string” (ISO 32000 section 7.9.2)
// and converted to UTF-8.
// If v.Kind() != String, Text returns the empty string.
func (v Value) Text() string {
	x, ok := v.data.(string)
	if !ok {
		return ""
	}
	return decodeText(x)
}

// Name returns v's name value.
// If v.Kind() != Name, Name returns the empty string.
// The returned name does not include the leading slash:
// if v corresponds to the name written using the syntax /Helvetica,
// Name() == "Helvetica".
func (v Value) Name() string {
	x, _ := v.data.(name)
	return string(x)
}

func (v Value) dict() dict {
	switch x := v.data.(type) {
	case dict:
		return x
	case stream:
		return x.hdr
	}
	return nil
}

// Key returns the value associated with the given name key in the dictionary v.
// Like the result of the Name method, the key should not include a leading slash.
// If v is a stream, Key applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Key returns a null Value.
func (v Value) Key(key string) Value {
	x := v.dict()
	if x == nil {
		return Value{}
	}
	return v.d.value(v.ptr, x[name(key)])
}

// Keys returns a sorted list of the keys in the dictionary v.
// If v is a stream, Keys applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Keys returns nil.
func (v Value) Keys() []string {
	x := v.dict()
	if x == nil {
		return nil
	}
	keys := []string{} // not nil
	for k := range x {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Index returns the i'th element in the array v.
// If v.Kind() != Array or if i is outside the array bounds,
// Index returns a null Value.
func (v Value) Index(i int) Value {
	x, ok := v.data.(array)
	if !ok || i < 0 || i >= len(x) {
		return Value{}
	}
	return v.d.value(v.ptr, x[i])
}

// Len returns the length of the array v.
// If v.Kind() != Array, Len returns 0.
func (v Value) Len() int {
	x, _ := v.data.(array)
	return len(x)
}

// Data returns the decoded bytes of the stream v.
func (v Value) Data() ([]byte, error) {
	x, ok := v.data.(stream)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not a stream", ErrTypeMismatch, v.Kind())
	}
	return v.d.streamData(x)
}

// Reader returns the decoded data of the stream v.
// If v.Kind() != Stream, Reader returns a ReadCloser that
// responds to all reads with the error.
func (v Value) Reader() io.ReadCloser {
	data, err := v.Data()
	if err != nil {
		logger.Error(fmt.Sprintf("stream %d: %v", v.ptr.id, err))
		return &errorReadCloser{err}
	}
	return io.NopCloser(bytes.NewReader(data))
}

type errorReadCloser struct {
	err error
}

func (e *errorReadCloser) Read([]byte) (int, error) {
	return 0, e.err
}

func (e *errorReadCloser) Close() error {
	return e.err
}

// value wraps x, resolving it first when it is a reference.
func (d *Document) value(parent objptr, x object) Value {
	if d == nil {
		return Value{}
	}
	if ptr, ok := x.(objptr); ok {
		if !d.initialized {
			return Value{}
		}
		obj, err := d.get(ptr.id)
		if err != nil {
			logger.Debug(fmt.Sprintf("resolve %v: %v", objfmt(ptr), err))
			return Value{}
		}
		return Value{d, ptr, obj}
	}
	switch x.(type) {
	case nil, bool, int64, float64, string, name, dict, array, stream:
		return Value{d, parent, x}
	}
	logger.Error(fmt.Sprintf("unexpected value type %T in resolve", x))
	return Value{}
}
