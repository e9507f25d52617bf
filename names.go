// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

// TypeName is one of the well-known values of a dictionary's /Type entry.
type TypeName string

const (
	TypeCatalog  TypeName = "Catalog"
	TypePages    TypeName = "Pages"
	TypePage     TypeName = "Page"
	TypeXRef     TypeName = "XRef"
	TypeObjStm   TypeName = "ObjStm"
	TypeOutlines TypeName = "Outlines"
)

// typeOf returns the /Type entry of d, or "" when absent or not a name.
func typeOf(d dict) TypeName {
	n, _ := d[name("Type")].(name)
	return TypeName(n)
}

// hasType reports whether d declares /Type t.
func hasType(d dict, t TypeName) bool {
	return typeOf(d) == t
}
