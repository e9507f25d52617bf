// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package logger

import (
	"testing"

	"github.com/sassoftware/viya-pdf-doc/tracer"
	"github.com/stretchr/testify/assert"
)

type entry struct {
	level   LogLevel
	msg     string
	keyvals []interface{}
}

func TestLevelsAndTrace(t *testing.T) {
	var got []entry
	SetLogger(func(level LogLevel, msg string, keyvals ...interface{}) {
		got = append(got, entry{level, msg, keyvals})
	})
	defer SetLogger(nil)
	tracer.Reset()

	Debug("loading xref", "offset", 42, true)
	Warn("catalog type mismatch", "type", "Foo")
	Error("object not found", "id", 7)

	if assert.Len(t, got, 3) {
		assert.Equal(t, DebugLevel, got[0].level)
		assert.Equal(t, []interface{}{"offset", 42}, got[0].keyvals, "trace flag must be stripped")
		assert.Equal(t, WarnLevel, got[1].level)
		assert.Equal(t, ErrorLevel, got[2].level)
	}
	assert.Equal(t, []string{"loading xref"}, tracer.Messages())
}

func TestSetLoggerNilRestoresNop(t *testing.T) {
	SetLogger(nil)
	assert.NotPanics(t, func() { Debug("quiet") })
}
