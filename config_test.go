// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"strict mode", strictMode, false},
		{"fallback always", func(c *Config) { c.Fallback = FallbackAlways }, false},
		{"fallback never", func(c *Config) { c.Fallback = FallbackNever }, false},
		{"passwords", func(c *Config) { c.Passwords = []string{"a", "b"} }, false},
		{"no workers", func(c *Config) { c.MaxConcurrentDocs = 0 }, true},
		{"too many workers", func(c *Config) { c.MaxConcurrentDocs = 65 }, true},
		{"no timeout", func(c *Config) { c.WorkerTimeout = 0 }, true},
		{"unknown parsing mode", func(c *Config) { c.ParsingMode = "lenient" }, true},
		{"unknown fallback", func(c *Config) { c.Fallback = "sometimes" }, true},
		{"empty fallback", func(c *Config) { c.Fallback = "" }, true},
		{"too many retries", func(c *Config) { c.MaxRetries = 10 }, true},
		{"password too long", func(c *Config) { c.Passwords = []string{strings.Repeat("x", 128)} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testConfig(tt.modify).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	data := basicPDF()
	_, err := Load(bytes.NewReader(data), int64(len(data)), testConfig(func(c *Config) { c.Fallback = "x" }))
	assert.Error(t, err)
}
