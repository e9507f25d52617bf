// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"fmt"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// passwordPadding is the fixed 32-byte pad of the standard security handler.
var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

type securityState int

const (
	stateUninitialized securityState = iota
	stateAuthenticated
	stateFailed
)

// Permissions are the user access bits of the standard security handler.
// Unencrypted documents allow everything.
type Permissions struct {
	Print                bool `json:"can_print"`
	PrintFaithful        bool `json:"can_print_faithful"`
	Modify               bool `json:"can_modify"`
	Extract              bool `json:"extract_content"`
	Annotate             bool `json:"modify_annotations"`
	FillForms            bool `json:"fill_in_form"`
	ExtractAccessibility bool `json:"extract_for_accessibility"`
	Assemble             bool `json:"assemble_document"`
}

var allowAll = Permissions{true, true, true, true, true, true, true, true}

// permissionsFromP decodes the P entry. Bit 1 is the least significant bit.
func permissionsFromP(p int32) Permissions {
	u := uint32(p)
	var pm Permissions
	pm.Print = u&(1<<2) != 0
	pm.Modify = u&(1<<3) != 0
	pm.Extract = u&(1<<4) != 0
	pm.Annotate = u&(1<<5) != 0
	pm.FillForms = u&(1<<8) != 0 || pm.Annotate
	pm.ExtractAccessibility = u&(1<<9) != 0
	pm.Assemble = u&(1<<10) != 0
	pm.PrintFaithful = u&(1<<11) != 0 || pm.Print
	return pm
}

// encryptionParams are the resolved entries of an /Encrypt dictionary plus the
// first element of the trailer /ID array.
type encryptionParams struct {
	Filter string
	V, R   int
	Length int // bits; 0 when absent
	O, U   []byte
	P      int32
	DocID  []byte
}

// SecurityHandler authenticates a document and derives per-object keys
// for the RC4 standard security handler (revisions 2 and 3).
type SecurityHandler struct {
	state     securityState
	err       error
	encrypted bool
	params    encryptionParams
	key       []byte
	perms     Permissions
}

func newSecurityHandler() *SecurityHandler {
	return &SecurityHandler{}
}

// Encrypted reports whether the document declares an /Encrypt dictionary.
func (h *SecurityHandler) Encrypted() bool { return h.encrypted }

// Authenticated reports whether objects can be resolved.
func (h *SecurityHandler) Authenticated() bool { return h.state == stateAuthenticated }

// Revision returns the /R entry, or 0 for unencrypted documents.
func (h *SecurityHandler) Revision() int { return h.params.R }

// Permissions returns the access permissions granted to the user.
func (h *SecurityHandler) Permissions() Permissions { return h.perms }

// initialize authenticates with password. A nil p marks the document unencrypted.
// ErrIncorrectPassword leaves the handler ready for another attempt; every other
// failure is terminal.
func (h *SecurityHandler) initialize(p *encryptionParams, password string) error {
	switch h.state {
	case stateAuthenticated:
		return nil
	case stateFailed:
		return h.err
	}
	if p == nil {
		h.encrypted = false
		h.perms = allowAll
		h.state = stateAuthenticated
		logger.Debug("security: document is not encrypted", true)
		return nil
	}
	h.encrypted = true
	if err := h.configure(p); err != nil {
		logger.Error(fmt.Sprintf("security: %v", err))
		h.state = stateFailed
		h.err = err
		return err
	}

	key := h.computeKey([]byte(password))
	if !h.verifyUserPassword(key) {
		logger.Debug("security: user password rejected", true)
		return ErrIncorrectPassword
	}
	h.key = key
	h.state = stateAuthenticated
	logger.Debug(fmt.Sprintf("security: authenticated V=%d R=%d keylen=%d", h.params.V, h.params.R, len(key)), true)
	return nil
}

func (h *SecurityHandler) configure(p *encryptionParams) error {
	if p.Filter != "Standard" {
		return fmt.Errorf("%w: /Filter %q", ErrUnsupportedFilter, p.Filter)
	}
	switch {
	case p.V >= 4:
		return fmt.Errorf("%w: /V %d", ErrNotImplemented, p.V)
	case p.V != 1 && p.V != 2:
		return fmt.Errorf("%w: /V %d", ErrUnsupportedAlgorithm, p.V)
	}
	switch {
	case p.R >= 4:
		return fmt.Errorf("%w: /R %d", ErrNotImplemented, p.R)
	case p.R < 2:
		return fmt.Errorf("%w: /R %d", ErrUnsupportedAlgorithm, p.R)
	}
	length := p.Length
	if length == 0 {
		length = 40
	}
	if length < 40 || length > 128 || length%8 != 0 {
		return fmt.Errorf("%w: key length %d", ErrUnsupportedAlgorithm, length)
	}
	if len(p.O) < 32 || len(p.U) < 32 {
		return fmt.Errorf("%w: /O or /U shorter than 32 bytes", ErrEncryption)
	}
	h.params = *p
	h.params.Length = length
	h.perms = permissionsFromP(p.P)
	return nil
}

// padPassword pads or truncates pw to 32 bytes.
func padPassword(pw []byte) []byte {
	out := make([]byte, 32)
	n := copy(out, pw)
	copy(out[n:], passwordPadding)
	return out
}

// computeKey derives the file key from a user password (Algorithm 3.2).
func (h *SecurityHandler) computeKey(password []byte) []byte {
	p := &h.params
	n := p.Length / 8

	hash := md5.New()
	hash.Write(padPassword(password))
	hash.Write(p.O)
	var pb [4]byte
	binary.LittleEndian.PutUint32(pb[:], uint32(p.P))
	hash.Write(pb[:])
	hash.Write(p.DocID)
	key := hash.Sum(nil)

	if p.R >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(key[:n])
			key = sum[:]
		}
	}
	return key[:n]
}

// verifyUserPassword checks key against /U (Algorithms 3.4 and 3.5).
func (h *SecurityHandler) verifyUserPassword(key []byte) bool {
	p := &h.params
	if p.R == 2 {
		return bytes.Equal(rc4Crypt(key, passwordPadding), p.U[:32])
	}
	sum := md5.Sum(append(append([]byte{}, passwordPadding...), p.DocID...))
	x := rc4Crypt(key, sum[:])
	k := make([]byte, len(key))
	for i := 1; i <= 19; i++ {
		for j := range key {
			k[j] = key[j] ^ byte(i)
		}
		x = rc4Crypt(k, x)
	}
	return bytes.Equal(x[:16], p.U[:16])
}

// rc4Crypt encrypts or decrypts data under key.
func rc4Crypt(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		// key sizes are fixed between 5 and 16 bytes
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// objectKey derives the RC4 key for one indirect object.
func (h *SecurityHandler) objectKey(id uint32, gen uint16) []byte {
	n := len(h.key)
	buf := make([]byte, n, n+5)
	copy(buf, h.key)
	buf = append(buf, byte(id), byte(id>>8), byte(id>>16), byte(gen), byte(gen>>8))
	sum := md5.Sum(buf)
	if n+5 < 16 {
		return sum[:n+5]
	}
	return sum[:16]
}

// decryptObject returns x with every string and stream payload decrypted under the
// key of object (id, gen). Dictionaries and arrays are copied, not modified.
func (h *SecurityHandler) decryptObject(id uint32, gen uint16, x object) object {
	if !h.encrypted || h.state != stateAuthenticated {
		return x
	}
	return decryptWith(h.objectKey(id, gen), x)
}

func decryptWith(key []byte, x object) object {
	switch x := x.(type) {
	case string:
		return string(rc4Crypt(key, []byte(x)))
	case dict:
		out := make(dict, len(x))
		for k, v := range x {
			out[k] = decryptWith(key, v)
		}
		return out
	case array:
		out := make(array, len(x))
		for i, v := range x {
			out[i] = decryptWith(key, v)
		}
		return out
	case stream:
		x.hdr = decryptWith(key, x.hdr).(dict)
		if x.loaded {
			x.raw = rc4Crypt(key, x.raw)
		}
		return x
	}
	return x
}
