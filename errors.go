// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"errors"
	"fmt"
)

// Errors reported while locating and resolving objects. Callers compare with errors.Is;
// the returned errors wrap these with object IDs and file offsets.
var (
	// ErrIndexCorrupt reports a malformed cross-reference table or stream.
	ErrIndexCorrupt = errors.New("pdf: cross-reference index corrupt")
	// ErrIndexNotFound reports a file without a usable startxref pointer.
	ErrIndexNotFound = errors.New("pdf: startxref not found")
	// ErrObjectNotFound reports a dangling or missing indirect reference.
	ErrObjectNotFound = errors.New("pdf: object not found")
	// ErrSyntax reports an object that does not parse.
	ErrSyntax = errors.New("pdf: syntax error")
	// ErrLookup reports a failed index or name-tree lookup.
	ErrLookup = errors.New("pdf: lookup failed")
	// ErrTypeMismatch reports a value of the wrong kind in strict mode.
	ErrTypeMismatch = errors.New("pdf: type mismatch")
	// ErrCycle reports a reference graph that loops back on itself.
	ErrCycle = errors.New("pdf: reference cycle detected")

	ErrMissingRoot         = errors.New("pdf: trailer has no Root")
	ErrNoOutlines          = errors.New("pdf: document has no outlines")
	ErrDestinationNotFound = errors.New("pdf: destination not found")
	ErrNotInitialized      = errors.New("pdf: document not initialized")

	// ErrUnsupportedStreamFilter reports a stream filter this package cannot decode.
	ErrUnsupportedStreamFilter = errors.New("pdf: unsupported stream filter")

	// ErrEncryption is the root of the security handler errors.
	ErrEncryption           = errors.New("pdf: encryption error")
	ErrUnsupportedFilter    = fmt.Errorf("%w: unsupported security handler", ErrEncryption)
	ErrUnsupportedAlgorithm = fmt.Errorf("%w: unsupported algorithm", ErrEncryption)
	ErrIncorrectPassword    = fmt.Errorf("%w: incorrect password", ErrEncryption)

	// ErrNotImplemented reports revision 4 and later security handlers (AES).
	ErrNotImplemented = errors.New("pdf: encryption revision not implemented")
)

// isIndexError reports whether err should send bootstrap to the reconstructed index.
func isIndexError(err error) bool {
	return errors.Is(err, ErrIndexCorrupt) || errors.Is(err, ErrIndexNotFound)
}
