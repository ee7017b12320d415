// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"errors"

	"github.com/pdiddy/paperdl/internal/httputil"
)

// Per-entry error classes. A failed Result's Err matches exactly one of
// these with errors.Is, except for cancellation, which matches
// context.Canceled instead.
var (
	// ErrNetwork covers DNS, connect, TLS, stall, and body read failures.
	ErrNetwork = httputil.ErrNetwork

	// ErrStalled is wrapped together with ErrNetwork when no response data
	// arrived within the configured timeout.
	ErrStalled = errors.New("no data received within timeout")

	// ErrHTTPStatus covers non-2xx responses. Use errors.As with
	// *httputil.StatusError for the code.
	ErrHTTPStatus = httputil.ErrHTTPStatus

	// ErrFilesystem covers directory creation, temp file, write, and rename failures.
	ErrFilesystem = errors.New("filesystem error")
)
