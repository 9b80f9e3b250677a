package engine

import "errors"

// ErrMalformedInput rejects ingest or import payloads at the boundary:
// empty text, oversized text, or snapshots that fail validation.
var ErrMalformedInput = errors.New("malformed input")
