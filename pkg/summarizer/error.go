package summarizer

import "errors"

var (
	// ErrPortFailure is wrapped by providers when the backend call fails or
	// times out. The policy engine treats it as a per-rule no-op.
	ErrPortFailure = errors.New("summarization port failure")

	// ErrEmptyOutput is returned when the backend answered successfully but
	// produced no usable text.
	ErrEmptyOutput = errors.New("summarization backend returned empty output")
)
