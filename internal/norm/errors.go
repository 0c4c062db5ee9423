package norm

import "errors"

// Errors
var (
	// ErrSymbolMismatch means the payload's symbol root disagrees with the
	// requested root. The payload must be dropped, never re-labeled.
	ErrSymbolMismatch = errors.New("symbol root mismatch")

	// ErrEmptyPayload means the payload carried none of the fields required
	// for the requested snapshot type.
	ErrEmptyPayload = errors.New("empty payload")
)
