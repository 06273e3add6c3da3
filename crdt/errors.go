package crdt

import "errors"

var (
	// ErrIndexOutOfRange is returned when an index does not address a live character or a sentinel.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidSymbol is returned for runes that cannot be encoded as UTF-8, such as surrogate halves.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrAllocationExhausted is returned when no free position exists between two bounds.
	ErrAllocationExhausted = errors.New("no free position between bounds")

	// ErrUnsupportedStrategy is returned for allocation strategies that are not implemented.
	ErrUnsupportedStrategy = errors.New("unsupported allocation strategy")

	// ErrInvalidPosition is returned for malformed position keys and misordered bounds.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrDecode is returned when a serialized snapshot cannot be decoded.
	ErrDecode = errors.New("malformed snapshot")

	// ErrPositionConflict is returned by a rejecting merge when both sides hold different symbols at one position.
	ErrPositionConflict = errors.New("conflicting symbols at position")
)
