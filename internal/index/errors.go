package index

import "errors"

var (
	ErrUnreachable       = errors.New("vector index unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrIndexWrite        = errors.New("bulk index write failed")
)
