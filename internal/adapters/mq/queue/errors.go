package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("persistence queue full")
	ErrClosed = errors.New("persistence queue closed")
)
