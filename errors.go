package coco

import "errors"

var (
	// ErrStackClosed is the panic value of any operation on a closed stack.
	ErrStackClosed = errors.New("coco: stack is closed")
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("coco: pool is released")
)
