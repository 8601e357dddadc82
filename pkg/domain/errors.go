package domain

import "errors"

// ErrNotFound is returned when a requested tree, snapshot or session entry does not exist.
var ErrNotFound = errors.New("not found")

// ErrMalformed is returned when input cannot be decoded into the expected shape.
var ErrMalformed = errors.New("malformed input")

// ErrCorrupt is returned when data read back from a store cannot be decoded.
// Unlike ErrMalformed it does not describe caller input.
var ErrCorrupt = errors.New("corrupt stored data")
