package engine

import "errors"

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("engine: closed")
	// ErrInconsistent is returned when a table was published by rename but
	// could not be opened. The engine refuses further writes.
	ErrInconsistent = errors.New("engine: published table cannot be opened")
	// ErrNotOpen is returned when operating on an engine before OpenDB.
	ErrNotOpen = errors.New("engine: not open")
)
