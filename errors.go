package imdraw

import "errors"

// Errors returned by DrawContext.
var (
	// ErrClosed is returned when rendering with a closed DrawContext.
	ErrClosed = errors.New("imdraw: draw context is closed")

	// ErrNoFactory is returned by NewDrawContext without a buffer factory.
	ErrNoFactory = errors.New("imdraw: buffer factory is nil")

	// ErrInvalidOption is returned by NewDrawContext for out of range options.
	ErrInvalidOption = errors.New("imdraw: invalid option")
)
