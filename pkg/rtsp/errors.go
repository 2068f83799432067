package rtsp

import "errors"

// Response errors.
var (
	// ErrRange is returned when WriteRange bounds fall outside the buffer.
	ErrRange = errors.New("rtsp: write range out of bounds")

	// ErrUnknownProtocol is returned when serializing a response whose
	// protocol has no wire label.
	ErrUnknownProtocol = errors.New("rtsp: unknown protocol")
)
