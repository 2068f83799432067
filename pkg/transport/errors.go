package transport

import "errors"

// Transport errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed listener.
	ErrClosed = errors.New("transport: closed")

	// ErrAlreadyStarted is returned when Start is called on a running listener.
	ErrAlreadyStarted = errors.New("transport: already started")

	// ErrInvalidPort is returned when a port is outside 0-65535.
	ErrInvalidPort = errors.New("transport: invalid port")

	// ErrBind is returned when a socket cannot be bound.
	ErrBind = errors.New("transport: bind failed")

	// ErrCloseTimeout is returned by Stop when the receive loops did not exit
	// within the close timeout. The sockets are closed regardless.
	ErrCloseTimeout = errors.New("transport: close timed out")
)
