package session

import "errors"

// Session package errors.
var (
	// ErrInvalidKey is returned when a session key is empty.
	ErrInvalidKey = errors.New("session: invalid session key")

	// ErrNilSession is returned when Upsert or Replace is called with a nil value.
	ErrNilSession = errors.New("session: nil session")

	// ErrKeyMismatch is returned when the value's key differs from the key it is
	// stored under.
	ErrKeyMismatch = errors.New("session: key mismatch")

	// ErrSessionNotFound is returned when a session lookup fails.
	ErrSessionNotFound = errors.New("session: session not found")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("session: store closed")
)
