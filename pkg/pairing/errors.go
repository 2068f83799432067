package pairing

import "errors"

// Pairing errors.
var (
	// ErrInvalidKeySize is returned when a key has the wrong length.
	ErrInvalidKeySize = errors.New("pairing: invalid key size")

	// ErrInvalidMessage is returned for a malformed pair-verify message.
	ErrInvalidMessage = errors.New("pairing: invalid pair-verify message")

	// ErrNotStarted is returned when the second pair-verify message arrives
	// before the first.
	ErrNotStarted = errors.New("pairing: pair-verify not started")

	// ErrSignature is returned when the sender's signature does not verify.
	ErrSignature = errors.New("pairing: signature verification failed")
)
