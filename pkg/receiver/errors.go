package receiver

import "errors"

// Receiver errors.
var (
	// ErrAlreadyStarted is returned when Start is called on a running receiver.
	ErrAlreadyStarted = errors.New("receiver: already started")

	// ErrNotStarted is returned when an operation requires a running receiver.
	ErrNotStarted = errors.New("receiver: not started")

	// ErrAlreadyStopped is returned when Stop is called twice.
	ErrAlreadyStopped = errors.New("receiver: already stopped")

	// ErrInvalidRole is returned when a listener is opened for an unknown role.
	ErrInvalidRole = errors.New("receiver: invalid listener role")

	// ErrListenerNotFound is returned when no listener is open for a session
	// and role.
	ErrListenerNotFound = errors.New("receiver: listener not found")

	// ErrInvalidVolume is returned for a volume outside [MinVolume, MaxVolume].
	ErrInvalidVolume = errors.New("receiver: invalid volume")

	// ErrInvalidTrackInfo is returned when a TrackInfo value does not match
	// its type.
	ErrInvalidTrackInfo = errors.New("receiver: invalid track info")
)
