package dacp

import "errors"

// DACP errors.
var (
	// ErrNoService is returned when an answer carries no iTunes_Ctrl_ SRV record.
	ErrNoService = errors.New("dacp: no control service record")

	// ErrNoAddress is returned when no address record resolves the SRV target.
	ErrNoAddress = errors.New("dacp: no address for service target")

	// ErrEndpointUnknown is returned by SendCommand when the session's DACP
	// service has not been resolved. Retry once discovery completes.
	ErrEndpointUnknown = errors.New("dacp: endpoint unknown")

	// ErrCommandFailed is returned when the remote answers a command with a
	// non-2xx status.
	ErrCommandFailed = errors.New("dacp: command failed")

	// ErrInvalidCommand is returned for an empty command or one containing '/'.
	ErrInvalidCommand = errors.New("dacp: invalid command")
)
