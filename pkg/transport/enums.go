// Package transport provides the dual-socket UDP listener used by every
// AirPlay media channel.
//
// A media channel (screen mirroring, buffered audio streaming, realtime audio
// with its control channel) is served by a control socket and a data socket.
// The Listener binds both at construction, runs one receive loop per socket
// and tears both down together.
package transport

// Role identifies which media channel a listener serves.
type Role int

const (
	// RoleUnknown is the zero value for an unspecified role.
	RoleUnknown Role = iota
	// RoleMirroring serves the screen mirroring (H.264) stream.
	RoleMirroring
	// RoleStreaming serves buffered audio streaming.
	RoleStreaming
	// RoleAudioControl serves realtime audio and its control (sync/resend) channel.
	RoleAudioControl
)

// String returns the role name, also used as a metrics label.
func (r Role) String() string {
	switch r {
	case RoleMirroring:
		return "mirroring"
	case RoleStreaming:
		return "streaming"
	case RoleAudioControl:
		return "audio_control"
	default:
		return "unknown"
	}
}

// IsValid returns true if the role is a known valid role.
func (r Role) IsValid() bool {
	return r == RoleMirroring || r == RoleStreaming || r == RoleAudioControl
}

// Listener lifecycle states.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateStopping = "stopping"
	StateClosed   = "closed"
)

// Listener lifecycle events.
const (
	eventStart  = "start"
	eventStop   = "stop"
	eventFinish = "finish"
)
