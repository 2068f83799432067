// Package rtsp holds the reply envelope shared by the RTSP and HTTP control
// handlers of the receiver. It only models a response; framing it onto a
// connection is the handler's job.
package rtsp

// Protocol identifies the request protocol a response answers.
type Protocol int

const (
	// ProtocolUnknown has no wire label.
	ProtocolUnknown Protocol = iota
	// ProtocolHTTP10 is HTTP/1.0.
	ProtocolHTTP10
	// ProtocolHTTP11 is HTTP/1.1.
	ProtocolHTTP11
	// ProtocolRTSP10 is RTSP/1.0.
	ProtocolRTSP10
)

// Label returns the wire token for the protocol, or "" if it has none.
func (p Protocol) Label() string {
	switch p {
	case ProtocolHTTP10:
		return "HTTP/1.0"
	case ProtocolHTTP11:
		return "HTTP/1.1"
	case ProtocolRTSP10:
		return "RTSP/1.0"
	default:
		return ""
	}
}

// String returns the protocol label, or "Unknown".
func (p Protocol) String() string {
	if l := p.Label(); l != "" {
		return l
	}
	return "Unknown"
}

// IsValid returns true if the protocol has a wire label.
func (p Protocol) IsValid() bool {
	return p.Label() != ""
}

// ParseProtocol maps a wire token to a Protocol. Unrecognized tokens yield
// ProtocolUnknown.
func ParseProtocol(token string) Protocol {
	switch token {
	case "HTTP/1.0":
		return ProtocolHTTP10
	case "HTTP/1.1":
		return ProtocolHTTP11
	case "RTSP/1.0":
		return ProtocolRTSP10
	default:
		return ProtocolUnknown
	}
}
