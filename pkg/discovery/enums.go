// Package discovery implements DNS-SD (mDNS) discovery for the receiver.
//
// This package provides:
//   - Advertising of the receiver's AirTunes (_raop._tcp) and AirPlay
//     (_airplay._tcp) services
//   - Browsing for senders' DACP remote control services (_dacp._tcp),
//     delivered as dacp.Event values
//   - TXT record encoding and parsing
package discovery

// ServiceType identifies the type of DNS-SD service.
type ServiceType int

// ServiceType constants.
const (
	// ServiceTypeUnknown represents an unknown or invalid service type.
	ServiceTypeUnknown ServiceType = iota

	// ServiceTypeAirTunes is the audio (RAOP) service.
	// Service type: _raop._tcp
	ServiceTypeAirTunes

	// ServiceTypeAirPlay is the video/mirroring service.
	// Service type: _airplay._tcp
	ServiceTypeAirPlay

	// ServiceTypeDACP is a sender's remote control service.
	// Service type: _dacp._tcp
	ServiceTypeDACP
)

// DNS-SD service type strings.
const (
	// ServiceAirTunes is the DNS-SD service type for AirTunes receivers.
	ServiceAirTunes = "_raop._tcp"

	// ServiceAirPlay is the DNS-SD service type for AirPlay receivers.
	ServiceAirPlay = "_airplay._tcp"

	// ServiceDACP is the DNS-SD service type for DACP remote control.
	ServiceDACP = "_dacp._tcp"

	// DefaultDomain is the default mDNS domain.
	DefaultDomain = "local."
)

// String returns a human-readable string for the service type.
func (s ServiceType) String() string {
	switch s {
	case ServiceTypeAirTunes:
		return "AirTunes"
	case ServiceTypeAirPlay:
		return "AirPlay"
	case ServiceTypeDACP:
		return "DACP"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the service type is valid.
func (s ServiceType) IsValid() bool {
	return s == ServiceTypeAirTunes ||
		s == ServiceTypeAirPlay ||
		s == ServiceTypeDACP
}

// ServiceString returns the DNS-SD service type string.
func (s ServiceType) ServiceString() string {
	switch s {
	case ServiceTypeAirTunes:
		return ServiceAirTunes
	case ServiceTypeAirPlay:
		return ServiceAirPlay
	case ServiceTypeDACP:
		return ServiceDACP
	default:
		return ""
	}
}
