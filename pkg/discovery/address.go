package discovery

import (
	"net"
	"regexp"
	"strings"
)

// deviceIDPattern matches a colon separated six octet MAC address.
var deviceIDPattern = regexp.MustCompile(`^([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}$`)

// ParseDeviceID validates a device id. The receiver identifies itself by a
// MAC address in the form 11:22:33:44:55:66.
func ParseDeviceID(deviceID string) (net.HardwareAddr, error) {
	if !deviceIDPattern.MatchString(deviceID) {
		return nil, ErrInvalidDeviceID
	}
	hw, err := net.ParseMAC(deviceID)
	if err != nil {
		return nil, ErrInvalidDeviceID
	}
	return hw, nil
}

// AirTunesInstanceName returns the _raop._tcp instance name for a receiver:
// the device id without separators, '@', then the receiver name.
func AirTunesInstanceName(deviceID, name string) (string, error) {
	if _, err := ParseDeviceID(deviceID); err != nil {
		return "", err
	}
	return strings.ReplaceAll(deviceID, ":", "") + "@" + name, nil
}

// ParseAirTunesInstanceName splits an _raop._tcp instance name into the
// hex device id and the receiver name.
func ParseAirTunesInstanceName(instance string) (hexID, name string, err error) {
	hexID, name, ok := strings.Cut(instance, "@")
	if !ok || len(hexID) != 12 || name == "" {
		return "", "", ErrInvalidTXTRecord
	}
	for _, c := range hexID {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return "", "", ErrInvalidTXTRecord
		}
	}
	return hexID, name, nil
}
