package discovery

import (
	"fmt"
	"strings"
)

// AirTunes (_raop._tcp) TXT keys.
const (
	TXTKeyChannels         = "ch"
	TXTKeyCodecs           = "cn"
	TXTKeyEncryptionTypes  = "et"
	TXTKeyMetadataTypes    = "md"
	TXTKeySampleRate       = "sr"
	TXTKeySampleSize       = "ss"
	TXTKeyDA               = "da"
	TXTKeySV               = "sv"
	TXTKeyFeaturesShort    = "ft"
	TXTKeyModelShort       = "am"
	TXTKeyPublicKey        = "pk"
	TXTKeyStatusFlagsShort = "sf"
	TXTKeyTransport        = "tp"
	TXTKeyVersionNumber    = "vn"
	TXTKeySourceVersShort  = "vs"
	TXTKeyVV               = "vv"
)

// AirPlay (_airplay._tcp) TXT keys.
const (
	TXTKeyDeviceID   = "deviceid"
	TXTKeyFeatures   = "features"
	TXTKeyFlags      = "flags"
	TXTKeyModel      = "model"
	TXTKeyPairingID  = "pi"
	TXTKeySourceVers = "srcvers"
)

// Receiver defaults.
const (
	DefaultFeatures      = "0x5A7FDE40,0x1C"
	DefaultFlags         = "0x4"
	DefaultModel         = "AppleTV5,3"
	DefaultSourceVersion = "220.68"
	DefaultPublicKey     = "29fbb183a58b466e05b9ab667b3c429d18a6b785637333d3f0f3a34baa89f45e"
)

// MaxNameLength is the longest receiver name that fits a DNS label together
// with the "<device id>@" prefix.
const MaxNameLength = 63 - 13

// ReceiverTXT describes the receiver for both advertised services.
type ReceiverTXT struct {
	// DeviceID is the receiver's MAC address, e.g. "11:22:33:44:55:66".
	// Required.
	DeviceID string

	// Name is the human readable receiver name. Required.
	Name string

	// AirTunesPort and AirPlayPort are the advertised service ports.
	AirTunesPort int
	AirPlayPort  int

	// Features is the AirPlay features bitmask (default: DefaultFeatures).
	Features string

	// Flags is the status flags value (default: DefaultFlags).
	Flags string

	// Model is the advertised device model (default: DefaultModel).
	Model string

	// PublicKey is the hex encoded ed25519 public key (default: DefaultPublicKey).
	PublicKey string

	// PairingID is the "pi" value. Generated when empty.
	PairingID string

	// SourceVersion is the advertised server version (default: DefaultSourceVersion).
	SourceVersion string
}

// WithDefaults returns a copy with empty optional fields filled in.
// PairingID is left for the caller to generate.
func (r ReceiverTXT) WithDefaults() ReceiverTXT {
	if r.Features == "" {
		r.Features = DefaultFeatures
	}
	if r.Flags == "" {
		r.Flags = DefaultFlags
	}
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.PublicKey == "" {
		r.PublicKey = DefaultPublicKey
	}
	if r.SourceVersion == "" {
		r.SourceVersion = DefaultSourceVersion
	}
	return r
}

// Validate checks the required fields. It touches no network resource.
func (r *ReceiverTXT) Validate() error {
	if _, err := ParseDeviceID(r.DeviceID); err != nil {
		return err
	}
	if r.Name == "" || len(r.Name) > MaxNameLength {
		return ErrInvalidName
	}
	if r.AirTunesPort <= 0 || r.AirTunesPort > 65535 || r.AirPlayPort <= 0 || r.AirPlayPort > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// EncodeAirTunes returns the _raop._tcp TXT records.
func (r *ReceiverTXT) EncodeAirTunes() []string {
	return []string{
		kv(TXTKeyChannels, "2"),
		kv(TXTKeyCodecs, "1,2"),
		kv(TXTKeyEncryptionTypes, "0,3,5"),
		kv(TXTKeyMetadataTypes, "0,1,2"),
		kv(TXTKeySampleRate, "44100"),
		kv(TXTKeySampleSize, "16"),
		kv(TXTKeyDA, "true"),
		kv(TXTKeySV, "false"),
		kv(TXTKeyFeaturesShort, r.Features),
		kv(TXTKeyModelShort, r.Model),
		kv(TXTKeyPublicKey, r.PublicKey),
		kv(TXTKeyStatusFlagsShort, r.Flags),
		kv(TXTKeyTransport, "UDP"),
		kv(TXTKeyVersionNumber, "65537"),
		kv(TXTKeySourceVersShort, r.SourceVersion),
		kv(TXTKeyVV, "2"),
	}
}

// EncodeAirPlay returns the _airplay._tcp TXT records.
func (r *ReceiverTXT) EncodeAirPlay() []string {
	return []string{
		kv(TXTKeyDeviceID, r.DeviceID),
		kv(TXTKeyFeatures, r.Features),
		kv(TXTKeyFlags, r.Flags),
		kv(TXTKeyModel, r.Model),
		kv(TXTKeyPublicKey, r.PublicKey),
		kv(TXTKeyPairingID, r.PairingID),
		kv(TXTKeySourceVers, r.SourceVersion),
		kv(TXTKeyVV, "2"),
	}
}

func kv(key, value string) string {
	return fmt.Sprintf("%s=%s", key, value)
}

// ParseTXT parses TXT record strings into a key-value map.
// Records without '=' map to an empty value. Later duplicates are ignored.
func ParseTXT(records []string) map[string]string {
	result := make(map[string]string, len(records))
	for _, record := range records {
		key, value, _ := strings.Cut(record, "=")
		if key == "" {
			continue
		}
		if _, exists := result[key]; !exists {
			result[key] = value
		}
	}
	return result
}

// ParseAirPlayTXT extracts the receiver description from _airplay._tcp TXT
// records.
func ParseAirPlayTXT(records []string) (*ReceiverTXT, error) {
	m := ParseTXT(records)
	deviceID, ok := m[TXTKeyDeviceID]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidTXTRecord, TXTKeyDeviceID)
	}
	if _, err := ParseDeviceID(deviceID); err != nil {
		return nil, err
	}
	return &ReceiverTXT{
		DeviceID:      deviceID,
		Features:      m[TXTKeyFeatures],
		Flags:         m[TXTKeyFlags],
		Model:         m[TXTKeyModel],
		PublicKey:     m[TXTKeyPublicKey],
		PairingID:     m[TXTKeyPairingID],
		SourceVersion: m[TXTKeySourceVers],
	}, nil
}
