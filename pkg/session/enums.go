// Package session tracks per-connection AirPlay negotiation state.
//
// A Session is built up across many RTSP exchanges (pair-setup, pair-verify,
// fp-setup, SETUP, RECORD...). Each exchange reads the current value with
// Store.Get, fills in what it learned and writes it back with Store.Upsert.
// The Store merges the partial update into the stored value without ever
// dropping a field that is already present, and notifies subscribers with
// the merged result.
//
// Readiness (pairing complete, FairPlay ready, ...) is never stored; it is
// derived from field presence on demand.
package session

// PairVerification is the outcome of the pair-verify handshake.
// The zero value means the handshake has not produced a result yet.
type PairVerification int

const (
	// PairVerificationUnknown indicates pair-verify has not completed.
	PairVerificationUnknown PairVerification = iota

	// PairVerificationVerified indicates the sender proved possession of its
	// signing key.
	PairVerificationVerified

	// PairVerificationFailed indicates the sender's signature did not verify.
	PairVerificationFailed
)

// String returns a human-readable name for the verification outcome.
func (v PairVerification) String() string {
	switch v {
	case PairVerificationVerified:
		return "Verified"
	case PairVerificationFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsKnown returns true if pair-verify produced a result.
func (v PairVerification) IsKnown() bool {
	return v == PairVerificationVerified || v == PairVerificationFailed
}

// AudioFormat identifies the negotiated audio stream format.
// Values are the AirPlay audioFormat bits sent by the sender in SETUP.
type AudioFormat uint32

const (
	// AudioFormatUnknown is the sentinel used until SETUP negotiates a format.
	// It has no separate "absent" state.
	AudioFormatUnknown AudioFormat = 0

	// AudioFormatPCM is 16-bit 44100Hz stereo PCM.
	AudioFormatPCM AudioFormat = 1 << 11

	// AudioFormatALAC is Apple Lossless, 44100Hz/16/2.
	AudioFormatALAC AudioFormat = 1 << 18

	// AudioFormatAAC is AAC-LC, 44100Hz/2.
	AudioFormatAAC AudioFormat = 1 << 22

	// AudioFormatAACELD is AAC-ELD, 44100Hz/2.
	AudioFormatAACELD AudioFormat = 1 << 24
)

// String returns a human-readable name for the audio format.
func (f AudioFormat) String() string {
	switch f {
	case AudioFormatPCM:
		return "PCM"
	case AudioFormatALAC:
		return "ALAC"
	case AudioFormatAAC:
		return "AAC"
	case AudioFormatAACELD:
		return "AAC-ELD"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the format is one of the defined formats.
func (f AudioFormat) IsValid() bool {
	switch f {
	case AudioFormatPCM, AudioFormatALAC, AudioFormatAAC, AudioFormatAACELD:
		return true
	}
	return false
}
