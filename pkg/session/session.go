package session

import (
	"bytes"
	"net"
	"net/netip"
)

// Listener is a media channel listener attached to a session.
//
// The session only records which listener serves a channel. The component that
// created the listener owns it and is responsible for stopping it.
type Listener interface {
	// LocalAddrs returns the bound control and data socket addresses.
	LocalAddrs() (control, data net.Addr)
}

// Session is the negotiation state of one sender connection.
//
// Every field starts absent: nil slices, nil pointers, the zero
// netip.AddrPort, PairVerificationUnknown and AudioFormatUnknown. A Session
// obtained from Store.Get is a private copy; changes become visible to other
// components only through Store.Upsert.
type Session struct {
	key string

	// Pairing material.
	EcdhOurs     []byte
	EcdhTheirs   []byte
	EdTheirs     []byte
	EcdhShared   []byte
	PairVerified PairVerification

	// FairPlay / encryption setup.
	KeyMsg          []byte
	AesKey          []byte
	AesIV           []byte
	DecryptedAesKey []byte

	// Media session identifiers.
	StreamConnectionID *uint64
	AudioFormat        AudioFormat
	Mirroring          *bool

	// Video.
	SPSPPS       []byte
	PTS          *int64
	WidthSource  *int
	HeightSource *int

	// Remote control linkage. DacpEndpoint is set asynchronously once the
	// sender's DACP service has been resolved.
	DacpID       *string
	DacpEndpoint netip.AddrPort

	// Attached listeners (borrowed references).
	MirroringListener    Listener
	StreamingListener    Listener
	AudioControlListener Listener
}

// New returns an empty session for the given key.
func New(key string) *Session {
	return &Session{key: key}
}

// Key returns the session key.
func (s *Session) Key() string {
	return s.key
}

// PairCompleted reports whether a shared secret exists and pair-verify succeeded.
func (s *Session) PairCompleted() bool {
	return s.EcdhShared != nil && s.PairVerified == PairVerificationVerified
}

// FairPlaySetupCompleted reports whether the fp-setup key message arrived on a
// completed pairing.
func (s *Session) FairPlaySetupCompleted() bool {
	return s.KeyMsg != nil && s.PairCompleted()
}

// FairPlayReady reports whether everything needed to derive the media key is present.
func (s *Session) FairPlayReady() bool {
	return s.KeyMsg != nil && s.EcdhShared != nil && s.AesKey != nil && s.AesIV != nil
}

// MirroringSessionReady reports whether a screen mirroring stream was set up.
func (s *Session) MirroringSessionReady() bool {
	return s.StreamConnectionID != nil && s.Mirroring != nil && *s.Mirroring
}

// AudioSessionReady reports whether an audio format was negotiated.
func (s *Session) AudioSessionReady() bool {
	return s.AudioFormat != AudioFormatUnknown
}

// HasDacpEndpoint reports whether the sender's DACP service has been resolved.
func (s *Session) HasDacpEndpoint() bool {
	return s.DacpEndpoint.IsValid()
}

// Clone returns a deep copy of the session. Listener references are copied
// as references.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.EcdhOurs = cloneBytes(s.EcdhOurs)
	c.EcdhTheirs = cloneBytes(s.EcdhTheirs)
	c.EdTheirs = cloneBytes(s.EdTheirs)
	c.EcdhShared = cloneBytes(s.EcdhShared)
	c.KeyMsg = cloneBytes(s.KeyMsg)
	c.AesKey = cloneBytes(s.AesKey)
	c.AesIV = cloneBytes(s.AesIV)
	c.DecryptedAesKey = cloneBytes(s.DecryptedAesKey)
	c.SPSPPS = cloneBytes(s.SPSPPS)
	c.StreamConnectionID = clonePtr(s.StreamConnectionID)
	c.Mirroring = clonePtr(s.Mirroring)
	c.PTS = clonePtr(s.PTS)
	c.WidthSource = clonePtr(s.WidthSource)
	c.HeightSource = clonePtr(s.HeightSource)
	c.DacpID = clonePtr(s.DacpID)
	return &c
}

// Ptr returns a pointer to v. It is a convenience for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}

// cloneBytes keeps nil as nil so absence survives the copy.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
