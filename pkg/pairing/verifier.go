package pairing

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"

	"github.com/backkem/airplay/pkg/session"
	"github.com/pion/logging"
)

// Pair-verify message layout: a 4 byte header whose first byte is 1 for the
// first message and 0 for the second, followed by the payload.
const (
	headerSize  = 4
	verify1Size = headerSize + 2*KeySize
	verify2Size = headerSize + SignatureSize
	verify1Flag = 1
	verify2Flag = 0
)

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Store receives the negotiated pairing material. Required.
	Store *session.Store

	// Identity is the receiver's long-term Ed25519 key. If nil, a random key
	// is generated.
	Identity ed25519.PrivateKey

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Verifier runs the receiver side of pair-verify for any number of sessions.
// All per-session state lives in the session store.
type Verifier struct {
	store    *session.Store
	identity ed25519.PrivateKey
	log      logging.LeveledLogger
}

// NewVerifier creates a Verifier.
func NewVerifier(config VerifierConfig) (*Verifier, error) {
	identity := config.Identity
	if identity == nil {
		_, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, err
		}
		identity = priv
	}
	if len(identity) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}

	v := &Verifier{store: config.Store, identity: identity}
	if config.LoggerFactory != nil {
		v.log = config.LoggerFactory.NewLogger("pairing")
	}
	return v, nil
}

// PublicKey returns the receiver's Ed25519 public key.
func (v *Verifier) PublicKey() ed25519.PublicKey {
	return v.identity.Public().(ed25519.PublicKey)
}

// PublicKeyHex returns the public key as advertised in the "pk" TXT record.
func (v *Verifier) PublicKeyHex() string {
	return hex.EncodeToString(v.PublicKey())
}

// Begin handles the first pair-verify message: the sender's Curve25519 and
// Ed25519 public keys. It records the key agreement on the session and
// returns the receiver's Curve25519 public key followed by its encrypted
// signature.
func (v *Verifier) Begin(key string, msg []byte) ([]byte, error) {
	if len(msg) != verify1Size || msg[0] != verify1Flag {
		return nil, ErrInvalidMessage
	}
	ecdhTheirs := bytes.Clone(msg[headerSize : headerSize+KeySize])
	edTheirs := bytes.Clone(msg[headerSize+KeySize:])

	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	shared, err := SharedSecret(kp.Private[:], ecdhTheirs)
	if err != nil {
		return nil, err
	}

	signed := make([]byte, 0, 2*KeySize)
	signed = append(signed, kp.Public[:]...)
	signed = append(signed, ecdhTheirs...)
	sig := ed25519.Sign(v.identity, signed)

	stream, err := newStream(shared)
	if err != nil {
		return nil, err
	}
	stream.XORKeyStream(sig, sig)

	update := session.New(key)
	update.EcdhOurs = bytes.Clone(kp.Public[:])
	update.EcdhTheirs = ecdhTheirs
	update.EdTheirs = edTheirs
	update.EcdhShared = shared
	if err := v.store.Upsert(key, update); err != nil {
		return nil, err
	}

	if v.log != nil {
		v.log.Debugf("pair-verify started for session %s", key)
	}

	resp := make([]byte, 0, KeySize+SignatureSize)
	resp = append(resp, kp.Public[:]...)
	resp = append(resp, sig...)
	return resp, nil
}

// Finish handles the second pair-verify message: the sender's encrypted
// signature over its and the receiver's Curve25519 public keys. The outcome
// is recorded on the session; a bad signature also returns ErrSignature.
func (v *Verifier) Finish(key string, msg []byte) error {
	if len(msg) != verify2Size || msg[0] != verify2Flag {
		return ErrInvalidMessage
	}

	s, ok := v.store.Lookup(key)
	if !ok || s.EcdhShared == nil || len(s.EdTheirs) != ed25519.PublicKeySize {
		return ErrNotStarted
	}

	stream, err := newStream(s.EcdhShared)
	if err != nil {
		return err
	}
	// Skip the keystream used for the receiver's signature.
	skip := make([]byte, SignatureSize)
	stream.XORKeyStream(skip, skip)

	sig := bytes.Clone(msg[headerSize:])
	stream.XORKeyStream(sig, sig)

	signed := make([]byte, 0, 2*KeySize)
	signed = append(signed, s.EcdhTheirs...)
	signed = append(signed, s.EcdhOurs...)

	result := session.PairVerificationVerified
	if !VerifySignature(s.EdTheirs, signed, sig) {
		result = session.PairVerificationFailed
	}

	update := session.New(key)
	update.PairVerified = result
	if err := v.store.Upsert(key, update); err != nil {
		return err
	}

	if v.log != nil {
		v.log.Infof("pair-verify for session %s: %s", key, result)
	}
	if result == session.PairVerificationFailed {
		return ErrSignature
	}
	return nil
}
