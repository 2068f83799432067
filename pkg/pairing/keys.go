// Package pairing implements the receiver side of AirPlay pair-verify.
//
// Pair-verify is a Curve25519 key agreement authenticated by Ed25519
// signatures, with the signatures exchanged under AES-128-CTR keyed from the
// shared secret. The negotiated material is recorded on the session through
// the session store.
package pairing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"

	"golang.org/x/crypto/curve25519"
)

// Key sizes.
const (
	// KeySize is the size of Curve25519 and Ed25519 public keys.
	KeySize = 32

	// SignatureSize is the size of an Ed25519 signature.
	SignatureSize = 64

	// AESKeySize is the size of the derived AES key and IV.
	AESKeySize = 16
)

// Key derivation labels.
const (
	labelAESKey = "Pair-Verify-AES-Key"
	labelAESIV  = "Pair-Verify-AES-IV"
)

// KeyPair is a Curve25519 key pair.
type KeyPair struct {
	Private [KeySize]byte
	Public  [KeySize]byte
}

// GenerateKeyPair creates a random Curve25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	kp := &KeyPair{}
	if _, err := rand.Read(kp.Private[:]); err != nil {
		return nil, err
	}
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// SharedSecret computes the Curve25519 shared secret with a peer public key.
func SharedSecret(private, peerPublic []byte) ([]byte, error) {
	if len(private) != KeySize || len(peerPublic) != KeySize {
		return nil, ErrInvalidKeySize
	}
	return curve25519.X25519(private, peerPublic)
}

// VerifySignature reports whether sig is a valid Ed25519 signature of msg by
// the 32 byte public key pub.
func VerifySignature(pub, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

// DeriveAESKey returns the first 16 bytes of SHA-512("Pair-Verify-AES-Key" || secret).
func DeriveAESKey(secret []byte) []byte {
	return derive(labelAESKey, secret)
}

// DeriveAESIV returns the first 16 bytes of SHA-512("Pair-Verify-AES-IV" || secret).
func DeriveAESIV(secret []byte) []byte {
	return derive(labelAESIV, secret)
}

func derive(label string, secret []byte) []byte {
	h := sha512.New()
	h.Write([]byte(label))
	h.Write(secret)
	return h.Sum(nil)[:AESKeySize]
}

// newStream returns the AES-128-CTR keystream for a shared secret. The
// receiver's signature uses the first SignatureSize bytes; the sender's
// signature the next SignatureSize bytes.
func newStream(secret []byte) (cipher.Stream, error) {
	block, err := aes.NewCipher(DeriveAESKey(secret))
	if err != nil {
		return nil, err
	}
	return cipher.NewCTR(block, DeriveAESIV(secret)), nil
}
