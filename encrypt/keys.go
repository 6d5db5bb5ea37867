package encrypt

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/joshjon/cryptkit/errtag"
)

// random is the entropy source for key generation and nonces.
var random io.Reader = rand.Reader

const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	minSaltLen = 8
)

// SecretKey is symmetric key material tagged with the algorithm family it
// belongs to.
type SecretKey struct {
	family string
	key    []byte
}

// NewSecretKey copies key and tags it with family, e.g. "AES".
func NewSecretKey(family string, key []byte) SecretKey {
	k := make([]byte, len(key))
	copy(k, key)
	return SecretKey{family: family, key: k}
}

// Algorithm returns the family the key belongs to.
func (k SecretKey) Algorithm() string {
	return k.family
}

// Bytes returns a copy of the raw key.
func (k SecretKey) Bytes() []byte {
	out := make([]byte, len(k.key))
	copy(out, k.key)
	return out
}

// Size returns the key length in bits.
func (k SecretKey) Size() int {
	return len(k.key) * 8
}

type KeyPair struct {
	Private crypto.PrivateKey
	Public  crypto.PublicKey
}

// KeyFamily returns the algorithm family of a key value, or "" when the type
// is not recognized.
func KeyFamily(key any) string {
	switch k := key.(type) {
	case SecretKey:
		return k.family
	case *SecretKey:
		if k != nil {
			return k.family
		}
	case *rsa.PrivateKey:
		if k != nil {
			return "RSA"
		}
	case *rsa.PublicKey:
		if k != nil {
			return "RSA"
		}
	case *ecdsa.PrivateKey:
		if k != nil {
			return "EC"
		}
	case *ecdsa.PublicKey:
		if k != nil {
			return "EC"
		}
	case ed25519.PrivateKey, ed25519.PublicKey:
		return "Ed25519"
	case *ecdh.PrivateKey:
		if k != nil {
			return "XDH"
		}
	case *ecdh.PublicKey:
		if k != nil {
			return "XDH"
		}
	}
	return ""
}

// GenerateSecretKey returns fresh random key material sized for alg.
func GenerateSecretKey(alg SymmetricAlgorithm) (SecretKey, error) {
	if !alg.Valid() {
		return SecretKey{}, unsupportedAlgorithm(alg)
	}
	key := make([]byte, alg.KeySize()/8)
	if _, err := io.ReadFull(random, key); err != nil {
		return SecretKey{}, keyGeneration("generate %s key: %w", alg.Family(), err)
	}
	return SecretKey{family: alg.Family(), key: key}, nil
}

// DeriveSecretKey derives key material sized for alg from a password using
// scrypt. The same password and salt always yield the same key.
func DeriveSecretKey(alg SymmetricAlgorithm, password, salt []byte) (SecretKey, error) {
	if !alg.Valid() {
		return SecretKey{}, unsupportedAlgorithm(alg)
	}
	if len(salt) < minSaltLen {
		return SecretKey{}, errtag.NewTagged[errtag.InvalidArgument](
			"salt too short",
			errtag.WithMsgf("salt must be at least %d bytes", minSaltLen),
		)
	}
	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, alg.KeySize()/8)
	if err != nil {
		return SecretKey{}, keyGeneration("derive %s key: %w", alg.Family(), err)
	}
	return SecretKey{family: alg.Family(), key: key}, nil
}

// GenerateKeyPair returns a fresh key pair sized for alg.
func GenerateKeyPair(alg AsymmetricAlgorithm) (KeyPair, error) {
	if !alg.Valid() {
		return KeyPair{}, unsupportedAlgorithm(alg)
	}
	priv, err := rsa.GenerateKey(random, alg.KeySize())
	if err != nil {
		return KeyPair{}, keyGeneration("generate %s key pair: %w", alg.Family(), err)
	}
	return KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}
