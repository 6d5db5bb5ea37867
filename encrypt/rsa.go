package encrypt

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"hash"
)

var _ Encrypter = (*rsaCipher)(nil)

// rsaCipher implements the RSA/ECB transforms. Encryption uses public and
// decryption uses private; either may be nil when only one direction is
// needed.
type rsaCipher struct {
	name    string
	public  crypto.PublicKey
	private crypto.PrivateKey
}

func newAsymmetricTransform(alg AsymmetricAlgorithm, public crypto.PublicKey, private crypto.PrivateKey) (Encrypter, error) {
	switch alg.Name() {
	case transformRSAPKCS1, transformRSAOAEPSHA1, transformRSAOAEPSHA256:
		return &rsaCipher{name: alg.Name(), public: public, private: private}, nil
	}
	return nil, unsupportedAlgorithm(alg)
}

func (r *rsaCipher) oaepHash() hash.Hash {
	switch r.name {
	case transformRSAOAEPSHA1:
		return sha1.New()
	case transformRSAOAEPSHA256:
		return sha256.New()
	}
	return nil
}

// Encrypt enciphers plaintext with the public key. The context parameter is
// ignored.
func (r *rsaCipher) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	pub, ok := r.public.(*rsa.PublicKey)
	if !ok || pub == nil {
		return nil, invalidKey("rsa encrypt: expected *rsa.PublicKey, got %T", r.public)
	}

	var (
		out []byte
		err error
	)
	if h := r.oaepHash(); h != nil {
		out, err = rsa.EncryptOAEP(h, random, pub, plaintext, nil)
	} else {
		out, err = rsa.EncryptPKCS1v15(random, pub, plaintext)
	}
	switch {
	case errors.Is(err, rsa.ErrMessageTooLong):
		return nil, blockSize("rsa encrypt: %d bytes exceed the capacity of a %d bit key: %w", len(plaintext), pub.Size()*8, err)
	case err != nil:
		return nil, invalidKey("rsa encrypt: %w", err)
	}
	return out, nil
}

// Decrypt deciphers ciphertext with the private key. The context parameter is
// ignored.
func (r *rsaCipher) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	priv, ok := r.private.(*rsa.PrivateKey)
	if !ok || priv == nil {
		return nil, invalidKey("rsa decrypt: expected *rsa.PrivateKey, got %T", r.private)
	}

	if len(ciphertext) != priv.Size() {
		return nil, blockSize("rsa decrypt: ciphertext is %d bytes, key requires %d", len(ciphertext), priv.Size())
	}

	var (
		out []byte
		err error
	)
	if h := r.oaepHash(); h != nil {
		out, err = rsa.DecryptOAEP(h, nil, priv, ciphertext, nil)
	} else {
		out, err = rsa.DecryptPKCS1v15(nil, priv, ciphertext)
	}
	switch {
	case errors.Is(err, rsa.ErrDecryption):
		return nil, badPadding("rsa decrypt: %w", err)
	case err != nil:
		return nil, invalidKey("rsa decrypt: %w", err)
	}
	return out, nil
}
