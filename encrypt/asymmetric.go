package encrypt

import (
	"context"
	"crypto"
	"crypto/rsa"
	"sync"
)

var _ Method = (*Asymmetric)(nil)

// Asymmetric encrypts for a correspondent with their public key and decrypts
// what the correspondent encrypted for us with our own private key.
type Asymmetric struct {
	alg  AsymmetricAlgorithm
	opts options

	mu            sync.RWMutex
	keyPair       KeyPair
	correspondent crypto.PublicKey
}

// NewAsymmetric builds an Asymmetric method. The key pair is validated before
// the correspondent public key.
func NewAsymmetric(alg AsymmetricAlgorithm, keyPair KeyPair, correspondent crypto.PublicKey, opts ...Option) (*Asymmetric, error) {
	if err := validateKeyPair(alg, keyPair); err != nil {
		return nil, err
	}
	if err := validateCorrespondent(alg, correspondent); err != nil {
		return nil, err
	}
	a := &Asymmetric{
		alg:           alg,
		opts:          newOptions(opts),
		keyPair:       keyPair,
		correspondent: correspondent,
	}
	a.opts.logger.Debug("asymmetric encryption method configured", "algorithm", alg.String())
	return a, nil
}

func validateKeyPair(alg AsymmetricAlgorithm, kp KeyPair) error {
	if !alg.Valid() {
		return unsupportedAlgorithm(alg)
	}
	private, public := KeyFamily(kp.Private), KeyFamily(kp.Public)
	if private != alg.Family() || public != alg.Family() {
		return conflictingAlgorithm(
			"the given key pair does not match with the desired algorithm: desired algorithm %s, private key algorithm %s, public key algorithm %s",
			alg.Family(), private, public,
		)
	}
	if bits := modulusBits(kp.Public); bits != alg.KeySize() {
		return wrongKeySize(alg.KeySize(), bits)
	}
	if priv, ok := kp.Private.(*rsa.PrivateKey); ok && !priv.PublicKey.Equal(kp.Public) {
		return invalidKey("the given private key does not belong to the given public key")
	}
	return nil
}

func validateCorrespondent(alg AsymmetricAlgorithm, pub crypto.PublicKey) error {
	if family := KeyFamily(pub); family != alg.Family() {
		return conflictingAlgorithm(
			"the given correspondent public key does not match with the desired algorithm: desired algorithm %s, correspondent public key algorithm %s",
			alg.Family(), family,
		)
	}
	if bits := modulusBits(pub); bits != alg.KeySize() {
		return wrongKeySize(alg.KeySize(), bits)
	}
	return nil
}

func modulusBits(pub crypto.PublicKey) int {
	if k, ok := pub.(*rsa.PublicKey); ok && k != nil && k.N != nil {
		return k.N.BitLen()
	}
	return 0
}

func (a *Asymmetric) Algorithm() Algorithm {
	return a.alg
}

// PublicKey returns the public half of the own key pair.
func (a *Asymmetric) PublicKey() crypto.PublicKey {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.keyPair.Public
}

func (a *Asymmetric) CorrespondentPublicKey() crypto.PublicKey {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.correspondent
}

// SetCorrespondentPublicKey replaces the key values are encrypted for. On
// error the current key is kept.
func (a *Asymmetric) SetCorrespondentPublicKey(pub crypto.PublicKey) error {
	if err := validateCorrespondent(a.alg, pub); err != nil {
		return err
	}
	a.mu.Lock()
	a.correspondent = pub
	a.mu.Unlock()
	a.opts.logger.Debug("correspondent public key replaced", "algorithm", a.alg.String())
	return nil
}

// SetKeyPair replaces the own key pair. On error the current pair is kept.
func (a *Asymmetric) SetKeyPair(kp KeyPair) error {
	if err := validateKeyPair(a.alg, kp); err != nil {
		return err
	}
	a.mu.Lock()
	a.keyPair = kp
	a.mu.Unlock()
	a.opts.logger.Debug("key pair replaced", "algorithm", a.alg.String())
	return nil
}

func (a *Asymmetric) transform(d direction) (Encrypter, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if d == directionEncrypt {
		return newAsymmetricTransform(a.alg, a.correspondent, nil)
	}
	return newAsymmetricTransform(a.alg, nil, a.keyPair.Private)
}

func (a *Asymmetric) EncryptToBytes(ctx context.Context, v Encryptable) ([]byte, error) {
	return seal(ctx, a.opts.codec, a.transform, v)
}

func (a *Asymmetric) EncryptToText(ctx context.Context, v Encryptable) (string, error) {
	return sealText(ctx, a.opts.codec, a.transform, v)
}

func (a *Asymmetric) DecryptFromBytes(ctx context.Context, b []byte) (Encryptable, error) {
	return open(ctx, a.opts.codec, a.transform, b)
}

func (a *Asymmetric) DecryptFromText(ctx context.Context, s string) (Encryptable, error) {
	return openText(ctx, a.opts.codec, a.transform, s)
}
