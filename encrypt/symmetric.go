package encrypt

import (
	"context"
	"sync"
)

var _ Method = (*Symmetric)(nil)

// Symmetric encrypts and decrypts with a single shared secret key.
type Symmetric struct {
	alg  SymmetricAlgorithm
	opts options

	mu  sync.RWMutex
	key SecretKey
}

// NewSymmetric builds a Symmetric method from raw key bytes. The key must be
// exactly alg.KeySize() bits long.
func NewSymmetric(alg SymmetricAlgorithm, key []byte, opts ...Option) (*Symmetric, error) {
	if !alg.Valid() {
		return nil, unsupportedAlgorithm(alg)
	}
	return NewSymmetricFromKey(alg, NewSecretKey(alg.Family(), key), opts...)
}

// NewSymmetricFromKey builds a Symmetric method from a SecretKey. The key size
// is checked before the key family.
func NewSymmetricFromKey(alg SymmetricAlgorithm, key SecretKey, opts ...Option) (*Symmetric, error) {
	if err := validateSecretKey(alg, key); err != nil {
		return nil, err
	}
	s := &Symmetric{
		alg:  alg,
		opts: newOptions(opts),
		key:  NewSecretKey(key.family, key.key),
	}
	s.opts.logger.Debug("symmetric encryption method configured", "algorithm", alg.String())
	return s, nil
}

func validateSecretKey(alg SymmetricAlgorithm, key SecretKey) error {
	if !alg.Valid() {
		return unsupportedAlgorithm(alg)
	}
	if key.Size() != alg.KeySize() {
		return wrongKeySize(alg.KeySize(), key.Size())
	}
	if key.Algorithm() != alg.Family() {
		return conflictingAlgorithm(
			"the given secret key does not match with the desired algorithm: desired algorithm %s, secret key algorithm %s",
			alg.Family(), key.Algorithm(),
		)
	}
	return nil
}

func (s *Symmetric) Algorithm() Algorithm {
	return s.alg
}

// Key returns a copy of the secret key.
func (s *Symmetric) Key() SecretKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return NewSecretKey(s.key.family, s.key.key)
}

// SetKey replaces the secret key after validating it like NewSymmetricFromKey.
// On error the current key is kept.
func (s *Symmetric) SetKey(key SecretKey) error {
	if err := validateSecretKey(s.alg, key); err != nil {
		return err
	}
	s.mu.Lock()
	s.key = NewSecretKey(key.family, key.key)
	s.mu.Unlock()
	s.opts.logger.Debug("secret key replaced", "algorithm", s.alg.String())
	return nil
}

func (s *Symmetric) transform(direction) (Encrypter, error) {
	s.mu.RLock()
	key := s.key.key
	s.mu.RUnlock()
	return newSymmetricTransform(s.alg, key)
}

func (s *Symmetric) EncryptToBytes(ctx context.Context, v Encryptable) ([]byte, error) {
	return seal(ctx, s.opts.codec, s.transform, v)
}

func (s *Symmetric) EncryptToText(ctx context.Context, v Encryptable) (string, error) {
	return sealText(ctx, s.opts.codec, s.transform, v)
}

func (s *Symmetric) DecryptFromBytes(ctx context.Context, b []byte) (Encryptable, error) {
	return open(ctx, s.opts.codec, s.transform, b)
}

func (s *Symmetric) DecryptFromText(ctx context.Context, str string) (Encryptable, error) {
	return openText(ctx, s.opts.codec, s.transform, str)
}
