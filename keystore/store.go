// Package keystore persists key material together with the algorithm it was
// generated for, and builds encryption methods from stored keys.
package keystore

import (
	"context"
	"crypto"
	"fmt"
	"time"

	"github.com/joshjon/cryptkit/encrypt"
	"github.com/joshjon/cryptkit/errtag"
	"github.com/joshjon/cryptkit/id"
	"github.com/joshjon/cryptkit/keyfile"
)

// Record is one stored key. Material is PEM: a secret key block for symmetric
// algorithms and a PKCS#8 private key for asymmetric ones.
type Record struct {
	ID        id.KeyID
	Algorithm string
	KeySize   int
	Material  []byte
	CreatedAt time.Time
}

// ListFilter narrows and pages List results. Records are ordered by ID, which
// is creation order.
type ListFilter struct {
	// Algorithm keeps only records of this algorithm id when set.
	Algorithm string
	// After excludes records up to and including this ID.
	After *id.KeyID
	// Limit caps the number of records. Zero means no limit.
	Limit int32
}

type Store interface {
	// Put stores a new record. An existing ID is a conflict.
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, keyID id.KeyID) (Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Delete(ctx context.Context, keyID id.KeyID) error
}

// Cipher resolves the algorithm the record was generated for.
func (r Record) Cipher() (encrypt.Algorithm, error) {
	return encrypt.ParseAlgorithm(r.Algorithm)
}

// PublicKeyPEM returns the PKIX public key of an asymmetric record, or nil for
// a symmetric one.
func (r Record) PublicKeyPEM() ([]byte, error) {
	alg, err := r.Cipher()
	if err != nil {
		return nil, err
	}
	if _, ok := alg.(encrypt.AsymmetricAlgorithm); !ok {
		return nil, nil
	}
	kp, err := keyfile.DecodeKeyPair(r.Material)
	if err != nil {
		return nil, err
	}
	return keyfile.EncodePublicKey(kp.Public)
}

// Generate creates fresh key material for alg and stores it under a new ID.
func Generate(ctx context.Context, s Store, alg encrypt.Algorithm) (Record, error) {
	if alg == nil || !alg.Valid() {
		return Record{}, errtag.NewTagged[encrypt.UnsupportedAlgorithm](fmt.Sprintf("unsupported algorithm: %v", alg))
	}

	var material []byte
	switch a := alg.(type) {
	case encrypt.SymmetricAlgorithm:
		key, err := encrypt.GenerateSecretKey(a)
		if err != nil {
			return Record{}, err
		}
		material = keyfile.EncodeSecretKey(key)
	case encrypt.AsymmetricAlgorithm:
		kp, err := encrypt.GenerateKeyPair(a)
		if err != nil {
			return Record{}, err
		}
		if material, err = keyfile.EncodePrivateKey(kp.Private); err != nil {
			return Record{}, err
		}
	}

	rec := Record{
		ID:        id.NewKeyID(),
		Algorithm: alg.ID(),
		KeySize:   alg.KeySize(),
		Material:  material,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.Put(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

type MethodOption func(opts *methodOptions)

// WithCorrespondent encrypts for the public key of another stored record
// instead of the record's own public key. It only applies to asymmetric
// records.
func WithCorrespondent(keyID id.KeyID) MethodOption {
	return func(opts *methodOptions) {
		opts.correspondent = &keyID
	}
}

// WithEncryptOptions passes options through to the encrypt constructors.
func WithEncryptOptions(opts ...encrypt.Option) MethodOption {
	return func(o *methodOptions) {
		o.encryptOpts = append(o.encryptOpts, opts...)
	}
}

type methodOptions struct {
	correspondent *id.KeyID
	encryptOpts   []encrypt.Option
}

// Method builds an encryption method from the stored key keyID.
func Method(ctx context.Context, s Store, keyID id.KeyID, opts ...MethodOption) (encrypt.Method, error) {
	var o methodOptions
	for _, opt := range opts {
		opt(&o)
	}

	rec, err := s.Get(ctx, keyID)
	if err != nil {
		return nil, err
	}
	alg, err := rec.Cipher()
	if err != nil {
		return nil, err
	}

	switch a := alg.(type) {
	case encrypt.SymmetricAlgorithm:
		key, err := keyfile.DecodeSecretKey(rec.Material)
		if err != nil {
			return nil, err
		}
		m, err := encrypt.NewSymmetricFromKey(a, key, o.encryptOpts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case encrypt.AsymmetricAlgorithm:
		kp, err := keyfile.DecodeKeyPair(rec.Material)
		if err != nil {
			return nil, err
		}
		correspondent := kp.Public
		if o.correspondent != nil {
			if correspondent, err = correspondentKey(ctx, s, *o.correspondent); err != nil {
				return nil, err
			}
		}
		m, err := encrypt.NewAsymmetric(a, kp, correspondent, o.encryptOpts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, errtag.NewTagged[encrypt.UnsupportedAlgorithm](fmt.Sprintf("unsupported algorithm: %s", rec.Algorithm))
}

// correspondentKey returns the key another record offers to correspondents:
// the public half of a key pair, or the secret key itself so the asymmetric
// constructor reports the family conflict.
func correspondentKey(ctx context.Context, s Store, keyID id.KeyID) (crypto.PublicKey, error) {
	rec, err := s.Get(ctx, keyID)
	if err != nil {
		return nil, err
	}
	alg, err := rec.Cipher()
	if err != nil {
		return nil, err
	}
	if _, ok := alg.(encrypt.SymmetricAlgorithm); ok {
		key, err := keyfile.DecodeSecretKey(rec.Material)
		if err != nil {
			return nil, err
		}
		return key, nil
	}
	kp, err := keyfile.DecodeKeyPair(rec.Material)
	if err != nil {
		return nil, err
	}
	return kp.Public, nil
}

func notFound(keyID id.KeyID) error {
	return errtag.NewTagged[errtag.NotFound](
		fmt.Sprintf("key %s not found", keyID),
		errtag.WithMsgf("key %s not found", keyID),
	)
}

func conflict(keyID id.KeyID) error {
	return errtag.NewTagged[errtag.Conflict](
		fmt.Sprintf("key %s already exists", keyID),
		errtag.WithMsgf("key %s already exists", keyID),
	)
}
