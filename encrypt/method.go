package encrypt

import (
	"context"
	"encoding/base64"

	"github.com/joshjon/cryptkit/log"
)

// Method encrypts Encryptable values with one algorithm and one set of key
// material. Implementations are safe for concurrent use.
type Method interface {
	Algorithm() Algorithm
	// EncryptToBytes serializes v and returns the raw ciphertext.
	EncryptToBytes(ctx context.Context, v Encryptable) ([]byte, error)
	// EncryptToText returns the standard base64 form of EncryptToBytes.
	EncryptToText(ctx context.Context, v Encryptable) (string, error)
	// DecryptFromBytes deciphers b and rebuilds the value it holds.
	DecryptFromBytes(ctx context.Context, b []byte) (Encryptable, error)
	// DecryptFromText base64 decodes s and calls DecryptFromBytes.
	DecryptFromText(ctx context.Context, s string) (Encryptable, error)
}

// Option configures a Method.
type Option func(opts *options)

// WithCodec sets the codec used to serialize values. Defaults to
// DefaultCodec.
func WithCodec(codec *Codec) Option {
	return func(opts *options) {
		opts.codec = codec
	}
}

// WithLogger sets the logger used for debug lifecycle events. Defaults to a
// nop logger.
func WithLogger(logger log.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

type options struct {
	codec  *Codec
	logger log.Logger
}

func newOptions(opts []Option) options {
	o := options{
		codec:  DefaultCodec,
		logger: log.NewLogger(log.WithNop()),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type direction int

const (
	directionEncrypt direction = iota
	directionDecrypt
)

// transformSupplier returns a transform configured with the key material for
// the given direction.
type transformSupplier func(d direction) (Encrypter, error)

func seal(ctx context.Context, codec *Codec, supply transformSupplier, v Encryptable) ([]byte, error) {
	plaintext, err := codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	transform, err := supply(directionEncrypt)
	if err != nil {
		return nil, err
	}
	return transform.Encrypt(ctx, plaintext)
}

func open(ctx context.Context, codec *Codec, supply transformSupplier, ciphertext []byte) (Encryptable, error) {
	transform, err := supply(directionDecrypt)
	if err != nil {
		return nil, err
	}
	plaintext, err := transform.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, err
	}
	return codec.Unmarshal(plaintext)
}

func sealText(ctx context.Context, codec *Codec, supply transformSupplier, v Encryptable) (string, error) {
	b, err := seal(ctx, codec, supply, v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func openText(ctx context.Context, codec *Codec, supply transformSupplier, s string) (Encryptable, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, invalidEncoding(err)
	}
	return open(ctx, codec, supply, b)
}
