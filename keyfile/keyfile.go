// Package keyfile stores key material as PEM. Secret keys use a
// "<FAMILY> SECRET KEY" block carrying the raw key bytes, private keys use
// PKCS#8 "PRIVATE KEY" blocks and public keys use PKIX "PUBLIC KEY" blocks.
package keyfile

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshjon/cryptkit/encrypt"
	"github.com/joshjon/cryptkit/errtag"
)

const (
	secretKeySuffix     = " SECRET KEY"
	privateKeyBlockType = "PRIVATE KEY"
	publicKeyBlockType  = "PUBLIC KEY"

	// AlgorithmHeader names the family of a secret key block.
	AlgorithmHeader = "Algorithm"

	privateFileMode = 0o600
	publicFileMode  = 0o644
)

// EncodeSecretKey returns key as a PEM block.
func EncodeSecretKey(key encrypt.SecretKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:    strings.ToUpper(key.Algorithm()) + secretKeySuffix,
		Headers: map[string]string{AlgorithmHeader: key.Algorithm()},
		Bytes:   key.Bytes(),
	})
}

// DecodeSecretKey parses the first PEM block of data as a secret key.
func DecodeSecretKey(data []byte) (encrypt.SecretKey, error) {
	block, err := decodeBlock(data)
	if err != nil {
		return encrypt.SecretKey{}, err
	}
	if !strings.HasSuffix(block.Type, secretKeySuffix) {
		return encrypt.SecretKey{}, wrongBlockType(block.Type, "<FAMILY>"+secretKeySuffix)
	}
	family := block.Headers[AlgorithmHeader]
	if family == "" {
		family = strings.TrimSuffix(block.Type, secretKeySuffix)
	}
	return encrypt.NewSecretKey(family, block.Bytes), nil
}

// EncodePrivateKey returns key as a PKCS#8 PEM block.
func EncodePrivateKey(key crypto.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, errtag.Tag[errtag.InvalidArgument](fmt.Errorf("marshal private key: %w", err))
	}
	return pem.EncodeToMemory(&pem.Block{Type: privateKeyBlockType, Bytes: der}), nil
}

// DecodePrivateKey parses the first PEM block of data as a PKCS#8 private key.
func DecodePrivateKey(data []byte) (crypto.PrivateKey, error) {
	block, err := decodeBlock(data)
	if err != nil {
		return nil, err
	}
	if block.Type != privateKeyBlockType {
		return nil, wrongBlockType(block.Type, privateKeyBlockType)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errtag.Tag[errtag.InvalidArgument](fmt.Errorf("parse private key: %w", err))
	}
	return key, nil
}

// DecodeKeyPair parses a private key and derives its public half.
func DecodeKeyPair(data []byte) (encrypt.KeyPair, error) {
	priv, err := DecodePrivateKey(data)
	if err != nil {
		return encrypt.KeyPair{}, err
	}
	return KeyPairOf(priv)
}

// KeyPairOf builds a KeyPair from a private key.
func KeyPairOf(priv crypto.PrivateKey) (encrypt.KeyPair, error) {
	signer, ok := priv.(interface{ Public() crypto.PublicKey })
	if !ok {
		return encrypt.KeyPair{}, errtag.Tagf[errtag.InvalidArgument]("private key of type %T has no public key", priv)
	}
	return encrypt.KeyPair{Private: priv, Public: signer.Public()}, nil
}

// EncodePublicKey returns key as a PKIX PEM block.
func EncodePublicKey(key crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, errtag.Tag[errtag.InvalidArgument](fmt.Errorf("marshal public key: %w", err))
	}
	return pem.EncodeToMemory(&pem.Block{Type: publicKeyBlockType, Bytes: der}), nil
}

// DecodePublicKey parses the first PEM block of data as a PKIX public key.
func DecodePublicKey(data []byte) (crypto.PublicKey, error) {
	block, err := decodeBlock(data)
	if err != nil {
		return nil, err
	}
	if block.Type != publicKeyBlockType {
		return nil, wrongBlockType(block.Type, publicKeyBlockType)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errtag.Tag[errtag.InvalidArgument](fmt.Errorf("parse public key: %w", err))
	}
	return key, nil
}

func WriteSecretKey(path string, key encrypt.SecretKey) error {
	return writeFile(path, EncodeSecretKey(key), privateFileMode)
}

func ReadSecretKey(path string) (encrypt.SecretKey, error) {
	data, err := readFile(path)
	if err != nil {
		return encrypt.SecretKey{}, err
	}
	return DecodeSecretKey(data)
}

// WriteKeyPair writes the private key to privatePath and the public key to
// publicPath. The private key file is only readable by its owner.
func WriteKeyPair(privatePath, publicPath string, kp encrypt.KeyPair) error {
	privPEM, err := EncodePrivateKey(kp.Private)
	if err != nil {
		return err
	}
	pubPEM, err := EncodePublicKey(kp.Public)
	if err != nil {
		return err
	}
	if err = writeFile(privatePath, privPEM, privateFileMode); err != nil {
		return err
	}
	return writeFile(publicPath, pubPEM, publicFileMode)
}

func ReadPrivateKey(path string) (crypto.PrivateKey, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return DecodePrivateKey(data)
}

// ReadKeyPair reads a private key file and derives the public half.
func ReadKeyPair(path string) (encrypt.KeyPair, error) {
	data, err := readFile(path)
	if err != nil {
		return encrypt.KeyPair{}, err
	}
	return DecodeKeyPair(data)
}

func ReadPublicKey(path string) (crypto.PublicKey, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return DecodePublicKey(data)
}

func decodeBlock(data []byte) (*pem.Block, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errtag.NewTagged[errtag.InvalidArgument]("no PEM block found", errtag.WithMsg("key material is not PEM encoded"))
	}
	return block, nil
}

func wrongBlockType(got, want string) error {
	return errtag.NewTagged[errtag.InvalidArgument](
		fmt.Sprintf("unexpected PEM block %q, want %q", got, want),
		errtag.WithMsgf("unexpected PEM block type %q", got),
	)
}

func writeFile(path string, data []byte, mode os.FileMode) error {
	if err := os.WriteFile(filepath.Clean(path), data, mode); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errtag.Tag[errtag.NotFound](err, errtag.WithMsgf("key file %s not found", path))
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return data, nil
}
