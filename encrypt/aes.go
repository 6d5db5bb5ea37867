package encrypt

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"io"
)

var (
	_ Encrypter = (*aesGCM)(nil)
	_ Encrypter = (*aesECB)(nil)
)

// aesGCM implements AES/GCM/NoPadding. The ciphertext includes the nonce
// prepended to the sealed data.
type aesGCM struct {
	key []byte
}

func (a *aesGCM) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(a.key)
	if err != nil {
		return nil, invalidKey("aes: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, invalidKey("aes gcm: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext under a random nonce. The context parameter is
// ignored.
func (a *aesGCM) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	gcm, err := a.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(random, nonce); err != nil {
		return nil, keyGeneration("read nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce-prefixed ciphertext. The context parameter is ignored.
func (a *aesGCM) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	gcm, err := a.aead()
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize()+gcm.Overhead() {
		return nil, blockSize("aes gcm: ciphertext of %d bytes is shorter than nonce and tag", len(ciphertext))
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, badPadding("aes gcm: %w", err)
	}
	return plaintext, nil
}

// aesECB implements AES/ECB/PKCS5Padding: every block is enciphered
// independently and the final block carries PKCS#7 padding.
type aesECB struct {
	key []byte
}

func (a *aesECB) block() (cipher.Block, error) {
	block, err := aes.NewCipher(a.key)
	if err != nil {
		return nil, invalidKey("aes: %w", err)
	}
	return block, nil
}

// Encrypt pads and enciphers plaintext. The context parameter is ignored.
func (a *aesECB) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	block, err := a.block()
	if err != nil {
		return nil, err
	}

	padded := pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += block.BlockSize() {
		block.Encrypt(out[i:i+block.BlockSize()], padded[i:i+block.BlockSize()])
	}
	return out, nil
}

// Decrypt deciphers and unpads ciphertext. The context parameter is ignored.
func (a *aesECB) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	block, err := a.block()
	if err != nil {
		return nil, err
	}

	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, blockSize("aes ecb: input length %d is not a multiple of %d", len(ciphertext), bs)
	}

	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += bs {
		block.Decrypt(out[i:i+bs], ciphertext[i:i+bs])
	}
	return unpad(out, bs)
}

func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func unpad(b []byte, blockSize int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, badPadding("aes ecb: invalid padding length %d", n)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, badPadding("aes ecb: given final block not properly padded")
		}
	}
	return b[:len(b)-n], nil
}
