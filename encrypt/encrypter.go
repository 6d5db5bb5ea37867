package encrypt

import "context"

// Encrypter is a configured cipher transform. Methods build a fresh Encrypter
// for every call, so implementations need not be safe for concurrent use.
type Encrypter interface {
	// Encrypt returns the encrypted ciphertext.
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	// Decrypt returns the decrypted plaintext.
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

func newSymmetricTransform(alg SymmetricAlgorithm, key []byte) (Encrypter, error) {
	switch alg.Name() {
	case transformAESECB:
		return &aesECB{key: key}, nil
	case transformAESGCM:
		return &aesGCM{key: key}, nil
	}
	return nil, unsupportedAlgorithm(alg)
}
