package cryptoapi

import (
	"time"

	"github.com/cohesivestack/valgo"

	"github.com/joshjon/cryptkit/encrypt"
	"github.com/joshjon/cryptkit/keystore"
	"github.com/joshjon/cryptkit/valgoutil"
)

type CreateKeyRequest struct {
	Algorithm string `json:"algorithm"`
}

func (r CreateKeyRequest) Validate() error {
	return valgo.Is(valgoutil.AlgorithmValidator(r.Algorithm, "algorithm")).Error()
}

type EncryptRequest struct {
	KeyID              string `json:"key_id"`
	CorrespondentKeyID string `json:"correspondent_key_id,omitempty"`
	Text               string `json:"text"`
}

func (r EncryptRequest) Validate() error {
	return valgo.Is(valgo.String(r.KeyID, "key_id").Not().Blank()).Error()
}

type EncryptResponse struct {
	Ciphertext string `json:"ciphertext"`
}

type DecryptRequest struct {
	KeyID      string `json:"key_id"`
	Ciphertext string `json:"ciphertext"`
}

func (r DecryptRequest) Validate() error {
	return valgo.Is(
		valgo.String(r.KeyID, "key_id").Not().Blank(),
		valgo.String(r.Ciphertext, "ciphertext").Not().Blank(),
	).Error()
}

type DecryptResponse struct {
	Text string `json:"text"`
}

// Algorithm is a catalog entry as listed by GET /algorithms.
type Algorithm struct {
	ID        string `json:"id"`
	Transform string `json:"transform"`
	KeySize   int    `json:"key_size"`
}

func algorithmFromCatalog(alg encrypt.Algorithm) Algorithm {
	return Algorithm{
		ID:        alg.ID(),
		Transform: alg.Name(),
		KeySize:   alg.KeySize(),
	}
}

type Key struct {
	ID        string    `json:"id"`
	Algorithm string    `json:"algorithm"`
	Transform string    `json:"transform"`
	KeySize   int       `json:"key_size"`
	PublicKey string    `json:"public_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func keyFromRecord(rec keystore.Record) (Key, error) {
	alg, err := rec.Cipher()
	if err != nil {
		return Key{}, err
	}
	pub, err := rec.PublicKeyPEM()
	if err != nil {
		return Key{}, err
	}
	return Key{
		ID:        rec.ID.String(),
		Algorithm: rec.Algorithm,
		Transform: alg.Name(),
		KeySize:   rec.KeySize,
		PublicKey: string(pub),
		CreatedAt: rec.CreatedAt,
	}, nil
}
