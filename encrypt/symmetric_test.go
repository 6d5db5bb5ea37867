package encrypt

import (
	"bytes"
	"context"
	"crypto/aes"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshjon/cryptkit/errtag"
)

func TestSymmetric_textRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, err := NewSymmetric(AES256ECB, make([]byte, 32))
	require.NoError(t, err)

	text, err := m.EncryptToText(ctx, NewText("hello"))
	require.NoError(t, err)
	assert.NotEmpty(t, text)

	got, err := m.DecryptFromText(ctx, text)
	require.NoError(t, err)
	assert.True(t, NewText("hello").Equal(got))
	assert.Equal(t, `[Text]{string="hello"}`, got.String())
}

func TestSymmetric_roundTrip(t *testing.T) {
	ctx := context.Background()
	codec := newTestCodec()

	values := []Encryptable{
		NewText("hello"),
		NewText(""),
		NewText(strings.Repeat("long plaintext ", 100)),
		&sample{Number: -3, Label: "negative"},
	}

	for _, alg := range SymmetricAlgorithms() {
		t.Run(alg.ID(), func(t *testing.T) {
			key, err := GenerateSecretKey(alg)
			require.NoError(t, err)
			m, err := NewSymmetricFromKey(alg, key, WithCodec(codec))
			require.NoError(t, err)
			assert.Equal(t, alg, m.Algorithm())

			for _, v := range values {
				b, err := m.EncryptToBytes(ctx, v)
				require.NoError(t, err)
				got, err := m.DecryptFromBytes(ctx, b)
				require.NoError(t, err)
				assert.True(t, v.Equal(got), "bytes: want %s, got %s", v, got)

				text, err := m.EncryptToText(ctx, v)
				require.NoError(t, err)
				got, err = m.DecryptFromText(ctx, text)
				require.NoError(t, err)
				assert.True(t, v.Equal(got), "text: want %s, got %s", v, got)

				got, err = m.DecryptFromText(ctx, base64.StdEncoding.EncodeToString(b))
				require.NoError(t, err)
				assert.True(t, v.Equal(got), "bytes as text: want %s, got %s", v, got)
			}
		})
	}
}

func TestSymmetric_ecbDeterministic(t *testing.T) {
	ctx := context.Background()
	m, err := NewSymmetric(AES128ECB, bytes.Repeat([]byte{7}, 16))
	require.NoError(t, err)

	a, err := m.EncryptToBytes(ctx, NewText("same"))
	require.NoError(t, err)
	b, err := m.EncryptToBytes(ctx, NewText("same"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Zero(t, len(a)%aes.BlockSize)
}

func TestSymmetric_gcmRandomized(t *testing.T) {
	ctx := context.Background()
	m, err := NewSymmetric(AES256GCM, bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	a, err := m.EncryptToBytes(ctx, NewText("same"))
	require.NoError(t, err)
	b, err := m.EncryptToBytes(ctx, NewText("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	for _, ciphertext := range [][]byte{a, b} {
		got, err := m.DecryptFromBytes(ctx, ciphertext)
		require.NoError(t, err)
		assert.True(t, NewText("same").Equal(got))
	}
}

func TestNewSymmetric_wrongKeySize(t *testing.T) {
	tests := []struct {
		name      string
		alg       SymmetricAlgorithm
		key       []byte
		wantGiven int
	}{
		{name: "aes-256 with 16 bytes", alg: AES256ECB, key: make([]byte, 16), wantGiven: 128},
		{name: "aes-128 with 32 bytes", alg: AES128ECB, key: make([]byte, 32), wantGiven: 256},
		{name: "aes-192 with empty key", alg: AES192GCM, key: nil, wantGiven: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewSymmetric(tt.alg, tt.key)
			require.Error(t, err)
			assert.Nil(t, m)

			sizeErr, ok := errtag.AsTag[WrongKeySize](err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.alg.KeySize(), sizeErr.Expected)
			assert.Equal(t, tt.wantGiven, sizeErr.Given)
			assert.Contains(t, err.Error(), "wrong key size for specified algorithm")
		})
	}
}

func TestNewSymmetricFromKey_validation(t *testing.T) {
	tests := []struct {
		name    string
		alg     SymmetricAlgorithm
		key     SecretKey
		wantErr func(err error) bool
	}{
		{
			name:    "size checked before family",
			alg:     AES256ECB,
			key:     NewSecretKey("DES", make([]byte, 8)),
			wantErr: errtag.HasTag[WrongKeySize],
		},
		{
			name:    "family mismatch",
			alg:     AES128ECB,
			key:     NewSecretKey("Blowfish", make([]byte, 16)),
			wantErr: errtag.HasTag[ConflictingAlgorithm],
		},
		{
			name:    "invalid algorithm",
			alg:     SymmetricAlgorithm(99),
			key:     NewSecretKey("AES", make([]byte, 16)),
			wantErr: errtag.HasTag[UnsupportedAlgorithm],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewSymmetricFromKey(tt.alg, tt.key)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, tt.wantErr(err), "got %v", err)
		})
	}
}

func TestSymmetric_SetKey(t *testing.T) {
	ctx := context.Background()
	m, err := NewSymmetric(AES128GCM, bytes.Repeat([]byte{1}, 16))
	require.NoError(t, err)

	err = m.SetKey(NewSecretKey("AES", make([]byte, 24)))
	require.True(t, errtag.HasTag[WrongKeySize](err), "got %v", err)
	err = m.SetKey(NewSecretKey("RSA", make([]byte, 16)))
	require.True(t, errtag.HasTag[ConflictingAlgorithm](err), "got %v", err)
	assert.Equal(t, bytes.Repeat([]byte{1}, 16), m.Key().Bytes())

	ciphertext, err := m.EncryptToBytes(ctx, NewText("before"))
	require.NoError(t, err)

	replacement := NewSecretKey("AES", bytes.Repeat([]byte{2}, 16))
	require.NoError(t, m.SetKey(replacement))
	assert.Equal(t, replacement.Bytes(), m.Key().Bytes())

	_, err = m.DecryptFromBytes(ctx, ciphertext)
	assert.True(t, errtag.HasTag[Padding](err), "got %v", err)
}

func TestSymmetric_Key_isCopy(t *testing.T) {
	raw := bytes.Repeat([]byte{9}, 16)
	m, err := NewSymmetric(AES128ECB, raw)
	require.NoError(t, err)

	raw[0] = 0
	key := m.Key().Bytes()
	key[1] = 0
	assert.Equal(t, bytes.Repeat([]byte{9}, 16), m.Key().Bytes())
	assert.Equal(t, "AES", m.Key().Algorithm())
	assert.Equal(t, 128, m.Key().Size())
}

func TestSymmetric_decryptErrors(t *testing.T) {
	ctx := context.Background()
	key := bytes.Repeat([]byte{3}, 16)

	ecb, err := NewSymmetric(AES128ECB, key)
	require.NoError(t, err)
	gcm, err := NewSymmetric(AES128GCM, key)
	require.NoError(t, err)

	// A block whose plaintext ends in 0x00 can never carry valid padding.
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	badPadded := make([]byte, aes.BlockSize)
	block.Encrypt(badPadded, make([]byte, aes.BlockSize))

	sealed, err := gcm.EncryptToBytes(ctx, NewText("tamper"))
	require.NoError(t, err)
	tampered := bytes.Clone(sealed)
	tampered[len(tampered)-1] ^= 0xff

	tests := []struct {
		name    string
		method  Method
		input   []byte
		wantErr func(err error) bool
	}{
		{name: "ecb empty", method: ecb, input: nil, wantErr: errtag.HasTag[BlockSize]},
		{name: "ecb partial block", method: ecb, input: make([]byte, 15), wantErr: errtag.HasTag[BlockSize]},
		{name: "ecb bad padding", method: ecb, input: badPadded, wantErr: errtag.HasTag[Padding]},
		{name: "gcm short", method: gcm, input: make([]byte, 8), wantErr: errtag.HasTag[BlockSize]},
		{name: "gcm tampered", method: gcm, input: tampered, wantErr: errtag.HasTag[Padding]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.method.DecryptFromBytes(ctx, tt.input)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, tt.wantErr(err), "got %v", err)
		})
	}
}

func TestSymmetric_DecryptFromText_invalidEncoding(t *testing.T) {
	m, err := NewSymmetric(AES128ECB, make([]byte, 16))
	require.NoError(t, err)

	_, err = m.DecryptFromText(context.Background(), "not base64!")
	require.Error(t, err)
	assert.True(t, errtag.HasTag[InvalidEncoding](err))
	assert.Equal(t, 400, err.(InvalidEncoding).Code())
}

func TestSymmetric_unknownTypeAcrossCodecs(t *testing.T) {
	ctx := context.Background()
	key := make([]byte, 16)

	sender, err := NewSymmetric(AES128ECB, key, WithCodec(newTestCodec()))
	require.NoError(t, err)
	receiver, err := NewSymmetric(AES128ECB, key)
	require.NoError(t, err)

	b, err := sender.EncryptToBytes(ctx, &sample{Number: 1, Label: "x"})
	require.NoError(t, err)

	_, err = receiver.DecryptFromBytes(ctx, b)
	unknown, ok := errtag.AsTag[UnknownType](err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "sample", unknown.TypeName)
}

func TestSymmetric_notEncryptable(t *testing.T) {
	m, err := NewSymmetric(AES128ECB, make([]byte, 16), WithCodec(newTestCodec()))
	require.NoError(t, err)

	_, err = m.EncryptToBytes(context.Background(), &channelHolder{C: make(chan int)})
	assert.True(t, errtag.HasTag[NotEncryptable](err), "got %v", err)

	_, err = m.EncryptToText(context.Background(), nil)
	assert.True(t, errtag.HasTag[NotEncryptable](err), "got %v", err)
}

func TestSymmetric_concurrentUse(t *testing.T) {
	ctx := context.Background()
	m, err := NewSymmetric(AES256GCM, make([]byte, 32))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			text, err := m.EncryptToText(ctx, NewText("concurrent"))
			if err == nil {
				_, err = m.DecryptFromText(ctx, text)
			}
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- m.SetKey(NewSecretKey("AES", make([]byte, 32)))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestGenerateSecretKey(t *testing.T) {
	key, err := GenerateSecretKey(AES192ECB)
	require.NoError(t, err)
	assert.Equal(t, 192, key.Size())
	assert.Equal(t, "AES", key.Algorithm())

	_, err = GenerateSecretKey(SymmetricAlgorithm(0))
	assert.True(t, errtag.HasTag[UnsupportedAlgorithm](err))

	orig := random
	random = failingReader{}
	t.Cleanup(func() { random = orig })

	_, err = GenerateSecretKey(AES128ECB)
	require.Error(t, err)
	genErr, ok := errtag.AsTag[KeyGeneration](err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 500, genErr.Code())
	assert.Contains(t, err.Error(), "entropy exhausted")
}

func TestDeriveSecretKey(t *testing.T) {
	salt := []byte("0123456789abcdef")

	a, err := DeriveSecretKey(AES256GCM, []byte("correct horse"), salt)
	require.NoError(t, err)
	b, err := DeriveSecretKey(AES256GCM, []byte("correct horse"), salt)
	require.NoError(t, err)
	c, err := DeriveSecretKey(AES256GCM, []byte("battery staple"), salt)
	require.NoError(t, err)

	assert.Equal(t, 256, a.Size())
	assert.Equal(t, a.Bytes(), b.Bytes())
	assert.NotEqual(t, a.Bytes(), c.Bytes())

	_, err = NewSymmetricFromKey(AES256GCM, a)
	require.NoError(t, err)

	_, err = DeriveSecretKey(AES256GCM, []byte("pw"), []byte("short"))
	assert.True(t, errtag.HasTag[errtag.InvalidArgument](err))
}
