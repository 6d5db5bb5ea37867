package encrypt

import (
	"errors"
	"fmt"

	"github.com/joshjon/cryptkit/errtag"
)

// ConflictingAlgorithm is returned when key material belongs to a different
// algorithm family than the one requested.
type ConflictingAlgorithm struct {
	errtag.ErrorTag[errtag.CodeConflict]
}

// WrongKeySize is returned when a key does not have the bit length the
// algorithm requires.
type WrongKeySize struct {
	errtag.ErrorTag[errtag.CodeBadRequest]
	Expected int
	Given    int
}

type UnsupportedAlgorithm struct {
	errtag.ErrorTag[errtag.CodeBadRequest]
}

// NotEncryptable is returned when a value cannot be converted to or from its
// byte form.
type NotEncryptable struct {
	errtag.ErrorTag[errtag.CodeUnprocessable]
}

// UnknownType is returned when decrypted bytes name a type the codec has no
// registration for.
type UnknownType struct {
	errtag.ErrorTag[errtag.CodeUnprocessable]
	TypeName string
}

type InvalidKey struct {
	errtag.ErrorTag[errtag.CodeUnprocessable]
}

type BlockSize struct {
	errtag.ErrorTag[errtag.CodeUnprocessable]
}

type Padding struct {
	errtag.ErrorTag[errtag.CodeUnprocessable]
}

type InvalidEncoding struct {
	errtag.ErrorTag[errtag.CodeBadRequest]
}

type KeyGeneration struct {
	errtag.ErrorTag[errtag.CodeInternal]
}

func conflictingAlgorithm(format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	return errtag.Tag[ConflictingAlgorithm](errors.New(msg), errtag.WithMsg(msg))
}

func wrongKeySize(expected, given int) error {
	msg := fmt.Sprintf("wrong key size for specified algorithm: expected %d bits, given %d bits", expected, given)
	e := errtag.Tag[WrongKeySize](errors.New(msg), errtag.WithMsg(msg))
	e.Expected = expected
	e.Given = given
	return e
}

func unsupportedAlgorithm(alg any) error {
	msg := fmt.Sprintf("unsupported algorithm: %v", alg)
	return errtag.Tag[UnsupportedAlgorithm](errors.New(msg), errtag.WithMsg(msg))
}

func notEncryptable(format string, a ...any) error {
	return errtag.Tagf[NotEncryptable](format, a...)
}

func unknownType(name string) error {
	msg := fmt.Sprintf("unknown encryptable type %q", name)
	e := errtag.Tag[UnknownType](errors.New(msg), errtag.WithMsg(msg))
	e.TypeName = name
	return e
}

func invalidKey(format string, a ...any) error {
	return errtag.Tagf[InvalidKey](format, a...)
}

func blockSize(format string, a ...any) error {
	return errtag.Tagf[BlockSize](format, a...)
}

func badPadding(format string, a ...any) error {
	return errtag.Tagf[Padding](format, a...)
}

func keyGeneration(format string, a ...any) error {
	return errtag.Tagf[KeyGeneration](format, a...)
}

func invalidEncoding(err error) error {
	return errtag.Tag[InvalidEncoding](fmt.Errorf("decode base64: %w", err), errtag.WithMsg("ciphertext is not valid base64"))
}
