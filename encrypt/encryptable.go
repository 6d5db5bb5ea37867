package encrypt

import "fmt"

// Encryptable is a value a Method can encrypt. Values travel through a Codec,
// so concrete types must be registered with the codec in use.
type Encryptable interface {
	fmt.Stringer
	Equal(other Encryptable) bool
}

var _ Encryptable = (*Text)(nil)

// Text wraps a string so it can be encrypted.
type Text struct {
	Value string `cbor:"1,keyasint"`
}

func NewText(s string) *Text {
	return &Text{Value: s}
}

func (t *Text) String() string {
	return fmt.Sprintf("[Text]{string=%q}", t.Value)
}

func (t *Text) Equal(other Encryptable) bool {
	o, ok := other.(*Text)
	if !ok || t == nil || o == nil {
		return ok && t == o
	}
	return t.Value == o.Value
}
