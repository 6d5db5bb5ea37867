package encrypt

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// textTypeName is the wire name of Text in DefaultCodec.
const textTypeName = "text"

// DefaultCodec is used by methods built without WithCodec. Text is
// registered with it.
var DefaultCodec = NewCodec()

func init() {
	Register[Text](DefaultCodec, textTypeName)
}

// EncryptablePtr constrains Register to pointer types implementing
// Encryptable.
type EncryptablePtr[T any] interface {
	*T
	Encryptable
}

// Codec converts Encryptable values to bytes and back. Only registered types
// can be decoded, so the set of types a ciphertext can produce is closed.
//
// The wire form is a deterministic CBOR map {1: type name, 2: payload} where
// payload is the deterministic CBOR encoding of the value.
type Codec struct {
	mu    sync.RWMutex
	names map[reflect.Type]string
	types map[string]func() Encryptable

	enc cbor.EncMode
	dec cbor.DecMode
}

type envelope struct {
	Type    string          `cbor:"1,keyasint"`
	Payload cbor.RawMessage `cbor:"2,keyasint"`
}

func NewCodec() *Codec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encode mode: %v", err))
	}
	dec, err := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor decode mode: %v", err))
	}
	return &Codec{
		names: make(map[reflect.Type]string),
		types: make(map[string]func() Encryptable),
		enc:   enc,
		dec:   dec,
	}
}

// Register binds name to *T in c. It panics if name or *T is already
// registered under a different binding.
func Register[T any, PT EncryptablePtr[T]](c *Codec, name string) {
	if name == "" {
		panic("encrypt: register with empty type name")
	}
	typ := reflect.TypeFor[PT]()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.names[typ]; ok {
		if existing == name {
			return
		}
		panic(fmt.Sprintf("encrypt: type %s already registered as %q", typ, existing))
	}
	if _, ok := c.types[name]; ok {
		panic(fmt.Sprintf("encrypt: type name %q already registered", name))
	}
	c.names[typ] = name
	c.types[name] = func() Encryptable { return PT(new(T)) }
}

// TypeName returns the wire name v is registered under.
func (c *Codec) TypeName(v Encryptable) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[reflect.TypeOf(v)]
	return name, ok
}

// Marshal returns the byte form of v.
func (c *Codec) Marshal(v Encryptable) ([]byte, error) {
	if isNil(v) {
		return nil, notEncryptable("encode: nil value")
	}
	name, ok := c.TypeName(v)
	if !ok {
		return nil, notEncryptable("encode: type %T is not registered", v)
	}

	payload, err := c.enc.Marshal(v)
	if err != nil {
		return nil, notEncryptable("encode %s: %w", name, err)
	}
	b, err := c.enc.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return nil, notEncryptable("encode envelope: %w", err)
	}
	return b, nil
}

// Unmarshal rebuilds a value from its byte form.
func (c *Codec) Unmarshal(b []byte) (Encryptable, error) {
	var env envelope
	if err := c.dec.Unmarshal(b, &env); err != nil {
		return nil, notEncryptable("decode envelope: %w", err)
	}
	if env.Type == "" || len(env.Payload) == 0 {
		return nil, notEncryptable("decode envelope: missing type or payload")
	}

	c.mu.RLock()
	newValue, ok := c.types[env.Type]
	c.mu.RUnlock()
	if !ok {
		return nil, unknownType(env.Type)
	}

	v := newValue()
	if err := c.dec.Unmarshal(env.Payload, v); err != nil {
		return nil, notEncryptable("decode %s: %w", env.Type, err)
	}
	return v, nil
}

func isNil(v Encryptable) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
