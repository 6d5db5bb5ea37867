// Package id defines the type-safe identifiers used across the module. IDs are
// TypeIDs: a prefix naming the entity plus a time sortable UUIDv7 suffix, so
// ordering by the string form orders by creation time.
package id

import "go.jetify.com/typeid"

type ID interface {
	typeid.Subtype
	comparable
	IsZero() bool
}

type SubtypePtr[T any] = typeid.SubtypePtr[T]

// New creates a new instance of the specified ID type. It panics if the ID
// cannot be generated.
func New[I ID, PI SubtypePtr[I]]() I {
	return typeid.Must(typeid.New[I, PI]())
}

// Parse parses a string representation of an ID into the specified ID type.
func Parse[I ID, PI SubtypePtr[I]](id string) (I, error) {
	return typeid.Parse[I, PI](id)
}

type keyPrefix struct{}

func (keyPrefix) Prefix() string { return "key" }

// KeyID identifies a stored key, e.g. "key_01h455vb4pex5vsknk084sn02q".
type KeyID struct {
	typeid.TypeID[keyPrefix]
}

func NewKeyID() KeyID {
	return New[KeyID]()
}

func ParseKeyID(s string) (KeyID, error) {
	return Parse[KeyID](s)
}
