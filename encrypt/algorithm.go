package encrypt

import (
	"fmt"
	"strings"
)

const (
	transformAESECB        = "AES/ECB/PKCS5Padding"
	transformAESGCM        = "AES/GCM/NoPadding"
	transformRSAPKCS1      = "RSA/ECB/PKCS1Padding"
	transformRSAOAEPSHA1   = "RSA/ECB/OAEPWithSHA-1AndMGF1Padding"
	transformRSAOAEPSHA256 = "RSA/ECB/OAEPWithSHA-256AndMGF1Padding"
)

// Algorithm describes one supported cipher configuration: the full transform
// name, the key size in bits and the algorithm family the key material must
// belong to.
type Algorithm interface {
	// Name returns the transform name, e.g. "AES/ECB/PKCS5Padding".
	Name() string
	// KeySize returns the key size in bits.
	KeySize() int
	// Family returns the first segment of the transform name, e.g. "AES".
	Family() string
	// ID returns the short identifier used in configuration files and
	// requests, e.g. "aes-256-ecb".
	ID() string
	// Valid reports whether the value belongs to the catalog.
	Valid() bool
	String() string
}

type descriptor struct {
	id      string
	name    string
	keySize int
}

func (d descriptor) family() string {
	family, _, _ := strings.Cut(d.name, "/")
	return family
}

func (d descriptor) String() string {
	return fmt.Sprintf("%s with %d bits key size", d.name, d.keySize)
}

// SymmetricAlgorithm enumerates the shared secret configurations.
type SymmetricAlgorithm uint8

const (
	AES128ECB SymmetricAlgorithm = iota + 1
	AES192ECB
	AES256ECB
	AES128GCM
	AES192GCM
	AES256GCM
)

var symmetricDescriptors = [...]descriptor{
	AES128ECB: {id: "aes-128-ecb", name: transformAESECB, keySize: 128},
	AES192ECB: {id: "aes-192-ecb", name: transformAESECB, keySize: 192},
	AES256ECB: {id: "aes-256-ecb", name: transformAESECB, keySize: 256},
	AES128GCM: {id: "aes-128-gcm", name: transformAESGCM, keySize: 128},
	AES192GCM: {id: "aes-192-gcm", name: transformAESGCM, keySize: 192},
	AES256GCM: {id: "aes-256-gcm", name: transformAESGCM, keySize: 256},
}

var _ Algorithm = SymmetricAlgorithm(0)

func (a SymmetricAlgorithm) Valid() bool {
	return a > 0 && int(a) < len(symmetricDescriptors)
}

func (a SymmetricAlgorithm) descriptor() descriptor {
	if !a.Valid() {
		return descriptor{}
	}
	return symmetricDescriptors[a]
}

func (a SymmetricAlgorithm) Name() string   { return a.descriptor().name }
func (a SymmetricAlgorithm) KeySize() int   { return a.descriptor().keySize }
func (a SymmetricAlgorithm) Family() string { return a.descriptor().family() }
func (a SymmetricAlgorithm) ID() string     { return a.descriptor().id }

func (a SymmetricAlgorithm) String() string {
	if !a.Valid() {
		return fmt.Sprintf("SymmetricAlgorithm(%d)", uint8(a))
	}
	return a.descriptor().String()
}

// AsymmetricAlgorithm enumerates the key pair configurations.
type AsymmetricAlgorithm uint8

const (
	RSA1024PKCS1 AsymmetricAlgorithm = iota + 1
	RSA2048PKCS1
	RSA3072PKCS1
	RSA1024OAEPSHA1
	RSA2048OAEPSHA1
	RSA3072OAEPSHA1
	RSA1024OAEPSHA256
	RSA2048OAEPSHA256
	RSA3072OAEPSHA256
)

var asymmetricDescriptors = [...]descriptor{
	RSA1024PKCS1:      {id: "rsa-1024-pkcs1", name: transformRSAPKCS1, keySize: 1024},
	RSA2048PKCS1:      {id: "rsa-2048-pkcs1", name: transformRSAPKCS1, keySize: 2048},
	RSA3072PKCS1:      {id: "rsa-3072-pkcs1", name: transformRSAPKCS1, keySize: 3072},
	RSA1024OAEPSHA1:   {id: "rsa-1024-oaep-sha1", name: transformRSAOAEPSHA1, keySize: 1024},
	RSA2048OAEPSHA1:   {id: "rsa-2048-oaep-sha1", name: transformRSAOAEPSHA1, keySize: 2048},
	RSA3072OAEPSHA1:   {id: "rsa-3072-oaep-sha1", name: transformRSAOAEPSHA1, keySize: 3072},
	RSA1024OAEPSHA256: {id: "rsa-1024-oaep-sha256", name: transformRSAOAEPSHA256, keySize: 1024},
	RSA2048OAEPSHA256: {id: "rsa-2048-oaep-sha256", name: transformRSAOAEPSHA256, keySize: 2048},
	RSA3072OAEPSHA256: {id: "rsa-3072-oaep-sha256", name: transformRSAOAEPSHA256, keySize: 3072},
}

var _ Algorithm = AsymmetricAlgorithm(0)

func (a AsymmetricAlgorithm) Valid() bool {
	return a > 0 && int(a) < len(asymmetricDescriptors)
}

func (a AsymmetricAlgorithm) descriptor() descriptor {
	if !a.Valid() {
		return descriptor{}
	}
	return asymmetricDescriptors[a]
}

func (a AsymmetricAlgorithm) Name() string   { return a.descriptor().name }
func (a AsymmetricAlgorithm) KeySize() int   { return a.descriptor().keySize }
func (a AsymmetricAlgorithm) Family() string { return a.descriptor().family() }
func (a AsymmetricAlgorithm) ID() string     { return a.descriptor().id }

func (a AsymmetricAlgorithm) String() string {
	if !a.Valid() {
		return fmt.Sprintf("AsymmetricAlgorithm(%d)", uint8(a))
	}
	return a.descriptor().String()
}

// SymmetricAlgorithms returns the symmetric catalog in declaration order.
func SymmetricAlgorithms() []SymmetricAlgorithm {
	out := make([]SymmetricAlgorithm, 0, len(symmetricDescriptors)-1)
	for i := 1; i < len(symmetricDescriptors); i++ {
		out = append(out, SymmetricAlgorithm(i))
	}
	return out
}

// AsymmetricAlgorithms returns the asymmetric catalog in declaration order.
func AsymmetricAlgorithms() []AsymmetricAlgorithm {
	out := make([]AsymmetricAlgorithm, 0, len(asymmetricDescriptors)-1)
	for i := 1; i < len(asymmetricDescriptors); i++ {
		out = append(out, AsymmetricAlgorithm(i))
	}
	return out
}

// Algorithms returns the whole catalog, symmetric entries first.
func Algorithms() []Algorithm {
	var out []Algorithm
	for _, a := range SymmetricAlgorithms() {
		out = append(out, a)
	}
	for _, a := range AsymmetricAlgorithms() {
		out = append(out, a)
	}
	return out
}

// LookupAlgorithm finds the catalog entry with the given transform name and
// key size.
func LookupAlgorithm(name string, keySize int) (Algorithm, bool) {
	for _, a := range Algorithms() {
		if a.Name() == name && a.KeySize() == keySize {
			return a, true
		}
	}
	return nil, false
}

// ParseAlgorithm resolves a short identifier such as "aes-256-ecb" or
// "rsa-2048-oaep-sha256". Matching is case insensitive.
func ParseAlgorithm(id string) (Algorithm, error) {
	for _, a := range Algorithms() {
		if strings.EqualFold(a.ID(), id) {
			return a, nil
		}
	}
	return nil, unsupportedAlgorithm(id)
}
