package valgoutil

import (
	"os"

	"github.com/cohesivestack/valgo"

	"github.com/joshjon/cryptkit/encrypt"
)

// AlgorithmValidator checks that id names an entry of the encryption
// algorithm catalog, e.g. "aes-256-gcm".
func AlgorithmValidator(id string, nameAndTitle ...string) valgo.Validator {
	return valgo.String(id, nameAndTitle...).Passing(func(id string) bool {
		_, err := encrypt.ParseAlgorithm(id)
		return err == nil
	}, "must be a supported algorithm such as 'aes-256-gcm' or 'rsa-2048-oaep-sha256'")
}

// DirValidator checks that path is an existing directory.
func DirValidator(path string, nameAndTitle ...string) valgo.Validator {
	return valgo.String(path, nameAndTitle...).Passing(func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	}, "must be an existing directory")
}

// FileValidator checks that path is an existing regular file.
func FileValidator(path string, nameAndTitle ...string) valgo.Validator {
	return valgo.String(path, nameAndTitle...).Passing(func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && info.Mode().IsRegular()
	}, "must be an existing file")
}
