package valgoutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cohesivestack/valgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgorithmValidator(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{id: "aes-256-ecb", valid: true},
		{id: "RSA-3072-OAEP-SHA1", valid: true},
		{id: "aes-512-ecb", valid: false},
		{id: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.valid, valgo.Is(AlgorithmValidator(tt.id, "algorithm")).Valid())
		})
	}
}

func TestDirValidator(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, valgo.Is(DirValidator(dir, "dir")).Valid())
	assert.False(t, valgo.Is(DirValidator(filepath.Join(dir, "missing"), "dir")).Valid())
}

func TestFileValidator(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	assert.True(t, valgo.Is(FileValidator(file, "key")).Valid())
	assert.False(t, valgo.Is(FileValidator(dir, "key")).Valid())
	assert.False(t, valgo.Is(FileValidator(filepath.Join(dir, "missing.pem"), "key")).Valid())
}
