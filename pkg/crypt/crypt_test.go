package crypt

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSalt = bytes.Repeat([]byte{42}, saltLength)

func TestNewCrypterRejectsBadSalts(t *testing.T) {
	_, err := NewCrypter([]byte("short"))
	assert.Error(t, err)

	_, err = NewCrypter(testSalt)
	assert.NoError(t, err)
}

func TestEncryptRoundTrip(t *testing.T) {
	crypter, err := NewCrypter(testSalt)
	require.NoError(t, err)

	encrypted, err := crypter.Encrypt([]byte("ghp_secrettoken"), "hunter2")
	require.NoError(t, err)
	assert.NotContains(t, string(encrypted), "secrettoken")

	decrypted, err := crypter.Decrypt(encrypted, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "ghp_secrettoken", string(decrypted))
}

func TestDecryptRejectsWrongPassphrase(t *testing.T) {
	crypter, err := NewCrypter(testSalt)
	require.NoError(t, err)

	encrypted, err := crypter.Encrypt([]byte("secret"), "hunter2")
	require.NoError(t, err)

	_, err = crypter.Decrypt(encrypted, "*******")
	assert.Error(t, err)
}

func TestDecryptRejectsTruncatedContent(t *testing.T) {
	crypter, err := NewCrypter(testSalt)
	require.NoError(t, err)

	_, err = crypter.Decrypt([]byte{1, 2, 3}, "hunter2")
	assert.Error(t, err)
}

func TestEncryptUsesRandomNonces(t *testing.T) {
	crypter, err := NewCrypter(testSalt)
	require.NoError(t, err)

	first, err := crypter.Encrypt([]byte("secret"), "hunter2")
	require.NoError(t, err)
	second, err := crypter.Encrypt([]byte("secret"), "hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestNewFileCrypterPersistsSalt(t *testing.T) {
	saltPath := filepath.Join(t.TempDir(), "salt")

	first, err := NewFileCrypter(saltPath)
	require.NoError(t, err)

	salt, err := ioutil.ReadFile(saltPath)
	require.NoError(t, err)
	assert.Len(t, salt, saltLength)

	second, err := NewFileCrypter(saltPath)
	require.NoError(t, err)

	// Both instances share the salt, so they can decrypt each other's output.
	encrypted, err := first.Encrypt([]byte("secret"), "hunter2")
	require.NoError(t, err)

	decrypted, err := second.Decrypt(encrypted, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "secret", string(decrypted))
}
