// Package crypt implements the passphrase-based encryption used for
// sensitive configuration values (tokens, mail passwords).
//
// Keys are derived with PBKDF2 (SHA-256, 100k iterations) from a
// user-supplied passphrase and a random salt that is persisted next to the
// config file. The actual encryption uses AES-256 in GCM mode with a random
// nonce prepended to the ciphertext.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"io/ioutil"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 16
	keyLength  = 32
	kdfRounds  = 100000
)

// Crypter encrypts and decrypts small payloads with a passphrase-derived key.
type Crypter struct {
	salt []byte
}

// NewCrypter creates a Crypter with the given salt.
func NewCrypter(salt []byte) (*Crypter, error) {
	if len(salt) != saltLength {
		return nil, eris.Errorf("expected a %d byte salt but got %d bytes", saltLength, len(salt))
	}

	return &Crypter{salt: salt}, nil
}

// NewFileCrypter reads the salt from the given file. If the file doesn't
// exist, a new random salt is generated and written there.
func NewFileCrypter(saltPath string) (*Crypter, error) {
	salt, err := ioutil.ReadFile(saltPath)
	if err != nil {
		if !eris.Is(err, os.ErrNotExist) {
			return nil, eris.Wrapf(err, "failed to read salt file %s", saltPath)
		}

		salt = make([]byte, saltLength)
		_, err = rand.Read(salt)
		if err != nil {
			return nil, eris.Wrap(err, "failed to generate salt")
		}

		err = ioutil.WriteFile(saltPath, salt, 0600)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to write salt file %s", saltPath)
		}
	}

	return NewCrypter(salt)
}

func (c *Crypter) newCipher(passphrase string) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), c.salt, kdfRounds, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, eris.Wrap(err, "failed to initialize cipher")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, eris.Wrap(err, "failed to initialize GCM")
	}

	return aead, nil
}

// Encrypt encrypts content with a key derived from passphrase.
func (c *Crypter) Encrypt(content []byte, passphrase string) ([]byte, error) {
	aead, err := c.newCipher(passphrase)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	_, err = io.ReadFull(rand.Reader, nonce)
	if err != nil {
		return nil, eris.Wrap(err, "failed to generate nonce")
	}

	return aead.Seal(nonce, nonce, content, nil), nil
}

// Decrypt decrypts content that was produced by Encrypt with the same
// passphrase and salt.
func (c *Crypter) Decrypt(content []byte, passphrase string) ([]byte, error) {
	aead, err := c.newCipher(passphrase)
	if err != nil {
		return nil, err
	}

	if len(content) < aead.NonceSize() {
		return nil, eris.New("content is too short to contain a nonce")
	}

	nonce := content[:aead.NonceSize()]
	plain, err := aead.Open(nil, nonce, content[aead.NonceSize():], nil)
	if err != nil {
		return nil, eris.Wrap(err, "decryption failed (wrong passphrase?)")
	}

	return plain, nil
}
