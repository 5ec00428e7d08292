package crypto

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	NoteKeySize   = chacha20poly1305.KeySize
	NoteNonceSize = chacha20poly1305.NonceSize
	NoteTagSize   = chacha20poly1305.Overhead
)

// ErrOpen is returned when a ciphertext does not authenticate under the given key and data.
var ErrOpen = errors.New("chacha20poly1305: message authentication failed")

// SealNote encrypts a note plaintext with ChaCha20-Poly1305.
//
// Parameters:
//   - key: the 32-byte viewing key of the note.
//   - nonce: a 12-byte nonce, unique per encryption under the same key.
//   - plaintext: the serialized note.
//   - additionalData: authenticated but not encrypted. Binds the ciphertext to its vault and leaf.
//
// Returns the ciphertext including the authentication tag.
func SealNote(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	aead, err := newAEAD(key, nonce)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// OpenNote reverses SealNote. A wrong key, nonce, or additional data yields ErrOpen.
func OpenNote(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	aead, err := newAEAD(key, nonce)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}

func newAEAD(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != NoteKeySize {
		return nil, fmt.Errorf("invalid key size: must be %d bytes", NoteKeySize)
	}
	if len(nonce) != NoteNonceSize {
		return nil, fmt.Errorf("invalid nonce size: must be %d bytes", NoteNonceSize)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 AEAD: %w", err)
	}
	return aead, nil
}
