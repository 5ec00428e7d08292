package crypto

import (
	crand "crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_SealOpen(t *testing.T) {
	m := []byte("hello")

	secret := make([]byte, 32)
	n, err := crand.Read(secret)
	require.NoError(t, err)
	require.Equal(t, 32, n)

	ks, err := ExpandSeed(secret, NoteKeySize+NoteNonceSize)
	require.NoError(t, err)

	encKey := ks[:NoteKeySize]
	nonce := ks[NoteKeySize:]

	enc, err := SealNote(encKey, nonce, m, []byte("adata"))
	require.NoError(t, err)
	require.Len(t, enc, len(m)+NoteTagSize)

	dec, err := OpenNote(encKey, nonce, enc, []byte("adata"))
	require.NoError(t, err)
	require.Equal(t, m, dec)

	_, err = OpenNote(encKey, nonce, enc, []byte("bdata"))
	require.ErrorIs(t, err, ErrOpen)

	otherKey := make([]byte, NoteKeySize)
	_, err = OpenNote(otherKey, nonce, enc, []byte("adata"))
	require.ErrorIs(t, err, ErrOpen)

	_, err = SealNote(encKey[:16], nonce, m, nil)
	require.Error(t, err)
	_, err = SealNote(encKey, nonce[:8], m, nil)
	require.Error(t, err)
}
