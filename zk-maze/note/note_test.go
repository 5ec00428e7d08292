package note

import (
	crand "crypto/rand"
	"testing"

	"github.com/kysee/maze/utils"
	"github.com/kysee/maze/zk-maze/crypto"
	"github.com/kysee/maze/zk-maze/types"
	"github.com/stretchr/testify/require"
)

var (
	testSig   = []byte("deterministic wallet signature over the pool message")
	testVault = types.PubKey{0xaa, 0xbb}
)

func TestDeriveKeysDeterministic(t *testing.T) {
	k0, err := DeriveKeys(testSig, testVault, 3)
	require.NoError(t, err)
	k1, err := DeriveKeys(testSig, testVault, 3)
	require.NoError(t, err)
	require.Equal(t, k0, k1)
	require.False(t, k0.SpendingKey.IsZero())

	_, err = DeriveKeys(nil, testVault, 0)
	require.ErrorIs(t, err, types.ErrMalformedInput)
}

func TestDeriveKeysDistinct(t *testing.T) {
	keys, err := DeriveKeyRange(testSig, testVault, 16)
	require.NoError(t, err)
	require.Len(t, keys, 16)

	other, err := DeriveKeyRange(testSig, types.PubKey{0xcc}, 16)
	require.NoError(t, err)

	spend := make(map[string]bool)
	view := make(map[[32]byte]bool)
	locs := make(map[types.PubKey]bool)
	for _, k := range append(keys, other...) {
		spend[k.SpendingKey.String()] = true
		view[k.ViewingKey] = true
		locs[k.Locator] = true
	}
	require.Len(t, spend, 32)
	require.Len(t, view, 32)
	require.Len(t, locs, 32)

	single, err := DeriveKeys(testSig, testVault, 7)
	require.NoError(t, err)
	require.Equal(t, keys[7], single)

	otherSig, err := DeriveKeys([]byte("another signature"), testVault, 7)
	require.NoError(t, err)
	require.NotEqual(t, single.SpendingKey, otherSig.SpendingKey)
}

func TestNoteCodecRoundTrip(t *testing.T) {
	keys, err := DeriveKeys(testSig, testVault, 0)
	require.NoError(t, err)
	blinding, err := NewBlinding(crand.Reader)
	require.NoError(t, err)

	n := New(utils.HasherMiMC, keys, 5, 1_000_000, blinding)
	raw, err := EncodeNote(keys.ViewingKey, testVault, n, crand.Reader)
	require.NoError(t, err)

	parsed, err := ParseNote(keys.ViewingKey, testVault, raw)
	require.NoError(t, err)
	require.Equal(t, n, parsed)
	require.Equal(t, n.Commitment(utils.HasherMiMC), parsed.Commitment(utils.HasherMiMC))
	require.Equal(t, OwnerOf(utils.HasherMiMC, keys.SpendingKey), parsed.Owner)

	// zero amount change notes are valid notes
	zero := New(utils.HasherMiMC, keys, 6, 0, blinding)
	raw, err = EncodeNote(keys.ViewingKey, testVault, zero, crand.Reader)
	require.NoError(t, err)
	parsed, err = ParseNote(keys.ViewingKey, testVault, raw)
	require.NoError(t, err)
	require.Equal(t, uint64(0), parsed.Amount)
}

func TestParseNoteFailures(t *testing.T) {
	keys, err := DeriveKeys(testSig, testVault, 0)
	require.NoError(t, err)
	otherKeys, err := DeriveKeys(testSig, testVault, 1)
	require.NoError(t, err)
	blinding, err := NewBlinding(crand.Reader)
	require.NoError(t, err)

	raw, err := EncodeNote(keys.ViewingKey, testVault, New(utils.HasherMiMC, keys, 2, 10, blinding), crand.Reader)
	require.NoError(t, err)

	_, err = ParseNote(otherKeys.ViewingKey, testVault, raw)
	require.ErrorIs(t, err, types.ErrDecryptionFailure)

	_, err = ParseNote(keys.ViewingKey, types.PubKey{1}, raw)
	require.ErrorIs(t, err, types.ErrDecryptionFailure)

	// the header index is authenticated
	moved := append([]byte{}, raw...)
	moved[1] = 3
	_, err = ParseNote(keys.ViewingKey, testVault, moved)
	require.ErrorIs(t, err, types.ErrDecryptionFailure)

	_, err = ParseNote(keys.ViewingKey, testVault, raw[:headerLen])
	require.ErrorIs(t, err, types.ErrMalformedNote)
	require.ErrorIs(t, err, types.ErrMalformedInput)

	badVer := append([]byte{}, raw...)
	badVer[0] = 9
	_, err = ParseNote(keys.ViewingKey, testVault, badVer)
	require.ErrorIs(t, err, types.ErrMalformedNote)
}

func sealRaw(viewingKey [32]byte, vault types.PubKey, index uint64, nonce, pt []byte) ([]byte, error) {
	return crypto.SealNote(viewingKey[:], nonce, pt, aad(vault, index))
}

func TestParseNoteBadPlaintext(t *testing.T) {
	keys, err := DeriveKeys(testSig, testVault, 0)
	require.NoError(t, err)

	var nonce [12]byte
	raw := []byte{Version, 0, 0, 0, 0, 0, 0, 0, 0}
	raw = append(raw, nonce[:]...)

	sealed, err := sealRaw(keys.ViewingKey, testVault, 0, nonce[:], []byte{0xc0})
	require.NoError(t, err)
	_, err = ParseNote(keys.ViewingKey, testVault, append(raw, sealed...))
	require.ErrorIs(t, err, types.ErrMalformedNote)
}

func TestNullifier(t *testing.T) {
	keys, err := DeriveKeys(testSig, testVault, 0)
	require.NoError(t, err)

	nf0 := DeriveNullifier(utils.HasherMiMC, keys.SpendingKey, 5)
	nf1 := DeriveNullifier(utils.HasherMiMC, keys.SpendingKey, 5)
	require.Equal(t, nf0, nf1)
	require.Equal(t, nf0.LedgerKey(), nf1.LedgerKey())

	require.NotEqual(t, nf0, DeriveNullifier(utils.HasherMiMC, keys.SpendingKey, 6))
	require.NotEqual(t, nf0, DeriveNullifier(utils.HasherPoseidon2, keys.SpendingKey, 5))

	other, err := DeriveKeys(testSig, testVault, 1)
	require.NoError(t, err)
	require.NotEqual(t, nf0, DeriveNullifier(utils.HasherMiMC, other.SpendingKey, 5))

	require.NotEqual(t, NullifierAddress(testVault, nf0), NullifierAddress(types.PubKey{1}, nf0))
}

func TestNullifierAccount(t *testing.T) {
	used, err := DecodeNullifierAccount(nil)
	require.NoError(t, err)
	require.False(t, used)

	used, err = DecodeNullifierAccount(EncodeNullifierAccount(types.PubKey{1}))
	require.NoError(t, err)
	require.True(t, used)

	_, err = DecodeNullifierAccount([]byte{1, 1})
	require.ErrorIs(t, err, types.ErrMalformedAccount)
}
