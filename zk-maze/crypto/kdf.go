package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2s"
)

// Seed compresses a wallet signature into the 32-byte root of all note keys.
// The signature never leaves the caller; only this digest is used as PRF key.
func Seed(sig []byte) [32]byte {
	return blake2s.Sum256(sig)
}

// PRF is a keyed BLAKE2s-256 over a domain tag followed by the given parts.
// Each part is length-prefixed so that (a, bc) and (ab, c) never collide.
func PRF(key []byte, tag string, parts ...[]byte) ([32]byte, error) {
	var ret [32]byte
	h, err := blake2s.New256(key)
	if err != nil {
		return ret, fmt.Errorf("failed to create blake2s hash: %w", err)
	}
	writePart(h, []byte(tag))
	for _, p := range parts {
		writePart(h, p)
	}
	copy(ret[:], h.Sum(nil))
	return ret, nil
}

func writePart(h interface{ Write([]byte) (int, error) }, p []byte) {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(p)))
	_, _ = h.Write(l[:])
	_, _ = h.Write(p)
}

// DeriveAddress computes a ledger account key from a domain tag and its seeds.
func DeriveAddress(tag string, parts ...[]byte) [32]byte {
	ret, err := PRF(nil, tag, parts...)
	if err != nil {
		// an unkeyed blake2s never fails
		panic(err)
	}
	return ret
}

// expandKey keys the BLAKE2s MAC used by ExpandSeed, separating it from every other use.
const expandKey = "Maze_ExpandSeed"

// ExpandSeed stretches a 32-byte secret into outputLen bytes:
// block_i = BLAKE2s-MAC(expandKey, secret || i) with the counter starting at 1.
func ExpandSeed(secret []byte, outputLen int) ([]byte, error) {
	if len(secret) != 32 {
		return nil, fmt.Errorf("secret must be 32 bytes")
	}

	var keyStream []byte
	var counter byte = 1
	for len(keyStream) < outputLen {
		h, err := blake2s.New256([]byte(expandKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create blake2s hash: %w", err)
		}
		h.Write(secret)
		h.Write([]byte{counter})
		keyStream = append(keyStream, h.Sum(nil)...)

		counter++
		if counter == 0 {
			return nil, errors.New("KDF counter overflow")
		}
	}
	return keyStream[:outputLen], nil
}
