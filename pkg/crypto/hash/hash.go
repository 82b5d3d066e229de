package hash

import (
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Keccak256 returns the Keccak-256 digest of the concatenated data. It's the
// original Keccak padding used by Ethereum, not the standardized SHA3-256.
func Keccak256(data ...[]byte) common.Hash {
	var h common.Hash
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	d.Sum(h[:0])
	return h
}

// Keccak256Bytes is the same as Keccak256, but returns a byte slice.
func Keccak256Bytes(data ...[]byte) []byte {
	h := Keccak256(data...)
	return h[:]
}
