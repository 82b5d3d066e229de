package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/ethmpt/pkg/core/mpt"
	"github.com/nspcc-dev/ethmpt/pkg/crypto/hash"
)

// EmptyCodeHash is the code hash of an account without code.
var EmptyCodeHash = hash.Keccak256(nil)

// Account is an account record stored in the account trie.
type Account struct {
	Nonce   uint64
	Balance *uint256.Int
	// Root is the root hash of the account's storage trie.
	Root     common.Hash
	CodeHash []byte
}

// NewAccount returns an account without balance, storage and code.
func NewAccount() *Account {
	return &Account{
		Balance:  new(uint256.Int),
		Root:     mpt.EmptyRootHash,
		CodeHash: EmptyCodeHash.Bytes(),
	}
}

// Bytes returns RLP encoding of the account.
func (a *Account) Bytes() ([]byte, error) {
	return rlp.EncodeToBytes(a)
}

// AccountFromBytes decodes RLP-encoded account.
func AccountFromBytes(data []byte) (*Account, error) {
	a := new(Account)
	if err := rlp.DecodeBytes(data, a); err != nil {
		return nil, fmt.Errorf("invalid account: %w", err)
	}
	return a, nil
}
