package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nspcc-dev/ethmpt/pkg/core/mpt"
	"github.com/nspcc-dev/ethmpt/pkg/crypto/hash"
)

// SecureTrie wraps mpt.Trie hashing all keys with Keccak-256 before use. It's
// the form both account and storage tries take. Keys can't be recovered from
// the trie.
type SecureTrie struct {
	trie *mpt.Trie
}

// NewSecureTrie returns a SecureTrie with the specified root over the store.
func NewSecureTrie(root mpt.NodeRef, store mpt.NodeStore) *SecureTrie {
	return &SecureTrie{trie: mpt.NewTrie(root, store)}
}

// Get returns the value for the key, nil if it's missing.
func (t *SecureTrie) Get(key []byte) ([]byte, error) {
	return t.trie.Get(hash.Keccak256Bytes(key))
}

// Update associates value with the key, empty value deletes the key.
func (t *SecureTrie) Update(key, value []byte) error {
	_, err := t.trie.Insert(hash.Keccak256Bytes(key), value)
	return err
}

// Delete removes the key.
func (t *SecureTrie) Delete(key []byte) error {
	_, _, err := t.trie.Remove(hash.Keccak256Bytes(key))
	return err
}

// GetAccount returns the account stored for the address, nil if there is
// none.
func (t *SecureTrie) GetAccount(addr common.Address) (*Account, error) {
	data, err := t.Get(addr.Bytes())
	if err != nil || data == nil {
		return nil, err
	}
	return AccountFromBytes(data)
}

// UpdateAccount stores the account for the address.
func (t *SecureTrie) UpdateAccount(addr common.Address, acc *Account) error {
	data, err := acc.Bytes()
	if err != nil {
		return fmt.Errorf("failed to encode account %s: %w", addr, err)
	}
	return t.Update(addr.Bytes(), data)
}

// DeleteAccount removes the account for the address.
func (t *SecureTrie) DeleteAccount(addr common.Address) error {
	return t.Delete(addr.Bytes())
}

// GetStorage returns the value of the storage slot, zero for missing slots.
func (t *SecureTrie) GetStorage(slot common.Hash) (common.Hash, error) {
	data, err := t.Get(slot.Bytes())
	if err != nil || data == nil {
		return common.Hash{}, err
	}
	_, content, _, err := rlp.Split(data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid storage value: %w", err)
	}
	return common.BytesToHash(content), nil
}

// UpdateStorage sets the storage slot, zero value deletes it. Values are
// stored RLP-encoded without leading zeroes.
func (t *SecureTrie) UpdateStorage(slot, value common.Hash) error {
	if value == (common.Hash{}) {
		return t.Delete(slot.Bytes())
	}
	data, err := rlp.EncodeToBytes(common.TrimLeftZeroes(value.Bytes()))
	if err != nil {
		return err
	}
	return t.Update(slot.Bytes(), data)
}

// Hash returns the root hash of the trie.
func (t *SecureTrie) Hash() (common.Hash, error) {
	return t.trie.Hash()
}

// Commit hashes the trie and flushes the store if needed.
func (t *SecureTrie) Commit() (common.Hash, error) {
	return t.trie.Commit()
}

// Root returns the current root reference.
func (t *SecureTrie) Root() mpt.NodeRef {
	return t.trie.Root()
}
