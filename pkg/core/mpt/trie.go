package mpt

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// EmptyRootHash is the root hash of an empty trie, Keccak-256 of RLP("").
var EmptyRootHash = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

var (
	// ErrKeyTooLong is returned on an attempt to insert a key longer
	// than MaxKeyLength.
	ErrKeyTooLong = errors.New("key is too big")
	// ErrValueTooLong is returned on an attempt to insert a value longer
	// than MaxValueLength.
	ErrValueTooLong = errors.New("value is too big")
)

// Trie is an MPT trie storing all key-value pairs. Every mutation creates a
// new root, nodes of previous roots are left intact in the NodeStore, so
// older versions can still be read via NewTrie. Trie itself is not safe for
// concurrent use.
type Trie struct {
	store NodeStore
	root  NodeRef
}

// NewTrie returns a trie with the specified root over the store, EmptyRef
// means empty trie.
func NewTrie(root NodeRef, store NodeStore) *Trie {
	return &Trie{
		store: store,
		root:  root,
	}
}

// Root returns the reference to the current root node.
func (t *Trie) Root() NodeRef {
	return t.root
}

// Get returns value for the provided key in t, it's nil if there is no
// such key.
func (t *Trie) Get(key []byte) ([]byte, error) {
	if t.root.IsEmpty() {
		return nil, nil
	}
	root, err := t.store.GetNode(t.root)
	if err != nil {
		return nil, err
	}
	val, err := root.get(t.store, NewNibblePath(key))
	if err != nil {
		return nil, err
	}
	return bytes.Clone(val), nil
}

// Insert puts key-value pair into t and returns the new root. Inserting an
// empty value removes the key.
func (t *Trie) Insert(key, value []byte) (NodeRef, error) {
	if len(key) > MaxKeyLength {
		return t.root, ErrKeyTooLong
	} else if len(value) > MaxValueLength {
		return t.root, ErrValueTooLong
	}
	if len(value) == 0 {
		root, _, err := t.Remove(key)
		return root, err
	}
	key, value = bytes.Clone(key), bytes.Clone(value)

	var n Node
	if t.root.IsEmpty() {
		n = NewLeafNode(key, value)
	} else {
		root, err := t.store.GetNode(t.root)
		if err != nil {
			return t.root, err
		}
		n, err = root.insert(t.store, NewNibblePath(key), value)
		if err != nil {
			return t.root, fmt.Errorf("failed to insert %x: %w", key, err)
		}
	}
	ref, err := putNode(t.store, n)
	if err != nil {
		return t.root, err
	}
	t.root = ref
	return ref, nil
}

// Remove deletes key from t and returns the new root together with the
// removed value. The value is nil and the root is unchanged if there was
// no such key.
func (t *Trie) Remove(key []byte) (NodeRef, []byte, error) {
	if t.root.IsEmpty() {
		return t.root, nil, nil
	}
	root, err := t.store.GetNode(t.root)
	if err != nil {
		return t.root, nil, err
	}
	n, removed, err := root.remove(t.store, NewNibblePath(key))
	if err != nil {
		return t.root, nil, fmt.Errorf("failed to remove %x: %w", key, err)
	}
	if removed == nil {
		return t.root, nil, nil
	}
	ref := EmptyRef
	if n != nil {
		ref, err = putNode(t.store, n)
		if err != nil {
			return t.root, nil, err
		}
	}
	t.root = ref
	return ref, bytes.Clone(removed), nil
}

// Hash returns the root hash of t. The root is always hashed even if its
// encoding is shorter than 32 bytes.
func (t *Trie) Hash() (common.Hash, error) {
	if t.root.IsEmpty() {
		return EmptyRootHash, nil
	}
	h, err := childHash(t.store, t.root, 0)
	if err != nil {
		return common.Hash{}, err
	}
	return h.Finalize(), nil
}

// Commit computes the root hash and flushes the store if it buffers nodes.
func (t *Trie) Commit() (common.Hash, error) {
	h, err := t.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	if c, ok := t.store.(Committer); ok {
		if err := c.Commit(t.root); err != nil {
			return common.Hash{}, err
		}
	}
	trieCommits.Inc()
	return h, nil
}
