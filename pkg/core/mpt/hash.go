package mpt

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nspcc-dev/ethmpt/pkg/crypto/hash"
)

// NodeHash is a node reference as it's embedded into the parent's encoding.
// Encodings shorter than 32 bytes are kept as is, longer ones are replaced
// by their Keccak-256 digest.
type NodeHash []byte

// newNodeHash turns node's RLP encoding into its NodeHash.
func newNodeHash(enc []byte) NodeHash {
	if len(enc) < common.HashLength {
		return NodeHash(enc)
	}
	return NodeHash(hash.Keccak256Bytes(enc))
}

// IsInline tells whether h is the node encoding itself rather than a digest.
func (h NodeHash) IsInline() bool {
	return len(h) < common.HashLength
}

// Finalize returns a 32-byte digest, inline encodings are hashed.
func (h NodeHash) Finalize() common.Hash {
	if h.IsInline() {
		return hash.Keccak256(h)
	}
	return common.BytesToHash(h)
}

// asChild returns an RLP item for this reference in the parent's list.
func (h NodeHash) asChild() any {
	if h.IsInline() {
		return rlp.RawValue(h)
	}
	return []byte(h)
}

// hashCell caches node's NodeHash. Zero value is dirty. Stored nodes are
// shared between trie versions, so the cell may be filled concurrently; all
// writers store the same value.
type hashCell struct {
	hash atomic.Pointer[NodeHash]
}

func (c *hashCell) get() (NodeHash, bool) {
	h := c.hash.Load()
	if h == nil {
		return nil, false
	}
	return *h, true
}

func (c *hashCell) set(h NodeHash) {
	c.hash.Store(&h)
}

func (c *hashCell) invalidate() {
	c.hash.Store(nil)
}

// encodeHash encodes RLP items and caches the result in c.
func (c *hashCell) encodeHash(items []any) (NodeHash, error) {
	enc, err := rlp.EncodeToBytes(items)
	if err != nil {
		return nil, err
	}
	h := newNodeHash(enc)
	c.set(h)
	return h, nil
}

// childHash computes the NodeHash of the node referenced by ref which sits
// at the given nibble offset.
func childHash(s NodeStore, ref NodeRef, offset int) (NodeHash, error) {
	n, err := s.GetNode(ref)
	if err != nil {
		return nil, err
	}
	return n.ComputeHash(s, offset)
}
