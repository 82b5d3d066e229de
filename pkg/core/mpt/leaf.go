package mpt

import (
	"errors"

	"github.com/nspcc-dev/ethmpt/pkg/io"
)

// MaxKeyLength is the maximum length of a key in bytes.
const MaxKeyLength = 1024

// MaxValueLength is the maximum length of a value in bytes.
const MaxValueLength = io.MaxArraySize

// LeafNode represents MPT's leaf node. It keeps the full key, the part of it
// that is the node's own path depends on the depth the node sits at.
type LeafNode struct {
	key   []byte
	value []byte
	cache hashCell
}

var _ Node = (*LeafNode)(nil)

// NewLeafNode returns leaf node with the specified key and value.
func NewLeafNode(key, value []byte) *LeafNode {
	return &LeafNode{key: key, value: value}
}

// Type implements Node interface.
func (n *LeafNode) Type() NodeType { return LeafT }

// Key returns the full key of the leaf.
func (n *LeafNode) Key() []byte { return n.key }

// Value returns the value of the leaf.
func (n *LeafNode) Value() []byte { return n.value }

// Clone implements Node interface.
func (n *LeafNode) Clone() Node {
	return &LeafNode{key: n.key, value: n.value}
}

// ComputeHash implements Node interface.
func (n *LeafNode) ComputeHash(_ NodeStore, offset int) (NodeHash, error) {
	if h, ok := n.cache.get(); ok {
		return h, nil
	}
	path := newNibblePathAt(n.key, offset)
	return n.cache.encodeHash([]any{
		compactEncode(path.SplitToVec(path.Len()), true),
		n.value,
	})
}

func (n *LeafNode) get(_ NodeStore, path NibblePath) ([]byte, error) {
	if path.CmpRest(n.key) {
		return n.value, nil
	}
	return nil, nil
}

func (n *LeafNode) insert(s NodeStore, path NibblePath, value []byte) (Node, error) {
	if path.CmpRest(n.key) {
		res := n.Clone().(*LeafNode)
		res.value = value
		return res, nil
	}

	offset := path.CountPrefix(newNibblePathAt(n.key, path.Offset()))
	abs := path.Offset() + offset
	b := NewBranchNode()
	switch {
	case abs == 2*len(path.Data()):
		// New key ends at the fork, the old leaf goes one level down.
		ref, err := putNode(s, n.Clone())
		if err != nil {
			return nil, err
		}
		b.key, b.value = path.Data(), value
		b.children[nibbleAt(n.key, abs)] = ref
	case abs == 2*len(n.key):
		ref, err := putNode(s, NewLeafNode(path.Data(), value))
		if err != nil {
			return nil, err
		}
		b.key, b.value = n.key, n.value
		b.children[nibbleAt(path.Data(), abs)] = ref
	default:
		oldRef, err := putNode(s, n.Clone())
		if err != nil {
			return nil, err
		}
		newRef, err := putNode(s, NewLeafNode(path.Data(), value))
		if err != nil {
			return nil, err
		}
		b.children[nibbleAt(n.key, abs)] = oldRef
		b.children[nibbleAt(path.Data(), abs)] = newRef
	}
	if offset == 0 {
		return b, nil
	}
	ref, err := putNode(s, b)
	if err != nil {
		return nil, err
	}
	return NewExtensionNode(path.SplitToVec(offset), ref), nil
}

func (n *LeafNode) remove(_ NodeStore, path NibblePath) (Node, []byte, error) {
	if path.CmpRest(n.key) {
		return nil, n.value, nil
	}
	return n, nil, nil
}

// EncodeBinary implements io.Serializable.
func (n *LeafNode) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(n.key)
	w.WriteVarBytes(n.value)
}

// DecodeBinary implements io.Serializable.
func (n *LeafNode) DecodeBinary(r *io.BinReader) {
	n.key = r.ReadVarBytes(MaxKeyLength)
	n.value = r.ReadVarBytes(MaxValueLength)
	if r.Err == nil && len(n.value) == 0 {
		r.Err = errors.New("leaf node with empty value")
	}
	n.cache.invalidate()
}
