package mpt

import (
	"github.com/nspcc-dev/ethmpt/pkg/io"
)

const (
	// childrenCount represents the number of children of a branch node.
	childrenCount = 16
	// lastChild is the index of the last child.
	lastChild = childrenCount - 1
)

// BranchNode represents MPT's branch node. It may also hold a value for the
// key that ends exactly at this node.
type BranchNode struct {
	children [childrenCount]NodeRef
	key      []byte
	value    []byte
	cache    hashCell
}

var _ Node = (*BranchNode)(nil)

// NewBranchNode returns a new branch node without children and value.
func NewBranchNode() *BranchNode {
	return new(BranchNode)
}

// Type implements Node interface.
func (b *BranchNode) Type() NodeType { return BranchT }

// Child returns the reference to the i-th child.
func (b *BranchNode) Child(i byte) NodeRef { return b.children[i] }

// Key returns the full key of the value stored in the node (if any).
func (b *BranchNode) Key() []byte { return b.key }

// Value returns the value stored in the node, nil if there is none.
func (b *BranchNode) Value() []byte { return b.value }

func (b *BranchNode) hasValue() bool { return len(b.value) != 0 }

// Clone implements Node interface.
func (b *BranchNode) Clone() Node {
	return &BranchNode{children: b.children, key: b.key, value: b.value}
}

// ComputeHash implements Node interface.
func (b *BranchNode) ComputeHash(s NodeStore, offset int) (NodeHash, error) {
	if h, ok := b.cache.get(); ok {
		return h, nil
	}
	items := make([]any, childrenCount+1)
	for i, ref := range b.children {
		if ref.IsEmpty() {
			items[i] = []byte{}
			continue
		}
		h, err := childHash(s, ref, offset+1)
		if err != nil {
			return nil, err
		}
		items[i] = h.asChild()
	}
	items[childrenCount] = b.value
	return b.cache.encodeHash(items)
}

func (b *BranchNode) get(s NodeStore, path NibblePath) ([]byte, error) {
	nb, ok := path.Next()
	if !ok {
		if b.hasValue() {
			return b.value, nil
		}
		return nil, nil
	}
	if b.children[nb].IsEmpty() {
		return nil, nil
	}
	child, err := s.GetNode(b.children[nb])
	if err != nil {
		return nil, err
	}
	return child.get(s, path)
}

func (b *BranchNode) insert(s NodeStore, path NibblePath, value []byte) (Node, error) {
	res := b.Clone().(*BranchNode)
	nb, ok := path.Next()
	if !ok {
		res.key, res.value = path.Data(), value
		return res, nil
	}

	var newChild Node
	if b.children[nb].IsEmpty() {
		newChild = NewLeafNode(path.Data(), value)
	} else {
		child, err := s.GetNode(b.children[nb])
		if err != nil {
			return nil, err
		}
		newChild, err = child.insert(s, path, value)
		if err != nil {
			return nil, err
		}
	}
	ref, err := putNode(s, newChild)
	if err != nil {
		return nil, err
	}
	res.children[nb] = ref
	return res, nil
}

func (b *BranchNode) remove(s NodeStore, path NibblePath) (Node, []byte, error) {
	var (
		res     *BranchNode
		removed []byte
	)
	nb, ok := path.Next()
	if !ok {
		if !b.hasValue() {
			return b, nil, nil
		}
		removed = b.value
		res = b.Clone().(*BranchNode)
		res.key, res.value = nil, nil
	} else {
		if b.children[nb].IsEmpty() {
			return b, nil, nil
		}
		child, err := s.GetNode(b.children[nb])
		if err != nil {
			return nil, nil, err
		}
		var newChild Node
		newChild, removed, err = child.remove(s, path)
		if err != nil {
			return nil, nil, err
		}
		if removed == nil {
			return b, nil, nil
		}
		res = b.Clone().(*BranchNode)
		res.children[nb] = EmptyRef
		if newChild != nil {
			res.children[nb], err = putNode(s, newChild)
			if err != nil {
				return nil, nil, err
			}
		}
	}
	n, err := res.collapse(s)
	if err != nil {
		return nil, nil, err
	}
	return n, removed, nil
}

// collapse turns a branch that is left with a single child and no value or
// with a value only into an equivalent canonical node.
func (b *BranchNode) collapse(s NodeStore) (Node, error) {
	var (
		idx   int
		count int
	)
	for i, ref := range b.children {
		if !ref.IsEmpty() {
			idx = i
			count++
		}
	}
	switch {
	case count == 0 && !b.hasValue():
		panic("invalid branch shape")
	case count == 0:
		return NewLeafNode(b.key, b.value), nil
	case count == 1 && !b.hasValue():
		child, err := s.GetNode(b.children[idx])
		if err != nil {
			return nil, err
		}
		switch c := child.(type) {
		case *LeafNode:
			return c.Clone(), nil
		case *ExtensionNode:
			return NewExtensionNode(concatNibbles(Nibbles{byte(idx)}, c.prefix), c.child), nil
		default:
			return NewExtensionNode(Nibbles{byte(idx)}, b.children[idx]), nil
		}
	}
	return b, nil
}

// EncodeBinary implements io.Serializable.
func (b *BranchNode) EncodeBinary(w *io.BinWriter) {
	for i := range b.children {
		w.WriteVarUint(uint64(b.children[i]))
	}
	w.WriteVarBytes(b.key)
	w.WriteVarBytes(b.value)
}

// DecodeBinary implements io.Serializable.
func (b *BranchNode) DecodeBinary(r *io.BinReader) {
	for i := range b.children {
		b.children[i] = NodeRef(r.ReadVarUint())
	}
	b.key = r.ReadVarBytes(MaxKeyLength)
	b.value = r.ReadVarBytes(MaxValueLength)
	if len(b.value) == 0 {
		b.key, b.value = nil, nil
	}
	b.cache.invalidate()
}
