package mpt

import (
	"errors"

	"github.com/nspcc-dev/ethmpt/pkg/io"
)

// maxPathLength is the max length of the extension node prefix in nibbles.
const maxPathLength = 2 * MaxKeyLength

// ExtensionNode represents MPT's extension node. It compresses a chain of
// single-child branches into a nibble prefix leading to the child (which is
// always a branch in a canonical trie).
type ExtensionNode struct {
	prefix Nibbles
	child  NodeRef
	cache  hashCell
}

var _ Node = (*ExtensionNode)(nil)

// NewExtensionNode returns extension node with the specified prefix and child.
// The prefix must not be empty.
func NewExtensionNode(prefix Nibbles, child NodeRef) *ExtensionNode {
	return &ExtensionNode{prefix: prefix, child: child}
}

// Type implements Node interface.
func (n *ExtensionNode) Type() NodeType { return ExtensionT }

// Prefix returns extension's nibble prefix.
func (n *ExtensionNode) Prefix() Nibbles { return n.prefix }

// Child returns the reference to the node below the prefix.
func (n *ExtensionNode) Child() NodeRef { return n.child }

// Clone implements Node interface.
func (n *ExtensionNode) Clone() Node {
	return &ExtensionNode{prefix: n.prefix, child: n.child}
}

// ComputeHash implements Node interface.
func (n *ExtensionNode) ComputeHash(s NodeStore, offset int) (NodeHash, error) {
	if h, ok := n.cache.get(); ok {
		return h, nil
	}
	ch, err := childHash(s, n.child, offset+len(n.prefix))
	if err != nil {
		return nil, err
	}
	return n.cache.encodeHash([]any{compactEncode(n.prefix, false), ch.asChild()})
}

func (n *ExtensionNode) get(s NodeStore, path NibblePath) ([]byte, error) {
	if path.CountPrefixNibbles(n.prefix) != len(n.prefix) {
		return nil, nil
	}
	child, err := s.GetNode(n.child)
	if err != nil {
		return nil, err
	}
	path.OffsetAdd(len(n.prefix))
	return child.get(s, path)
}

func (n *ExtensionNode) insert(s NodeStore, path NibblePath, value []byte) (Node, error) {
	match := path.CountPrefixNibbles(n.prefix)
	if match == len(n.prefix) {
		child, err := s.GetNode(n.child)
		if err != nil {
			return nil, err
		}
		path.OffsetAdd(match)
		newChild, err := child.insert(s, path, value)
		if err != nil {
			return nil, err
		}
		ref, err := putNode(s, newChild)
		if err != nil {
			return nil, err
		}
		res := n.Clone().(*ExtensionNode)
		res.child = ref
		return res, nil
	}

	var (
		b      = NewBranchNode()
		oldRef = n.child
		err    error
	)
	if match+1 < len(n.prefix) {
		oldRef, err = putNode(s, NewExtensionNode(n.prefix[match+1:], n.child))
		if err != nil {
			return nil, err
		}
	}
	b.children[n.prefix[match]] = oldRef

	path.OffsetAdd(match)
	if nb, ok := path.Nth(0); ok {
		ref, err := putNode(s, NewLeafNode(path.Data(), value))
		if err != nil {
			return nil, err
		}
		b.children[nb] = ref
	} else {
		b.key, b.value = path.Data(), value
	}
	if match == 0 {
		return b, nil
	}
	ref, err := putNode(s, b)
	if err != nil {
		return nil, err
	}
	return NewExtensionNode(n.prefix[:match], ref), nil
}

func (n *ExtensionNode) remove(s NodeStore, path NibblePath) (Node, []byte, error) {
	if path.CountPrefixNibbles(n.prefix) != len(n.prefix) {
		return n, nil, nil
	}
	child, err := s.GetNode(n.child)
	if err != nil {
		return nil, nil, err
	}
	path.OffsetAdd(len(n.prefix))
	newChild, removed, err := child.remove(s, path)
	if err != nil {
		return nil, nil, err
	}
	if removed == nil {
		return n, nil, nil
	}
	switch c := newChild.(type) {
	case nil:
		return nil, removed, nil
	case *ExtensionNode:
		return NewExtensionNode(concatNibbles(n.prefix, c.prefix), c.child), removed, nil
	case *LeafNode:
		return c.Clone(), removed, nil
	default:
		ref, err := putNode(s, c)
		if err != nil {
			return nil, nil, err
		}
		res := n.Clone().(*ExtensionNode)
		res.child = ref
		return res, removed, nil
	}
}

// concatNibbles returns a freshly allocated a||b.
func concatNibbles(a, b Nibbles) Nibbles {
	res := make(Nibbles, 0, len(a)+len(b))
	res = append(res, a...)
	return append(res, b...)
}

// EncodeBinary implements io.Serializable.
func (n *ExtensionNode) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(n.prefix)
	w.WriteVarUint(uint64(n.child))
}

// DecodeBinary implements io.Serializable.
func (n *ExtensionNode) DecodeBinary(r *io.BinReader) {
	n.prefix = r.ReadVarBytes(maxPathLength)
	n.child = NodeRef(r.ReadVarUint())
	if r.Err == nil && (len(n.prefix) == 0 || n.child.IsEmpty()) {
		r.Err = errors.New("invalid extension node")
	}
	n.cache.invalidate()
}
