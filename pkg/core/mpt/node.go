package mpt

import (
	"fmt"

	"github.com/nspcc-dev/ethmpt/pkg/io"
)

// NodeType represents node type.
type NodeType byte

// Node types definitions.
const (
	BranchT    NodeType = 0x00
	ExtensionT NodeType = 0x01
	LeafT      NodeType = 0x03
)

// NodeRef is a handle of a node in the NodeStore.
type NodeRef uint64

// EmptyRef refers to no node at all, it's used for missing children and for
// the root of an empty trie.
const EmptyRef NodeRef = 0

// IsEmpty checks whether r is EmptyRef.
func (r NodeRef) IsEmpty() bool { return r == EmptyRef }

// Node represents common interface of all MPT nodes. Nodes put into the
// NodeStore are never modified, every mutation returns a new node (or a
// modified clone).
type Node interface {
	io.Serializable
	Type() NodeType
	// ComputeHash returns node's NodeHash given that its path starts at
	// the specified nibble offset of the key.
	ComputeHash(s NodeStore, offset int) (NodeHash, error)
	// Clone returns a shallow copy of the node with an invalidated hash.
	Clone() Node

	get(s NodeStore, path NibblePath) ([]byte, error)
	insert(s NodeStore, path NibblePath, value []byte) (Node, error)
	remove(s NodeStore, path NibblePath) (Node, []byte, error)
}

// NodeObject represents Node together with its type.
// It is used for serialization/deserialization where type info
// is also expected.
type NodeObject struct {
	Node
}

// EncodeBinary implements io.Serializable.
func (n NodeObject) EncodeBinary(w *io.BinWriter) {
	encodeNodeWithType(n.Node, w)
}

// DecodeBinary implements io.Serializable.
func (n *NodeObject) DecodeBinary(r *io.BinReader) {
	typ := NodeType(r.ReadB())
	if r.Err != nil {
		return
	}
	switch typ {
	case BranchT:
		n.Node = new(BranchNode)
	case ExtensionT:
		n.Node = new(ExtensionNode)
	case LeafT:
		n.Node = new(LeafNode)
	default:
		r.Err = fmt.Errorf("invalid node type: %x", typ)
		return
	}
	n.Node.DecodeBinary(r)
}

// encodeNodeWithType encodes node together with its type.
func encodeNodeWithType(n Node, w *io.BinWriter) {
	w.WriteB(byte(n.Type()))
	n.EncodeBinary(w)
}

// toBytes is a helper for serializing node.
func toBytes(n Node) ([]byte, error) {
	buf := io.NewBufBinWriter()
	encodeNodeWithType(n, buf.BinWriter)
	if buf.Err != nil {
		return nil, buf.Err
	}
	return buf.Bytes(), nil
}

// fromBytes decodes a node serialized with toBytes.
func fromBytes(data []byte) (Node, error) {
	var no NodeObject
	r := io.NewBinReaderFromBuf(data)
	no.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return no.Node, nil
}

// putNode stores n and returns its new reference.
func putNode(s NodeStore, n Node) (NodeRef, error) {
	ref, err := s.PutNode(n)
	if err != nil {
		return EmptyRef, fmt.Errorf("failed to store %s node: %w", n.Type(), err)
	}
	return ref, nil
}

// String implements fmt.Stringer.
func (t NodeType) String() string {
	switch t {
	case BranchT:
		return "branch"
	case ExtensionT:
		return "extension"
	case LeafT:
		return "leaf"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}
