package mpt

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNodeNotFound is returned when there is no node with the requested
// reference in the NodeStore.
var ErrNodeNotFound = errors.New("node not found")

// NodeStore owns trie nodes and hands out references to them. Nodes put into
// the store must not be modified afterwards.
type NodeStore interface {
	GetNode(ref NodeRef) (Node, error)
	PutNode(n Node) (NodeRef, error)
}

// Committer is a NodeStore that buffers written nodes until the commit.
type Committer interface {
	Commit(root NodeRef) error
}

// MemoryNodeStore is an in-memory NodeStore keeping all nodes ever put
// into it. It's safe for concurrent use.
type MemoryNodeStore struct {
	lock  sync.RWMutex
	nodes []Node
}

var _ NodeStore = (*MemoryNodeStore)(nil)

// NewMemoryNodeStore returns an empty MemoryNodeStore.
func NewMemoryNodeStore() *MemoryNodeStore {
	// Index 0 is reserved for EmptyRef.
	return &MemoryNodeStore{nodes: make([]Node, 1)}
}

// GetNode implements NodeStore interface.
func (s *MemoryNodeStore) GetNode(ref NodeRef) (Node, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if ref.IsEmpty() || uint64(ref) >= uint64(len(s.nodes)) {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, ref)
	}
	return s.nodes[ref], nil
}

// PutNode implements NodeStore interface.
func (s *MemoryNodeStore) PutNode(n Node) (NodeRef, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.nodes = append(s.nodes, n)
	return NodeRef(len(s.nodes) - 1), nil
}

// Len returns the number of nodes stored.
func (s *MemoryNodeStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.nodes) - 1
}
