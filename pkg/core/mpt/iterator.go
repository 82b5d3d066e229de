package mpt

import "bytes"

// Iterate calls f for every key-value pair of t with the key not less than
// start in ascending key order. Iteration stops when f returns false. Key and
// value slices must not be modified.
func (t *Trie) Iterate(start []byte, f func(key, value []byte) bool) error {
	if t.root.IsEmpty() {
		return nil
	}
	_, err := t.iterate(t.root, NewNibblePath(start), true, f)
	return err
}

// iterate walks the subtree rooted at ref. bounded means that the path to
// ref matches start so far and start still restricts the walk, otherwise all
// keys in the subtree are greater than start. It returns false when the
// iteration has been stopped by f.
func (t *Trie) iterate(ref NodeRef, start NibblePath, bounded bool, f func(key, value []byte) bool) (bool, error) {
	n, err := t.store.GetNode(ref)
	if err != nil {
		return false, err
	}
	switch n := n.(type) {
	case *LeafNode:
		if bounded && bytes.Compare(n.key, start.Data()) < 0 {
			return true, nil
		}
		return f(n.key, n.value), nil
	case *ExtensionNode:
		if bounded {
			for i, nb := range n.prefix {
				s, ok := start.Nth(i)
				if !ok || nb > s {
					bounded = false
					break
				}
				if nb < s {
					return true, nil
				}
			}
			start.OffsetAdd(len(n.prefix))
		}
		return t.iterate(n.child, start, bounded, f)
	case *BranchNode:
		first := 0
		if bounded {
			if s, ok := start.Nth(0); ok {
				first = int(s)
			} else {
				bounded = false
			}
		}
		// The value key is a proper prefix of start if bounded.
		if !bounded && n.hasValue() && !f(n.key, n.value) {
			return false, nil
		}
		for i := first; i < childrenCount; i++ {
			if n.children[i].IsEmpty() {
				continue
			}
			childStart, childBounded := start, bounded && i == first
			if childBounded {
				childStart.OffsetAdd(1)
			}
			ok, err := t.iterate(n.children[i], childStart, childBounded, f)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil
	default:
		panic("invalid MPT node type")
	}
}
