package storage

import (
	"bytes"
)

// MemCachedStore is a wrapper around persistent store that caches all changes
// being made for them to be later flushed in one batch.
type MemCachedStore struct {
	MemoryStore

	// Persistent Store.
	ps Store
}

// NewMemCachedStore creates a new MemCachedStore object.
func NewMemCachedStore(lower Store) *MemCachedStore {
	return &MemCachedStore{
		MemoryStore: *NewMemoryStore(),
		ps:          lower,
	}
}

// Get implements the Store interface.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	if val, ok := s.mem[string(key)]; ok {
		s.mut.RUnlock()
		if val == nil {
			return nil, ErrKeyNotFound
		}
		return val, nil
	}
	s.mut.RUnlock()
	return s.ps.Get(key)
}

// Delete marks a key as deleted, the deletion reaches the persistent store
// on the next Persist.
func (s *MemCachedStore) Delete(key []byte) {
	s.mut.Lock()
	s.mem[string(key)] = nil
	s.mut.Unlock()
}

// PutChangeSet implements the Store interface. Never returns an error.
func (s *MemCachedStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k, v := range puts {
		s.mem[k] = v
	}
	s.mut.Unlock()
	return nil
}

// Seek implements the Store interface. Cached changes shadow the persistent
// store contents. Both sources are merged in order as the persistent store
// is being iterated, so an early stop doesn't read the rest of it.
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	memList := filterKVs(s.mem, rng, true)
	s.mut.RUnlock()

	less := func(a, b []byte) bool {
		if rng.Backwards {
			return bytes.Compare(a, b) > 0
		}
		return bytes.Compare(a, b) < 0
	}
	var (
		i    int
		done bool
	)
	// emit passes cached changes preceding key (all of them if key is nil)
	// to f, deleted ones are skipped.
	emit := func(key []byte) {
		for ; !done && i < len(memList) && (key == nil || less(memList[i].Key, key)); i++ {
			if memList[i].Value != nil && !f(memList[i].Key, memList[i].Value) {
				done = true
			}
		}
	}
	s.ps.Seek(rng, func(k, v []byte) bool {
		emit(k)
		if done {
			return false
		}
		if i < len(memList) && bytes.Equal(memList[i].Key, k) {
			kv := memList[i]
			i++
			if kv.Value == nil {
				return true
			}
			k, v = kv.Key, kv.Value
		}
		done = !f(k, v)
		return !done
	})
	emit(nil)
}

// Persist flushes all the cached changes into the (supposedly) persistent
// store ps. It returns the number of keys flushed.
func (s *MemCachedStore) Persist() (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	keys := len(s.mem)
	if keys == 0 {
		return 0, nil
	}
	err := s.ps.PutChangeSet(s.mem)
	if err != nil {
		return 0, err
	}
	s.mem = make(map[string][]byte)
	return keys, nil
}

// Close implements Store interface, clears up memory and closes the lower layer
// Store.
func (s *MemCachedStore) Close() error {
	// It's always successful.
	_ = s.MemoryStore.Close()
	return s.ps.Close()
}
