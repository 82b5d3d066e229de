package mpt

import (
	"math/rand/v2"
	"testing"

	"github.com/nspcc-dev/ethmpt/pkg/core/storage"
	"github.com/nspcc-dev/ethmpt/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMemoryNodeStore(t *testing.T) {
	s := NewMemoryNodeStore()
	require.Equal(t, 0, s.Len())

	_, err := s.GetNode(EmptyRef)
	require.ErrorIs(t, err, ErrNodeNotFound)
	_, err = s.GetNode(1)
	require.ErrorIs(t, err, ErrNodeNotFound)

	l := NewLeafNode([]byte{1}, []byte{2})
	ref, err := s.PutNode(l)
	require.NoError(t, err)
	require.Equal(t, NodeRef(1), ref)
	require.Equal(t, 1, s.Len())

	n, err := s.GetNode(ref)
	require.NoError(t, err)
	require.Same(t, l, n)

	ref2, err := s.PutNode(NewLeafNode([]byte{3}, []byte{4}))
	require.NoError(t, err)
	require.NotEqual(t, ref, ref2)
}

func newLevelDBForTesting(t *testing.T, dir string) storage.Store {
	st, err := storage.NewLevelDBStore(dbconfig.LevelDBOptions{DataDirectoryPath: dir})
	require.NoError(t, err)
	return st
}

func TestDBNodeStore(t *testing.T) {
	s, err := NewDBNodeStore(storage.NewMemoryStore(), 0, nil)
	require.NoError(t, err)

	_, err = s.GetNode(1)
	require.ErrorIs(t, err, ErrNodeNotFound)

	l := NewLeafNode([]byte{1}, []byte{2})
	ref, err := s.PutNode(l)
	require.NoError(t, err)
	require.Equal(t, NodeRef(1), ref)

	// Served from the cache.
	n, err := s.GetNode(ref)
	require.NoError(t, err)
	require.Same(t, l, n)

	head, err := s.Head()
	require.NoError(t, err)
	require.Equal(t, EmptyRef, head)
	require.NoError(t, s.Commit(ref))
	head, err = s.Head()
	require.NoError(t, err)
	require.Equal(t, ref, head)

	// Empty root drops the head.
	require.NoError(t, s.Commit(EmptyRef))
	head, err = s.Head()
	require.NoError(t, err)
	require.Equal(t, EmptyRef, head)
}

func TestDBNodeStore_SmallCache(t *testing.T) {
	s, err := NewDBNodeStore(storage.NewMemoryStore(), 2, zaptest.NewLogger(t))
	require.NoError(t, err)
	tr := NewTrie(EmptyRef, s)
	kvs := randomKVs(rand.New(rand.NewPCG(5, 5)), 100)
	for _, kv := range kvs {
		tr.testPut(t, kv.key, kv.value)
	}
	// Nodes have to be decoded from the store.
	for _, kv := range kvs {
		tr.testHas(t, kv.key, kv.value)
	}

	mem, _ := newTestTrie()
	for _, kv := range kvs {
		mem.testPut(t, kv.key, kv.value)
	}
	require.Equal(t, mem.testHash(t), tr.testHash(t))
}

func TestDBNodeStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDBNodeStore(newLevelDBForTesting(t, dir), 16, zaptest.NewLogger(t))
	require.NoError(t, err)

	tr := NewTrie(EmptyRef, s)
	kvs := randomKVs(rand.New(rand.NewPCG(9, 9)), 50)
	for _, kv := range kvs[:40] {
		tr.testPut(t, kv.key, kv.value)
	}
	h, err := tr.Commit()
	require.NoError(t, err)
	committed := tr.Root()

	// Not committed, lost on close.
	for _, kv := range kvs[40:] {
		tr.testPut(t, kv.key, kv.value)
	}
	last := tr.Root()
	require.NoError(t, s.Close())

	s, err = NewDBNodeStore(newLevelDBForTesting(t, dir), 16, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	head, err := s.Head()
	require.NoError(t, err)
	require.Equal(t, committed, head)
	_, err = s.GetNode(last)
	require.ErrorIs(t, err, ErrNodeNotFound)

	tr = NewTrie(head, s)
	require.Equal(t, h, tr.testHash(t))
	for _, kv := range kvs[:40] {
		tr.testHas(t, kv.key, kv.value)
	}
	for _, kv := range kvs[40:] {
		tr.testHas(t, kv.key, nil)
	}

	// New references don't overwrite the committed ones.
	ref, err := s.PutNode(NewLeafNode([]byte{1}, []byte{1}))
	require.NoError(t, err)
	require.Equal(t, committed+1, ref)
}

// countingStore counts keys read from the underlying store.
type countingStore struct {
	storage.Store
	touched int
}

func (s *countingStore) Get(key []byte) ([]byte, error) {
	s.touched++
	return s.Store.Get(key)
}

func (s *countingStore) Seek(rng storage.SeekRange, f func(k, v []byte) bool) {
	s.Store.Seek(rng, func(k, v []byte) bool {
		s.touched++
		return f(k, v)
	})
}

func TestDBNodeStore_OpenReadsLastNode(t *testing.T) {
	ps := &countingStore{Store: storage.NewMemoryStore()}
	s, err := NewDBNodeStore(ps, 0, nil)
	require.NoError(t, err)
	tr := NewTrie(EmptyRef, s)
	for i := range 200 {
		_, err := tr.Insert([]byte{byte(i), 1}, []byte{byte(i)})
		require.NoError(t, err)
	}
	_, err = tr.Commit()
	require.NoError(t, err)
	last := tr.Root()

	ps.touched = 0
	s, err = NewDBNodeStore(ps, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, ps.touched)

	ref, err := s.PutNode(NewLeafNode([]byte{1}, []byte{2}))
	require.NoError(t, err)
	require.Greater(t, ref, last)
}

func TestDBNodeStore_CorruptedNode(t *testing.T) {
	ps := storage.NewMemoryStore()
	ps.Put(makeStorageKey(1), []byte{0xff})
	s, err := NewDBNodeStore(ps, 0, nil)
	require.NoError(t, err)
	_, err = s.GetNode(1)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNodeNotFound)
}

func TestRefFromStorageKey(t *testing.T) {
	ref, err := refFromStorageKey(makeStorageKey(0x0102030405))
	require.NoError(t, err)
	require.Equal(t, NodeRef(0x0102030405), ref)

	_, err = refFromStorageKey([]byte{byte(storage.DataMPT), 1})
	require.Error(t, err)
}

func TestDBNodeStore_InvalidHead(t *testing.T) {
	for name, data := range map[string][]byte{
		"short": {1, 2, 3},
		"long":  make([]byte, 9),
	} {
		t.Run(name, func(t *testing.T) {
			ps := storage.NewMemoryStore()
			ps.Put(headKey, data)
			s, err := NewDBNodeStore(ps, 0, nil)
			require.NoError(t, err)
			_, err = s.Head()
			require.Error(t, err)
		})
	}
}
