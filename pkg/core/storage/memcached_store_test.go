package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemCachedStoreForTesting(t testing.TB) Store {
	return NewMemCachedStore(NewMemoryStore())
}

func TestMemCachedStorePersist(t *testing.T) {
	// persistent Store
	ps := NewMemoryStore()
	// cached Store
	ts := NewMemCachedStore(ps)
	// persisting nothing should do nothing
	c, err := ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, c)
	// persisting one key should result in one key in ps and nothing in ts
	ts.Put([]byte("key"), []byte("value"))
	c, err = ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, c)
	v, err := ps.Get([]byte("key"))
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte("value"), v)
	v, err = ts.MemoryStore.Get([]byte("key"))
	assert.Equal(t, ErrKeyNotFound, err)
	assert.Equal(t, []byte(nil), v)
	// now we overwrite the previous `key` contents and also add `key2`,
	ts.Put([]byte("key"), []byte("newvalue"))
	ts.Put([]byte("key2"), []byte("value2"))
	// this is to check that now key is written into the ps before we do
	// persist
	v, err = ps.Get([]byte("key2"))
	assert.Equal(t, ErrKeyNotFound, err)
	assert.Equal(t, []byte(nil), v)
	// two keys should be persisted (one overwritten and one new) and
	// available in the ps
	c, err = ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, c)
	v, err = ps.Get([]byte("key"))
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte("newvalue"), v)
	v, err = ps.Get([]byte("key2"))
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte("value2"), v)
	// we've persisted some values, make sure successive persist is a no-op
	c, err = ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, c)
	// test persisting deletions
	ts.Delete([]byte("key"))
	_, err = ts.Get([]byte("key"))
	assert.Equal(t, ErrKeyNotFound, err)
	c, err = ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, c)
	v, err = ps.Get([]byte("key"))
	assert.Equal(t, ErrKeyNotFound, err)
	assert.Equal(t, []byte(nil), v)
	v, err = ps.Get([]byte("key2"))
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte("value2"), v)
}

func TestMemCachedStoreGetFallsThrough(t *testing.T) {
	ps := NewMemoryStore()
	ps.Put([]byte("lower"), []byte("value"))
	ts := NewMemCachedStore(ps)

	v, err := ts.Get([]byte("lower"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)

	ts.Delete([]byte("lower"))
	_, err = ts.Get([]byte("lower"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	// Still there until persisted.
	_, err = ps.Get([]byte("lower"))
	require.NoError(t, err)
}

func TestMemCachedSeekShadowing(t *testing.T) {
	ps := NewMemoryStore()
	ps.Put([]byte("a1"), []byte("lower1"))
	ps.Put([]byte("a2"), []byte("lower2"))
	ps.Put([]byte("a3"), []byte("lower3"))
	ts := NewMemCachedStore(ps)
	ts.Put([]byte("a2"), []byte("upper2"))
	ts.Put([]byte("a4"), []byte("upper4"))
	ts.Delete([]byte("a3"))

	var actual []KeyValue
	ts.Seek(SeekRange{Prefix: []byte("a")}, func(k, v []byte) bool {
		actual = append(actual, KeyValue{Key: k, Value: v})
		return true
	})
	require.Equal(t, []KeyValue{
		{Key: []byte("a1"), Value: []byte("lower1")},
		{Key: []byte("a2"), Value: []byte("upper2")},
		{Key: []byte("a4"), Value: []byte("upper4")},
	}, actual)
}

func TestMemCachedStoreClose(t *testing.T) {
	ts := NewMemCachedStore(NewMemoryStore())
	ts.Put([]byte("key"), []byte("value"))
	require.NoError(t, ts.Close())
}

// countingStore counts key-value pairs passed to Seek callbacks.
type countingStore struct {
	Store
	seen int
}

func (s *countingStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.Store.Seek(rng, func(k, v []byte) bool {
		s.seen++
		return f(k, v)
	})
}

func TestMemCachedSeekEarlyStop(t *testing.T) {
	ps := &countingStore{Store: NewMemoryStore()}
	puts := make(map[string][]byte)
	for ref := uint64(1); ref <= 100; ref++ {
		puts[string(nodeKey(ref))] = []byte{byte(ref)}
	}
	require.NoError(t, ps.PutChangeSet(puts))
	ts := NewMemCachedStore(ps)
	ts.Delete(nodeKey(100))
	ts.Put(nodeKey(99), []byte{0xff})

	res := seekAll(ts, SeekRange{Prefix: DataMPT.Bytes(), Backwards: true}, 2)
	require.Equal(t, []KeyValue{
		{Key: nodeKey(99), Value: []byte{0xff}},
		{Key: nodeKey(98), Value: []byte{98}},
	}, res)
	require.Equal(t, 3, ps.seen)

	ps.seen = 0
	ts.Put(nodeKey(0), []byte{0})
	res = seekAll(ts, SeekRange{Prefix: DataMPT.Bytes()}, 1)
	require.Equal(t, []KeyValue{{Key: nodeKey(0), Value: []byte{0}}}, res)
	require.Equal(t, 1, ps.seen)

	// Cached entries past the end of the persistent range.
	ts.Put(nodeKey(101), []byte{101})
	res = seekAll(ts, SeekRange{Prefix: DataMPT.Bytes(), Start: nodeKey(98)[1:]}, 0)
	require.Equal(t, []KeyValue{
		{Key: nodeKey(98), Value: []byte{98}},
		{Key: nodeKey(99), Value: []byte{0xff}},
		{Key: nodeKey(101), Value: []byte{101}},
	}, res)
}
