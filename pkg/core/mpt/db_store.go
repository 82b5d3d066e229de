package mpt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/ethmpt/pkg/core/storage"
	"github.com/nspcc-dev/ethmpt/pkg/io"
	"go.uber.org/zap"
)

// DefaultNodeCacheSize is the default number of decoded nodes kept in memory
// by DBNodeStore.
const DefaultNodeCacheSize = 4096

// headKey is the DataMPTAux key the last committed root is stored under.
var headKey = []byte{byte(storage.DataMPTAux), 'h'}

// DBNodeStore is a NodeStore over the KV storage.Store. New nodes are
// buffered in memory until Commit, decoded nodes are kept in the LRU cache.
// References are allocated sequentially and survive reopening.
type DBNodeStore struct {
	lock  sync.Mutex
	store *storage.MemCachedStore
	cache *lru.Cache
	next  NodeRef
	log   *zap.Logger
}

var (
	_ NodeStore = (*DBNodeStore)(nil)
	_ Committer = (*DBNodeStore)(nil)
)

// NewDBNodeStore creates a DBNodeStore over the given persistent store. Node
// reference allocation continues from the last node found there.
func NewDBNodeStore(ps storage.Store, cacheSize int, log *zap.Logger) (*DBNodeStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultNodeCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create node cache: %w", err)
	}
	s := &DBNodeStore{
		store: storage.NewMemCachedStore(ps),
		cache: cache,
		next:  EmptyRef + 1,
		log:   log,
	}
	var lastErr error
	// Nothing is cached yet, the last node is in the persistent store.
	ps.Seek(storage.SeekRange{
		Prefix:    storage.DataMPT.Bytes(),
		Backwards: true,
	}, func(k, _ []byte) bool {
		ref, err := refFromStorageKey(k)
		if err != nil {
			lastErr = err
		} else {
			s.next = ref + 1
		}
		return false
	})
	if lastErr != nil {
		return nil, lastErr
	}
	log.Debug("node store opened", zap.Uint64("next", uint64(s.next)))
	return s, nil
}

func makeStorageKey(ref NodeRef) []byte {
	key := make([]byte, 9)
	key[0] = byte(storage.DataMPT)
	binary.BigEndian.PutUint64(key[1:], uint64(ref))
	return key
}

func refFromStorageKey(key []byte) (NodeRef, error) {
	if len(key) != 9 || key[0] != byte(storage.DataMPT) {
		return EmptyRef, fmt.Errorf("invalid node key: %x", key)
	}
	return NodeRef(binary.BigEndian.Uint64(key[1:])), nil
}

// GetNode implements NodeStore interface.
func (s *DBNodeStore) GetNode(ref NodeRef) (Node, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if n, ok := s.cache.Get(ref); ok {
		nodeCacheHits.Inc()
		return n.(Node), nil
	}
	nodeCacheMisses.Inc()
	data, err := s.store.Get(makeStorageKey(ref))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, ref)
		}
		return nil, err
	}
	nodeReads.Inc()
	n, err := fromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode node %d: %w", ref, err)
	}
	s.cache.Add(ref, n)
	return n, nil
}

// PutNode implements NodeStore interface.
func (s *DBNodeStore) PutNode(n Node) (NodeRef, error) {
	data, err := toBytes(n)
	if err != nil {
		return EmptyRef, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	ref := s.next
	s.store.Put(makeStorageKey(ref), data)
	s.cache.Add(ref, n)
	s.next++
	nodeWrites.Inc()
	return ref, nil
}

// Commit implements Committer interface. It saves root as the head (an empty
// root drops it) and flushes all buffered nodes into the persistent store.
func (s *DBNodeStore) Commit(root NodeRef) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if root.IsEmpty() {
		s.store.Delete(headKey)
	} else {
		w := io.NewBufBinWriter()
		w.WriteU64BE(uint64(root))
		s.store.Put(headKey, w.Bytes())
	}
	keys, err := s.store.Persist()
	if err != nil {
		return fmt.Errorf("failed to persist nodes: %w", err)
	}
	s.log.Debug("persisted to disk",
		zap.Int("keys", keys),
		zap.Uint64("root", uint64(root)))
	return nil
}

// Head returns the last committed root, it's EmptyRef if nothing was ever
// committed.
func (s *DBNodeStore) Head() (NodeRef, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	data, err := s.store.Get(headKey)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return EmptyRef, nil
		}
		return EmptyRef, err
	}
	r := io.NewBinReaderFromBuf(data)
	root := r.ReadU64BE()
	if r.Err != nil || r.Len() != 0 {
		return EmptyRef, fmt.Errorf("invalid head root: %x", data)
	}
	return NodeRef(root), nil
}

// Close closes the underlying store, uncommitted nodes are lost.
func (s *DBNodeStore) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.cache.Purge()
	return s.store.Close()
}
