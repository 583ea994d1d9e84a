package hive

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/otunazero/hive/refs"
)

// LazyBox is a deferred box: the keys are resident, the values are read
// from the store on demand through an LRU cache. A deferred box hands out
// no handles and cannot back cross-reference lists.
type LazyBox struct {
	hive   *Hive
	name   string
	lock   sync.RWMutex
	keys   map[string]struct{}
	cache  *lru.Cache[string, []byte]
	closed bool
}

var _ refs.Container = (*LazyBox)(nil)

func newLazyBox(h *Hive, name string) *LazyBox {
	cache, _ := lru.New[string, []byte](h.opts.MaxCachedValues)
	return &LazyBox{hive: h, name: name, keys: make(map[string]struct{}), cache: cache}
}

// load scans the box keyspace for keys only; values stay on disk.
func (b *LazyBox) load() error {
	fro, til := boxRange(b.name)
	it, err := b.hive.db.NewIter(&pebble.IterOptions{LowerBound: fro, UpperBound: til})
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		b.keys[string(it.Key()[len(fro):])] = struct{}{}
	}
	return nil
}

func (b *LazyBox) Name() string      { return b.name }
func (b *LazyBox) Synchronous() bool { return false }

func (b *LazyBox) Contains(key string) bool {
	b.lock.RLock()
	defer b.lock.RUnlock()
	_, ok := b.keys[key]
	return ok
}

// Get always returns nil: there are no live handles here.
func (b *LazyBox) Get(key string) *refs.Handle { return nil }

func (b *LazyBox) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.keys)
}

// Keys yields the record keys in sorted order.
func (b *LazyBox) Keys() iter.Seq[string] {
	b.lock.RLock()
	keys := make([]string, 0, len(b.keys))
	for key := range b.keys {
		keys = append(keys, key)
	}
	b.lock.RUnlock()
	slices.Sort(keys)
	return func(yield func(string) bool) {
		for _, key := range keys {
			if !yield(key) {
				return
			}
		}
	}
}

// Fetch reads one record value, through the cache.
func (b *LazyBox) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.lock.RLock()
	closed := b.closed
	_, ok := b.keys[key]
	b.lock.RUnlock()
	if closed {
		return nil, refs.ErrNotOpen
	}
	if !ok {
		return nil, ErrRecordNotFound
	}
	if payload, ok := b.cache.Get(key); ok {
		return payload, nil
	}
	val, closer, err := b.hive.db.Get(recordKey(b.name, key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	payload, perr := openRecord(val)
	if perr == nil {
		payload = slices.Clone(payload)
	}
	_ = closer.Close()
	if perr != nil {
		return nil, perr
	}
	b.cache.Add(key, payload)
	b.hive.log.DebugCtx(ctx, "record fetched", "box", b.name, "key", key)
	return payload, nil
}

func (b *LazyBox) Put(key string, payload []byte) error {
	if !validRecordKey(key) {
		return ErrRecordKey
	}
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return refs.ErrNotOpen
	}
	err := b.hive.db.Set(recordKey(b.name, key), sealRecord(payload), b.hive.WriteOptions())
	if err != nil {
		b.lock.Unlock()
		return err
	}
	b.keys[key] = struct{}{}
	b.lock.Unlock()
	b.cache.Add(key, payload)
	b.hive.broadcastEvent(EventPut, b.name, key)
	return nil
}

// Add stores the payload under a fresh uuid key and returns the key.
func (b *LazyBox) Add(payload []byte) (string, error) {
	key := uuid.NewString()
	return key, b.Put(key, payload)
}

func (b *LazyBox) Delete(key string) error {
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return refs.ErrNotOpen
	}
	if _, ok := b.keys[key]; !ok {
		b.lock.Unlock()
		return nil
	}
	if err := b.hive.db.Delete(recordKey(b.name, key), b.hive.WriteOptions()); err != nil {
		b.lock.Unlock()
		return err
	}
	delete(b.keys, key)
	b.lock.Unlock()
	b.cache.Remove(key)
	b.hive.broadcastEvent(EventDelete, b.name, key)
	return nil
}

func (b *LazyBox) close() {
	b.lock.Lock()
	b.closed = true
	b.keys = make(map[string]struct{})
	b.lock.Unlock()
	b.cache.Purge()
}
