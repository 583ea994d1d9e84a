package hive

import (
	"iter"
	"slices"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/otunazero/hive/refs"
)

type record struct {
	payload []byte
	handle  *refs.Handle
}

// Box is a synchronous box: every record is resident, reads are memory
// lookups, writes go through to the store immediately. Box implements
// refs.Container, so its records can back cross-reference lists. One handle
// per record, handed out to every caller.
type Box struct {
	hive   *Hive
	name   string
	lock   sync.RWMutex
	recs   map[string]*record
	closed bool
}

var _ refs.Container = (*Box)(nil)

func newBox(h *Hive, name string) *Box {
	return &Box{hive: h, name: name, recs: make(map[string]*record)}
}

// load scans the box keyspace and attaches one handle per record.
func (b *Box) load() error {
	fro, til := boxRange(b.name)
	it, err := b.hive.db.NewIter(&pebble.IterOptions{LowerBound: fro, UpperBound: til})
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		key := string(it.Key()[len(fro):])
		payload, err := openRecord(it.Value())
		if err != nil {
			b.hive.log.Error("corrupt record", "box", b.name, "key", key)
			return err
		}
		h := refs.NewHandle(key)
		_ = h.Attach(b)
		b.recs[key] = &record{payload: slices.Clone(payload), handle: h}
	}
	return nil
}

func (b *Box) Name() string      { return b.name }
func (b *Box) Synchronous() bool { return true }

func (b *Box) Contains(key string) bool {
	b.lock.RLock()
	defer b.lock.RUnlock()
	_, ok := b.recs[key]
	return ok
}

// Get returns the canonical handle of a record, nil if absent.
func (b *Box) Get(key string) *refs.Handle {
	b.lock.RLock()
	defer b.lock.RUnlock()
	rec, ok := b.recs[key]
	if !ok {
		return nil
	}
	return rec.handle
}

func (b *Box) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.recs)
}

// Keys yields the record keys in sorted order.
func (b *Box) Keys() iter.Seq[string] {
	b.lock.RLock()
	keys := make([]string, 0, len(b.recs))
	for key := range b.recs {
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

// Payload returns the record bytes as stored.
func (b *Box) Payload(key string) ([]byte, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	rec, ok := b.recs[key]
	if !ok {
		return nil, false
	}
	return rec.payload, true
}

// Put stores a record. Overwriting a key invalidates the old handle, the
// record it represented is gone; a fresh handle is attached in its place.
func (b *Box) Put(key string, payload []byte) (*refs.Handle, error) {
	if !validRecordKey(key) {
		return nil, ErrRecordKey
	}
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return nil, refs.ErrNotOpen
	}
	err := b.hive.db.Set(recordKey(b.name, key), sealRecord(payload), b.hive.WriteOptions())
	if err != nil {
		b.lock.Unlock()
		return nil, err
	}
	old := b.recs[key]
	h := refs.NewHandle(key)
	_ = h.Attach(b)
	b.recs[key] = &record{payload: payload, handle: h}
	b.lock.Unlock()
	if old != nil {
		old.handle.Invalidate()
	}
	b.hive.broadcastEvent(EventPut, b.name, key)
	return h, nil
}

// Add stores the payload under a fresh uuid key.
func (b *Box) Add(payload []byte) (*refs.Handle, error) {
	return b.Put(uuid.NewString(), payload)
}

// Delete removes a record and invalidates its handle. Deleting an absent
// key does nothing.
func (b *Box) Delete(key string) error {
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return refs.ErrNotOpen
	}
	rec, ok := b.recs[key]
	if !ok {
		b.lock.Unlock()
		return nil
	}
	if err := b.hive.db.Delete(recordKey(b.name, key), b.hive.WriteOptions()); err != nil {
		b.lock.Unlock()
		return err
	}
	delete(b.recs, key)
	b.lock.Unlock()
	rec.handle.Invalidate()
	b.hive.broadcastEvent(EventDelete, b.name, key)
	return nil
}

// NewList makes a resolved cross-reference list over this box, owned by the
// record of owner.
func (b *Box) NewList(owner *refs.Handle, items ...*refs.Handle) (*refs.List, error) {
	return refs.New(b.hive, owner, b, items...)
}

// PutList stores a cross-reference list as the record at key.
func (b *Box) PutList(key string, l *refs.List) error {
	data, err := refs.MarshalTLV(l)
	if err != nil {
		return err
	}
	_, err = b.Put(key, data)
	return err
}

// GetList reads the record at key as a lazy cross-reference list.
func (b *Box) GetList(key string) (*refs.List, error) {
	b.lock.RLock()
	rec, ok := b.recs[key]
	b.lock.RUnlock()
	if !ok {
		return nil, ErrRecordNotFound
	}
	return refs.UnmarshalTLV(b.hive, rec.payload)
}

// close invalidates every resident handle; records stay on disk.
func (b *Box) close() {
	b.lock.Lock()
	b.closed = true
	recs := b.recs
	b.recs = make(map[string]*record)
	b.lock.Unlock()
	for _, rec := range recs {
		rec.handle.Invalidate()
	}
}
