package hive

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/otunazero/hive/refs"
	"github.com/otunazero/hive/utils"
)

type Options struct {
	Logger utils.Logger
	// Sync makes every write wait for the WAL.
	Sync bool
	// MaxCachedValues bounds each LazyBox value cache.
	MaxCachedValues int
	// Metrics, when set, receives the store collector and the refs counters.
	Metrics prometheus.Registerer
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if o.MaxCachedValues == 0 {
		o.MaxCachedValues = 1024
	}
}

type anyBox interface {
	refs.Container
	close()
}

// Hive is an embedded store of named boxes. It owns the pebble instance,
// keeps the registry of open boxes and broadcasts changes to hoses. One
// logical writer at a time, the usual regime of an embedded store.
type Hive struct {
	db   *pebble.DB
	dir  string
	opts Options
	log  utils.Logger
	wo   pebble.WriteOptions

	boxes *xsync.MapOf[string, anyBox]

	// queues to broadcast all changes
	outq    map[string]toyqueue.DrainCloser
	outlock sync.Mutex
}

var _ refs.Registry = (*Hive)(nil)

// Open opens or creates a store in dir.
func Open(dir string, opts Options) (*Hive, error) {
	opts.SetDefaults()
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "hive: store open failed")
	}
	h := &Hive{
		db:    db,
		dir:   dir,
		opts:  opts,
		log:   opts.Logger,
		wo:    pebble.WriteOptions{Sync: opts.Sync},
		boxes: xsync.NewMapOf[string, anyBox](),
		outq:  make(map[string]toyqueue.DrainCloser),
	}
	if opts.Metrics != nil {
		opts.Metrics.MustRegister(NewCollector(db))
		refs.RegisterMetrics(opts.Metrics)
	}
	h.log.Info("store open", "dir", dir)
	return h, nil
}

// Close closes every box, every hose and the store.
func (h *Hive) Close() error {
	if h.db == nil {
		return ErrClosed
	}
	h.boxes.Range(func(name string, b anyBox) bool {
		b.close()
		h.boxes.Delete(name)
		return true
	})
	h.outlock.Lock()
	for name, q := range h.outq {
		_ = q.Close()
		delete(h.outq, name)
	}
	h.outlock.Unlock()
	err := h.db.Close()
	h.db = nil
	h.log.Info("store closed", "dir", h.dir)
	return err
}

func (h *Hive) Database() *pebble.DB { return h.db }

func (h *Hive) WriteOptions() *pebble.WriteOptions { return &h.wo }

func (h *Hive) Logger() utils.Logger { return h.log }

func (h *Hive) Directory() string { return h.dir }

// OpenBox opens a synchronous box, creating it on first use. Opening an
// already open box returns the same instance.
func (h *Hive) OpenBox(name string) (*Box, error) {
	if h.db == nil {
		return nil, ErrClosed
	}
	if !validBoxName(name) {
		return nil, ErrBoxName
	}
	if b, ok := h.boxes.Load(name); ok {
		box, ok := b.(*Box)
		if !ok {
			return nil, ErrBoxKind
		}
		return box, nil
	}
	if err := h.ensureManifest(name, boxKindSync); err != nil {
		return nil, err
	}
	box := newBox(h, name)
	if err := box.load(); err != nil {
		return nil, err
	}
	h.boxes.Store(name, box)
	h.broadcastEvent(EventOpen, name, "")
	h.log.Info("box open", "box", name, "records", box.Len())
	return box, nil
}

// OpenLazyBox opens a deferred box, creating it on first use.
func (h *Hive) OpenLazyBox(name string) (*LazyBox, error) {
	if h.db == nil {
		return nil, ErrClosed
	}
	if !validBoxName(name) {
		return nil, ErrBoxName
	}
	if b, ok := h.boxes.Load(name); ok {
		box, ok := b.(*LazyBox)
		if !ok {
			return nil, ErrBoxKind
		}
		return box, nil
	}
	if err := h.ensureManifest(name, boxKindLazy); err != nil {
		return nil, err
	}
	box := newLazyBox(h, name)
	if err := box.load(); err != nil {
		return nil, err
	}
	h.boxes.Store(name, box)
	h.broadcastEvent(EventOpen, name, "")
	h.log.Info("box open", "box", name, "keys", box.Len())
	return box, nil
}

// ensureManifest records the box kind on first open and rejects reopening
// under another kind.
func (h *Hive) ensureManifest(name string, kind byte) error {
	val, closer, err := h.db.Get(manifestKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return h.db.Set(manifestKey(name), sealManifest(kind), &h.wo)
	}
	if err != nil {
		return err
	}
	stored, perr := openManifest(val)
	_ = closer.Close()
	if perr != nil {
		return perr
	}
	if stored != kind {
		return ErrBoxKind
	}
	return nil
}

// CloseBox takes a box out of the registry and invalidates its handles.
// The records stay on disk.
func (h *Hive) CloseBox(name string) error {
	b, ok := h.boxes.LoadAndDelete(name)
	if !ok {
		return ErrBoxUnknown
	}
	b.close()
	h.broadcastEvent(EventClose, name, "")
	h.log.Info("box closed", "box", name)
	return nil
}

// DropBox deletes a closed box from disk, manifest included.
func (h *Hive) DropBox(name string) error {
	if h.db == nil {
		return ErrClosed
	}
	if _, ok := h.boxes.Load(name); ok {
		return ErrBoxOpen
	}
	fro, til := boxRange(name)
	if err := h.db.DeleteRange(fro, til, &h.wo); err != nil {
		return err
	}
	if err := h.db.Delete(manifestKey(name), &h.wo); err != nil {
		return err
	}
	h.broadcastEvent(EventDrop, name, "")
	h.log.Info("box dropped", "box", name)
	return nil
}

// Resolve returns the open synchronous box of that name. Deferred boxes
// resolve to nil, they cannot back a list.
func (h *Hive) Resolve(name string) refs.Container {
	b, ok := h.boxes.Load(name)
	if !ok {
		return nil
	}
	box, ok := b.(*Box)
	if !ok {
		return nil
	}
	return box
}

// IsOpen reports whether a box of that name is open, of either kind.
func (h *Hive) IsOpen(name string) bool {
	_, ok := h.boxes.Load(name)
	return ok
}

// Boxes returns the names of the open boxes, sorted.
func (h *Hive) Boxes() []string {
	names := make([]string, 0)
	h.boxes.Range(func(name string, _ anyBox) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

const hoseQueueLimit = 1 << 12

// AddChangeHose registers a named hose fed with every change record. A hose
// of the same name is replaced and closed.
func (h *Hive) AddChangeHose(name string) (feed toyqueue.FeedCloser) {
	queue := toyqueue.RecordQueue{Limit: hoseQueueLimit}
	h.outlock.Lock()
	q := h.outq[name]
	h.outq[name] = &queue
	h.outlock.Unlock()
	if q != nil {
		h.log.Warn("closing the old hose", "name", name)
		_ = q.Close()
	}
	return queue.Blocking()
}

func (h *Hive) RemoveChangeHose(name string) error {
	h.outlock.Lock()
	q := h.outq[name]
	delete(h.outq, name)
	h.outlock.Unlock()
	if q != nil {
		_ = q.Close()
	}
	return nil
}

// Broadcast feeds records to every hose but the named one. A hose that
// stopped draining is dropped.
func (h *Hive) Broadcast(records toyqueue.Records, except string) {
	h.outlock.Lock()
	for name, hose := range h.outq {
		if name == except {
			continue
		}
		if err := hose.Drain(records); err != nil {
			delete(h.outq, name)
		}
	}
	h.outlock.Unlock()
}

func (h *Hive) broadcastEvent(lit byte, box, key string) {
	h.Broadcast(toyqueue.Records{eventRecord(lit, box, key)}, "")
}
