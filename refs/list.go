package refs

type listState byte

const (
	stateLazy     listState = 'L'
	stateResolved listState = 'R'
	stateDisposed listState = 'D'
)

// List is an ordered sequence of references to records of one box. It may
// hold the same record any number of times. A list loaded from storage
// starts lazy (keys only) and resolves into handles on first access; a
// freshly constructed one is resolved from the start. Disposal is final.
type List struct {
	reg   Registry
	name  string
	owner *Handle
	state listState
	keys  []string  // lazy: the stored keys, verbatim
	items []*Handle // resolved: the live sequence
}

// New makes a resolved list over the records of c, owned by the record of
// owner. The box must be synchronous and the owner attached. Initial items
// are linked as given, duplicates and all; membership is the caller's
// lookout here, unlike Add and SetAt.
func New(reg Registry, owner *Handle, c Container, items ...*Handle) (*List, error) {
	if c == nil || !c.Synchronous() {
		return nil, ErrNotSynchronous
	}
	if owner == nil || owner.Container() == nil {
		return nil, ErrDetachedOwner
	}
	l := &List{
		reg:   reg,
		name:  c.Name(),
		owner: owner,
		state: stateResolved,
		items: make([]*Handle, 0, len(items)),
	}
	owner.attachList(l)
	for _, h := range items {
		h.link(l)
		l.items = append(l.items, h)
	}
	return l, nil
}

// NewLazy makes an unresolved list from its persisted form. The keys are
// copied verbatim, dead and duplicate ones included; nothing is touched
// until the first access.
func NewLazy(reg Registry, boxName string, keys []string) *List {
	l := &List{
		reg:   reg,
		name:  boxName,
		state: stateLazy,
		keys:  make([]string, len(keys)),
	}
	copy(l.keys, keys)
	return l
}

func (l *List) BoxName() string { return l.name }

// Owner returns the handle this list is attached to, nil for lazy-loaded
// lists.
func (l *List) Owner() *Handle { return l.owner }

// Container resolves the list's box through the registry. It consults the
// registry on every call, so a box closed and reopened since the last call
// is picked up, never a stale instance.
func (l *List) Container() (Container, error) {
	if l.state == stateDisposed {
		return nil, ErrDisposed
	}
	if !l.reg.IsOpen(l.name) {
		return nil, ErrNotOpen
	}
	c := l.reg.Resolve(l.name)
	if c == nil {
		return nil, ErrNotOpen
	}
	return c, nil
}

// resolve turns stored keys into live handles, once. Keys of records that
// are gone are dropped silently; keys present several times produce the
// handle several times, each occurrence counted.
func (l *List) resolve() error {
	switch l.state {
	case stateDisposed:
		return ErrDisposed
	case stateResolved:
		return nil
	}
	c, err := l.Container()
	if err != nil {
		return err
	}
	items := make([]*Handle, 0, len(l.keys))
	dropped := 0
	for _, key := range l.keys {
		if !c.Contains(key) {
			dropped++
			continue
		}
		h := c.Get(key)
		h.link(l)
		items = append(items, h)
	}
	l.items = items
	l.keys = nil
	l.state = stateResolved
	ResolveCount.WithLabelValues(l.name).Inc()
	if dropped > 0 {
		DroppedKeyCount.WithLabelValues(l.name).Add(float64(dropped))
	}
	return nil
}

// Items returns the resolved sequence, resolving it first if need be. The
// returned slice is the list's backing store; treat it as read-only.
func (l *List) Items() ([]*Handle, error) {
	if err := l.resolve(); err != nil {
		return nil, err
	}
	return l.items, nil
}

func (l *List) Len() (int, error) {
	if err := l.resolve(); err != nil {
		return 0, err
	}
	return len(l.items), nil
}

// Keys returns the persisted form of the list: the stored keys while lazy,
// the keys of the current sequence once resolved.
func (l *List) Keys() ([]string, error) {
	switch l.state {
	case stateDisposed:
		return nil, ErrDisposed
	case stateLazy:
		keys := make([]string, len(l.keys))
		copy(keys, l.keys)
		return keys, nil
	}
	keys := make([]string, 0, len(l.items))
	for _, h := range l.items {
		keys = append(keys, h.Key())
	}
	return keys, nil
}

// Invalidate drops every occurrence of handles that no longer count this
// list among their referers, i.e. handles invalidated since the last call.
// Handles still carrying an entry keep all their occurrences. A lazy list
// has nothing linked and stays as it is.
func (l *List) Invalidate() error {
	switch l.state {
	case stateDisposed:
		return ErrDisposed
	case stateLazy:
		return nil
	}
	kept := l.items[:0]
	dropped := 0
	for _, h := range l.items {
		if h.References(l) > 0 {
			kept = append(kept, h)
		} else {
			dropped++
		}
	}
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = nil
	}
	l.items = kept
	if dropped > 0 {
		InvalidatedCount.WithLabelValues(l.name).Add(float64(dropped))
	}
	return nil
}

// Dispose retires the list: every occurrence is unlinked, the sequence is
// cleared and the owner forgets the list. Disposing twice is a no-op. A
// lazy list is disposed without resolving.
func (l *List) Dispose() {
	if l.state == stateDisposed {
		return
	}
	for _, h := range l.items {
		h.unlink(l)
	}
	l.items = nil
	l.keys = nil
	if l.owner != nil {
		l.owner.detachList(l)
	}
	l.state = stateDisposed
}

// SetLength truncates the list to n items, unlinking the cut tail in order.
// Growing is not supported; n beyond the current length is out of range.
func (l *List) SetLength(n int) error {
	if err := l.resolve(); err != nil {
		return err
	}
	if n < 0 || n > len(l.items) {
		return ErrIndexRange
	}
	for _, h := range l.items[n:] {
		h.unlink(l)
	}
	for i := n; i < len(l.items); i++ {
		l.items[i] = nil
	}
	l.items = l.items[:n]
	return nil
}

// SetAt replaces the item at index i, unlinking the old occupant and
// linking the new one. The new handle must live in the list's box.
func (l *List) SetAt(i int, h *Handle) error {
	if err := l.resolve(); err != nil {
		return err
	}
	if i < 0 || i >= len(l.items) {
		return ErrIndexRange
	}
	if err := l.validate(h); err != nil {
		return err
	}
	l.items[i].unlink(l)
	h.link(l)
	l.items[i] = h
	return nil
}

// Add appends a handle to the list. The handle must live in the list's box.
func (l *List) Add(h *Handle) error {
	if err := l.resolve(); err != nil {
		return err
	}
	if err := l.validate(h); err != nil {
		return err
	}
	h.link(l)
	l.items = append(l.items, h)
	return nil
}

// AddAll appends handles in order. All of them are validated up front; one
// stranger makes the whole call fail with nothing appended.
func (l *List) AddAll(hs ...*Handle) error {
	if err := l.resolve(); err != nil {
		return err
	}
	for _, h := range hs {
		if err := l.validate(h); err != nil {
			return err
		}
	}
	for _, h := range hs {
		h.link(l)
		l.items = append(l.items, h)
	}
	return nil
}

// validate enforces membership: h must be attached to this list's box,
// compared by container identity as resolved right now.
func (l *List) validate(h *Handle) error {
	c, err := l.Container()
	if err != nil {
		return err
	}
	if h == nil || h.Container() != c {
		return ErrNotMember
	}
	return nil
}
