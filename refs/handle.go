package refs

// Handle is the canonical live representative of one stored record. A box
// hands out one handle per resident record, so handle identity is record
// identity for every list that references it.
type Handle struct {
	key  string
	box  Container
	// referencing lists, by occurrence count
	backs map[*List]int
	// lists attached to this handle, for introspection
	lists map[*List]struct{}
}

// NewHandle makes a detached handle for the record stored under key.
func NewHandle(key string) *Handle {
	return &Handle{key: key}
}

func (h *Handle) Key() string { return h.key }

// Container returns the box the handle lives in, nil once invalidated.
func (h *Handle) Container() Container { return h.box }

// Attach binds the handle to its box. A handle follows one record in one
// box; attaching to a second box fails.
func (h *Handle) Attach(c Container) error {
	if h.box != nil && h.box != c {
		return ErrAlreadyAttached
	}
	h.box = c
	return nil
}

// Invalidate detaches the handle and forgets every list that referenced it.
// Boxes call this when the record is deleted or overwritten; referencing
// lists reconcile on their next Invalidate.
func (h *Handle) Invalidate() {
	h.box = nil
	clear(h.backs)
}

// References reports how many slots of l currently hold this handle.
func (h *Handle) References(l *List) int {
	return h.backs[l]
}

// Lists returns the lists attached to this handle, in no particular order.
func (h *Handle) Lists() []*List {
	ls := make([]*List, 0, len(h.lists))
	for l := range h.lists {
		ls = append(ls, l)
	}
	return ls
}

// link and unlink are the only mutators of the occurrence counts. An entry
// is removed as soon as its count reaches zero, never kept at zero.

func (h *Handle) link(l *List) {
	if h.backs == nil {
		h.backs = make(map[*List]int)
	}
	h.backs[l]++
}

func (h *Handle) unlink(l *List) {
	n, ok := h.backs[l]
	if !ok {
		return
	}
	if n <= 1 {
		delete(h.backs, l)
	} else {
		h.backs[l] = n - 1
	}
}

func (h *Handle) attachList(l *List) {
	if h.lists == nil {
		h.lists = make(map[*List]struct{})
	}
	h.lists[l] = struct{}{}
}

func (h *Handle) detachList(l *List) {
	delete(h.lists, l)
}
