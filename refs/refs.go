/*
Package refs implements cross-reference lists: ordered, duplicate-preserving
sequences of references to records held in named keyed boxes.

A list is persisted as a box name plus a key list and resolved lazily into
live record handles. Consistency with record liveness is kept by
bidirectional bookkeeping: every handle counts, per list, how many slots
hold it, and every list can drop the occurrences of handles whose records
are gone. There is no referential integrity underneath. Deleting a record
leaves dangling keys in stored lists; dangling keys are silently dropped at
resolution, and live lists reconcile through Invalidate.

The package does no locking. Lists and handles belong to a single logical
writer, the usual regime of an embedded store.
*/
package refs

// Container is a named keyed box of records, as seen by a list.
//
// Get returns the canonical live handle of a record and is only meaningful
// for keys that Contains reports present. Synchronous containers answer
// Contains and Get from memory; deferred ones cannot back a list.
type Container interface {
	Name() string
	Synchronous() bool
	Contains(key string) bool
	Get(key string) *Handle
}

// Registry resolves box names to open containers, typically the store
// engine. Resolve returns nil for a name that is unknown, closed, or not
// backed by a synchronous container.
type Registry interface {
	Resolve(name string) Container
	IsOpen(name string) bool
}
