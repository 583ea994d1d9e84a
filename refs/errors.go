package refs

import "errors"

var (
	ErrNotSynchronous  = errors.New("hive: needs a synchronous container")
	ErrDetachedOwner   = errors.New("hive: owner handle has no container")
	ErrNotOpen         = errors.New("hive: container is not open")
	ErrDisposed        = errors.New("hive: already been disposed")
	ErrNotMember       = errors.New("hive: needs to be in the box")
	ErrAlreadyAttached = errors.New("hive: handle is already attached")
	ErrIndexRange      = errors.New("hive: list index out of range")
	ErrBadListRecord   = errors.New("hive: bad list record")
)
