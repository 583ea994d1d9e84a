package hive

import "errors"

var (
	ErrClosed         = errors.New("hive: no store open")
	ErrBoxName        = errors.New("hive: bad box name")
	ErrBoxKind        = errors.New("hive: box kind mismatch")
	ErrBoxOpen        = errors.New("hive: the box is open")
	ErrBoxUnknown     = errors.New("hive: unknown box")
	ErrRecordKey      = errors.New("hive: bad record key")
	ErrRecordNotFound = errors.New("hive: record not found")
)
