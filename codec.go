package hive

import (
	"encoding/binary"
	"errors"

	"github.com/cespare/xxhash"
	"github.com/learn-decentralized-systems/toytlv"
)

// box kinds, as stored in the manifest
const (
	boxKindSync byte = 'S'
	boxKindLazy byte = 'L'
)

// change hose event literals
const (
	EventPut    byte = 'P'
	EventDelete byte = 'D'
	EventOpen   byte = 'O'
	EventClose  byte = 'C'
	EventDrop   byte = 'X'
)

var ErrRecordCorrupt = errors.New("hive: record checksum mismatch")

// sealRecord wraps a record value for storage: R(X(xxhash64 LE), V(payload))
func sealRecord(payload []byte) []byte {
	var sum [8]byte
	binary.LittleEndian.PutUint64(sum[:], xxhash.Sum64(payload))
	return toytlv.Record('R',
		toytlv.TinyRecord('X', sum[:]),
		toytlv.Record('V', payload),
	)
}

// openRecord unwraps a stored value, verifying the checksum.
func openRecord(data []byte) ([]byte, error) {
	body, _ := toytlv.Take('R', data)
	if body == nil {
		return nil, ErrRecordCorrupt
	}
	sum, rest := toytlv.Take('X', body)
	if len(sum) != 8 {
		return nil, ErrRecordCorrupt
	}
	payload, _ := toytlv.Take('V', rest)
	if payload == nil {
		return nil, ErrRecordCorrupt
	}
	if binary.LittleEndian.Uint64(sum) != xxhash.Sum64(payload) {
		return nil, ErrRecordCorrupt
	}
	return payload, nil
}

var ErrBadManifest = errors.New("hive: bad box manifest")

func sealManifest(kind byte) []byte {
	return toytlv.Record('B', toytlv.TinyRecord('K', []byte{kind}))
}

func openManifest(data []byte) (byte, error) {
	body, _ := toytlv.Take('B', data)
	if body == nil {
		return 0, ErrBadManifest
	}
	kind, _ := toytlv.Take('K', body)
	if len(kind) != 1 || (kind[0] != boxKindSync && kind[0] != boxKindLazy) {
		return 0, ErrBadManifest
	}
	return kind[0], nil
}

var ErrBadEvent = errors.New("hive: bad change record")

// eventRecord encodes one change for the hoses: lit(B(box)) or
// lit(B(box), K(key)).
func eventRecord(lit byte, box, key string) []byte {
	if key == "" {
		return toytlv.Record(lit, toytlv.Record('B', []byte(box)))
	}
	return toytlv.Record(lit,
		toytlv.Record('B', []byte(box)),
		toytlv.Record('K', []byte(key)),
	)
}

// ParseEvent decodes one change record as drained from a hose.
func ParseEvent(data []byte) (lit byte, box, key string, err error) {
	flit, hdrlen, bodylen := toytlv.ProbeHeader(data)
	if flit == 0 || flit == '-' || hdrlen+bodylen != len(data) {
		return 0, "", "", ErrBadEvent
	}
	body := data[hdrlen:]
	b, rest := toytlv.Take('B', body)
	if b == nil {
		return 0, "", "", ErrBadEvent
	}
	if len(rest) > 0 {
		k, _ := toytlv.Take('K', rest)
		if k == nil {
			return 0, "", "", ErrBadEvent
		}
		key = string(k)
	}
	return flit, string(b), key, nil
}
