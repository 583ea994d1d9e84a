package refs

import "github.com/learn-decentralized-systems/toytlv"

// A stored list is an L record holding a B record with the box name,
// followed by one K record per key in sequence order. Duplicate and dead
// keys are stored as they are.

// MarshalTLV encodes the persisted form of l. It works on lazy and resolved
// lists alike; a disposed one cannot be stored.
func MarshalTLV(l *List) ([]byte, error) {
	keys, err := l.Keys()
	if err != nil {
		return nil, err
	}
	parts := make([][]byte, 0, len(keys)+1)
	parts = append(parts, toytlv.Record('B', []byte(l.BoxName())))
	for _, key := range keys {
		parts = append(parts, toytlv.Record('K', []byte(key)))
	}
	return toytlv.Record('L', parts...), nil
}

// UnmarshalTLV decodes a stored list into a lazy list bound to reg.
func UnmarshalTLV(reg Registry, data []byte) (*List, error) {
	body, rest := toytlv.Take('L', data)
	if body == nil || len(rest) != 0 {
		return nil, ErrBadListRecord
	}
	name, rest := toytlv.Take('B', body)
	if name == nil {
		return nil, ErrBadListRecord
	}
	var keys []string
	for len(rest) > 0 {
		var key []byte
		key, rest = toytlv.Take('K', rest)
		if key == nil {
			return nil, ErrBadListRecord
		}
		keys = append(keys, string(key))
	}
	return NewLazy(reg, string(name), keys), nil
}
