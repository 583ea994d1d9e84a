package hive

import (
	"strings"
	"unicode/utf8"
)

// Pebble keyspace, single letter prefixes:
//
//	'O' + box + 0x00 + key -> record envelope
//	'B' + box              -> box manifest
func recordKey(box, key string) []byte {
	k := make([]byte, 0, len(box)+len(key)+2)
	k = append(k, 'O')
	k = append(k, box...)
	k = append(k, 0)
	k = append(k, key...)
	return k
}

func manifestKey(box string) []byte {
	k := make([]byte, 0, len(box)+1)
	k = append(k, 'B')
	k = append(k, box...)
	return k
}

// boxRange bounds the record keyspace of one box, for scans and range
// deletes.
func boxRange(box string) (fro, til []byte) {
	fro = recordKey(box, "")
	til = make([]byte, len(fro))
	copy(til, fro)
	til[len(til)-1]++
	return
}

func hasUnsafeChars(text string) bool {
	for _, l := range text {
		if l < ' ' {
			return true
		}
	}
	return false
}

func validBoxName(name string) bool {
	return len(name) > 0 && utf8.ValidString(name) && !hasUnsafeChars(name)
}

// record keys are free-form except for the keyspace separator
func validRecordKey(key string) bool {
	return len(key) > 0 && !strings.ContainsRune(key, 0)
}
