package hive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cockroachdb/pebble"
)

func recordKVString(key, value []byte) string {
	sep := bytes.IndexByte(key[1:], 0)
	if sep < 0 {
		return ""
	}
	box, rkey := key[1:1+sep], key[2+sep:]
	line := make([]byte, 0, 128)
	line = append(line, box...)
	line = append(line, '.')
	line = append(line, rkey...)
	line = append(line, ':', '\t')
	payload, err := openRecord(value)
	if err != nil {
		line = append(line, "?!"...)
	} else {
		line = append(line, fmt.Sprintf("%q", payload)...)
	}
	return string(line)
}

func (h *Hive) DumpAll(writer io.Writer) {
	h.DumpManifests(writer)
	fmt.Fprintln(writer, "")
	h.DumpRecords(writer)
}

func (h *Hive) DumpManifests(writer io.Writer) {
	io := pebble.IterOptions{
		LowerBound: []byte{'B'},
		UpperBound: []byte{'C'},
	}
	i, err := h.db.NewIter(&io)
	if err != nil {
		return
	}
	defer i.Close()
	for i.First(); i.Valid(); i.Next() {
		kind, kerr := openManifest(i.Value())
		if kerr != nil {
			kind = '?'
		}
		fmt.Fprintf(writer, "%s:\t%c\n", i.Key()[1:], kind)
	}
}

func (h *Hive) DumpRecords(writer io.Writer) {
	io := pebble.IterOptions{
		LowerBound: []byte{'O'},
		UpperBound: []byte{'P'},
	}
	i, err := h.db.NewIter(&io)
	if err != nil {
		return
	}
	defer i.Close()
	for i.First(); i.Valid(); i.Next() {
		fmt.Fprintln(writer, recordKVString(i.Key(), i.Value()))
	}
}
