package hive

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testdirs(origs ...uint64) ([]string, func()) {
	dirs := make([]string, len(origs))

	for i, orig := range origs {
		dirs[i] = fmt.Sprintf("hive%x", orig)
		os.RemoveAll(dirs[i])
	}

	return dirs, func() {
		for _, dir := range dirs {
			os.RemoveAll(dir)
		}
	}
}

func TestHive_Create(t *testing.T) {
	dirs, cancel := testdirs(0x1a)
	defer cancel()

	h, err := Open(dirs[0], Options{})
	assert.Nil(t, err)
	assert.NotNil(t, h)

	assert.NoError(t, h.Close())
	assert.ErrorIs(t, h.Close(), ErrClosed)
}

func TestHive_OpenBadDir(t *testing.T) {
	file := "hivefile.tmp"
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	defer os.Remove(file)

	_, err := Open(file, Options{})
	assert.Error(t, err)
}

func TestHive_ClosedStore(t *testing.T) {
	dirs, cancel := testdirs(0x1b)
	defer cancel()

	h, err := Open(dirs[0], Options{})
	require.NoError(t, err)
	require.NoError(t, h.Close())

	_, err = h.OpenBox("data")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = h.OpenLazyBox("data")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, h.DropBox("data"), ErrClosed)
	assert.ErrorIs(t, h.CloseBox("data"), ErrBoxUnknown)
}

func TestHive_BoxNames(t *testing.T) {
	dirs, cancel := testdirs(0x1c)
	defer cancel()

	h, err := Open(dirs[0], Options{})
	require.NoError(t, err)
	defer h.Close()

	for _, name := range []string{"", "tab\tname", "nul\x00name", "\xff\xfe"} {
		_, err = h.OpenBox(name)
		assert.ErrorIs(t, err, ErrBoxName, name)
	}

	box, err := h.OpenBox("café")
	assert.NoError(t, err)
	assert.Equal(t, "café", box.Name())
}

func TestHive_BoxKinds(t *testing.T) {
	dirs, cancel := testdirs(0x1d)
	defer cancel()

	h, err := Open(dirs[0], Options{})
	require.NoError(t, err)
	defer h.Close()

	box, err := h.OpenBox("data")
	require.NoError(t, err)
	again, err := h.OpenBox("data")
	require.NoError(t, err)
	assert.Same(t, box, again)

	// the manifest pins the kind, open or closed
	_, err = h.OpenLazyBox("data")
	assert.ErrorIs(t, err, ErrBoxKind)

	_, err = box.Put("k", []byte("v"))
	require.NoError(t, err)
	require.NoError(t, h.CloseBox("data"))
	_, err = h.OpenLazyBox("data")
	assert.ErrorIs(t, err, ErrBoxKind)

	// dropping the box clears the manifest and the records
	require.NoError(t, h.DropBox("data"))
	lazy, err := h.OpenLazyBox("data")
	require.NoError(t, err)
	assert.Equal(t, 0, lazy.Len())
}

func TestHive_CloseDropErrors(t *testing.T) {
	dirs, cancel := testdirs(0x1e)
	defer cancel()

	h, err := Open(dirs[0], Options{})
	require.NoError(t, err)
	defer h.Close()

	assert.ErrorIs(t, h.CloseBox("ghost"), ErrBoxUnknown)

	_, err = h.OpenBox("data")
	require.NoError(t, err)
	assert.ErrorIs(t, h.DropBox("data"), ErrBoxOpen)
}

func TestHive_Registry(t *testing.T) {
	dirs, cancel := testdirs(0x1f)
	defer cancel()

	h, err := Open(dirs[0], Options{})
	require.NoError(t, err)
	defer h.Close()

	trips, err := h.OpenBox("trips")
	require.NoError(t, err)
	_, err = h.OpenLazyBox("blobs")
	require.NoError(t, err)

	assert.Same(t, trips, h.Resolve("trips"))
	assert.True(t, h.IsOpen("trips"))
	assert.Equal(t, []string{"blobs", "trips"}, h.Boxes())

	// deferred boxes are open yet resolve to nothing
	assert.Nil(t, h.Resolve("blobs"))
	assert.True(t, h.IsOpen("blobs"))

	assert.Nil(t, h.Resolve("ghost"))
	assert.False(t, h.IsOpen("ghost"))

	require.NoError(t, h.CloseBox("trips"))
	assert.Nil(t, h.Resolve("trips"))
	assert.False(t, h.IsOpen("trips"))
}

func TestHive_ChangeHose(t *testing.T) {
	dirs, cancel := testdirs(0x20)
	defer cancel()

	h, err := Open(dirs[0], Options{})
	require.NoError(t, err)
	defer h.Close()

	hose := h.AddChangeHose("watch")

	box, err := h.OpenBox("data")
	require.NoError(t, err)
	_, err = box.Put("k1", []byte("v1"))
	require.NoError(t, err)
	_, err = box.Put("k2", []byte("v2"))
	require.NoError(t, err)
	require.NoError(t, box.Delete("k1"))
	require.NoError(t, h.CloseBox("data"))
	require.NoError(t, h.DropBox("data"))

	want := []struct {
		lit byte
		box string
		key string
	}{
		{EventOpen, "data", ""},
		{EventPut, "data", "k1"},
		{EventPut, "data", "k2"},
		{EventDelete, "data", "k1"},
		{EventClose, "data", ""},
		{EventDrop, "data", ""},
	}

	recs, err := hose.Feed()
	require.NoError(t, err)
	require.Len(t, recs, len(want))
	for i, rec := range recs {
		lit, boxName, key, perr := ParseEvent(rec)
		require.NoError(t, perr)
		assert.Equal(t, want[i].lit, lit)
		assert.Equal(t, want[i].box, boxName)
		assert.Equal(t, want[i].key, key)
	}
}

func TestHive_HoseReplaceRemove(t *testing.T) {
	dirs, cancel := testdirs(0x21)
	defer cancel()

	h, err := Open(dirs[0], Options{})
	require.NoError(t, err)
	defer h.Close()

	old := h.AddChangeHose("watch")
	fresh := h.AddChangeHose("watch")

	// the replaced hose is closed and drained dry
	_, err = old.Feed()
	assert.ErrorIs(t, err, toyqueue.ErrClosed)

	require.NoError(t, h.RemoveChangeHose("watch"))
	_, err = fresh.Feed()
	assert.ErrorIs(t, err, toyqueue.ErrClosed)

	assert.NoError(t, h.RemoveChangeHose("watch"))
}

func TestHive_Persistence(t *testing.T) {
	dirs, cancel := testdirs(0x22)
	defer cancel()

	h, err := Open(dirs[0], Options{})
	require.NoError(t, err)
	box, err := h.OpenBox("trips")
	require.NoError(t, err)
	_, err = box.Put("alice", []byte("amsterdam"))
	require.NoError(t, err)
	_, err = box.Put("bob", []byte("bergen"))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	h, err = Open(dirs[0], Options{})
	require.NoError(t, err)
	defer h.Close()

	_, err = h.OpenLazyBox("trips")
	assert.ErrorIs(t, err, ErrBoxKind)

	box, err = h.OpenBox("trips")
	require.NoError(t, err)
	assert.Equal(t, 2, box.Len())
	payload, ok := box.Payload("alice")
	assert.True(t, ok)
	assert.Equal(t, []byte("amsterdam"), payload)
	assert.NotNil(t, box.Get("bob"))
}

func TestHive_Dump(t *testing.T) {
	dirs, cancel := testdirs(0x24)
	defer cancel()

	h, err := Open(dirs[0], Options{})
	require.NoError(t, err)
	defer h.Close()

	box, err := h.OpenBox("trips")
	require.NoError(t, err)
	_, err = box.Put("alice", []byte("amsterdam"))
	require.NoError(t, err)

	var buf bytes.Buffer
	h.DumpAll(&buf)
	assert.Contains(t, buf.String(), "trips:\tS")
	assert.Contains(t, buf.String(), "trips.alice:\t\"amsterdam\"")
}

func TestHive_Metrics(t *testing.T) {
	dirs, cancel := testdirs(0x23)
	defer cancel()

	reg := prometheus.NewRegistry()
	h, err := Open(dirs[0], Options{Metrics: reg})
	require.NoError(t, err)
	defer h.Close()

	box, err := h.OpenBox("mtrips")
	require.NoError(t, err)
	owner, err := box.Put("route", []byte("north"))
	require.NoError(t, err)
	l, err := box.NewList(owner)
	require.NoError(t, err)
	require.NoError(t, box.PutList("route.stops", l))

	stored, err := box.GetList("route.stops")
	require.NoError(t, err)
	_, err = stored.Items()
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["hive_pebble_disk_usage_bytes"])
	assert.True(t, names["hive_refs_resolutions"])
}
