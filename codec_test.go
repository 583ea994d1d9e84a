package hive

import (
	"testing"

	"github.com/learn-decentralized-systems/toytlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEnvelope(t *testing.T) {
	sealed := sealRecord([]byte("amsterdam"))
	payload, err := openRecord(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("amsterdam"), payload)

	empty, err := openRecord(sealRecord(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = openRecord(nil)
	assert.ErrorIs(t, err, ErrRecordCorrupt)
	_, err = openRecord([]byte("garbage"))
	assert.ErrorIs(t, err, ErrRecordCorrupt)
	_, err = openRecord(sealed[:len(sealed)-1])
	assert.ErrorIs(t, err, ErrRecordCorrupt)

	// a flipped payload bit fails the checksum
	dented := append([]byte(nil), sealed...)
	dented[len(dented)-1] ^= 0x01
	_, err = openRecord(dented)
	assert.ErrorIs(t, err, ErrRecordCorrupt)
}

func TestBoxManifest(t *testing.T) {
	for _, kind := range []byte{boxKindSync, boxKindLazy} {
		got, err := openManifest(sealManifest(kind))
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}

	_, err := openManifest(nil)
	assert.ErrorIs(t, err, ErrBadManifest)
	_, err = openManifest([]byte("garbage"))
	assert.ErrorIs(t, err, ErrBadManifest)
	_, err = openManifest(sealManifest('Q'))
	assert.ErrorIs(t, err, ErrBadManifest)
}

func TestEventRecord(t *testing.T) {
	lit, box, key, err := ParseEvent(eventRecord(EventPut, "trips", "alice"))
	require.NoError(t, err)
	assert.Equal(t, EventPut, lit)
	assert.Equal(t, "trips", box)
	assert.Equal(t, "alice", key)

	lit, box, key, err = ParseEvent(eventRecord(EventOpen, "trips", ""))
	require.NoError(t, err)
	assert.Equal(t, EventOpen, lit)
	assert.Equal(t, "trips", box)
	assert.Equal(t, "", key)

	_, _, _, err = ParseEvent(nil)
	assert.ErrorIs(t, err, ErrBadEvent)
	_, _, _, err = ParseEvent([]byte("garbage"))
	assert.ErrorIs(t, err, ErrBadEvent)

	// one event per record, trailing bytes are rejected
	glued := toytlv.Concat(
		eventRecord(EventPut, "trips", "alice"),
		eventRecord(EventPut, "trips", "bob"),
	)
	_, _, _, err = ParseEvent(glued)
	assert.ErrorIs(t, err, ErrBadEvent)
}
