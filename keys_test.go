package hive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoxRange(t *testing.T) {
	fro, til := boxRange("trips")

	// every record key of the box falls inside [fro, til)
	assert.True(t, bytes.Compare(fro, recordKey("trips", "a")) <= 0)
	assert.True(t, bytes.Compare(recordKey("trips", "a"), til) < 0)
	assert.True(t, bytes.Compare(recordKey("trips", "\xff\xff\xff"), til) < 0)

	// records of a box with the same prefix stay outside
	assert.True(t, bytes.Compare(recordKey("trips2", "a"), til) >= 0)

	// manifests live in their own keyspace
	assert.True(t, bytes.Compare(manifestKey("trips"), fro) < 0)
}

func TestValidBoxName(t *testing.T) {
	assert.True(t, validBoxName("trips"))
	assert.True(t, validBoxName("café"))
	assert.False(t, validBoxName(""))
	assert.False(t, validBoxName("tab\tname"))
	assert.False(t, validBoxName("nul\x00name"))
	assert.False(t, validBoxName("\xff\xfe"))
}

func TestValidRecordKey(t *testing.T) {
	assert.True(t, validRecordKey("alice"))
	assert.True(t, validRecordKey("spaces and \xc3\xa9"))
	assert.False(t, validRecordKey(""))
	assert.False(t, validRecordKey("a\x00b"))
}
