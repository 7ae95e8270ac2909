package msgpackfmt_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/datashelf/formats/msgpackfmt"
	"github.com/vk/datashelf/internal/formatter"
	"github.com/vk/datashelf/internal/policy"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	f, err := msgpackfmt.New(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	doc := msgpackfmt.Document{"visit": int8(7), "filter": "r"}
	require.NoError(t, f.Write(&buf, doc))

	got, err := f.Read(&buf)
	require.NoError(t, err)

	decoded, ok := got.(msgpackfmt.Document)
	require.True(t, ok)
	assert.Equal(t, "r", decoded["filter"])
	assert.EqualValues(t, 7, decoded["visit"])
}

func TestSortMapKeysDeterministic(t *testing.T) {
	t.Parallel()

	cfg := policy.FromMap(map[string]any{"sort_map_keys": true})
	f, err := msgpackfmt.New(cfg)
	require.NoError(t, err)

	doc := msgpackfmt.Document{"a": 1, "b": 2, "c": 3, "d": 4}

	var first bytes.Buffer
	require.NoError(t, f.Write(&first, doc))
	for i := 0; i < 10; i++ {
		var again bytes.Buffer
		require.NoError(t, f.Write(&again, doc))
		require.Equal(t, first.Bytes(), again.Bytes())
	}
}

func TestModuleRegistersDocuments(t *testing.T) {
	t.Parallel()

	reg := formatter.New()
	(&msgpackfmt.Module{}).Register(reg)

	f, err := reg.LookupFor(msgpackfmt.Document{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, f)

	_, err = reg.Lookup(msgpackfmt.Name, nil)
	require.NoError(t, err)
}
