package rawfmt_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/datashelf/formats/rawfmt"
	"github.com/vk/datashelf/internal/formatter"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	f, err := rawfmt.New(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, []byte("hello\x00world")))

	got, err := f.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\x00world"), got)
}

func TestWriteString(t *testing.T) {
	t.Parallel()

	f, err := rawfmt.New(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, "plain text"))
	assert.Equal(t, "plain text", buf.String())
}

func TestWriteRejectsOtherTypes(t *testing.T) {
	t.Parallel()

	f, err := rawfmt.New(nil)
	require.NoError(t, err)

	err = f.Write(&bytes.Buffer{}, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot write int")
}

func TestModuleRegistersByteSlices(t *testing.T) {
	t.Parallel()

	reg := formatter.New()
	(&rawfmt.Module{}).Register(reg)

	f, err := reg.LookupFor([]byte("x"), nil)
	require.NoError(t, err)

	got, err := f.Read(strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}
