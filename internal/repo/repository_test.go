package repo

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/datashelf/internal/policy"
)

func rawPolicy() *policy.Policy {
	pol := policy.New()
	pol.Set("datasets.raw.template", "raw/%(filter)s/v%(visit)07d.dat")
	pol.Set("datasets.raw.format", "json")
	pol.Set("datasets.notes.template", "notes/%(visit)d.txt")
	return pol
}

func TestOpenInitializesWritableRepository(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	r, err := Open(context.Background(), Args{Root: root, Mode: ModeReadWrite, Policy: rawPolicy()})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, CfgFileName))
	assert.Equal(t, []string{"notes", "raw"}, r.Types())

	// reopening picks the persisted cfg up again
	r2, err := Open(context.Background(), Args{Root: root, Mode: ModeRead})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "raw"}, r2.Types())
}

func TestOpenReadOnlyDoesNotInitialize(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	_, err := Open(context.Background(), Args{Root: root, Mode: ModeRead, Policy: rawPolicy()})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, CfgFileName))
}

func TestMap(t *testing.T) {
	t.Parallel()
	r, err := Open(context.Background(), Args{Root: t.TempDir(), Mode: ModeReadWrite, Policy: rawPolicy()})
	require.NoError(t, err)

	loc, err := r.Map("raw", map[string]any{"filter": "g", "visit": 42})
	require.NoError(t, err)
	assert.Equal(t, "raw/g/v0000042.dat", loc.Path)
	assert.Equal(t, "json", loc.Format)
	assert.Equal(t, "raw", loc.DatasetType)

	loc, err = r.Map("notes", map[string]any{"visit": 42})
	require.NoError(t, err)
	assert.Empty(t, loc.Format, "datasets may leave the format to the caller")

	_, err = r.Map("unknown", nil)
	require.ErrorIs(t, err, ErrUnknownDataset)

	_, err = r.Map("raw", map[string]any{"visit": 42})
	require.Error(t, err, "incomplete data ID")
}

func TestReadWriteExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, err := Open(ctx, Args{Root: t.TempDir(), Mode: ModeReadWrite, Policy: rawPolicy()})
	require.NoError(t, err)

	loc, err := r.Map("raw", map[string]any{"filter": "g", "visit": 1})
	require.NoError(t, err)
	assert.False(t, r.Exists(loc))

	require.NoError(t, r.Write(loc, func(w io.Writer) error {
		_, err := io.WriteString(w, "data")
		return err
	}))
	assert.True(t, r.Exists(loc))

	rc, err := r.Read(loc)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "data", string(data))
}

func TestWriteReadOnlyRepositoryFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := t.TempDir()
	_, err := Open(ctx, Args{Root: root, Mode: ModeReadWrite, Policy: rawPolicy()})
	require.NoError(t, err)

	r, err := Open(ctx, Args{Root: root, Mode: ModeRead})
	require.NoError(t, err)

	loc, err := r.Map("raw", map[string]any{"filter": "g", "visit": 1})
	require.NoError(t, err)
	err = r.Write(loc, func(io.Writer) error { return nil })
	require.ErrorIs(t, err, ErrNotWritable)
}

func TestScan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, err := Open(ctx, Args{Root: t.TempDir(), Mode: ModeReadWrite, Policy: rawPolicy()})
	require.NoError(t, err)

	for _, id := range []map[string]any{
		{"filter": "g", "visit": 1},
		{"filter": "r", "visit": 2},
	} {
		loc, err := r.Map("raw", id)
		require.NoError(t, err)
		require.NoError(t, r.Write(loc, func(w io.Writer) error {
			_, err := io.WriteString(w, "x")
			return err
		}))
	}

	found, err := r.Scan(ctx, "raw")
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]any{
		"raw/g/v0000001.dat": {"filter": "g", "visit": 1},
		"raw/r/v0000002.dat": {"filter": "r", "visit": 2},
	}, found)

	_, err = r.Scan(ctx, "unknown")
	require.ErrorIs(t, err, ErrUnknownDataset)
}

func TestHasTag(t *testing.T) {
	t.Parallel()
	r, err := Open(context.Background(), Args{
		Root: t.TempDir(), Mode: ModeReadWrite, Policy: rawPolicy(), Tags: []string{"calib"},
	})
	require.NoError(t, err)

	assert.True(t, r.HasTag("calib"))
	assert.True(t, r.HasTag(""))
	assert.False(t, r.HasTag("raw"))
	assert.Equal(t, []string{"calib"}, r.Tags())
}
