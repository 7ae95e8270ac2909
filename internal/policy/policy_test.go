package policy

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() *Policy {
	return FromMap(map[string]any{
		"body": map[string]any{
			"job": map[string]any{
				"position": "Developer",
				"company":  "Microsoft",
			},
			"name": "John",
		},
		"error": false,
	})
}

func TestGetDottedPaths(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	v, ok := p.Get("body.job.position")
	require.True(t, ok)
	assert.Equal(t, "Developer", v)

	v, ok = p.Get("body.job")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"position": "Developer", "company": "Microsoft"}, v)

	_, ok = p.Get("body.job.salary")
	assert.False(t, ok)
	_, ok = p.Get("body.name.first")
	assert.False(t, ok, "descending through a scalar must miss")
}

func TestSetDottedPaths(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	// change an item
	p.Set("body.job.company", "SLAC")
	assert.Equal(t, "SLAC", p.String("body.job.company", ""))

	// add an item, creating no new intermediate maps
	p.Set("body.job.salary", 100000)
	assert.Equal(t, map[string]any{
		"position": "Developer", "company": "SLAC", "salary": 100000,
	}, p.Map()["body"].(map[string]any)["job"])

	// add an item along a brand new path
	p.Set("extra.flags.verbose", true)
	assert.True(t, p.Bool("extra.flags.verbose", false))
}

func TestExistsAndRemove(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	assert.True(t, p.Exists("body.job"))
	assert.True(t, p.Exists("error"))
	assert.False(t, p.Exists("warnings"))

	p.Remove("body.job.position")
	assert.False(t, p.Exists("body.job.position"))
	p.Remove("no.such.path") // no-op
}

func TestSubIsLiveView(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	sub := p.Sub("body.job")
	require.NotNil(t, sub)
	assert.Equal(t, "Developer", sub.String("position", ""))

	sub.Set("position", "Manager")
	assert.Equal(t, "Manager", p.String("body.job.position", ""))

	assert.Nil(t, p.Sub("body.name"), "scalar nodes have no sub-policy")
	assert.Nil(t, p.Sub("absent"))
}

func TestUpdateOtherWins(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	p.Update(FromMap(map[string]any{
		"body": map[string]any{"job": map[string]any{"position": "Manager"}},
	}))
	assert.Equal(t, "Manager", p.String("body.job.position", ""))
	assert.Equal(t, "Microsoft", p.String("body.job.company", ""), "siblings survive an update")

	// a map replaces a scalar at the same path
	p.Update(FromMap(map[string]any{
		"body": map[string]any{"name": map[string]any{"first": "John", "last": "Smith"}},
	}))
	assert.Equal(t, "Smith", p.String("body.name.last", ""))
}

func TestMergeExistingWins(t *testing.T) {
	t.Parallel()
	a := New()
	b := New()
	a.Set("a.b.c", 1)
	b.Set("a.b.c", 2)
	b.Set("a.b.d", 3)

	a.Merge(b)
	assert.Equal(t, 1, a.Int("a.b.c", 0))
	assert.Equal(t, 3, a.Int("a.b.d", 0))

	// b remains unchanged
	assert.Equal(t, 2, b.Int("a.b.c", 0))
	assert.Equal(t, 3, b.Int("a.b.d", 0))
}

func TestNames(t *testing.T) {
	t.Parallel()
	p := testPolicy()
	assert.Equal(t, []string{
		"body", "body.job", "body.job.company", "body.job.position", "body.name", "error",
	}, p.Names())
}

func TestTypedAccessors(t *testing.T) {
	t.Parallel()
	p := FromMap(map[string]any{
		"int":     7,
		"float":   2.5,
		"intAsF":  float64(9),
		"text":    "hello",
		"flag":    true,
		"list":    []any{"a", "b"},
		"strlist": []string{"x"},
	})

	assert.Equal(t, 7, p.Int("int", 0))
	assert.Equal(t, 9, p.Int("intAsF", 0))
	assert.Equal(t, 41, p.Int("missing", 41))
	assert.Equal(t, 2.5, p.Float("float", 0))
	assert.Equal(t, 7.0, p.Float("int", 0))
	assert.Equal(t, "hello", p.String("text", ""))
	assert.Equal(t, "fallback", p.String("flag", "fallback"), "wrong type yields the default")
	assert.True(t, p.Bool("flag", false))
	assert.Equal(t, []string{"a", "b"}, p.StringSlice("list"))
	assert.Equal(t, []string{"x"}, p.StringSlice("strlist"))
	assert.Nil(t, p.StringSlice("text"))
}

func TestDumpLoadRoundTrip(t *testing.T) {
	t.Parallel()
	p := testPolicy()
	path := filepath.Join(t.TempDir(), "policy.yaml")

	require.NoError(t, p.DumpFile(path))
	loaded, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Developer", loaded.String("body.job.position", ""))
	assert.Equal(t, false, loaded.Bool("error", true))
	assert.Equal(t, p.Names(), loaded.Names())
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
