package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/datashelf/internal/policy"
	"github.com/vk/datashelf/internal/storage"
)

func openPosix(t *testing.T, root string) *storage.Posix {
	t.Helper()
	s, err := storage.NewPosix(root, true)
	require.NoError(t, err)
	return s
}

func TestCfgSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	store := openPosix(t, root)

	pol := policy.New()
	pol.Set("datasets.raw.template", "raw/v%(visit)d.dat")

	cfg := NewCfg(root, pol)
	cfg.AddParents(filepath.Join(root, "..", "calib"))
	require.True(t, cfg.Dirty())
	require.NoError(t, cfg.Save(store))
	assert.False(t, cfg.Dirty())

	loaded, err := LoadCfg(store)
	require.NoError(t, err)
	assert.Equal(t, "raw/v%(visit)d.dat", loaded.Policy().String("datasets.raw.template", ""))
	assert.Equal(t, cfg.Parents(), loaded.Parents())
}

func TestCfgParentsStoredRelative(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	store := openPosix(t, root)
	parent := filepath.Clean(filepath.Join(root, "..", "parent-repo"))

	cfg := NewCfg(root, nil)
	cfg.AddParents(parent)
	require.NoError(t, cfg.Save(store))

	// the file on disk holds the relative form
	raw, err := os.ReadFile(filepath.Join(root, CfgFileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "../parent-repo")
	assert.NotContains(t, string(raw), parent)

	// the API resolves it back to absolute
	loaded, err := LoadCfg(store)
	require.NoError(t, err)
	assert.Equal(t, []string{parent}, loaded.Parents())
}

func TestCfgAddParentsDeduplicates(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cfg := NewCfg(root, nil)

	parent := filepath.Join(root, "..", "p1")
	cfg.AddParents(parent)
	cfg.AddParents(parent)
	assert.Len(t, cfg.Parents(), 1)
}

func TestCfgExtend(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	p1 := filepath.Clean(filepath.Join(root, "..", "p1"))
	p2 := filepath.Clean(filepath.Join(root, "..", "p2"))

	t.Run("appends new parents at the tail", func(t *testing.T) {
		t.Parallel()
		a := NewCfg(root, nil)
		a.AddParents(p1)
		b := NewCfg(root, nil)
		b.AddParents(p1, p2)

		require.NoError(t, a.Extend(b))
		assert.Equal(t, []string{p1, p2}, a.Parents())
	})

	t.Run("identical lists are a no-op", func(t *testing.T) {
		t.Parallel()
		a := NewCfg(root, nil)
		a.AddParents(p1)
		b := NewCfg(root, nil)
		b.AddParents(p1)
		require.NoError(t, a.Extend(b))
	})

	t.Run("reordered parents fail", func(t *testing.T) {
		t.Parallel()
		a := NewCfg(root, nil)
		a.AddParents(p1, p2)
		b := NewCfg(root, nil)
		b.AddParents(p2, p1)
		require.ErrorIs(t, a.Extend(b), ErrParentsMismatch)
	})

	t.Run("shorter list fails", func(t *testing.T) {
		t.Parallel()
		a := NewCfg(root, nil)
		a.AddParents(p1, p2)
		b := NewCfg(root, nil)
		b.AddParents(p1)
		require.ErrorIs(t, a.Extend(b), ErrParentsMismatch)
	})

	t.Run("different root fails", func(t *testing.T) {
		t.Parallel()
		a := NewCfg(root, nil)
		b := NewCfg(t.TempDir(), nil)
		require.ErrorIs(t, a.Extend(b), ErrCfgMismatch)
	})

	t.Run("different policy fails", func(t *testing.T) {
		t.Parallel()
		a := NewCfg(root, nil)
		other := policy.New()
		other.Set("datasets.raw.template", "x")
		b := NewCfg(root, other)
		require.ErrorIs(t, a.Extend(b), ErrCfgMismatch)
	})
}

func TestArgsMatches(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	pol := policy.New()
	pol.Set("a", 1)
	cfg := NewCfg(root, pol)

	assert.True(t, Args{Root: root}.Matches(cfg))
	assert.True(t, Args{Root: root, Policy: policy.FromMap(map[string]any{"a": 1})}.Matches(cfg))
	assert.False(t, Args{Root: t.TempDir()}.Matches(cfg))
	assert.False(t, Args{Root: root, Policy: policy.FromMap(map[string]any{"a": 2})}.Matches(cfg))
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Mode{"": ModeRead, "r": ModeRead, "w": ModeWrite, "rw": ModeReadWrite} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("x")
	require.Error(t, err)

	assert.True(t, ModeRead.Readable())
	assert.False(t, ModeRead.Writable())
	assert.True(t, ModeWrite.Writable())
	assert.False(t, ModeWrite.Readable())
	assert.True(t, ModeReadWrite.Readable())
	assert.True(t, ModeReadWrite.Writable())
}
