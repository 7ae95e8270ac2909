package formatter

import (
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/datashelf/internal/policy"
)

// stubFormatter is a formatter that does nothing; tests only care about
// identity and about what the factory received.
type stubFormatter struct {
	cfg *policy.Policy
}

func (s *stubFormatter) Read(io.Reader) (any, error) { return nil, nil }
func (s *stubFormatter) Write(io.Writer, any) error  { return nil }

// countingFactory returns a factory that records every invocation.
func countingFactory() (Factory, *[]*policy.Policy) {
	var calls []*policy.Policy
	return func(cfg *policy.Policy) (Formatter, error) {
		calls = append(calls, cfg)
		return &stubFormatter{cfg: cfg}, nil
	}, &calls
}

func TestLookupByNameAndTypeKeyAgree(t *testing.T) {
	t.Parallel()
	r := New()
	factory, calls := countingFactory()
	r.Register("exposure", "ExposureType", factory)

	byName, err := r.Lookup("exposure", nil)
	require.NoError(t, err)
	byType, err := r.LookupType("ExposureType", nil)
	require.NoError(t, err)

	require.Len(t, *calls, 2, "each lookup invokes the factory once")
	assert.IsType(t, byName, byType)
	assert.Nil(t, (*calls)[0])
	assert.Nil(t, (*calls)[1])
}

func TestLookupUnknownFails(t *testing.T) {
	t.Parallel()
	r := New()
	factory, calls := countingFactory()
	r.Register("exposure", "ExposureType", factory)

	_, err := r.Lookup("Unknown", nil)
	require.ErrorIs(t, err, ErrNotRegistered)
	assert.ErrorContains(t, err, "Unknown")

	_, err = r.LookupType("UnknownType", nil)
	require.ErrorIs(t, err, ErrNotRegistered)
	assert.ErrorContains(t, err, "UnknownType")

	assert.Empty(t, *calls, "a miss never invokes a factory")
}

func TestReRegistrationReplaces(t *testing.T) {
	t.Parallel()
	r := New()
	first, firstCalls := countingFactory()
	second, secondCalls := countingFactory()

	r.Register("exposure", "ExposureType", first)
	r.Register("exposure", "ExposureType", second)

	_, err := r.Lookup("exposure", nil)
	require.NoError(t, err)
	_, err = r.LookupType("ExposureType", nil)
	require.NoError(t, err)

	assert.Empty(t, *firstCalls, "replaced factory is never used again")
	assert.Len(t, *secondCalls, 2)
}

func TestFactoryReceivesOwnPolicySlice(t *testing.T) {
	t.Parallel()
	r := New()
	factory, calls := countingFactory()
	r.Register("exposure", "ExposureType", factory)

	cfg := policy.FromMap(map[string]any{
		"exposure": map[string]any{"level": 3},
		"image":    map[string]any{"level": 9},
	})

	_, err := r.Lookup("exposure", cfg)
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	got := (*calls)[0]
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Int("level", 0))
	assert.False(t, got.Exists("image"), "only the named slice is passed, not the whole policy")

	// config present but without a slice for this formatter: factory gets nil
	_, err = r.Lookup("exposure", policy.FromMap(map[string]any{"image": map[string]any{}}))
	require.NoError(t, err)
	require.Len(t, *calls, 2)
	assert.Nil(t, (*calls)[1])
}

func TestDefaultIsOneInstance(t *testing.T) {
	a := Default()
	b := Default()
	require.Same(t, a, b)

	factory, _ := countingFactory()
	a.Register("default-test", "defaultTestKey", factory)
	_, err := b.Lookup("default-test", nil)
	assert.NoError(t, err, "registration through one handle is visible through another")
}

func TestRegisterForDerivesTypeKey(t *testing.T) {
	t.Parallel()
	type exposure struct{ ID int }

	r := New()
	factory, _ := countingFactory()
	r.RegisterFor("exposure", exposure{}, factory)

	_, err := r.LookupFor(&exposure{ID: 1}, nil)
	assert.NoError(t, err, "pointer and value prototypes share a type key")

	_, err = r.LookupFor(42, nil)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestNamesSorted(t *testing.T) {
	t.Parallel()
	r := New()
	factory, _ := countingFactory()
	r.Register("yaml", "", factory)
	r.Register("json", "", factory)
	r.Register("msgpack", "", factory)

	assert.Equal(t, []string{"json", "msgpack", "yaml"}, r.Names())
}

func TestConcurrentRegisterAndLookup(t *testing.T) {
	t.Parallel()
	r := New()
	factory := func(*policy.Policy) (Formatter, error) { return &stubFormatter{}, nil }
	r.Register("exposure", "ExposureType", factory)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("exposure", "ExposureType", factory)
		}()
		go func() {
			defer wg.Done()
			_, err := r.Lookup("exposure", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
