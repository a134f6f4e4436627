package knowledge

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hexowl/internal/ontology"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegistryReturnsSameContext(t *testing.T) {
	meta := writeStore(t)
	reg := NewRegistry(Options{})
	defer reg.Close()

	a, err := reg.Get(meta)
	require.NoError(t, err)
	rel, err := filepath.Rel(mustGetwd(t), meta)
	require.NoError(t, err)
	b, err := reg.Get(rel)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, []string{meta}, reg.Locations())

	tag, err := reg.Tag(rel)
	require.NoError(t, err)
	assert.Equal(t, a.Tag(), tag)
}

func TestRegistryCachesFailure(t *testing.T) {
	var calls atomic.Int32
	broken := errors.New("unreachable document")
	reg := NewRegistryWith(func(string) (*Context, error) {
		calls.Add(1)
		return nil, broken
	})
	defer reg.Close()

	for i := 0; i < 3; i++ {
		_, err := reg.Get("/stores/bad.json")
		assert.ErrorIs(t, err, broken)
	}
	assert.EqualValues(t, 1, calls.Load())

	_, err := reg.Tag("/stores/bad.json")
	assert.ErrorIs(t, err, broken)
}

func TestRegistryConcurrentConstruction(t *testing.T) {
	var calls sync.Map
	release := make(chan struct{})
	reg := NewRegistryWith(func(loc string) (*Context, error) {
		n, _ := calls.LoadOrStore(loc, new(atomic.Int32))
		n.(*atomic.Int32).Add(1)
		<-release
		return NewContext(loc, ontology.NewDocument(loc), nil, nil), nil
	})
	defer reg.Close()

	const locations, callers = 4, 8
	results := make([][]*Context, locations)
	var wg sync.WaitGroup
	for l := 0; l < locations; l++ {
		results[l] = make([]*Context, callers)
		for c := 0; c < callers; c++ {
			wg.Add(1)
			go func(l, c int) {
				defer wg.Done()
				ctx, err := reg.Get(fmt.Sprintf("/stores/%d.json", l))
				assert.NoError(t, err)
				results[l][c] = ctx
			}(l, c)
		}
	}
	// Different locations construct in parallel: all four are blocked at once.
	require.Eventually(t, func() bool {
		n := 0
		calls.Range(func(any, any) bool { n++; return true })
		return n == locations
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for l := 0; l < locations; l++ {
		n, _ := calls.Load(fmt.Sprintf("/stores/%d.json", l))
		assert.EqualValues(t, 1, n.(*atomic.Int32).Load())
		for c := 1; c < callers; c++ {
			assert.Same(t, results[l][0], results[l][c])
		}
	}
}

func TestRegistryClose(t *testing.T) {
	reg := NewRegistryWith(func(loc string) (*Context, error) {
		return NewContext(loc, ontology.NewDocument(loc), nil, nil), nil
	})
	c, err := reg.Get("/stores/a.json")
	require.NoError(t, err)
	reg.Close()
	reg.Close()

	_, err = c.Reasoner()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = reg.Get("/stores/a.json")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, reg.Locations())
}

func mustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := filepath.Abs(".")
	require.NoError(t, err)
	return wd
}
