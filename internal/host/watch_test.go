package host

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramWatcherReloads(t *testing.T) {
	h := newHost(t, nil, nil, Options{})
	path := filepath.Join(t.TempDir(), "zoo.mg")
	require.NoError(t, os.WriteFile(path, []byte(`flag(/one).`), 0o644))
	require.NoError(t, h.LoadProgramFile(path))
	require.Len(t, h.Facts("flag"), 1)

	var mu sync.Mutex
	var results []error
	pw, err := NewProgramWatcher(h, path, func(err error) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, err)
	})
	require.NoError(t, err)
	pw.debounce = 20 * time.Millisecond
	require.NoError(t, pw.Start(context.Background()))
	defer pw.Stop()

	require.NoError(t, os.WriteFile(path, []byte("flag(/one).\nflag(/two).\n"), 0o644))
	require.Eventually(t, func() bool {
		return len(h.Facts("flag")) == 2
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`flag(`), 0o644))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) > 0 && results[len(results)-1] != nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Len(t, h.Facts("flag"), 2)
}
