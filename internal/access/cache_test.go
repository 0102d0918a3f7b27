package access

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	mu     sync.Mutex
	exists map[string]bool
	err    error
	calls  atomic.Int64
}

func (f *fakeProber) UserExists(ctx context.Context, key string) (bool, error) {
	f.calls.Add(1)
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists[key], nil
}

func TestEnsureKnownCachesBothAnswers(t *testing.T) {
	prober := &fakeProber{exists: map[string]bool{"alice@example.com": true}}
	cache := NewExistenceCache(prober)

	exists, err := cache.EnsureKnown(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = cache.EnsureKnown(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	// Both answers served from cache now, positive and negative alike.
	for range 5 {
		_, err := cache.EnsureKnown(context.Background(), "alice@example.com")
		require.NoError(t, err)
		_, err = cache.EnsureKnown(context.Background(), "bob@example.com")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), prober.calls.Load())
}

func TestEnsureKnownDoesNotCacheProbeFailures(t *testing.T) {
	prober := &fakeProber{err: assert.AnError}
	cache := NewExistenceCache(prober)

	_, err := cache.EnsureKnown(context.Background(), "alice@example.com")
	require.Error(t, err)

	_, known := cache.Get("alice@example.com")
	assert.False(t, known)
}

func TestEnsureKnownSharesConcurrentProbes(t *testing.T) {
	release := make(chan struct{})
	prober := &slowProber{release: release}
	cache := NewExistenceCache(prober)

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exists, err := cache.EnsureKnown(context.Background(), "alice@example.com")
			assert.NoError(t, err)
			results[i] = exists
		}()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), prober.calls.Load())
	for _, exists := range results {
		assert.True(t, exists)
	}
}

func TestSetOverridesProbe(t *testing.T) {
	prober := &fakeProber{}
	cache := NewExistenceCache(prober)

	cache.Set("carol@example.com", true)
	exists, err := cache.EnsureKnown(context.Background(), "carol@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(0), prober.calls.Load())
}

type slowProber struct {
	release chan struct{}
	calls   atomic.Int64
}

func (s *slowProber) UserExists(ctx context.Context, key string) (bool, error) {
	s.calls.Add(1)
	<-s.release
	return true, nil
}
