package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func TestApartment_SerializesCalls(t *testing.T) {
	a, err := New(nil)
	require.NoError(t, err)
	defer a.Close()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.Do(context.Background(), func() error {
				n := active.Add(1)
				for {
					m := maxActive.Load()
					if n <= m || maxActive.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	stats := a.Stats()
	assert.Equal(t, int64(50), stats.Submitted)
	assert.Equal(t, int64(50), stats.Completed)
	assert.Equal(t, DefaultQueueSize, stats.Capacity)
}

func TestApartment_ReturnsErrors(t *testing.T) {
	a, err := New(nil)
	require.NoError(t, err)
	defer a.Close()

	boom := errors.New("boom")
	assert.ErrorIs(t, a.Do(context.Background(), func() error { return boom }), boom)
	assert.Equal(t, int64(1), a.Stats().Failed)
}

func TestApartment_RecoversPanics(t *testing.T) {
	a, err := New(nil)
	require.NoError(t, err)
	defer a.Close()

	err = a.Do(context.Background(), func() error { panic("bad pointer") })
	require.Error(t, err)
	assert.True(t, platform.Is(err, platform.CodeInternal))
	assert.Equal(t, int64(1), a.Stats().Panicked)

	// The apartment keeps serving after a panic.
	assert.NoError(t, a.Do(context.Background(), func() error { return nil }))
}

func TestApartment_FullQueueBlocksUntilContextEnds(t *testing.T) {
	a, err := New(nil, WithQueueSize(1))
	require.NoError(t, err)
	defer a.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go a.Do(context.Background(), func() error {
		close(started)
		<-release
		return nil
	})
	<-started
	go a.Do(context.Background(), func() error { return nil })
	require.Eventually(t, func() bool { return a.Stats().Queued == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = a.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestApartment_InitFailure(t *testing.T) {
	_, err := New(func() error { return errors.New("CoInitializeEx failed") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CoInitializeEx failed")
}

func TestApartment_Close(t *testing.T) {
	a, err := New(nil)
	require.NoError(t, err)
	a.Close()
	a.Close()
	assert.ErrorIs(t, a.Do(context.Background(), func() error { return nil }), ErrClosed)
}
