package toggle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginComplete(t *testing.T) {
	c := New[string](nil)
	require.Equal(t, Idle, c.State("s1"))
	require.True(t, c.Begin("s1"))
	require.Equal(t, InFlight, c.State("s1"))
	require.False(t, c.Begin("s1"), "second begin must be refused")
	require.True(t, c.Begin("s2"), "other ids are independent")
	c.Complete("s1")
	require.Equal(t, Idle, c.State("s1"))
	require.True(t, c.Begin("s1"))
}

func TestRunPatchesCacheOnSuccess(t *testing.T) {
	cache := NewMap[string]()
	cache.Put("s1", "Active")
	c := New[string](cache)

	out := c.Run(context.Background(), "s1", func(_ context.Context, prior string) (string, error) {
		assert.Equal(t, "Active", prior)
		return "Inactive", nil
	})
	assert.Equal(t, Ok, out.Kind)
	assert.Equal(t, "Inactive", out.Value)
	got, _ := cache.Get("s1")
	assert.Equal(t, "Inactive", got)
	assert.Equal(t, Idle, c.State("s1"))
}

func TestRunOptimisticRevertsOnFailure(t *testing.T) {
	cache := NewMap[string]()
	cache.Put("s1", "Unpaid")
	c := New[string](cache)
	boom := errors.New("storage down")

	out := c.RunOptimistic(context.Background(), "s1",
		func(string) string { return "Paid" },
		func(context.Context, string) (string, error) {
			got, _ := cache.Get("s1")
			assert.Equal(t, "Paid", got, "optimistic value visible while in flight")
			return "", boom
		})
	assert.Equal(t, Err, out.Kind)
	assert.ErrorIs(t, out.Err, boom)
	assert.Equal(t, "Unpaid", out.Value)
	got, _ := cache.Get("s1")
	assert.Equal(t, "Unpaid", got)
	assert.Equal(t, Idle, c.State("s1"))
}

func TestRunClearsInFlightOnPanic(t *testing.T) {
	c := New[int](nil)
	func() {
		defer func() { _ = recover() }()
		c.Run(context.Background(), "x", func(context.Context, int) (int, error) { panic("boom") })
	}()
	assert.Equal(t, Idle, c.State("x"))
}

func TestRunOptimisticRevertsOnPanic(t *testing.T) {
	cache := NewMap[string]()
	cache.Put("s1", "Active")
	c := New[string](cache)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		c.RunOptimistic(context.Background(), "s1",
			func(string) string { return "Inactive" },
			func(context.Context, string) (string, error) { panic("backend client bug") })
	}()
	require.Equal(t, "backend client bug", recovered, "panic must propagate")
	got, _ := cache.Get("s1")
	assert.Equal(t, "Active", got, "optimistic patch must be reverted")
	assert.Equal(t, Idle, c.State("s1"))
}

func TestConcurrentRunsApplyOnce(t *testing.T) {
	c := New[int](NewMap[int]())
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32

	var wg sync.WaitGroup
	outcomes := make([]Outcome[int], 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[0] = c.Run(context.Background(), "s1", func(context.Context, int) (int, error) {
			atomic.AddInt32(&calls, 1)
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started
	outcomes[1] = c.Run(context.Background(), "s1", func(context.Context, int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 2, nil
	})
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, Ok, outcomes[0].Kind)
	assert.Equal(t, Skipped, outcomes[1].Kind)
	assert.Equal(t, "skipped", outcomes[1].Kind.String())
}
