package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureCompletesOnce(t *testing.T) {
	f, complete := NewFuture[int]()
	_, _, ok := f.Result()
	assert.False(t, ok)

	complete(1, nil)
	complete(2, errors.New("ignored"))

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestAwaitHonoursContext(t *testing.T) {
	f, _ := NewFuture[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGoRecoversPanic(t *testing.T) {
	f := Go(func() (int, error) { panic("boom") })
	_, err := f.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestThenAndCatch(t *testing.T) {
	doubled := Then(Completed(21), func(v int) (int, error) { return v * 2, nil })
	v, err := doubled.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	sentinel := errors.New("lookup failed")
	skipped := Then(Failed[int](sentinel), func(v int) (string, error) {
		t.Fatal("mapper must not run on failure")
		return "", nil
	})
	_, err = skipped.Await(context.Background())
	assert.ErrorIs(t, err, sentinel)

	recovered := Catch(Failed[string](sentinel), func(error) string { return "fallback" })
	s, err := recovered.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback", s)
}

func TestPoolRunsTasks(t *testing.T) {
	p := NewPool(4, 16)
	defer p.Close()

	var futures []*Future[int]
	for i := 0; i < 10; i++ {
		i := i
		futures = append(futures, Submit(context.Background(), p, func(context.Context) (int, error) {
			return i * i, nil
		}))
	}
	for i, f := range futures {
		v, err := f.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i*i, v)
	}
}

func TestPoolRejectsWhenFull(t *testing.T) {
	p := NewPool(1, 1)
	var rejected []error
	var mu sync.Mutex
	p.OnReject = func(err error) {
		mu.Lock()
		rejected = append(rejected, err)
		mu.Unlock()
	}

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := Submit(context.Background(), p, func(context.Context) (struct{}, error) {
		close(started)
		<-release
		return struct{}{}, nil
	})
	<-started

	queued := Submit(context.Background(), p, func(context.Context) (int, error) { return 1, nil })
	overflow := Submit(context.Background(), p, func(context.Context) (int, error) { return 2, nil })

	_, err, done := overflow.Result()
	require.True(t, done, "rejected submissions complete immediately")
	assert.ErrorIs(t, err, ErrPoolFull)

	close(release)
	_, err = blocker.Await(context.Background())
	require.NoError(t, err)
	v, err := queued.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	p.Close()
	_, err = Submit(context.Background(), p, func(context.Context) (int, error) { return 3, nil }).Await(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, rejected, 2)
}

func TestSubmitSkipsCancelledContext(t *testing.T) {
	p := NewPool(1, 1)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	_, err := Submit(ctx, p, func(context.Context) (int, error) {
		ran = true
		return 0, nil
	}).Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}
