package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/studyplan/core/events"
	"github.com/kilianp07/studyplan/internal/eventbus"
)

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("s%d", i+1)
	}
	return out
}

func TestRunIsolatesFailures(t *testing.T) {
	gen := func(_ context.Context, id string) error {
		switch id {
		case "s5":
			return errors.New("boom")
		case "s7":
			panic("bad input")
		}
		return nil
	}
	res := RunBatch(context.Background(), ids(10), gen, 3, nil)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 8, res.SuccessCount)
	assert.Equal(t, 2, res.FailureCount)
	assert.False(t, res.Cancelled)
	assert.Equal(t, []string{"s5", "s7"}, res.FailedIDs())
	require.Len(t, res.Students, 10)
	for i, s := range res.Students {
		assert.Equal(t, fmt.Sprintf("s%d", i+1), s.StudentID)
	}
	assert.Equal(t, "boom", res.Students[4].Error)
	assert.Contains(t, res.Students[6].Error, "panic")
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	var cur, peak atomic.Int32
	gen := func(context.Context, string) error {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		cur.Add(-1)
		return nil
	}
	res := RunBatch(context.Background(), ids(10), gen, 3, nil)
	assert.Equal(t, 10, res.SuccessCount)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	gen := func(ctx context.Context, _ string) error {
		started <- struct{}{}
		<-release
		return ctx.Err()
	}

	go func() {
		<-started
		<-started
		cancel()
		close(release)
	}()
	res := RunBatch(ctx, ids(6), gen, 2, nil)

	assert.True(t, res.Cancelled)
	assert.Equal(t, 2, res.SuccessCount, "running students finish undisturbed")
	assert.Equal(t, 4, res.FailureCount)
	for _, s := range res.Students[2:] {
		assert.True(t, errors.Is(s.Err(), ErrCancelled))
	}
}

func TestRunStudentTimeout(t *testing.T) {
	o := NewOrchestrator(Config{ConcurrencyLimit: 2, StudentTimeoutSeconds: 1}, nil)
	res := o.Run(context.Background(), []string{"slow", "fast"}, func(ctx context.Context, id string) error {
		if id == "slow" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	assert.Equal(t, []string{"slow"}, res.FailedIDs())
	assert.True(t, errors.Is(res.Students[0].Err(), context.DeadlineExceeded))
}

func TestHookFailuresDoNotFailStudents(t *testing.T) {
	hookErrs := make(chan HookError, 4)
	var mu sync.Mutex
	var notified []string
	notifier := NotifierFunc(func(ctx context.Context, id string) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		mu.Lock()
		notified = append(notified, id)
		mu.Unlock()
		if id == "s2" {
			return errors.New("broker down")
		}
		if id == "s3" {
			panic("hook panic")
		}
		return nil
	})
	bus := eventbus.New()
	sub := bus.Subscribe()
	o := NewOrchestrator(Config{ConcurrencyLimit: 2}, nil, WithNotifier(notifier), WithHookErrors(hookErrs), WithBus(bus))

	res := o.Run(context.Background(), ids(4), func(_ context.Context, id string) error {
		if id == "s4" {
			return errors.New("generation failed")
		}
		return nil
	})
	o.Wait()
	bus.Close()

	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	mu.Lock()
	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, notified)
	mu.Unlock()

	close(hookErrs)
	var failed []string
	for he := range hookErrs {
		failed = append(failed, he.StudentID)
	}
	assert.ElementsMatch(t, []string{"s2", "s3"}, failed)

	var students, hooks, batches int
	for ev := range sub {
		switch e := ev.(type) {
		case events.StudentEvent:
			students++
		case events.HookEvent:
			hooks++
		case events.BatchEvent:
			batches++
			assert.Equal(t, res.RunID, e.RunID)
			assert.Equal(t, 3, e.SuccessCount)
		}
	}
	assert.Equal(t, 4, students)
	assert.Equal(t, 2, hooks)
	assert.Equal(t, 1, batches)
}

func TestHookSurvivesBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var hookCtxErr atomic.Value
	done := make(chan struct{})
	o := NewOrchestrator(Config{ConcurrencyLimit: 1}, nil, WithNotifier(NotifierFunc(func(ctx context.Context, _ string) error {
		<-done
		if err := ctx.Err(); err != nil {
			hookCtxErr.Store(err)
		}
		return nil
	})))
	o.Run(ctx, []string{"s1"}, func(context.Context, string) error { return nil })
	cancel()
	close(done)
	o.Wait()
	assert.Nil(t, hookCtxErr.Load())
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, DefaultConcurrencyLimit, c.ConcurrencyLimit)
	assert.Equal(t, 10*time.Second, c.hookTimeout())
	assert.Error(t, Config{StudentTimeoutSeconds: -1}.Validate())
}
