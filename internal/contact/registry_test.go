package contact

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(clock *fakeClock) *Registry {
	return NewRegistry(func() *Controller {
		return NewController(SubmitterFunc(succeed))
	}, 30*time.Minute, WithClock(clock.Now))
}

func TestRegistryReturnsSameControllerPerSession(t *testing.T) {
	reg := newTestRegistry(&fakeClock{now: time.Unix(0, 0)})

	a := reg.Get("session-a")
	require.Same(t, a, reg.Get("session-a"))
	require.NotSame(t, a, reg.Get("session-b"))
	require.Equal(t, 2, reg.Len())
}

func TestRegistryReleaseClosesController(t *testing.T) {
	reg := newTestRegistry(&fakeClock{now: time.Unix(0, 0)})
	c := reg.Get("s")
	reg.Release("s")

	require.True(t, c.Closed())
	require.Zero(t, reg.Len())
	require.NotSame(t, c, reg.Get("s"))
}

func TestRegistryReplacesClosedController(t *testing.T) {
	reg := newTestRegistry(&fakeClock{now: time.Unix(0, 0)})
	c := reg.Get("s")
	c.Close()
	require.NotSame(t, c, reg.Get("s"))
}

func TestRegistrySweepClosesIdleForms(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	reg := newTestRegistry(clock)

	stale := reg.Get("stale")
	clock.Add(20 * time.Minute)
	fresh := reg.Get("fresh")
	clock.Add(11 * time.Minute)

	require.Equal(t, 1, reg.Sweep())
	require.True(t, stale.Closed())
	require.False(t, fresh.Closed())
	require.Equal(t, 1, reg.Len())
}

func TestRegistrySweepKeepsInFlightSubmissions(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	release := make(chan struct{})
	defer close(release)
	reg := NewRegistry(func() *Controller {
		return NewController(SubmitterFunc(func(context.Context, Submission) error {
			<-release
			return nil
		}))
	}, time.Minute, WithClock(clock.Now))

	c := reg.Get("busy")
	fillValid(t, c)
	go func() { _, _ = c.Submit(context.Background()) }()
	require.Eventually(t, func() bool { return c.Status() == StatusSubmitting }, time.Second, time.Millisecond)

	clock.Add(time.Hour)
	require.Zero(t, reg.Sweep())
	require.False(t, c.Closed())
}

func TestRegistryRunClosesFormsOnShutdown(t *testing.T) {
	reg := newTestRegistry(&fakeClock{now: time.Unix(0, 0)})
	c := reg.Get("s")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	require.True(t, c.Closed())
	require.Zero(t, reg.Len())
}
