package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func flush(t *testing.T, l *Loop) {
	t.Helper()
	require.NoError(t, l.Do(context.Background(), func() {}))
}

func TestAfterRunsOnLoop(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	l := NewLoop(clock)
	defer l.Stop()

	var ran []int
	require.NoError(t, l.Do(context.Background(), func() {
		l.After(20*time.Millisecond, func() { ran = append(ran, 2) })
		l.After(10*time.Millisecond, func() { ran = append(ran, 1) })
	}))

	clock.Advance(15 * time.Millisecond)
	flush(t, l)
	assert.Equal(t, []int{1}, ran)

	clock.Advance(10 * time.Millisecond)
	flush(t, l)
	assert.Equal(t, []int{1, 2}, ran)
}

func TestCancelledHandleNeverRuns(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	l := NewLoop(clock)
	defer l.Stop()

	ran := false
	var h *Handle
	require.NoError(t, l.Do(context.Background(), func() {
		h = l.After(time.Second, func() { ran = true })
	}))
	require.NoError(t, l.Do(context.Background(), func() {
		assert.True(t, h.Active())
		h.Cancel()
		h.Cancel()
		assert.False(t, h.Active())
	}))

	clock.Advance(2 * time.Second)
	flush(t, l)
	assert.False(t, ran)
	assert.Equal(t, 0, clock.Pending())
}

// A timer that already fired and posted its callback is still suppressed
// when cancelled before the loop reaches it.
func TestCancelAfterFireBeforeRun(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	l := NewLoop(clock)
	defer l.Stop()

	ran := false
	release := make(chan struct{})
	var h *Handle
	require.NoError(t, l.Do(context.Background(), func() {
		h = l.After(time.Second, func() { ran = true })
	}))

	// The loop is busy when the timer fires; the busy item cancels.
	l.Post(func() {
		<-release
		h.Cancel()
	})
	clock.Advance(time.Second)
	close(release)

	flush(t, l)
	assert.False(t, ran)
}

func TestPostAfterStop(t *testing.T) {
	l := NewLoop(nil)
	l.Stop()
	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
	l.Stop()
}

func TestRealClockFires(t *testing.T) {
	l := NewLoop(RealClock())
	defer l.Stop()

	fired := make(chan struct{})
	l.Post(func() {
		l.After(time.Millisecond, func() { close(fired) })
	})
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}
