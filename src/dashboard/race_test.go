package dashboard

import (
	"testing"
	"time"

	"cheese-stick/src/timeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type raceHooks struct {
	frames  []int
	bounds  int
	stopped int
}

func newHookedRace(t *testing.T, days int) (*timeline.FakeClock, *timeline.Loop, *Race, *raceHooks) {
	t.Helper()
	clock, loop := newFakeLoop(t)
	r := NewRace(loop, 5)
	p := &raceHooks{}
	r.OnFrame = func(c int) { p.frames = append(p.frames, c) }
	r.OnBounds = func() { p.bounds++ }
	r.OnStop = func() { p.stopped++ }
	on(t, loop, func() { r.SetLength(days) })
	return clock, loop, r, p
}

func TestRaceIntervalFollowsSpeed(t *testing.T) {
	r := NewRace(nil, 5)
	assert.Equal(t, 40*time.Millisecond, r.Interval())
	require.NoError(t, r.SetSpeed(10))
	assert.Equal(t, 20*time.Millisecond, r.Interval())
	require.NoError(t, r.SetSpeed(1))
	assert.Equal(t, 200*time.Millisecond, r.Interval())

	assert.Error(t, r.SetSpeed(0))
	assert.Error(t, r.SetSpeed(11))
	assert.Equal(t, 1, r.Speed())
}

func TestRaceResetRendersCursorZero(t *testing.T) {
	_, loop, r, p := newHookedRace(t, 5)
	on(t, loop, r.Reset)
	assert.Equal(t, []int{0}, p.frames)
	assert.Equal(t, 1, p.bounds)
	assert.Equal(t, RaceIdle, r.State())
}

func TestRacePlaysInOrderAndStopsAtEnd(t *testing.T) {
	clock, loop, r, p := newHookedRace(t, 5)
	on(t, loop, r.Play)
	assert.Equal(t, RacePlaying, r.State())

	for i := 0; i < 4; i++ {
		step(t, clock, loop, r.Interval())
	}
	assert.Equal(t, []int{1, 2, 3, 4}, p.frames)
	assert.Equal(t, RaceIdle, r.State())
	assert.Equal(t, 1, p.stopped)
	assert.Zero(t, clock.Pending())

	step(t, clock, loop, time.Second)
	assert.Equal(t, []int{1, 2, 3, 4}, p.frames)
}

func TestRacePlayAtEndWraps(t *testing.T) {
	clock, loop, r, p := newHookedRace(t, 3)
	on(t, loop, func() { r.Seek(2) })
	on(t, loop, r.Play)
	assert.Equal(t, []int{0}, p.frames)

	step(t, clock, loop, r.Interval())
	step(t, clock, loop, r.Interval())
	assert.Equal(t, []int{0, 1, 2}, p.frames)
	assert.Equal(t, RaceIdle, r.State())
}

func TestRacePauseCancelsPendingTick(t *testing.T) {
	clock, loop, r, p := newHookedRace(t, 10)
	on(t, loop, r.Reset)
	on(t, loop, r.Play)
	step(t, clock, loop, r.Interval())
	on(t, loop, r.Pause)

	assert.Equal(t, RacePaused, r.State())
	assert.Zero(t, clock.Pending())
	step(t, clock, loop, time.Second)
	assert.Equal(t, []int{0, 1}, p.frames)
	assert.Equal(t, 1, r.Cursor())

	on(t, loop, r.Play)
	step(t, clock, loop, r.Interval())
	assert.Equal(t, []int{0, 1, 2}, p.frames)
}

func TestRaceSpeedAppliesToNextTick(t *testing.T) {
	clock, loop, r, p := newHookedRace(t, 10)
	on(t, loop, r.Reset)
	on(t, loop, r.Play)
	on(t, loop, func() { _ = r.SetSpeed(1) })

	// the tick already scheduled keeps its 40ms delay
	step(t, clock, loop, 40*time.Millisecond)
	assert.Equal(t, []int{0, 1}, p.frames)

	step(t, clock, loop, 40*time.Millisecond)
	assert.Equal(t, []int{0, 1}, p.frames)
	step(t, clock, loop, 160*time.Millisecond)
	assert.Equal(t, []int{0, 1, 2}, p.frames)
}

func TestRaceSingleDay(t *testing.T) {
	clock, loop, r, p := newHookedRace(t, 1)
	on(t, loop, r.Play)
	step(t, clock, loop, r.Interval())
	assert.Equal(t, []int{0}, p.frames)
	assert.Equal(t, RaceIdle, r.State())
}

func TestRaceSetLengthKeepsPlayback(t *testing.T) {
	clock, loop, r, p := newHookedRace(t, 10)
	on(t, loop, r.Play)
	step(t, clock, loop, r.Interval())
	step(t, clock, loop, r.Interval())

	on(t, loop, func() { r.SetLength(20) })
	assert.Equal(t, RacePlaying, r.State())
	assert.Equal(t, 2, r.Cursor())
	step(t, clock, loop, r.Interval())
	assert.Equal(t, []int{1, 2, 3}, p.frames)

	on(t, loop, func() { r.SetLength(3) })
	assert.Equal(t, RaceIdle, r.State())
	assert.Equal(t, 2, r.Cursor())
	assert.Zero(t, clock.Pending())
}
