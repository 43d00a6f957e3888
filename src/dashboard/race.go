package dashboard

import (
	"fmt"
	"time"

	"cheese-stick/src/timeline"
)

// RaceState is the playback state of the race view.
type RaceState string

const (
	RaceIdle    RaceState = "idle"
	RacePlaying RaceState = "playing"
	RacePaused  RaceState = "paused"
)

// Speed limits and the base tick interval.
const (
	MinSpeed     = 1
	MaxSpeed     = 10
	BaseInterval = 200 * time.Millisecond
)

// -----------------------------------------------------------------------------

// Race advances the playback cursor on a timeline. All methods must be called
// from the loop that owns it.
type Race struct {
	loop   *timeline.Loop
	state  RaceState
	cursor int
	last   int
	speed  int
	tick   *timeline.Handle

	// OnBounds recomputes the race bounds on Reset.
	OnBounds func()
	// OnFrame renders the chart and standings at cursor.
	OnFrame func(cursor int)
	// OnStop runs when playback reaches the last index.
	OnStop func()
}

// NewRace creates an idle race at cursor 0.
func NewRace(loop *timeline.Loop, speed int) *Race {
	if speed < MinSpeed || speed > MaxSpeed {
		speed = 5
	}
	return &Race{loop: loop, state: RaceIdle, speed: speed}
}

func (r *Race) State() RaceState { return r.state }
func (r *Race) Cursor() int      { return r.cursor }
func (r *Race) Speed() int       { return r.speed }
func (r *Race) LastIndex() int   { return r.last }

// Interval is the delay before the next tick at the current speed.
func (r *Race) Interval() time.Duration {
	return BaseInterval / time.Duration(r.speed)
}

// SetLength sets the number of trading days and clamps the cursor. Playback
// continues unless the cursor lands on the new last index.
func (r *Race) SetLength(days int) {
	r.last = max(days-1, 0)
	r.cursor = min(r.cursor, r.last)
	if r.state == RacePlaying && r.cursor >= r.last {
		r.Stop()
	}
}

// Seek moves the cursor without rendering. Used by the capture driver while
// it owns the cursor.
func (r *Race) Seek(cursor int) {
	r.cursor = min(max(cursor, 0), r.last)
}

// -----------------------------------------------------------------------------

// Reset stops playback, rewinds to 0, recomputes bounds and renders.
func (r *Race) Reset() {
	r.Stop()
	r.cursor = 0
	if r.OnBounds != nil {
		r.OnBounds()
	}
	r.frame()
}

// Play starts or resumes playback, wrapping to 0 from the last index.
func (r *Race) Play() {
	if r.state == RacePlaying {
		return
	}
	if r.cursor >= r.last {
		r.cursor = 0
		r.frame()
	}
	r.state = RacePlaying
	r.schedule()
}

// Pause cancels the pending tick and keeps the cursor.
func (r *Race) Pause() {
	if r.state != RacePlaying {
		return
	}
	r.tick.Cancel()
	r.tick = nil
	r.state = RacePaused
}

// Stop cancels the pending tick and returns to idle.
func (r *Race) Stop() {
	r.tick.Cancel()
	r.tick = nil
	r.state = RaceIdle
}

// SetSpeed changes the multiplier; the next scheduled tick uses it.
func (r *Race) SetSpeed(n int) error {
	if n < MinSpeed || n > MaxSpeed {
		return fmt.Errorf("speed must be between %d and %d, got %d", MinSpeed, MaxSpeed, n)
	}
	r.speed = n
	return nil
}

// -----------------------------------------------------------------------------

func (r *Race) schedule() {
	r.tick = r.loop.After(r.Interval(), r.advance)
}

func (r *Race) advance() {
	if r.state != RacePlaying {
		return
	}
	if r.cursor < r.last {
		r.cursor++
		r.frame()
	}
	if r.cursor >= r.last {
		r.tick = nil
		r.state = RaceIdle
		if r.OnStop != nil {
			r.OnStop()
		}
		return
	}
	r.schedule()
}

func (r *Race) frame() {
	if r.OnFrame != nil {
		r.OnFrame(r.cursor)
	}
}
