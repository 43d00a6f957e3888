package dashboard

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"math"
	"testing"
	"time"

	"cheese-stick/src/models"
	"cheese-stick/src/timeline"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameSkip(t *testing.T) {
	cases := map[int]int{1: 1, 47: 1, 60: 1, 61: 2, 120: 2, 300: 5}
	for days, want := range cases {
		assert.Equal(t, want, FrameSkip(days, 60), "days=%d", days)
	}
	for days := 1; days <= 1000; days++ {
		skip := FrameSkip(days, 60)
		assert.LessOrEqual(t, int(math.Ceil(float64(days)/float64(skip))), 60)
	}
}

type captureEnd struct {
	reason string
	err    error
}

type captureHooks struct {
	cursors []int
	data    []byte
	ends    chan captureEnd
	status  []models.MCaptureStatus
}

func newHookedCapture(t *testing.T) (*timeline.FakeClock, *timeline.Loop, *CaptureDriver, *captureHooks) {
	t.Helper()
	clock, loop := newFakeLoop(t)
	cfg := testConfig().Dashboard
	d := NewCaptureDriver(loop, cfg, nil)
	t.Cleanup(d.Wait)

	p := &captureHooks{ends: make(chan captureEnd, 4)}
	d.Frame = func(cursor int) (image.Image, error) {
		p.cursors = append(p.cursors, cursor)
		img := image.NewRGBA(image.Rect(0, 0, 320, 160))
		img.Set(cursor%320, 0, color.RGBA{255, 0, 0, 255})
		return img, nil
	}
	d.Label = func(cursor int) string { return "2024-01-02" }
	d.OnProgress = func(s models.MCaptureStatus) { p.status = append(p.status, s) }
	d.OnDone = func(data []byte) { p.data = data }
	d.OnEnd = func(reason string, err error) { p.ends <- captureEnd{reason, err} }
	return clock, loop, d, p
}

// runToEnd steps the clock while frames are recorded, then waits for the
// encoder to finish.
func runToEnd(t *testing.T, clock *timeline.FakeClock, loop *timeline.Loop, d *CaptureDriver, p *captureHooks) captureEnd {
	t.Helper()
	for i := 0; i < 1000; i++ {
		var recording bool
		on(t, loop, func() {
			recording = d.Active() && (len(p.status) == 0 || p.status[len(p.status)-1].Message != "Creating GIF...")
		})
		if !recording {
			break
		}
		step(t, clock, loop, d.FrameGap)
	}
	select {
	case end := <-p.ends:
		return end
	case <-time.After(10 * time.Second):
		t.Fatal("capture did not finish")
		return captureEnd{}
	}
}

func TestCaptureVisitsEveryDayWhenShort(t *testing.T) {
	clock, loop, d, p := newHookedCapture(t)
	on(t, loop, func() { require.NoError(t, d.Start(47, ThemeDark)) })
	end := runToEnd(t, clock, loop, d, p)

	require.NoError(t, end.err)
	assert.Empty(t, end.reason)
	want := make([]int, 47)
	for i := range want {
		want[i] = i
	}
	if diff := cmp.Diff(want, p.cursors); diff != "" {
		t.Errorf("visited cursors (-want +got):\n%s", diff)
	}

	anim, err := gif.DecodeAll(bytes.NewReader(p.data))
	require.NoError(t, err)
	assert.Len(t, anim.Image, 47)
	assert.Equal(t, 15, anim.Delay[0])
	assert.Equal(t, image.Rect(0, 0, 120, 60), anim.Image[0].Bounds())
}

func TestCaptureForcesFinalFrame(t *testing.T) {
	clock, loop, d, p := newHookedCapture(t)
	on(t, loop, func() { require.NoError(t, d.Start(300, ThemeLight)) })
	end := runToEnd(t, clock, loop, d, p)
	require.NoError(t, end.err)

	var want []int
	for i := 0; i < 300; i += 5 {
		want = append(want, i)
	}
	want = append(want, 299)
	assert.Equal(t, want, p.cursors)
	assert.Equal(t, "Creating GIF...", p.status[len(p.status)-1].Message)
	assert.NotEmpty(t, p.data)
}

func TestCaptureRejectsSecondStart(t *testing.T) {
	_, loop, d, _ := newHookedCapture(t)
	on(t, loop, func() {
		require.NoError(t, d.Start(100, ThemeDark))
		assert.ErrorIs(t, d.Start(100, ThemeDark), ErrCaptureInProgress)
		d.Cancel(ReasonCancelled)
	})
}

func TestCaptureCancelIsIdempotent(t *testing.T) {
	clock, loop, d, p := newHookedCapture(t)
	on(t, loop, func() { require.NoError(t, d.Start(100, ThemeDark)) })
	step(t, clock, loop, d.FrameGap)

	var first, second bool
	on(t, loop, func() {
		first = d.Cancel(ReasonCancelled)
		second = d.Cancel(ReasonCancelled)
	})
	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, captureEnd{reason: ReasonCancelled}, <-p.ends)
	assert.Len(t, p.ends, 0)

	visited := len(p.cursors)
	step(t, clock, loop, time.Minute)
	assert.Len(t, p.cursors, visited, "no frame after cancel")
	assert.False(t, d.Active())
	assert.Zero(t, clock.Pending())
}

func TestCaptureTimeout(t *testing.T) {
	clock, loop, d, p := newHookedCapture(t)
	d.FrameGap = time.Hour
	on(t, loop, func() { require.NoError(t, d.Start(100, ThemeDark)) })

	step(t, clock, loop, d.Timeout)
	assert.Equal(t, captureEnd{reason: ReasonTimeout}, <-p.ends)
	assert.Equal(t, []int{0}, p.cursors)
	assert.False(t, d.Active())
	assert.Zero(t, clock.Pending())
}

func TestCaptureCompletionAfterCancelIsDropped(t *testing.T) {
	_, loop, d, p := newHookedCapture(t)
	on(t, loop, func() {
		require.NoError(t, d.Start(1, ThemeDark))
		d.Cancel(ReasonCancelled)
	})
	d.Wait()
	on(t, loop, func() {})

	assert.Nil(t, p.data)
	assert.Equal(t, captureEnd{reason: ReasonCancelled}, <-p.ends)
	assert.Len(t, p.ends, 0)
}

func TestCaptureRenderFailure(t *testing.T) {
	_, loop, d, p := newHookedCapture(t)
	boom := errors.New("boom")
	d.Frame = func(int) (image.Image, error) { return nil, boom }
	on(t, loop, func() { require.NoError(t, d.Start(10, ThemeDark)) })

	end := <-p.ends
	assert.Equal(t, ReasonFailed, end.reason)
	assert.ErrorIs(t, end.err, boom)
	assert.False(t, d.Active())
}

func TestCaptureNeedsDays(t *testing.T) {
	_, loop, d, _ := newHookedCapture(t)
	on(t, loop, func() { assert.ErrorIs(t, d.Start(0, ThemeDark), ErrNoPerformance) })
}
