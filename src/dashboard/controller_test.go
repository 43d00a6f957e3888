package dashboard

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/gif"
	"testing"
	"time"

	"cheese-stick/src/helpers"
	"cheese-stick/src/models"
	"cheese-stick/src/timeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type controllerFixture struct {
	clock   *timeline.FakeClock
	loop    *timeline.Loop
	c       *Controller
	rec     *recorder
	exports *memExports
	ends    chan string
}

func newController(t *testing.T, perf *models.MPerformance) *controllerFixture {
	t.Helper()
	clock, loop := newFakeLoop(t)
	f := &controllerFixture{
		clock:   clock,
		loop:    loop,
		c:       NewController(testConfig(), loop, nil),
		rec:     &recorder{},
		exports: &memExports{},
		ends:    make(chan string, 4),
	}
	f.c.Exchanger = f.rec
	f.c.Exports = f.exports
	f.c.OnCaptureFinished = func(_ []byte, reason string, _ error) { f.ends <- reason }
	t.Cleanup(f.c.Close)

	if perf != nil {
		require.NoError(t, f.c.SetPerformance(context.Background(), perf, nil))
	}
	return f
}

func TestControllerPublishesOnLoad(t *testing.T) {
	f := newController(t, makePerf(6, 100, -100))

	st := f.rec.last()
	require.NotNil(t, st)
	assert.Equal(t, models.MsgRefreshed, st.Type)
	assert.Equal(t, string(ViewLine), st.View)
	assert.Equal(t, []int{0, 1}, st.ActivePlayers)
	assert.NotEmpty(t, st.ChartPNG)
	require.Len(t, st.Standings, 2)
	assert.Equal(t, "2024-01-07", st.Date)

	snap, err := f.c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.MsgInitial, snap.Type)
	assert.Equal(t, st.ChartPNG, snap.ChartPNG)
}

func TestControllerRacePlayback(t *testing.T) {
	f := newController(t, makePerf(4, 100, -100))
	ctx := context.Background()

	require.NoError(t, f.c.SetView(ctx, "race"))
	st := f.rec.last()
	assert.Equal(t, string(ViewRace), st.View)
	assert.Equal(t, 0, st.Cursor)
	assert.Equal(t, "2024-01-02", st.Date)

	require.NoError(t, f.c.Play(ctx))
	assert.Equal(t, string(RacePlaying), f.rec.last().RaceState)

	interval := BaseInterval / 5
	var cursors []int
	for i := 0; i < 3; i++ {
		step(t, f.clock, f.loop, interval)
		cursors = append(cursors, f.rec.last().Cursor)
	}
	assert.Equal(t, []int{1, 2, 3}, cursors)
	assert.Equal(t, string(RaceIdle), f.rec.last().RaceState)
}

func TestControllerLeavingRaceStopsIt(t *testing.T) {
	f := newController(t, makePerf(10, 100))
	ctx := context.Background()
	require.NoError(t, f.c.Play(ctx))
	require.NoError(t, f.c.SetView(ctx, "bar"))

	assert.Zero(t, f.clock.Pending())
	assert.Equal(t, string(RaceIdle), f.rec.last().RaceState)
	assert.Equal(t, string(ViewBar), f.rec.last().View)
}

func TestControllerToggleRecomputesRaceBounds(t *testing.T) {
	f := newController(t, makePerf(5, 100, -1000))
	ctx := context.Background()
	require.NoError(t, f.c.SetView(ctx, "race"))

	var before, after Range
	on(t, f.loop, func() { before, _ = f.c.renderer.RaceBounds() })
	require.NoError(t, f.c.TogglePlayer(ctx, 1))
	on(t, f.loop, func() { after, _ = f.c.renderer.RaceBounds() })

	assert.Less(t, before.Min, after.Min)
	assert.Equal(t, []int{0}, f.rec.last().ActivePlayers)
	assert.True(t, helpers.IsValidation(f.c.TogglePlayer(ctx, 9)))
}

func TestControllerRejectsBadInput(t *testing.T) {
	f := newController(t, makePerf(5, 100))
	ctx := context.Background()

	assert.True(t, helpers.IsValidation(f.c.SetSpeed(ctx, 0)))
	assert.True(t, helpers.IsValidation(f.c.SetView(ctx, "pie")))
	assert.True(t, helpers.IsValidation(f.c.SetTheme(ctx, "neon")))
	assert.True(t, helpers.IsValidation(f.c.HandleCommand(ctx, models.MClientCommand{Command: "dance"})))

	require.NoError(t, f.c.HandleCommand(ctx, models.MClientCommand{Command: CmdSpeed, Speed: 9}))
	assert.Equal(t, 9, f.rec.last().Speed)
	require.NoError(t, f.c.HandleCommand(ctx, models.MClientCommand{Command: CmdTheme, Theme: "LIGHT"}))
	assert.Equal(t, string(ThemeLight), f.rec.last().Theme)
	require.NoError(t, f.c.HandleCommand(ctx, models.MClientCommand{Command: CmdIncludeShort, Enabled: true}))
	assert.True(t, f.rec.last().IncludeShort)
}

func TestControllerWithoutPerformance(t *testing.T) {
	f := newController(t, nil)
	ctx := context.Background()
	assert.ErrorIs(t, f.c.Play(ctx), ErrNoPerformance)
	assert.ErrorIs(t, f.c.StartCapture(ctx), ErrNoPerformance)
	assert.ErrorIs(t, f.c.Reset(ctx), ErrNoPerformance)
}

func TestControllerCaptureExclusion(t *testing.T) {
	f := newController(t, makePerf(100, 100, -100))
	ctx := context.Background()

	require.NoError(t, f.c.Play(ctx))
	step(t, f.clock, f.loop, BaseInterval/5)
	require.NoError(t, f.c.StartCapture(ctx))

	st := f.rec.last()
	assert.Equal(t, string(RacePaused), st.RaceState)
	assert.True(t, st.Capture.Active)
	assert.Equal(t, 0, st.Cursor)

	assert.ErrorIs(t, f.c.Play(ctx), ErrCaptureInProgress)
	assert.ErrorIs(t, f.c.StartCapture(ctx), ErrCaptureInProgress)
	assert.ErrorIs(t, f.c.SetView(ctx, "bar"), ErrCaptureInProgress)

	first, err := f.c.CancelCapture(ctx)
	require.NoError(t, err)
	second, err := f.c.CancelCapture(ctx)
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, ReasonCancelled, <-f.ends)

	st = f.rec.last()
	assert.False(t, st.Capture.Active)
	assert.Equal(t, ReasonCancelled, st.Capture.Message)
	assert.Empty(t, f.exports.items)

	require.NoError(t, f.c.Play(ctx))
}

func TestControllerCaptureCompletes(t *testing.T) {
	f := newController(t, makePerf(6, 100, -100))
	ctx := context.Background()
	require.NoError(t, f.c.StartCapture(ctx))

	for i := 0; i < 5; i++ {
		step(t, f.clock, f.loop, 50*time.Millisecond)
	}
	select {
	case reason := <-f.ends:
		assert.Empty(t, reason)
	case <-time.After(10 * time.Second):
		t.Fatal("capture did not finish")
	}
	on(t, f.loop, func() {})

	ready := f.rec.ofType(models.MsgGifReady)
	require.Len(t, ready, 1)
	assert.Equal(t, "/api/exports/x1", ready[0].ExportURL)

	name, data, ok := f.exports.Get("x1")
	require.True(t, ok)
	assert.Equal(t, GifFileName, name)
	anim, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, anim.Image, 6)
	assert.Equal(t, image.Pt(120, 60), anim.Image[0].Bounds().Size())
}

func TestControllerRefreshKeepsRacePlaying(t *testing.T) {
	f := newController(t, makePerf(50, 100, -100))
	ctx := context.Background()
	require.NoError(t, f.c.Play(ctx))

	interval := BaseInterval / 5
	for i := 0; i < 10; i++ {
		step(t, f.clock, f.loop, interval)
	}
	require.Equal(t, 10, f.rec.last().Cursor)

	require.NoError(t, f.c.SetPerformance(ctx, makePerf(50, 100, -100), nil))
	st := f.rec.last()
	assert.Equal(t, models.MsgRefreshed, st.Type)
	assert.Equal(t, string(RacePlaying), st.RaceState)
	assert.Equal(t, 10, st.Cursor)
	assert.Equal(t, 1, f.clock.Pending())

	step(t, f.clock, f.loop, interval)
	assert.Equal(t, 11, f.rec.last().Cursor)
}

func TestControllerRefreshClampsCursor(t *testing.T) {
	f := newController(t, makePerf(50, 100))
	ctx := context.Background()
	require.NoError(t, f.c.Play(ctx))
	for i := 0; i < 20; i++ {
		step(t, f.clock, f.loop, BaseInterval/5)
	}

	require.NoError(t, f.c.SetPerformance(ctx, makePerf(8, 100), nil))
	st := f.rec.last()
	assert.Equal(t, 7, st.Cursor)
	assert.Equal(t, string(RaceIdle), st.RaceState)
	assert.Zero(t, f.clock.Pending())
}

func TestControllerRefreshWaitsForCapture(t *testing.T) {
	f := newController(t, makePerf(100, 100))
	ctx := context.Background()
	require.NoError(t, f.c.StartCapture(ctx))
	require.NoError(t, f.c.SetPerformance(ctx, makePerf(50, 100), nil))

	var days int
	var active bool
	on(t, f.loop, func() {
		days = len(f.c.perf.TradingDays)
		active = f.c.capture.Active()
	})
	assert.Equal(t, 100, days)
	assert.True(t, active)
	assert.Len(t, f.ends, 0)

	_, err := f.c.CancelCapture(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, <-f.ends)

	on(t, f.loop, func() { days = len(f.c.perf.TradingDays) })
	assert.Equal(t, 50, days)
	assert.Equal(t, models.MsgRefreshed, f.rec.last().Type)
}

func TestControllerResetBoundsCoverWholeHistory(t *testing.T) {
	perf := makePerf(50, 100, -100)
	f := newController(t, perf)
	ctx := context.Background()
	require.NoError(t, f.c.Play(ctx))
	for i := 0; i < 10; i++ {
		step(t, f.clock, f.loop, BaseInterval/5)
	}
	require.NoError(t, f.c.Pause(ctx))
	require.Equal(t, 10, f.rec.last().Cursor)

	require.NoError(t, f.c.Reset(ctx))
	assert.Equal(t, 0, f.rec.last().Cursor)

	var got Range
	var ok bool
	on(t, f.loop, func() { got, ok = f.c.renderer.RaceBounds() })
	require.True(t, ok)
	lo, hi, _ := Bounds(perf, AllPlayers(2), false)
	assert.Equal(t, Range{Min: lo, Max: hi}, got)
	assert.Less(t, got.Min, models.InitialInvestment-100*10)
}

func TestControllerErrorStateIsNotReplayed(t *testing.T) {
	f := newController(t, makePerf(6, 100))
	ctx := context.Background()

	on(t, f.loop, func() {
		f.c.capture.Frame = func(int) (image.Image, error) { return nil, errors.New("boom") }
	})
	require.NoError(t, f.c.StartCapture(ctx))
	assert.Equal(t, ReasonFailed, <-f.ends)

	failed := f.rec.ofType(models.MsgError)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Error)
	assert.NotEqual(t, models.MsgError, f.rec.latestState().Type)

	snap, err := f.c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MsgInitial, snap.Type)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.Capture.Active)
	assert.Equal(t, ReasonFailed, snap.Capture.Message)
}

type stubSource struct {
	perf *models.MPerformance
	err  error
}

func (s stubSource) Performance(context.Context) (*models.MPerformance, *models.MCompetition, error) {
	return s.perf, nil, s.err
}

func TestControllerRefreshFromSource(t *testing.T) {
	f := newController(t, makePerf(6, 100))
	ctx := context.Background()

	err := f.c.Refresh(ctx, stubSource{err: errors.New("yahoo down")})
	require.Error(t, err)
	st, err := f.c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-07", st.Date)

	require.NoError(t, f.c.Refresh(ctx, stubSource{perf: makePerf(9, 100)}))
	st, err = f.c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", st.Date)
}

func TestExportGIF(t *testing.T) {
	data, err := ExportGIF(context.Background(), testConfig(), makePerf(12, 100, -100), nil, ExportOptions{Theme: ThemeLight}, nil)
	require.NoError(t, err)
	anim, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, anim.Image, 12)

	_, err = ExportGIF(context.Background(), testConfig(), nil, nil, ExportOptions{}, nil)
	assert.ErrorIs(t, err, ErrNoPerformance)
}
